package store

import (
	"context"
	"encoding/binary"
	"math"
	"time"
)

// ScoredID pairs an observation ID with a similarity score in [0, 1].
type ScoredID struct {
	ID    string
	Score float64
}

// VectorIndex is the semantic-search projection for observations (§4.1).
// Two implementations exist: one built with the "sqlitevec" tag, which
// registers the sqlite-vec extension, and the default fallback. Both
// search by the same in-memory cosine-similarity scan over every
// embedding they hold; no vec0 table is queried.
type VectorIndex struct {
	impl vectorImpl
}

type vectorImpl interface {
	add(id string, vec []float32)
	remove(id string)
	search(query []float32, limit int) []ScoredID
	size() int
}

func newVectorIndex() VectorIndex {
	return VectorIndex{impl: newVectorImpl()}
}

// StoreEmbedding persists an observation's embedding vector and updates
// the in-process vector index.
func (s *Store) StoreEmbedding(ctx context.Context, observationID string, vec []float32) error {
	blob := encodeFloat32s(vec)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings(observation_id, vector, dims, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(observation_id) DO UPDATE SET vector = excluded.vector, dims = excluded.dims`,
		observationID, blob, len(vec), formatTime(time.Now()))
	if err != nil {
		return wrapDBErrorf(err, "store embedding %s", observationID)
	}
	s.mu.Lock()
	s.vector.impl.add(observationID, vec)
	s.mu.Unlock()
	return nil
}

// GetEmbedding reads back a stored embedding.
func (s *Store) GetEmbedding(ctx context.Context, observationID string) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE observation_id = ?`, observationID).Scan(&blob)
	if err != nil {
		return nil, wrapDBError("get embedding", err)
	}
	return decodeFloat32s(blob), nil
}

// SearchByVector returns the top-N nearest observations by cosine
// similarity to the query embedding.
func (s *Store) SearchByVector(ctx context.Context, query []float32, limit int) []ScoredID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vector.impl.search(query, limit)
}

// VectorIndexSize reports how many embeddings are currently indexed.
func (s *Store) VectorIndexSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vector.impl.size()
}

// loadVectorIndex preloads the in-process vector index from persisted
// embeddings at startup. The fallback index only ever scans what it holds
// in memory, so this preload is what makes SearchByVector reflect
// previously stored embeddings across daemon restarts.
func (s *Store) loadVectorIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT observation_id, vector FROM embeddings ORDER BY created_at DESC`)
	if err != nil {
		return wrapDBError("load vector index", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return wrapDBError("scan embedding", err)
		}
		s.vector.impl.add(id, decodeFloat32s(blob))
	}
	return rows.Err()
}

func encodeFloat32s(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32s(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
