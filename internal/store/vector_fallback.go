//go:build !sqlitevec

package store

import "sort"

// fallbackVectorIndex is the default vector search backend: a full
// in-memory scan with cosine similarity. Activated whenever the
// "sqlitevec" cgo build tag is not set, per the resolved Open Question
// in DESIGN.md: it scans every embedding it holds rather than silently
// widening or narrowing the candidate set, trading recall at very large
// observation counts for zero build-time cgo dependency.
type fallbackVectorIndex struct {
	vectors map[string][]float32
}

func newVectorImpl() vectorImpl {
	return &fallbackVectorIndex{vectors: make(map[string][]float32)}
}

func (f *fallbackVectorIndex) add(id string, vec []float32) {
	f.vectors[id] = vec
}

func (f *fallbackVectorIndex) remove(id string) {
	delete(f.vectors, id)
}

func (f *fallbackVectorIndex) size() int {
	return len(f.vectors)
}

func (f *fallbackVectorIndex) search(query []float32, limit int) []ScoredID {
	if limit <= 0 {
		limit = 20
	}
	scored := make([]ScoredID, 0, len(f.vectors))
	for id, vec := range f.vectors {
		scored = append(scored, ScoredID{ID: id, Score: cosineSimilarity(query, vec)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
