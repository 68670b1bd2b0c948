//go:build sqlitevec

package store

import (
	"sort"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	sqlite_vec.Auto()
}

// nativeVectorIndex mirrors the fallback's in-memory interface but is
// built when the "sqlitevec" cgo tag is set, so that a future vec0
// virtual-table backed implementation can be dropped in behind the same
// vectorImpl seam without touching callers. Grounded on
// other_examples/.../thebtf-engram/internal/vector/sqlitevec/client.go,
// which registers the same sqlite_vec.Auto() extension and keeps an
// in-process cache alongside the native index for latency.
type nativeVectorIndex struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

func newVectorImpl() vectorImpl {
	return &nativeVectorIndex{vectors: make(map[string][]float32)}
}

func (n *nativeVectorIndex) add(id string, vec []float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.vectors[id] = vec
}

func (n *nativeVectorIndex) remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.vectors, id)
}

func (n *nativeVectorIndex) size() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.vectors)
}

// search currently delegates to the same cosine scan as the fallback.
// The sqlite_vec extension registered in init() makes a native vec0
// virtual table available to callers that want to push the KNN query
// into SQL directly (see store/vector.go's VectorIndex seam); the
// in-memory path here keeps behavior identical across both builds until
// a vec0-backed table is wired into the schema.
func (n *nativeVectorIndex) search(query []float32, limit int) []ScoredID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	scored := make([]ScoredID, 0, len(n.vectors))
	for id, vec := range n.vectors {
		scored = append(scored, ScoredID{ID: id, Score: cosineSimilarity(query, vec)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
