package gateway

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// embedDimensions is the fixed width of every embedding this gateway
// produces, matching whatever the vector store expects.
const embedDimensions = 256

// Embed implements Embedder. The Anthropic messages API has no embeddings
// endpoint, so this uses a deterministic local hashing embedding
// (bag-of-terms projected into fixed buckets, L2-normalized) rather than
// a second network dependency - the same "local, no external dependency"
// tradeoff the store's vector fallback makes, and it degrades gracefully
// per spec.md's graceful-degradation property: embedding never blocks or
// fails for lack of network access. Concurrent identical-text calls are
// deduplicated via embedGroup (singleflight), grounded on
// other_examples/.../sqlitevec/client.go's embeddingGroup.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := g.embedGroup.do(text, func() (interface{}, error) {
		return hashEmbed(text), nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, embedDimensions)
	for _, term := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		bucket := int(h.Sum32() % uint32(embedDimensions))
		vec[bucket] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}
