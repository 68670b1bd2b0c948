package gateway

import (
	"golang.org/x/sync/singleflight"
)

// embedGroup deduplicates concurrent Embed calls for identical text,
// grounded on other_examples/.../thebtf-engram/internal/vector/sqlitevec/
// client.go's embeddingGroup singleflight.Group field.
type embedGroup struct {
	group singleflight.Group
}

func newEmbedGroup() *embedGroup {
	return &embedGroup{}
}

func (g *embedGroup) do(key string, fn func() (interface{}, error)) ([]float32, error) {
	v, err, _ := g.group.Do(key, fn)
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}
