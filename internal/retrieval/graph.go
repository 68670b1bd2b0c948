package retrieval

import (
	"context"

	"github.com/open-mem/open-mem/internal/store"
)

// GraphAugment expands a query's seed concepts into additional candidate
// observation IDs by resolving each concept to an entity, walking one hop
// along the relation graph, and collecting observations that mention the
// neighboring entities. Depth is fixed at 1 per spec.md §4.4 to bound
// fan-out from a single retrieval call.
func GraphAugment(ctx context.Context, st *store.Store, seedConcepts []string) ([]string, error) {
	entitySet := make(map[string]bool)
	for _, concept := range seedConcepts {
		e, err := st.EntityByName(ctx, concept)
		if err != nil {
			continue
		}
		entitySet[e.ID] = true
	}
	if len(entitySet) == 0 {
		return nil, nil
	}

	neighborSet := make(map[string]bool)
	for entityID := range entitySet {
		neighbors, err := st.RelatedEntities(ctx, entityID)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			neighborSet[n] = true
		}
	}
	for entityID := range entitySet {
		neighborSet[entityID] = true
	}

	var neighborIDs []string
	for id := range neighborSet {
		neighborIDs = append(neighborIDs, id)
	}
	return st.ObservationsMentioning(ctx, neighborIDs)
}
