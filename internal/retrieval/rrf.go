// Package retrieval implements C4: hybrid retrieval over observations,
// combining keyword (FTS), semantic (vector), and graph-augmented result
// lists via reciprocal rank fusion, with LLM or heuristic reranking.
package retrieval

// rrfK is the standard reciprocal-rank-fusion damping constant (k=60),
// chosen per spec.md §4.4 to de-weight the exact rank position while
// still rewarding items that appear near the top of multiple lists.
const rrfK = 60

// FusedResult is one observation ID plus its fused RRF score.
type FusedResult struct {
	ID    string
	Score float64
}

// FuseRRF merges any number of ranked ID lists (best first) into a single
// ranking via reciprocal rank fusion: score(id) = sum over lists containing
// id of 1/(k + rank).
func FuseRRF(lists ...[]string) []FusedResult {
	scores := make(map[string]float64)
	order := make([]string, 0)
	seen := make(map[string]bool)

	for _, list := range lists {
		for rank, id := range list {
			if !seen[id] {
				seen[id] = true
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(rrfK+rank+1)
		}
	}

	out := make([]FusedResult, 0, len(order))
	for _, id := range order {
		out = append(out, FusedResult{ID: id, Score: scores[id]})
	}
	stableSortByScoreDesc(out)
	return out
}

func stableSortByScoreDesc(results []FusedResult) {
	// Insertion sort: result sets are small (bounded by per-strategy limits)
	// and stability (preserving first-seen order on ties) matters more than
	// asymptotic complexity here.
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && results[j-1].Score < results[j].Score {
			results[j-1], results[j] = results[j], results[j-1]
			j--
		}
	}
}
