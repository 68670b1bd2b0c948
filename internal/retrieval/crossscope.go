package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

// CrossScopeResult pairs a user-scope observation with its source project.
type CrossScopeResult struct {
	Observation *types.UserObservation
}

// parser is a package-level natural-language date parser (§4.4's
// "olebedev/when" dependency), safe for concurrent use, built once.
var parser = newWhenParser()

func newWhenParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseRelativeDate resolves a natural-language anchor ("last week",
// "yesterday") against now, used by mem-history's anchor field.
func ParseRelativeDate(anchor string, now time.Time) (time.Time, error) {
	r, err := parser.Parse(anchor, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("retrieval: parse relative date %q: %w", anchor, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("retrieval: %q did not resolve to a date", anchor)
	}
	return r.Time, nil
}

// SearchUserScope runs a keyword query against the user-scope database,
// appended after project results per spec.md §4.4's cross-scope merge
// rule: user-scope results are always ranked after project-scope ones,
// never interleaved ahead of them.
func SearchUserScope(ctx context.Context, userStore *store.Store, query string, limit int) ([]CrossScopeResult, error) {
	if userStore == nil {
		return nil, nil
	}
	obs, err := userStore.SearchUserObservations(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieval: search user scope: %w", err)
	}
	out := make([]CrossScopeResult, len(obs))
	for i, o := range obs {
		out[i] = CrossScopeResult{Observation: o}
	}
	return out, nil
}
