package store

import (
	"context"
	"regexp"
	"strings"

	"github.com/open-mem/open-mem/internal/types"
)

// fieldQualifier matches a "field:term" prefix, e.g. "concepts:auth".
var fieldQualifier = regexp.MustCompile(`^(concepts|files|title|type):(.+)$`)

// fieldToFTSColumn maps a field-qualified filter prefix to its FTS5 column.
var fieldToFTSColumn = map[string]string{
	"concepts": "concepts",
	"title":    "title",
}

// ftsQuery rewrites a user-supplied search string into an FTS5 MATCH
// expression, honoring the concepts: and title: field qualifiers (§4.4
// "field-qualified filter query syntax"). Every other token, files: and
// type: ones included, becomes a quoted term of its own, and FTS5 ANDs
// the terms together.
func ftsQuery(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return `""`
	}
	var terms []string
	for _, tok := range strings.Fields(q) {
		if m := fieldQualifier.FindStringSubmatch(tok); m != nil {
			col, ok := fieldToFTSColumn[m[1]]
			if ok {
				terms = append(terms, col+":"+quoteFTSTerm(m[2]))
				continue
			}
		}
		terms = append(terms, quoteFTSTerm(tok))
	}
	return strings.Join(terms, " ")
}

func quoteFTSTerm(term string) string {
	term = strings.ReplaceAll(term, `"`, `""`)
	return `"` + term + `"`
}

// SearchObservationsFTS runs a keyword query against the project-scope FTS
// projection and returns matches ordered by FTS rank.
func (s *Store) SearchObservationsFTS(ctx context.Context, query string, limit int) ([]*types.Observation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+qualify("o", observationColumns)+`
		FROM observations_fts f
		JOIN observations o ON o.rowid = f.rowid
		WHERE f MATCH ? AND o.deleted_at IS NULL AND o.superseded_by IS NULL
		ORDER BY rank LIMIT ?`, ftsQuery(query), limit)
	if err != nil {
		return nil, wrapDBError("search observations fts", err)
	}
	defer rows.Close()

	var out []*types.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, wrapDBError("scan observation fts", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
