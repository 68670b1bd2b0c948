package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/open-mem/open-mem/internal/types"
)

const userObservationColumns = `
	id, source_project, type, title, subtitle, facts, narrative, concepts,
	files_read, files_modified, raw_tool_output, tool_name, created_at,
	token_count, discovery_tokens, importance, superseded_by, superseded_at, deleted_at`

// CreateUserObservation inserts an observation into the user-scope
// database, shared across projects (§3 UserObservation).
func (s *Store) CreateUserObservation(ctx context.Context, obs *types.UserObservation) error {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_observations(`+userObservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, obs.SourceProject, string(obs.Type), obs.Title, obs.Subtitle,
		marshalStrings(obs.Facts), obs.Narrative, marshalStrings(obs.Concepts),
		marshalStrings(obs.FilesRead), marshalStrings(obs.FilesModified),
		obs.RawToolOutput, obs.ToolName, formatTime(obs.CreatedAt),
		obs.TokenCount, obs.DiscoveryTokens, obs.Importance,
		nullString(derefStr(obs.SupersededBy)), nullTime(obs.SupersededAt), nullTime(obs.DeletedAt))
	return wrapDBErrorf(err, "create user observation %s", obs.ID)
}

// SearchUserObservations runs a keyword match against the user-scope FTS
// projection, used by cross-scope retrieval (C4).
func (s *Store) SearchUserObservations(ctx context.Context, query string, limit int) ([]*types.UserObservation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+qualify("o", userObservationColumns)+`
		FROM user_observations_fts f
		JOIN user_observations o ON o.rowid = f.rowid
		WHERE f MATCH ? AND o.deleted_at IS NULL
		ORDER BY rank LIMIT ?`, ftsQuery(query), limit)
	if err != nil {
		return nil, wrapDBError("search user observations", err)
	}
	defer rows.Close()

	var out []*types.UserObservation
	for rows.Next() {
		o, err := scanUserObservation(rows)
		if err != nil {
			return nil, wrapDBError("scan user observation", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanUserObservation(sc interface {
	Scan(dest ...interface{}) error
}) (*types.UserObservation, error) {
	var (
		o                                    types.UserObservation
		typ, facts, concepts                 string
		filesRead, filesModified             string
		createdAt                            string
		supersededBy, supersededAt, deletedAt sql.NullString
	)
	if err := sc.Scan(&o.ID, &o.SourceProject, &typ, &o.Title, &o.Subtitle, &facts, &o.Narrative,
		&concepts, &filesRead, &filesModified, &o.RawToolOutput, &o.ToolName, &createdAt,
		&o.TokenCount, &o.DiscoveryTokens, &o.Importance, &supersededBy, &supersededAt, &deletedAt); err != nil {
		return nil, err
	}
	o.Type = types.ObservationType(typ)
	o.Facts = unmarshalStrings(facts)
	o.Concepts = unmarshalStrings(concepts)
	o.FilesRead = unmarshalStrings(filesRead)
	o.FilesModified = unmarshalStrings(filesModified)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse created_at: %w", err)
	}
	o.CreatedAt = t
	o.SupersededBy = parseNullableString(supersededBy)
	o.SupersededAt = parseNullableTime(supersededAt)
	o.DeletedAt = parseNullableTime(deletedAt)
	return &o, nil
}

func qualify(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
