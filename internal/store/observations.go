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

// CreateObservation validates and inserts an observation, updating the
// session's running count. Grounded on the teacher's CreateIssue
// default-filling and validation-before-insert sequence.
func (s *Store) CreateObservation(ctx context.Context, obs *types.Observation) error {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = time.Now()
	}
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations(
			id, session_id, type, title, subtitle, facts, narrative, concepts,
			files_read, files_modified, raw_tool_output, tool_name, created_at,
			token_count, discovery_tokens, importance, superseded_by, superseded_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, obs.SessionID, string(obs.Type), obs.Title, obs.Subtitle,
		marshalStrings(obs.Facts), obs.Narrative, marshalStrings(obs.Concepts),
		marshalStrings(obs.FilesRead), marshalStrings(obs.FilesModified),
		obs.RawToolOutput, obs.ToolName, formatTime(obs.CreatedAt),
		obs.TokenCount, obs.DiscoveryTokens, obs.Importance,
		nullString(derefStr(obs.SupersededBy)), nullTime(obs.SupersededAt), nullTime(obs.DeletedAt))
	if err != nil {
		return wrapDBErrorf(err, "create observation %s", obs.ID)
	}

	if err := s.IncrementObservationCount(ctx, obs.SessionID); err != nil {
		return err
	}
	if len(obs.Embedding) > 0 {
		if err := s.StoreEmbedding(ctx, obs.ID, obs.Embedding); err != nil {
			return err
		}
	}
	return nil
}

const observationColumns = `
	id, session_id, type, title, subtitle, facts, narrative, concepts,
	files_read, files_modified, raw_tool_output, tool_name, created_at,
	token_count, discovery_tokens, importance, superseded_by, superseded_at, deleted_at`

func scanObservation(sc interface {
	Scan(dest ...interface{}) error
}) (*types.Observation, error) {
	var (
		o                                  types.Observation
		typ, facts, concepts               string
		filesRead, filesModified           string
		createdAt                          string
		supersededBy, supersededAt, deleted sql.NullString
	)
	if err := sc.Scan(&o.ID, &o.SessionID, &typ, &o.Title, &o.Subtitle, &facts, &o.Narrative,
		&concepts, &filesRead, &filesModified, &o.RawToolOutput, &o.ToolName, &createdAt,
		&o.TokenCount, &o.DiscoveryTokens, &o.Importance, &supersededBy, &supersededAt, &deleted); err != nil {
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
	o.DeletedAt = parseNullableTime(deleted)
	return &o, nil
}

// GetObservation fetches one observation by ID.
func (s *Store) GetObservation(ctx context.Context, id string) (*types.Observation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+observationColumns+` FROM observations WHERE id = ?`, id)
	o, err := scanObservation(row)
	if err != nil {
		return nil, wrapDBError("get observation", err)
	}
	if emb, err := s.GetEmbedding(ctx, id); err == nil {
		o.Embedding = emb
	}
	return o, nil
}

// SearchObservations applies an ObservationFilter with dynamic WHERE-clause
// assembly, grounded on the teacher's queries_search.go SearchIssues.
func (s *Store) SearchObservations(ctx context.Context, filter types.ObservationFilter) ([]*types.Observation, error) {
	var clauses []string
	var args []interface{}

	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Type != nil {
		clauses = append(clauses, "type = ?")
		args = append(args, string(*filter.Type))
	}
	if !filter.IncludeSuperseded {
		clauses = append(clauses, "superseded_by IS NULL")
	}
	if !filter.IncludeDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	if filter.ImportanceMin != nil {
		clauses = append(clauses, "importance >= ?")
		args = append(args, *filter.ImportanceMin)
	}
	if filter.ImportanceMax != nil {
		clauses = append(clauses, "importance <= ?")
		args = append(args, *filter.ImportanceMax)
	}
	if filter.CreatedAfter != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(*filter.CreatedAfter))
	}
	if filter.CreatedBefore != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, formatTime(*filter.CreatedBefore))
	}
	for _, c := range filter.Concepts {
		clauses = append(clauses, "concepts LIKE ?")
		args = append(args, "%\""+c+"\"%")
	}
	for _, f := range filter.FilesModified {
		clauses = append(clauses, "files_modified LIKE ?")
		args = append(args, "%\""+f+"\"%")
	}
	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, "id IN ("+strings.Join(placeholders, ",")+")")
	}

	query := `SELECT ` + observationColumns + ` FROM observations`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("search observations", err)
	}
	defer rows.Close()

	var out []*types.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, wrapDBError("scan observation", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SupersedeObservation marks oldID as superseded by newID.
func (s *Store) SupersedeObservation(ctx context.Context, oldID, newID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE observations SET superseded_by = ?, superseded_at = ? WHERE id = ? AND superseded_by IS NULL`,
		newID, formatTime(time.Now()), oldID)
	if err != nil {
		return wrapDBError("supersede observation", err)
	}
	return requireRowsAffected(res, "supersede observation")
}

// SoftDeleteObservation tombstones an observation without removing it.
func (s *Store) SoftDeleteObservation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE observations SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		formatTime(time.Now()), id)
	if err != nil {
		return wrapDBError("soft delete observation", err)
	}
	return requireRowsAffected(res, "soft delete observation")
}

// DeleteObservationsOlderThan hard-deletes tombstoned observations past a
// cutoff, used by the retention sweep (C7).
func (s *Store) DeleteObservationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM observations WHERE deleted_at IS NOT NULL AND deleted_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, wrapDBError("delete old observations", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDBError("delete old observations", err)
	}
	return n, nil
}

// CountObservations reports the current row count for a project's store,
// used by the retention sweep's size-based eviction trigger.
func (s *Store) CountObservations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n)
	if err != nil {
		return 0, wrapDBError("count observations", err)
	}
	return n, nil
}

// DeleteObservationsCreatedBefore hard-deletes observations (regardless
// of tombstone state) created before cutoff, the age-based half of the
// retention sweep (C7): unlike DeleteObservationsOlderThan this does not
// require deleted_at to be set.
func (s *Store) DeleteObservationsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM observations WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, wrapDBError("delete observations created before cutoff", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDBError("delete observations created before cutoff", err)
	}
	return n, nil
}

// DeleteOldestObservations removes the n oldest observations (by
// created_at), used by size-based eviction when the database exceeds
// maxDatabaseSizeMb.
func (s *Store) DeleteOldestObservations(ctx context.Context, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM observations WHERE id IN (
			SELECT id FROM observations ORDER BY created_at ASC LIMIT ?
		)`, n)
	if err != nil {
		return 0, wrapDBError("delete oldest observations", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDBError("delete oldest observations", err)
	}
	return affected, nil
}

// DatabaseSizeBytes reports the on-disk size of the SQLite database via
// PRAGMA page_count * page_size, used to decide whether size-based
// eviction should run.
func (s *Store) DatabaseSizeBytes(ctx context.Context) (int64, error) {
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return 0, wrapDBError("read page_count", err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return 0, wrapDBError("read page_size", err)
	}
	return pageCount * pageSize, nil
}
