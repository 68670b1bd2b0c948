package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/open-mem/open-mem/internal/types"
)

// CreateSession inserts a new session row, generating an ID if needed.
// Grounded on the teacher's internal/storage/sqlite/queries.go
// CreateIssue default-filling pattern.
func (s *Store) CreateSession(ctx context.Context, sess *types.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	if sess.Status == "" {
		sess.Status = types.SessionActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions(id, project_path, started_at, ended_at, status, observation_count, summary_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ProjectPath, formatTime(sess.StartedAt), nullTime(sess.EndedAt),
		string(sess.Status), sess.ObservationCount, nullString(derefStr(sess.SummaryID)))
	return wrapDBErrorf(err, "create session %s", sess.ID)
}

// GetSession fetches a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_path, started_at, ended_at, status, observation_count, summary_id
		FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*types.Session, error) {
	var (
		sess                types.Session
		startedAt           string
		endedAt, summaryID  sql.NullString
		status              string
	)
	if err := row.Scan(&sess.ID, &sess.ProjectPath, &startedAt, &endedAt, &status,
		&sess.ObservationCount, &summaryID); err != nil {
		return nil, wrapDBError("get session", err)
	}
	t, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse started_at: %w", err)
	}
	sess.StartedAt = t
	sess.EndedAt = parseNullableTime(endedAt)
	sess.Status = types.SessionStatus(status)
	sess.SummaryID = parseNullableString(summaryID)
	return &sess, nil
}

// UpdateSessionStatus transitions a session's status, setting EndedAt when
// moving to a terminal state.
func (s *Store) UpdateSessionStatus(ctx context.Context, id string, status types.SessionStatus) error {
	var endedAt interface{}
	if status == types.SessionCompleted {
		endedAt = formatTime(time.Now())
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = COALESCE(?, ended_at) WHERE id = ?`,
		string(status), endedAt, id)
	if err != nil {
		return wrapDBError("update session status", err)
	}
	return requireRowsAffected(res, "update session status")
}

// IncrementObservationCount bumps the session's observation counter.
func (s *Store) IncrementObservationCount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET observation_count = observation_count + 1 WHERE id = ?`, id)
	return wrapDBError("increment observation count", err)
}

// SetSessionSummaryID records the summary produced at session close.
func (s *Store) SetSessionSummaryID(ctx context.Context, sessionID, summaryID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET summary_id = ? WHERE id = ?`, summaryID, sessionID)
	if err != nil {
		return wrapDBError("set session summary id", err)
	}
	return requireRowsAffected(res, "set session summary id")
}

// ListSessionsByProject returns sessions for a project, most recent first.
func (s *Store) ListSessionsByProject(ctx context.Context, projectPath string, limit int) ([]*types.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_path, started_at, ended_at, status, observation_count, summary_id
		FROM sessions WHERE project_path = ? ORDER BY started_at DESC LIMIT ?`, projectPath, limit)
	if err != nil {
		return nil, wrapDBError("list sessions", err)
	}
	defer rows.Close()

	var out []*types.Session
	for rows.Next() {
		var (
			sess               types.Session
			startedAt          string
			endedAt, summaryID sql.NullString
			status             string
		)
		if err := rows.Scan(&sess.ID, &sess.ProjectPath, &startedAt, &endedAt, &status,
			&sess.ObservationCount, &summaryID); err != nil {
			return nil, wrapDBError("scan session", err)
		}
		t, err := parseTime(startedAt)
		if err != nil {
			return nil, fmt.Errorf("store: parse started_at: %w", err)
		}
		sess.StartedAt = t
		sess.EndedAt = parseNullableTime(endedAt)
		sess.Status = types.SessionStatus(status)
		sess.SummaryID = parseNullableString(summaryID)
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func requireRowsAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
