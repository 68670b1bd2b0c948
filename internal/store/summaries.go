package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/open-mem/open-mem/internal/types"
)

// CreateSessionSummary inserts a summary and links it to the session.
func (s *Store) CreateSessionSummary(ctx context.Context, sum *types.SessionSummary) error {
	if sum.ID == "" {
		sum.ID = uuid.NewString()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_summaries(
			id, session_id, summary, key_decisions, files_modified, concepts,
			created_at, token_count, request, investigated, learned, completed, next_steps
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.SessionID, sum.Summary, marshalStrings(sum.KeyDecisions),
		marshalStrings(sum.FilesModified), marshalStrings(sum.Concepts),
		formatTime(sum.CreatedAt), sum.TokenCount, sum.Request, sum.Investigated,
		sum.Learned, sum.Completed, sum.NextSteps)
	if err != nil {
		return wrapDBErrorf(err, "create session summary %s", sum.ID)
	}
	return s.SetSessionSummaryID(ctx, sum.SessionID, sum.ID)
}

// GetSessionSummary fetches a summary by ID.
func (s *Store) GetSessionSummary(ctx context.Context, id string) (*types.SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, summary, key_decisions, files_modified, concepts,
		       created_at, token_count, request, investigated, learned, completed, next_steps
		FROM session_summaries WHERE id = ?`, id)

	var (
		sum                                     types.SessionSummary
		keyDecisions, filesModified, concepts    string
		createdAt                                string
	)
	if err := row.Scan(&sum.ID, &sum.SessionID, &sum.Summary, &keyDecisions, &filesModified,
		&concepts, &createdAt, &sum.TokenCount, &sum.Request, &sum.Investigated, &sum.Learned,
		&sum.Completed, &sum.NextSteps); err != nil {
		return nil, wrapDBError("get session summary", err)
	}
	sum.KeyDecisions = unmarshalStrings(keyDecisions)
	sum.FilesModified = unmarshalStrings(filesModified)
	sum.Concepts = unmarshalStrings(concepts)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse created_at: %w", err)
	}
	sum.CreatedAt = t
	return &sum, nil
}

// GetSessionSummaryBySession fetches the summary linked to a session, if any.
func (s *Store) GetSessionSummaryBySession(ctx context.Context, sessionID string) (*types.SessionSummary, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.SummaryID == nil {
		return nil, ErrNotFound
	}
	return s.GetSessionSummary(ctx, *sess.SummaryID)
}
