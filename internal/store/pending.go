package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/open-mem/open-mem/internal/types"
)

// Enqueue inserts a new pending message awaiting compression (C3).
func (s *Store) Enqueue(ctx context.Context, pm *types.PendingMessage) error {
	if pm.ID == "" {
		pm.ID = uuid.NewString()
	}
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = time.Now()
	}
	if pm.Status == "" {
		pm.Status = types.PendingPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_messages(id, session_id, tool_name, tool_output, call_id, created_at, status, retry_count, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pm.ID, pm.SessionID, pm.ToolName, pm.ToolOutput, pm.CallID,
		formatTime(pm.CreatedAt), string(pm.Status), pm.RetryCount, pm.Error)
	return wrapDBErrorf(err, "enqueue pending message %s", pm.ID)
}

// ClaimBatch atomically flips up to n pending rows from "pending" to
// "processing" and returns them, oldest first. Grounded on the teacher's
// status-transition idioms generalized to a FIFO claim operation.
func (s *Store) ClaimBatch(ctx context.Context, n int) ([]*types.PendingMessage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapDBError("claim batch begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, session_id, tool_name, tool_output, call_id, created_at, status, retry_count, error
		FROM pending_messages WHERE status = 'pending' ORDER BY created_at ASC LIMIT ?`, n)
	if err != nil {
		return nil, wrapDBError("claim batch select", err)
	}

	var claimed []*types.PendingMessage
	for rows.Next() {
		pm, err := scanPending(rows)
		if err != nil {
			rows.Close()
			return nil, wrapDBError("scan pending", err)
		}
		claimed = append(claimed, pm)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrapDBError("claim batch rows", err)
	}
	rows.Close()

	for _, pm := range claimed {
		if _, err := tx.ExecContext(ctx, `UPDATE pending_messages SET status = 'processing' WHERE id = ?`, pm.ID); err != nil {
			return nil, wrapDBError("claim batch mark processing", err)
		}
		pm.Status = types.PendingProcessing
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapDBError("claim batch commit", err)
	}
	committed = true
	return claimed, nil
}

func scanPending(rows *sql.Rows) (*types.PendingMessage, error) {
	var (
		pm        types.PendingMessage
		createdAt string
		status    string
		errStr    sql.NullString
	)
	if err := rows.Scan(&pm.ID, &pm.SessionID, &pm.ToolName, &pm.ToolOutput, &pm.CallID,
		&createdAt, &status, &pm.RetryCount, &errStr); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("store: parse created_at: %w", err)
	}
	pm.CreatedAt = t
	pm.Status = types.PendingStatus(status)
	pm.Error = errStr.String
	return &pm, nil
}

// MarkCompleted transitions a claimed pending message to completed.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pending_messages SET status = 'completed', error = NULL WHERE id = ?`, id)
	return wrapDBError("mark pending completed", err)
}

// MarkFailed transitions a claimed pending message to failed (or back to
// pending for retry), incrementing the retry counter.
func (s *Store) MarkFailed(ctx context.Context, id string, cause error, retryable bool) error {
	nextStatus := "failed"
	if retryable {
		nextStatus = "pending"
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE pending_messages SET status = ?, retry_count = retry_count + 1, error = ? WHERE id = ?`,
		nextStatus, cause.Error(), id)
	return wrapDBError("mark pending failed", err)
}

// PendingCount reports how many messages are awaiting processing.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_messages WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, wrapDBError("count pending", err)
	}
	return n, nil
}

// DeleteCompletedPendingOlderThan removes completed pending_messages rows
// older than cutoff, part of the retention sweep (§4.7).
func (s *Store) DeleteCompletedPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_messages WHERE status = 'completed' AND created_at < ?`,
		formatTime(cutoff))
	if err != nil {
		return 0, wrapDBError("delete old completed pending", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
