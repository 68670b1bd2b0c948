package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/open-mem/open-mem/internal/types"
)

// ExportFormatVersion is bumped whenever the envelope shape changes.
const ExportFormatVersion = 1

// Export is the versioned envelope written by mem-export and read back by
// mem-import (§6). Grounded on the teacher's internal/export manifest
// concept and internal/importer's import-by-primary-key approach: no ID
// rewriting happens on import, records are matched by their original ID.
type Export struct {
	FormatVersion int                      `json:"formatVersion"`
	ExportedAt    time.Time                `json:"exportedAt"`
	ProjectPath   string                   `json:"projectPath"`
	Sessions      []*types.Session         `json:"sessions"`
	Observations  []*types.Observation     `json:"observations"`
	Summaries     []*types.SessionSummary  `json:"summaries"`
}

// ExportAll serializes the sessions recorded under projectPath, the
// summaries linked to those sessions, and every observation in the store
// (superseded and tombstoned ones included), whichever session it
// belongs to.
func (s *Store) ExportAll(ctx context.Context, projectPath string) (*Export, error) {
	sessions, err := s.ListSessionsByProject(ctx, projectPath, 1<<30)
	if err != nil {
		return nil, err
	}
	obs, err := s.SearchObservations(ctx, types.ObservationFilter{IncludeSuperseded: true, IncludeDeleted: true, Limit: 1 << 30})
	if err != nil {
		return nil, err
	}

	var summaries []*types.SessionSummary
	for _, sess := range sessions {
		if sess.SummaryID == nil {
			continue
		}
		sum, err := s.GetSessionSummary(ctx, *sess.SummaryID)
		if err != nil {
			continue
		}
		summaries = append(summaries, sum)
	}

	return &Export{
		FormatVersion: ExportFormatVersion,
		ExportedAt:    time.Now(),
		ProjectPath:   projectPath,
		Sessions:      sessions,
		Observations:  obs,
		Summaries:     summaries,
	}, nil
}

// ImportMode controls how ImportAll handles IDs that already exist.
type ImportMode string

const (
	// ImportSkipDuplicates leaves existing rows untouched.
	ImportSkipDuplicates ImportMode = "skip"
	// ImportOverwrite replaces existing rows with the imported version.
	ImportOverwrite ImportMode = "overwrite"
)

// ImportResult reports what ImportAll actually did. Skipped counts the
// observations left untouched in skip mode; sessions and summaries that
// already exist are skipped too but are not counted.
type ImportResult struct {
	SessionsImported     int
	ObservationsImported int
	SummariesImported    int
	Skipped              int
}

// ImportAll loads an Export envelope, matching records by their original
// ID (no ID rewriting, mirroring the teacher's import-by-primary-key
// behavior) and applying mode to conflicts.
func (s *Store) ImportAll(ctx context.Context, exp *Export, mode ImportMode) (*ImportResult, error) {
	if exp.FormatVersion > ExportFormatVersion {
		return nil, fmt.Errorf("store: export format version %d is newer than supported %d", exp.FormatVersion, ExportFormatVersion)
	}

	var res ImportResult
	for _, sess := range exp.Sessions {
		existing, err := s.GetSession(ctx, sess.ID)
		if err == nil && existing != nil {
			if mode == ImportSkipDuplicates {
				continue
			}
		}
		if err := s.upsertSession(ctx, sess); err != nil {
			return nil, fmt.Errorf("store: import session %s: %w", sess.ID, err)
		}
		res.SessionsImported++
	}

	for _, obs := range exp.Observations {
		_, err := s.GetObservation(ctx, obs.ID)
		exists := err == nil
		if exists && mode == ImportSkipDuplicates {
			res.Skipped++
			continue
		}
		if exists {
			if err := s.deleteObservationRow(ctx, obs.ID); err != nil {
				return nil, err
			}
		}
		if err := s.CreateObservation(ctx, obs); err != nil {
			return nil, fmt.Errorf("store: import observation %s: %w", obs.ID, err)
		}
		res.ObservationsImported++
	}

	for _, sum := range exp.Summaries {
		_, err := s.GetSessionSummary(ctx, sum.ID)
		exists := err == nil
		if exists && mode == ImportSkipDuplicates {
			continue
		}
		if exists {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM session_summaries WHERE id = ?`, sum.ID); err != nil {
				return nil, wrapDBError("delete summary row for overwrite", err)
			}
		}
		if err := s.CreateSessionSummary(ctx, sum); err != nil {
			return nil, fmt.Errorf("store: import summary %s: %w", sum.ID, err)
		}
		res.SummariesImported++
	}

	return &res, nil
}

func (s *Store) upsertSession(ctx context.Context, sess *types.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions(id, project_path, started_at, ended_at, status, observation_count, summary_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_path = excluded.project_path, started_at = excluded.started_at,
			ended_at = excluded.ended_at, status = excluded.status,
			observation_count = excluded.observation_count, summary_id = excluded.summary_id`,
		sess.ID, sess.ProjectPath, formatTime(sess.StartedAt), nullTime(sess.EndedAt),
		string(sess.Status), sess.ObservationCount, nullString(derefStr(sess.SummaryID)))
	return wrapDBError("upsert session", err)
}

func (s *Store) deleteObservationRow(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM observations WHERE id = ?`, id)
	return wrapDBError("delete observation row for overwrite", err)
}

// MarshalExport renders an Export as indented JSON.
func MarshalExport(exp *Export) ([]byte, error) {
	return json.MarshalIndent(exp, "", "  ")
}

// UnmarshalExport parses an Export envelope.
func UnmarshalExport(data []byte) (*Export, error) {
	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("store: parse export: %w", err)
	}
	return &exp, nil
}
