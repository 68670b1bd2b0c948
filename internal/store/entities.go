package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/open-mem/open-mem/internal/types"
)

// UpsertEntity inserts an entity by (name, type) if absent and returns its ID.
func (s *Store) UpsertEntity(ctx context.Context, name, entityType string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM entities WHERE name = ? AND type = ?`, name, entityType).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !isNotFound(wrapDBError("lookup entity", err)) {
		return "", wrapDBError("lookup entity", err)
	}

	id = uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities(id, name, type, created_at) VALUES (?, ?, ?, ?)`,
		id, name, entityType, formatTime(time.Now()))
	if err != nil {
		return "", wrapDBErrorf(err, "create entity %s", name)
	}
	return id, nil
}

// LinkMention records that an observation mentions an entity.
func (s *Store) LinkMention(ctx context.Context, observationID, entityID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO mentions(observation_id, entity_id) VALUES (?, ?)`, observationID, entityID)
	return wrapDBError("link mention", err)
}

// AddRelation records a directed subject-predicate-object edge.
func (s *Store) AddRelation(ctx context.Context, rel types.Relation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO relations(subject_id, predicate, object_id) VALUES (?, ?, ?)`,
		rel.SubjectID, rel.Predicate, rel.ObjectID)
	return wrapDBError("add relation", err)
}

// RelatedEntities returns the IDs of entities directly connected to id,
// in either direction, used for depth-1 graph augmentation (C4).
func (s *Store) RelatedEntities(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT object_id FROM relations WHERE subject_id = ?
		UNION
		SELECT subject_id FROM relations WHERE object_id = ?`, id, id)
	if err != nil {
		return nil, wrapDBError("related entities", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var eid string
		if err := rows.Scan(&eid); err != nil {
			return nil, wrapDBError("scan related entity", err)
		}
		out = append(out, eid)
	}
	return out, rows.Err()
}

// ObservationsMentioning returns observation IDs that mention any of the
// given entity IDs.
func (s *Store) ObservationsMentioning(ctx context.Context, entityIDs []string) ([]string, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	placeholders := ""
	args := make([]interface{}, len(entityIDs))
	for i, id := range entityIDs {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT observation_id FROM mentions WHERE entity_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, wrapDBError("observations mentioning", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var oid string
		if err := rows.Scan(&oid); err != nil {
			return nil, wrapDBError("scan mention", err)
		}
		out = append(out, oid)
	}
	return out, rows.Err()
}

// EntityByName looks up an entity's ID by exact name.
func (s *Store) EntityByName(ctx context.Context, name string) (*types.Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, type, created_at FROM entities WHERE name = ?`, name)
	var (
		e         types.Entity
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Type, &createdAt); err != nil {
		return nil, wrapDBError("get entity by name", err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = t
	return &e, nil
}
