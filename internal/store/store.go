// Package store implements C1: the embedded per-project (and per-user)
// observation database. It opens a WAL-mode SQLite database via the
// pure-Go github.com/ncruces/go-sqlite3 driver, maintains an FTS5
// projection for keyword search, and an in-memory cosine-similarity
// vector projection for semantic search (the "sqlitevec" build tag also
// registers the sqlite-vec extension, but search uses the same in-memory
// scan in both builds).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog/log"
)

// Store is a single open database, either project-scoped (observations,
// sessions, pending queue) or user-scoped (user_observations only).
type Store struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	vector VectorIndex
}

// Open creates (if needed) and opens the SQLite database at path, applies
// the schema, and wires a vector index. Grounded on the teacher's
// internal/storage/ephemeral/store.go New/initSchema pattern.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal=WAL&_busy_timeout=5000&_foreign_keys=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// A single connection avoids cross-connection BEGIN IMMEDIATE races,
	// the same tradeoff the teacher's ephemeral store makes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db, path: path, vector: newVectorIndex()}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.loadVectorIndex(ctx); err != nil {
		log.Warn().Err(err).Msg("store: vector index preload failed, continuing with empty index")
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin schema tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var pending string
	for _, stmt := range strings.Split(schema, ";\n") {
		stmt = strings.TrimSpace(stmt)
		if pending != "" {
			stmt = pending + ";\n" + stmt
			pending = ""
		}
		if stmt == "" {
			continue
		}
		// A trigger body holds its own ";\n"-terminated statements; keep
		// joining pieces until the trigger's closing END.
		if strings.HasPrefix(stmt, "CREATE TRIGGER") && !strings.HasSuffix(stmt, "END") {
			pending = stmt
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: exec schema statement: %w\n%s", err, stmt)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit schema tx: %w", err)
	}
	committed = true
	return nil
}

// DB exposes the underlying *sql.DB for components (retention sweeps,
// maintenance tools) that need raw access.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetConfig persists a key/value config row, grounded on the teacher's
// internal/storage/sqlite/config.go SetConfig (INSERT...ON CONFLICT).
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config(key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return wrapDBError("set config", err)
}

// GetConfig reads a single config value.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", wrapDBError("get config", err)
	}
	return value, nil
}
