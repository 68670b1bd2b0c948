package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by store operations, mirroring the shape of
// the teacher's internal/storage/sqlite/errors.go.
var (
	ErrNotFound   = errors.New("store: not found")
	ErrInvalidID  = errors.New("store: invalid id")
	ErrConflict   = errors.New("store: conflict")
	ErrValidation = errors.New("store: validation failed")
)

func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if isConflictErr(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func wrapDBErrorf(err error, format string, args ...interface{}) error {
	return wrapDBError(fmt.Sprintf(format, args...), err)
}

func isConflictErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
