package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned by AcquireLock when another process already holds
// the lock for this project, grounded on
// internal/daemonrunner/process.go's ErrDaemonLocked.
var ErrLocked = errors.New("daemon: lock already held by another process")

// LockInfo is the JSON metadata written into the lock file, mirroring
// internal/daemonrunner/process.go's DaemonLockInfo.
type LockInfo struct {
	PID       int       `json:"pid"`
	DBPath    string    `json:"db_path"`
	SockPath  string    `json:"sock_path"`
	StartedAt time.Time `json:"started_at"`
}

// Lock is a held flock on daemon.lock plus the PID file that mirrors it.
type Lock struct {
	file    *os.File
	lockPath string
	pidPath string
}

// AcquireLock takes an exclusive non-blocking flock on <stateDir>/daemon.lock
// and records PID/DB/socket metadata in it and in <stateDir>/daemon.pid.
// Returns ErrLocked when another live daemon already owns the project.
func AcquireLock(stateDir, dbPath, sockPath string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("daemon: create state dir: %w", err)
	}

	lockPath := filepath.Join(stateDir, "daemon.lock")
	pidPath := filepath.Join(stateDir, "daemon.pid")

	// #nosec G304 - stateDir is operator-controlled, not request input
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("daemon: open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("daemon: flock: %w", err)
	}

	info := LockInfo{
		PID:       os.Getpid(),
		DBPath:    dbPath,
		SockPath:  sockPath,
		StartedAt: time.Now().UTC(),
	}
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("daemon: write lock metadata: %w", err)
	}
	_ = f.Sync()

	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", info.PID)), 0o600); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("daemon: write pid file: %w", err)
	}

	return &Lock{file: f, lockPath: lockPath, pidPath: pidPath}, nil
}

// Release closes the lock file (which drops the flock) and removes the
// PID file. The lock file itself is left behind so ReadLockInfo can keep
// reporting the last known metadata for diagnostics.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	_ = os.Remove(l.pidPath)
	return err
}

// ReadLockInfo reads the metadata of whatever daemon.lock currently holds,
// without attempting to acquire the lock. Used by status checks that want
// to report who owns a project without racing for ownership themselves.
func ReadLockInfo(stateDir string) (*LockInfo, error) {
	// #nosec G304 - stateDir is operator-controlled, not request input
	data, err := os.ReadFile(filepath.Join(stateDir, "daemon.lock"))
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("daemon: parse lock metadata: %w", err)
	}
	return &info, nil
}

// IsProcessAlive reports whether pid names a live process, permission-aware:
// an EPERM from signaling means the process exists but we lack rights to
// signal it, which still counts as running. Grounded on cmd/bd/daemon_unix.go's
// isProcessRunning (bd-e0o, sandboxed-environment EPERM handling).
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	if errors.Is(err, unix.EPERM) {
		return true
	}
	return false
}

// StalePIDFile reports whether stateDir holds a daemon.pid naming a process
// that is no longer alive. Used to decide whether a pre-existing PID file
// should be treated as absent rather than as a live daemon.
func StalePIDFile(stateDir string) bool {
	// #nosec G304 - stateDir is operator-controlled, not request input
	data, err := os.ReadFile(filepath.Join(stateDir, "daemon.pid"))
	if err != nil {
		return false
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return true
	}
	return !IsProcessAlive(pid)
}
