package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-mem/open-mem/internal/gateway"
	"github.com/open-mem/open-mem/internal/queue"
	"github.com/open-mem/open-mem/internal/store"
)

type fakeCompressor struct{}

func (fakeCompressor) Compress(ctx context.Context, rawOutput, toolName string) (gateway.CompressedObservation, error) {
	return gateway.CompressedObservation{Type: "discovery", Title: "t", Narrative: rawOutput}, nil
}

func TestAcquireLockRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()
	l1, err := AcquireLock(dir, "db.sqlite", filepath.Join(dir, "daemon.sock"))
	require.NoError(t, err)
	defer l1.Release()

	_, err = AcquireLock(dir, "db.sqlite", filepath.Join(dir, "daemon.sock"))
	require.ErrorIs(t, err, ErrLocked)
}

func TestAcquireLockSucceedsAfterRelease(t *testing.T) {
	dir := t.TempDir()
	l1, err := AcquireLock(dir, "db.sqlite", filepath.Join(dir, "daemon.sock"))
	require.NoError(t, err)
	require.NoError(t, l1.Release())

	l2, err := AcquireLock(dir, "db.sqlite", filepath.Join(dir, "daemon.sock"))
	require.NoError(t, err)
	defer l2.Release()
}

func TestReadLockInfoReturnsPID(t *testing.T) {
	dir := t.TempDir()
	l, err := AcquireLock(dir, "db.sqlite", filepath.Join(dir, "daemon.sock"))
	require.NoError(t, err)
	defer l.Release()

	info, err := ReadLockInfo(dir)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), info.PID)
}

func TestIsProcessAliveForSelf(t *testing.T) {
	require.True(t, IsProcessAlive(os.Getpid()))
}

func TestIsProcessAliveFalseForBogusPID(t *testing.T) {
	require.False(t, IsProcessAlive(1<<30))
}

func TestStalePIDFileTrueWhenProcessDead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "daemon.pid"), []byte("2147483600\n"), 0o600))
	require.True(t, StalePIDFile(dir))
}

func TestStalePIDFileFalseWhenMissing(t *testing.T) {
	dir := t.TempDir()
	require.False(t, StalePIDFile(dir))
}

func newTestDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "memory.db")
	st, err := store.Open(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	proc := queue.New(st, fakeCompressor{}, nil, queue.Options{})
	d := New(st, proc, Options{
		ProjectRoot:  dir,
		DBPath:       dbPath,
		PollInterval: 20 * time.Millisecond,
	})
	return d, dir
}

func TestDaemonRunServesStatusAndStop(t *testing.T) {
	d, dir := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	sockPath := SocketPath(filepath.Join(dir, ".open-mem"))
	require.Eventually(t, func() bool {
		_, err := os.Stat(sockPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := Dial(sockPath, "status", time.Second)
	require.NoError(t, err)
	require.True(t, resp.OK)

	resp, err = Dial(sockPath, "stop", time.Second)
	require.NoError(t, err)
	require.True(t, resp.OK)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not shut down after stop request")
	}
}

func TestIsRunningFalseWithoutLock(t *testing.T) {
	dir := t.TempDir()
	require.False(t, IsRunning(dir))
}
