// Package daemon implements C9: the optional background process that owns
// a project's queue draining and retention sweeps so host-triggered hooks
// (internal/hooks) don't have to do that work synchronously in the coding
// agent's request path. Grounded on internal/daemonrunner/process.go for
// the PID-file/flock ownership model and cmd/bd/daemon_unix.go plus
// internal/rpc/server.go for the control-socket and signal-handling shape.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/open-mem/open-mem/internal/queue"
	"github.com/open-mem/open-mem/internal/retention"
	"github.com/open-mem/open-mem/internal/store"
)

// Options configures a Daemon instance.
type Options struct {
	ProjectRoot       string
	DBPath            string
	StateDir          string // defaults to <ProjectRoot>/.open-mem
	PollInterval      time.Duration
	SweepInterval     time.Duration
	RetentionDays     int
	MaxDatabaseSizeMb int
}

// Daemon owns a project's database while running: it holds the lock file,
// drains the pending-message queue on a poll loop, periodically sweeps
// retention, and serves a control socket for stop/flush/status.
type Daemon struct {
	opts Options

	store     *store.Store
	lock      *Lock
	server    *Server
	scheduler *queue.Scheduler

	sockPath  string
	startedAt time.Time

	stopCh chan struct{}
}

// SocketPath returns the control-socket path a daemon for stateDir would
// use (or is using), for clients that want to dial without starting one.
func SocketPath(stateDir string) string {
	return filepath.Join(stateDir, "daemon.sock")
}

// New builds a Daemon bound to an already-opened store and processor. It
// does not yet hold the lock or listen on the socket; call Run to do both.
func New(st *store.Store, proc *queue.Processor, opts Options) *Daemon {
	if opts.StateDir == "" {
		opts.StateDir = filepath.Join(opts.ProjectRoot, ".open-mem")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 10 * time.Minute
	}

	d := &Daemon{
		opts:     opts,
		store:    st,
		sockPath: SocketPath(opts.StateDir),
		stopCh:   make(chan struct{}),
	}
	d.scheduler = queue.NewScheduler(proc, opts.PollInterval, func() bool { return true })
	return d
}

// Run acquires the project lock, starts the poll loop, the retention
// sweep ticker, and the control socket, then blocks until Stop is called
// or the process receives SIGINT/SIGTERM. Returns ErrLocked immediately
// if another daemon already owns this project.
func (d *Daemon) Run(ctx context.Context) error {
	lock, err := AcquireLock(d.opts.StateDir, d.opts.DBPath, d.sockPath)
	if err != nil {
		return err
	}
	d.lock = lock
	d.startedAt = time.Now()

	server, err := NewServer(d.sockPath, d.requestStop, d.flush, d.status)
	if err != nil {
		_ = d.lock.Release()
		return err
	}
	d.server = server
	go d.server.Serve()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.scheduler.StartPolling(runCtx)
	go d.sweepLoop(runCtx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("daemon: shutting down on signal")
	case <-d.stopCh:
		log.Info().Msg("daemon: shutting down on stop request")
	case <-ctx.Done():
	}

	return d.shutdown()
}

func (d *Daemon) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(d.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			retention.Sweep(ctx, d.store, retention.Options{
				RetentionDays:     d.opts.RetentionDays,
				MaxDatabaseSizeMb: d.opts.MaxDatabaseSizeMb,
			})
		}
	}
}

func (d *Daemon) requestStop() {
	select {
	case <-d.stopCh:
	default:
		close(d.stopCh)
	}
}

func (d *Daemon) flush(ctx context.Context) (int, error) {
	return d.scheduler.ProcessNow(ctx)
}

func (d *Daemon) status() Status {
	n, _ := d.store.PendingCount(context.Background())
	return Status{
		PID:           os.Getpid(),
		DBPath:        d.opts.DBPath,
		UptimeSeconds: int64(time.Since(d.startedAt).Seconds()),
		QueueDepth:    n,
	}
}

func (d *Daemon) shutdown() error {
	d.scheduler.Stop()
	if d.server != nil {
		_ = d.server.Close()
	}
	if err := d.store.Close(); err != nil {
		log.Warn().Err(err).Msg("daemon: close store failed")
	}
	return d.lock.Release()
}

// IsRunning reports whether a live daemon already owns stateDir, treating
// a stale PID file (process no longer alive) as not running so a new
// daemon can safely take over the lock.
func IsRunning(stateDir string) bool {
	info, err := ReadLockInfo(stateDir)
	if err != nil {
		return false
	}
	return IsProcessAlive(info.PID)
}

// ErrNotRunning is returned by client helpers when no daemon is listening.
var ErrNotRunning = fmt.Errorf("daemon: not running")
