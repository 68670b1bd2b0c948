package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Scheduler drives a Processor either in-process (triggered on
// session.idle/session.completed events) or via a daemon's poll loop,
// whichever owns the project database at a given moment. Grounded on
// internal/daemonrunner/process.go's PID-file ownership model: when a
// daemon holds the lock for this project, the in-process scheduler stays
// passive and lets the daemon's poll loop do the work instead of racing
// it for the same pending rows.
type Scheduler struct {
	processor    *Processor
	pollInterval time.Duration
	isDaemonOwned func() bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewScheduler builds a Scheduler. isDaemonOwned, if non-nil, is consulted
// before every in-process trigger; when it returns true the trigger is
// skipped because a daemon process already owns this project's queue.
func NewScheduler(p *Processor, pollInterval time.Duration, isDaemonOwned func() bool) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if isDaemonOwned == nil {
		isDaemonOwned = func() bool { return false }
	}
	return &Scheduler{processor: p, pollInterval: pollInterval, isDaemonOwned: isDaemonOwned}
}

// TriggerOnEvent processes one batch immediately, intended to be called
// from the session.idle / session.completed hook points. No-ops when a
// daemon owns the queue.
func (s *Scheduler) TriggerOnEvent(ctx context.Context) {
	if s.isDaemonOwned() {
		return
	}
	if _, err := s.processor.ProcessBatch(ctx); err != nil {
		log.Warn().Err(err).Msg("queue: event-triggered batch failed")
	}
}

// ProcessNow runs one batch synchronously and returns its result,
// regardless of daemon ownership. Used by the session.completed hook
// point (§4.6), which must await the final drain before summarizing
// rather than fire-and-forget it like TriggerOnEvent.
func (s *Scheduler) ProcessNow(ctx context.Context) (int, error) {
	return s.processor.ProcessBatch(ctx)
}

// StartPolling runs ProcessBatch on a fixed interval until ctx is
// cancelled or Stop is called. Intended for use by the daemon process
// (cmd/open-memd), which is the sole owner of its project's queue while
// running.
func (s *Scheduler) StartPolling(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.processor.ProcessBatch(ctx); err != nil {
					log.Warn().Err(err).Msg("queue: poll batch failed")
				}
			}
		}
	}()
}

// Stop halts a running polling loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopped := s.stopped
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}
