// Package queue implements C3: the durable pending-work queue and its
// batch processor, which turns raw tool output into compressed
// observations via the AI Gateway.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/open-mem/open-mem/internal/gateway"
	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

// Processor claims batches of pending messages and compresses them into
// observations, grounded on the teacher's daemonrunner polling shape and
// other_examples/.../thebtf-engram's CircuitBreaker-guarded worker.
type Processor struct {
	store      *store.Store
	compressor gateway.Compressor
	embedder   gateway.Embedder
	breaker    *CircuitBreaker
	batchSize  int
	running    atomic.Bool
	mu         sync.Mutex
}

// Options configures a Processor.
type Options struct {
	BatchSize          int
	CircuitThreshold   int64
	CircuitResetPeriod time.Duration
}

// New builds a Processor. batchSize <= 0 defaults to 10.
func New(st *store.Store, compressor gateway.Compressor, embedder gateway.Embedder, opts Options) *Processor {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	threshold := opts.CircuitThreshold
	if threshold <= 0 {
		threshold = 5
	}
	resetPeriod := opts.CircuitResetPeriod
	if resetPeriod <= 0 {
		resetPeriod = 30 * time.Second
	}
	return &Processor{
		store:      st,
		compressor: compressor,
		embedder:   embedder,
		breaker:    NewCircuitBreaker(threshold, resetPeriod),
		batchSize:  batchSize,
	}
}

// ProcessBatch claims up to batchSize pending messages and compresses each
// into an observation. It is reentrancy-guarded: a call that arrives
// while another is already running returns immediately with (0, nil)
// rather than double-claiming, mirroring the teacher's single-flight
// flush guard in cmd/bd (flushMutex/storeMutex). With no compressor
// configured (no API key), it is a no-op: pending rows are left
// untouched rather than claimed and failed.
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	if p.compressor == nil {
		return 0, nil
	}
	if !p.running.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer p.running.Store(false)

	p.mu.Lock()
	defer p.mu.Unlock()

	claimed, err := p.store.ClaimBatch(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, pm := range claimed {
		if err := p.processOne(ctx, pm); err != nil {
			log.Warn().Err(err).Str("pendingId", pm.ID).Msg("queue: failed to process pending message")
			continue
		}
		processed++
	}
	return processed, nil
}

func (p *Processor) processOne(ctx context.Context, pm *types.PendingMessage) error {
	if !p.breaker.Allow() {
		return p.store.MarkFailed(ctx, pm.ID, errCircuitOpen, true)
	}

	compressed, err := p.compressor.Compress(ctx, pm.ToolOutput, pm.ToolName)
	if err != nil {
		p.breaker.RecordFailure()
		retryable := pm.RetryCount < types.MaxRetries
		return p.store.MarkFailed(ctx, pm.ID, err, retryable)
	}
	p.breaker.RecordSuccess()

	obs := &types.Observation{
		SessionID: pm.SessionID,
		Type:      classifyType(compressed),
		Title:     compressed.Title,
		Subtitle:  compressed.Subtitle,
		Facts:     compressed.Facts,
		Narrative: compressed.Narrative,
		Concepts:  compressed.Concepts,
		ToolName:  pm.ToolName,
	}

	if p.embedder != nil {
		if vec, err := p.embedder.Embed(ctx, obs.Narrative); err != nil {
			log.Warn().Err(err).Str("pendingId", pm.ID).Msg("queue: best-effort embedding failed")
		} else {
			obs.Embedding = vec
		}
	}

	if err := p.store.CreateObservation(ctx, obs); err != nil {
		return p.store.MarkFailed(ctx, pm.ID, err, pm.RetryCount < types.MaxRetries)
	}
	return p.store.MarkCompleted(ctx, pm.ID)
}

// classifyType coerces whatever the gateway returned to a known
// ObservationType, defaulting to TypeDiscovery for anything unrecognized
// (spec.md §4.2's "unknown values are coerced to discovery").
func classifyType(c gateway.CompressedObservation) types.ObservationType {
	t := types.ObservationType(c.Type)
	if types.ValidObservationTypes[t] {
		return t
	}
	return types.TypeDiscovery
}

// BreakerState exposes the circuit breaker's current state for diagnostics.
func (p *Processor) BreakerState() string { return p.breaker.State() }
