package gateway

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a per-model token-bucket rate limiter. A process-wide
// registry keyed by model name (§4.2, §5 "rate-limiter registry keyed by
// model") ensures every Gateway instance talking to the same model shares
// one budget, the same "global state as a singleton" idiom spec.md's
// design notes call for, with an explicit Reset for tests.
type Limiter struct {
	model   string
	limiter *rate.Limiter
}

var (
	registryMu sync.Mutex
	registry   = map[string]*rate.Limiter{}
)

// NewLimiter returns the shared limiter for model, creating it with the
// given requests-per-second budget if it doesn't exist yet.
func NewLimiter(model string, rps float64) *Limiter {
	registryMu.Lock()
	defer registryMu.Unlock()

	l, ok := registry[model]
	if !ok {
		l = rate.NewLimiter(rate.Limit(rps), 1)
		registry[model] = l
	}
	return &Limiter{model: model, limiter: l}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// ResetLimiterRegistry clears every registered per-model limiter. Intended
// for test isolation between cases that configure different rates.
func ResetLimiterRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = map[string]*rate.Limiter{}
}
