// Package retention implements C7: best-effort age and size-based
// eviction triggered on session.created, and AGENTS.md folder-context
// artifact maintenance.
package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/open-mem/open-mem/internal/store"
)

// Options controls the retention sweep, sourced from config's
// retentionDays/maxDatabaseSizeMb keys.
type Options struct {
	RetentionDays     int
	MaxDatabaseSizeMb int
}

// Result reports what the sweep actually did, for logging/metrics.
type Result struct {
	ObservationsDeletedByAge  int64
	PendingDeletedByAge       int64
	ObservationsDeletedBySize int64
}

// Sweep runs the age-based and size-based eviction passes. Both are
// best-effort: a failure in one does not abort the other, and Sweep
// itself never returns an error to the caller (it's invoked from the
// hook layer, which never throws) — failures are logged and the
// partial Result is returned.
func Sweep(ctx context.Context, st *store.Store, opts Options) Result {
	var result Result

	if opts.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -opts.RetentionDays)

		n, err := st.DeleteObservationsCreatedBefore(ctx, cutoff)
		if err != nil {
			log.Warn().Err(err).Msg("retention: age-based observation cleanup failed")
		}
		result.ObservationsDeletedByAge = n

		n, err = st.DeleteCompletedPendingOlderThan(ctx, cutoff)
		if err != nil {
			log.Warn().Err(err).Msg("retention: age-based pending cleanup failed")
		}
		result.PendingDeletedByAge = n
	}

	if opts.MaxDatabaseSizeMb > 0 {
		n, err := evictBySize(ctx, st, int64(opts.MaxDatabaseSizeMb)*1024*1024)
		if err != nil {
			log.Warn().Err(err).Msg("retention: size-based eviction failed")
		}
		result.ObservationsDeletedBySize = n
	}

	return result
}

// evictBySize removes oldest-first observations in batches until the
// database is under maxBytes, or there's nothing left to evict.
func evictBySize(ctx context.Context, st *store.Store, maxBytes int64) (int64, error) {
	const batch = 50
	var total int64

	for {
		size, err := st.DatabaseSizeBytes(ctx)
		if err != nil {
			return total, err
		}
		if size <= maxBytes {
			return total, nil
		}

		count, err := st.CountObservations(ctx)
		if err != nil {
			return total, err
		}
		if count == 0 {
			return total, nil
		}

		n := batch
		if n > count {
			n = count
		}
		deleted, err := st.DeleteOldestObservations(ctx, n)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted == 0 {
			return total, nil
		}
	}
}
