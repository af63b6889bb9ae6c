package cache

import (
	"context"
	"log/slog"
	"time"

	"komunitas/pendataan/internal/metrics"
)

// Dispatcher applies invalidations after a committed mutation. A failed
// invalidation is logged and counted; it never fails the mutation.
type Dispatcher struct {
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewDispatcher(cache Cache, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{cache: cache, logger: logger, metrics: m, timeout: 2 * time.Second}
}

func (d *Dispatcher) Dispatch(ctx context.Context, tags []Tag) {
	if d == nil || d.cache == nil || len(tags) == 0 {
		return
	}
	// runs even when the request context is already done
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	err := d.cache.Invalidate(ctx, tags...)
	d.metrics.Invalidated(len(tags), err)
	if err != nil {
		d.logger.Error("cache invalidation failed", "tags", Strings(tags), "error", err)
		return
	}
	d.logger.Debug("cache invalidated", "tags", Strings(tags))
}
