package jobs

import (
	"context"
	"log/slog"
	"time"

	"komunitas/pendataan/internal/cache"
	"komunitas/pendataan/internal/config"
	"komunitas/pendataan/internal/model"
)

type StatisticsSource interface {
	Statistics(ctx context.Context) (model.Statistics, error)
}

// StartStatisticsWarmJob recomputes the public statistics entry whenever it
// has been invalidated, so the first reader after a write does not pay for
// the aggregate queries. The returned channel closes when the job stops.
func StartStatisticsWarmJob(ctx context.Context, cfg config.Config, source StatisticsSource, c cache.Cache, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	if cfg.StatsWarmInterval <= 0 || source == nil || c == nil {
		close(done)
		return done
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.StatsWarmTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(cfg.StatsWarmInterval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			tickCtx, cancel := context.WithTimeout(ctx, timeout)
			warmed, err := warmStatistics(tickCtx, cfg, source, c)
			cancel()
			if err != nil {
				logger.Warn("statistics warm job error", "error", err)
			} else if warmed {
				logger.Debug("statistics cache warmed")
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}

func warmStatistics(ctx context.Context, cfg config.Config, source StatisticsSource, c cache.Cache) (bool, error) {
	if _, ok, err := c.Get(ctx, cache.StatisticsKey); err != nil || ok {
		return false, err
	}
	seen, err := c.Versions(ctx, cache.Statistics)
	if err != nil {
		return false, err
	}
	stats, err := source.Statistics(ctx)
	if err != nil {
		return false, err
	}
	_, stored, err := cache.FillJSON(ctx, c, cache.StatisticsKey, stats, cfg.CacheTTL, seen)
	return stored, err
}
