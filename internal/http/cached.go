package http

import (
	"context"
	"net/http"

	"komunitas/pendataan/internal/cache"
)

// loader produces a response body and any partitions beyond the ones known
// before loading.
type loader func(ctx context.Context) (any, []cache.Tag, error)

// serveCached answers from the cache when possible. Cache failures degrade to
// a direct load.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key string, tags []cache.Tag, load loader) {
	ctx := r.Context()
	var seen cache.Versions
	if s.cache != nil {
		body, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache read failed", "key", key, "error", err)
		}
		s.metrics.CacheLookup(ok)
		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}
		// taken before loading so a write committed meanwhile discards the fill
		if seen, err = s.cache.Versions(ctx, tags...); err != nil {
			s.logger.Warn("cache versions failed", "key", key, "error", err)
			seen = nil
		}
	}

	payload, extra, err := load(ctx)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	body, stored, err := cache.FillJSON(ctx, s.cache, key, payload, s.cfg.CacheTTL, seen, extra...)
	if body == nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	} else if !stored && seen != nil {
		s.logger.Debug("cache fill skipped after invalidation", "key", key)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
