package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"content-studio/internal/cachesync"
	"content-studio/internal/infra/metrics"
)

// GET /api/v1/admin/activity
func (s *Server) listActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100, 500)
	key := cachesync.AdminKey("activity").String() + ":" + strconv.Itoa(limit)
	body, err := s.cached(r.Context(), key, func(ctx context.Context) (any, error) {
		items, err := s.deps.Activity.Recent(ctx, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeRaw(w, body)
}

// GET /api/v1/admin/jobs/stats
func (s *Server) jobStats(w http.ResponseWriter, r *http.Request) {
	body, err := s.cached(r.Context(), cachesync.AdminKey("job-stats").String(), func(ctx context.Context) (any, error) {
		return s.deps.Stats.Totals(ctx)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeRaw(w, body)
}

// cached serves key from the cache store or fills it from load. Admin
// aggregates are dropped by the router on every activity-logged event.
func (s *Server) cached(ctx context.Context, key string, load func(context.Context) (any, error)) ([]byte, error) {
	if s.deps.Cache != nil {
		body, err := s.deps.Cache.Get(ctx, key)
		switch {
		case err == nil:
			metrics.IncCacheRequest("admin", "hit")
			return body, nil
		case !errors.Is(err, cachesync.ErrMiss):
			s.log.Warn().Err(err).Str("key", key).Msg("admin cache read failed")
		}
		metrics.IncCacheRequest("admin", "miss")
	}

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, body, s.opts.CacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("admin cache write failed")
		}
	}
	return body, nil
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
