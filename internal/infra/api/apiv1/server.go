// Package apiv1 is the HTTP transport: job enqueue and status, the SSE event
// stream, entity CRUD and the admin endpoints.
package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"content-studio/internal/cachesync"
	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/infra/events"
	"content-studio/internal/infra/logging"
	"content-studio/internal/usecase"
)

// RateLimiter is satisfied by redis.RateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Deps struct {
	Generation usecase.GenerationUseCase
	Jobs       usecase.JobUseCase
	Entities   usecase.EntityUseCase
	Activity   usecase.ActivityUseCase
	Stats      usecase.StatsUseCase
	Bus        *events.Bus
	Auth       *AuthManager

	// Optional. A nil Cache disables admin aggregate caching, a nil Limiter
	// disables rate limiting.
	Cache   cachesync.Store
	Limiter RateLimiter
}

type Options struct {
	GeneratePerMinute int
	Heartbeat         time.Duration
	CacheTTL          time.Duration
	RequestTimeout    time.Duration
}

type Server struct {
	deps Deps
	opts Options
	log  *zerolog.Logger
}

func NewServer(deps Deps, opts Options, logger *zerolog.Logger) *Server {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{deps: deps, opts: opts, log: &l}
}

// Routes builds the full router, including /health and /metrics.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, recoverer(s.log), requestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.deps.Auth.Authenticate)

		// streaming, so no request timeout
		r.Get("/events", s.streamEvents)

		r.Group(func(r chi.Router) {
			r.Use(timeout(s.opts.RequestTimeout))

			r.Get("/jobs/{jobID}", s.getJob)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/activity", s.listActivity)
				r.Get("/jobs/stats", s.jobStats)
			})

			r.Post("/{kind}", s.createEntity)
			r.Get("/{kind}", s.listEntities)
			r.Get("/{kind}/{entityID}", s.getEntity)
			r.Patch("/{kind}/{entityID}", s.updateEntity)
			r.Delete("/{kind}/{entityID}", s.deleteEntity)
			r.Post("/{kind}/{entityID}/jobs", s.enqueueJob)
			r.Get("/{kind}/{entityID}/jobs", s.listJobs)
		})
	})
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, _ *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, code, errorBody{Error: msg})
}

// fail logs unexpected errors before hiding them behind a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, r, err)
}

func entityKind(r *http.Request) (model.EntityType, error) {
	t, ok := model.ParseEntityType(chi.URLParam(r, "kind"))
	if !ok {
		return "", domain.ErrNotFound
	}
	return t, nil
}

func callerOf(r *http.Request) (usecase.Caller, error) {
	c, ok := CallerFrom(r.Context())
	if !ok {
		return usecase.Caller{}, domain.ErrUnauthorized
	}
	return c, nil
}

func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}
