package apiv1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"content-studio/internal/cachesync"
	"content-studio/internal/domain/model"
	"content-studio/internal/infra/events"
	"content-studio/internal/infra/logging"
	"content-studio/internal/usecase"
)

// sseEnvelope is the data of one SSE message: the event plus the cached
// queries a client should refetch.
type sseEnvelope struct {
	model.Event
	Invalidate         []string `json:"invalidate"`
	InvalidatePrefixes []string `json:"invalidatePrefixes"`
}

func newEnvelope(ev model.Event) sseEnvelope {
	inv := cachesync.Route(ev)
	env := sseEnvelope{Event: ev, Invalidate: inv.KeyStrings(), InvalidatePrefixes: inv.Prefixes}
	if env.InvalidatePrefixes == nil {
		env.InvalidatePrefixes = []string{}
	}
	return env
}

// sessionFilter keeps activity entries to admins and other users' events
// away from regular sessions.
func sessionFilter(c usecase.Caller) events.Filter {
	return func(ev model.Event) bool {
		if c.Admin {
			return true
		}
		if ev.Kind == model.EventActivityLogged {
			return false
		}
		return ev.OwnerID == "" || ev.OwnerID == c.UserID
	}
}

// GET /api/v1/events
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, r, fmt.Errorf("streaming unsupported by %T", w))
		return
	}

	sessionID := "sse-" + uuid.NewString()
	sub := s.deps.Bus.Subscribe(sessionID, sessionFilter(caller))
	defer s.deps.Bus.Unsubscribe(sessionID)

	l := logging.With(r.Context(), s.log).With().Str("session_id", sessionID).Logger()
	l.Debug().Bool("admin", caller.Admin).Msg("sse session opened")

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "retry: 3000\n: connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			l.Debug().Int64("dropped", sub.Dropped()).Msg("sse session closed")
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(newEnvelope(ev))
			if err != nil {
				l.Error().Err(err).Str("kind", string(ev.Kind)).Msg("encode sse event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
