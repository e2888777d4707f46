package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"content-studio/internal/usecase"
)

type createEntityRequest struct {
	Title string `json:"title"`
}

type updateEntityRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// POST /api/v1/{kind}
func (s *Server) createEntity(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	kind, err := entityKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req createEntityRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	e, err := s.deps.Entities.Create(r.Context(), caller, kind, req.Title)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// GET /api/v1/{kind}
func (s *Server) listEntities(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	kind, err := entityKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items, err := s.deps.Entities.List(r.Context(), caller, kind, queryLimit(r, 50, 200))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GET /api/v1/{kind}/{entityID}
func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	kind, err := entityKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	e, err := s.deps.Entities.Get(r.Context(), caller, kind, chi.URLParam(r, "entityID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// PATCH /api/v1/{kind}/{entityID}
func (s *Server) updateEntity(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	kind, err := entityKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req updateEntityRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	e, err := s.deps.Entities.Update(r.Context(), caller, kind, chi.URLParam(r, "entityID"),
		usecase.EntityPatch{Title: req.Title, Content: req.Content})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DELETE /api/v1/{kind}/{entityID}
func (s *Server) deleteEntity(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	kind, err := entityKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.deps.Entities.Delete(r.Context(), caller, kind, chi.URLParam(r, "entityID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
