package apiv1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/infra/metrics"
	"content-studio/internal/infra/redis"
)

type enqueueRequest struct {
	JobType            string `json:"jobType,omitempty"`
	PromptInstructions string `json:"promptInstructions,omitempty"`
	Voice              string `json:"voice,omitempty"`
	Text               string `json:"text,omitempty"`
	Prompt             string `json:"prompt,omitempty"`
	AspectRatio        string `json:"aspectRatio,omitempty"`
	Instructions       string `json:"instructions,omitempty"`
	SourceText         string `json:"sourceText,omitempty"`
}

// payload builds the typed payload for the entity. An empty jobType selects
// the entity type's full generation job.
func (req enqueueRequest) payload(kind model.EntityType, entityID, userID string) (model.Payload, error) {
	jt := model.DefaultJobType(kind)
	if req.JobType != "" {
		t, err := model.ParseJobType(req.JobType)
		if err != nil {
			return nil, err
		}
		jt = t
	}
	if jt.Scope() != kind {
		return nil, fmt.Errorf("%w: %s jobs do not target %s entities", domain.ErrInvalidArgument, jt, kind)
	}

	switch jt {
	case model.JobGeneratePodcast:
		return model.PodcastPayload{PodcastID: entityID, UserID: userID, PromptInstructions: req.PromptInstructions}, nil
	case model.JobGenerateScript:
		return model.ScriptPayload{PodcastID: entityID, UserID: userID, PromptInstructions: req.PromptInstructions}, nil
	case model.JobGenerateAudio:
		return model.AudioPayload{PodcastID: entityID, UserID: userID, Voice: req.Voice}, nil
	case model.JobGenerateVoiceover:
		return model.VoiceoverPayload{VoiceoverID: entityID, UserID: userID, Text: req.Text, Voice: req.Voice}, nil
	case model.JobGenerateInfographic:
		return model.InfographicPayload{InfographicID: entityID, UserID: userID, Prompt: req.Prompt, AspectRatio: req.AspectRatio}, nil
	case model.JobGenerateDocument:
		return model.DocumentPayload{DocumentID: entityID, UserID: userID, Instructions: req.Instructions, SourceText: req.SourceText}, nil
	}
	return nil, fmt.Errorf("%w: unsupported job type %q", domain.ErrInvalidArgument, jt)
}

type enqueueResponse struct {
	JobID  string          `json:"jobId"`
	Status model.JobStatus `json:"status"`
}

// JobStatusResponse is the status query payload. Unset fields are null.
type JobStatusResponse struct {
	ID          string          `json:"id"`
	Type        model.JobType   `json:"type"`
	Status      model.JobStatus `json:"status"`
	Result      json.RawMessage `json:"result"`
	Error       *string         `json:"error"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
	StartedAt   *string         `json:"startedAt"`
	CompletedAt *string         `json:"completedAt"`
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toJobStatus(j *model.Job) (JobStatusResponse, error) {
	out := JobStatusResponse{
		ID:          j.ID,
		Type:        j.Type,
		Status:      j.Status,
		Result:      json.RawMessage("null"),
		CreatedBy:   j.CreatedBy,
		CreatedAt:   formatTime(j.CreatedAt),
		UpdatedAt:   formatTime(j.UpdatedAt),
		StartedAt:   formatTimePtr(j.StartedAt),
		CompletedAt: formatTimePtr(j.CompletedAt),
	}
	if j.Result != nil {
		raw, err := model.EncodeResult(j.Result)
		if err != nil {
			return out, err
		}
		out.Result = raw
	}
	if j.Error != "" {
		msg := j.Error
		out.Error = &msg
	}
	return out, nil
}

// POST /api/v1/{kind}/{entityID}/jobs
func (s *Server) enqueueJob(w http.ResponseWriter, r *http.Request) {
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
	var req enqueueRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	payload, err := req.payload(kind, chi.URLParam(r, "entityID"), caller.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.allowGenerate(r, caller.UserID); err != nil {
		s.fail(w, r, err)
		return
	}

	job, created, err := s.deps.Generation.Request(r.Context(), caller, payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if created {
		w.Header().Set("Location", "/api/v1/jobs/"+job.ID)
	}
	writeJSON(w, http.StatusAccepted, enqueueResponse{JobID: job.ID, Status: job.Status})
}

// allowGenerate applies the per-user enqueue limit. Limiter errors fail open.
func (s *Server) allowGenerate(r *http.Request, userID string) error {
	if s.deps.Limiter == nil || s.opts.GeneratePerMinute <= 0 {
		return nil
	}
	ok, err := s.deps.Limiter.Allow(r.Context(), redis.UserActionKey(userID, "generate"), s.opts.GeneratePerMinute, time.Minute)
	if err != nil {
		s.log.Warn().Err(err).Msg("rate limiter unavailable")
		return nil
	}
	if !ok {
		metrics.IncRateLimited("generate")
		return domain.ErrRateLimited
	}
	return nil
}

// GET /api/v1/jobs/{jobID}
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	job, err := s.deps.Generation.Status(r.Context(), caller, chi.URLParam(r, "jobID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := toJobStatus(job)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/v1/{kind}/{entityID}/jobs
func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
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
	ent, err := s.deps.Entities.Get(r.Context(), caller, kind, chi.URLParam(r, "entityID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jobs, err := s.deps.Jobs.ListForTarget(r.Context(), kind, ent.ID, queryLimit(r, 20, 100))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := make([]JobStatusResponse, 0, len(jobs))
	for _, j := range jobs {
		out, err := toJobStatus(j)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		items = append(items, out)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
