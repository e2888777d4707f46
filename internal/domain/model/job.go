package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"content-studio/internal/domain"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Job is a durable record of one generation request and its outcome.
// Result is set only when completed, Error only when failed.
type Job struct {
	ID          string
	Type        JobType
	Payload     Payload
	Status      JobStatus
	Result      Result
	Error       string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewJob builds a pending job for the payload's target entity.
func NewJob(payload Payload, createdBy string, now time.Time) (*Job, error) {
	if payload == nil || strings.TrimSpace(createdBy) == "" {
		return nil, domain.ErrInvalidArgument
	}
	t := payload.JobType()
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown job type %q", domain.ErrInvalidArgument, t)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	now = now.UTC()
	return &Job{
		ID:        NewID(t.Scope().JobIDPrefix()),
		Type:      t,
		Payload:   payload,
		Status:    JobStatusPending,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Scope is the idempotency scope of the job.
func (j *Job) Scope() EntityType { return j.Type.Scope() }

func (j *Job) TargetID() string {
	if j.Payload == nil {
		return ""
	}
	return j.Payload.TargetID()
}

func (j *Job) transitionErr(to JobStatus) error {
	return fmt.Errorf("%w: job %s is %s, cannot move to %s", domain.ErrInvalidTransition, j.ID, j.Status, to)
}

// Start moves a pending job to running.
func (j *Job) Start(now time.Time) error {
	if j.Status != JobStatusPending {
		return j.transitionErr(JobStatusRunning)
	}
	now = now.UTC()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// Complete moves a running job to completed with a result of the job's own type.
func (j *Job) Complete(result Result, now time.Time) error {
	if j.Status != JobStatusRunning {
		return j.transitionErr(JobStatusCompleted)
	}
	if result == nil || result.JobType() != j.Type {
		return fmt.Errorf("%w: result does not match job type %s", domain.ErrInvalidArgument, j.Type)
	}
	now = j.finishAt(now)
	j.Status = JobStatusCompleted
	j.Result = result
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// Fail moves a running job to failed. An empty message is replaced so that
// failed jobs always carry a reason.
func (j *Job) Fail(message string, now time.Time) error {
	if j.Status != JobStatusRunning {
		return j.transitionErr(JobStatusFailed)
	}
	if strings.TrimSpace(message) == "" {
		message = domain.ErrGenerationFailed.Error()
	}
	now = j.finishAt(now)
	j.Status = JobStatusFailed
	j.Error = message
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// finishAt keeps startedAt <= completedAt under clock skew between workers.
func (j *Job) finishAt(now time.Time) time.Time {
	now = now.UTC()
	if j.StartedAt != nil && now.Before(*j.StartedAt) {
		return *j.StartedAt
	}
	return now
}

// Clone returns a deep copy safe to hand out of a store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

type jobRecord struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// MarshalJSON encodes the job with its typed payload and result as raw JSON.
func (j Job) MarshalJSON() ([]byte, error) {
	payload, err := EncodePayload(j.Payload)
	if err != nil {
		return nil, err
	}
	result, err := EncodeResult(j.Result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jobRecord{
		ID: j.ID, Type: j.Type, Payload: payload, Status: j.Status, Result: result,
		Error: j.Error, CreatedBy: j.CreatedBy, CreatedAt: j.CreatedAt, UpdatedAt: j.UpdatedAt,
		StartedAt: j.StartedAt, CompletedAt: j.CompletedAt,
	})
}

func (j *Job) UnmarshalJSON(b []byte) error {
	var rec jobRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	payload, err := DecodePayload(rec.Type, rec.Payload)
	if err != nil {
		return err
	}
	result, err := DecodeResult(rec.Type, rec.Result)
	if err != nil {
		return err
	}
	*j = Job{
		ID: rec.ID, Type: rec.Type, Payload: payload, Status: rec.Status, Result: result,
		Error: rec.Error, CreatedBy: rec.CreatedBy, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt,
		StartedAt: rec.StartedAt, CompletedAt: rec.CompletedAt,
	}
	return nil
}
