package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionJobCreated    = "job.created"
	ActionJobCompleted  = "job.completed"
	ActionJobFailed     = "job.failed"
	ActionEntityCreated = "entity.created"
	ActionEntityUpdated = "entity.updated"
	ActionEntityDeleted = "entity.deleted"
)

// Activity is one admin audit trail entry.
type Activity struct {
	ID         string     `json:"id"`
	ActorID    string     `json:"actorId"`
	Action     string     `json:"action"`
	EntityType EntityType `json:"entityType,omitempty"`
	EntityID   string     `json:"entityId,omitempty"`
	JobID      string     `json:"jobId,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func NewActivity(actorID, action string, et EntityType, entityID, jobID, detail string, now time.Time) *Activity {
	return &Activity{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		EntityType: et,
		EntityID:   entityID,
		JobID:      jobID,
		Detail:     detail,
		CreatedAt:  now.UTC(),
	}
}
