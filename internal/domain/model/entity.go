package model

import (
	"strings"
	"time"

	"content-studio/internal/domain"
)

type EntityStatus string

const (
	EntityStatusDraft      EntityStatus = "draft"
	EntityStatusGenerating EntityStatus = "generating"
	EntityStatusReady      EntityStatus = "ready"
	EntityStatusFailed     EntityStatus = "failed"
)

// Entity is a piece of generated content (podcast, voiceover, ...). The job
// core only needs its identity, owner and generation status.
type Entity struct {
	ID        string       `json:"id"`
	Type      EntityType   `json:"type"`
	OwnerID   string       `json:"ownerId"`
	Title     string       `json:"title"`
	Content   string       `json:"content,omitempty"`
	MediaURL  string       `json:"mediaUrl,omitempty"`
	Status    EntityStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func NewEntity(t EntityType, ownerID, title string, now time.Time) (*Entity, error) {
	if !t.Valid() || strings.TrimSpace(ownerID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	now = now.UTC()
	return &Entity{
		ID:        NewEntityID(t),
		Type:      t,
		OwnerID:   ownerID,
		Title:     strings.TrimSpace(title),
		Status:    EntityStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanAccess is the ownership policy: owners and admins only.
func (e *Entity) CanAccess(userID string, admin bool) bool {
	return admin || (userID != "" && e.OwnerID == userID)
}

// ApplyJobOutcome reflects a job transition on the entity. Job types that do
// not affect list views leave Status alone, since list rows render it; their
// progress is visible on the job itself.
func (e *Entity) ApplyJobOutcome(j *Job, now time.Time) {
	listed := j.Type.AffectsList()
	switch j.Status {
	case JobStatusPending, JobStatusRunning:
		if listed {
			e.Status = EntityStatusGenerating
		}
	case JobStatusCompleted:
		if listed {
			e.Status = EntityStatusReady
		}
		if cr, ok := j.Result.(ContentResult); ok && cr.EntityContent() != "" {
			e.Content = cr.EntityContent()
		}
		switch r := j.Result.(type) {
		case PodcastResult:
			e.MediaURL = r.AudioURL
		case AudioResult:
			e.MediaURL = r.AudioURL
		case VoiceoverResult:
			e.MediaURL = r.AudioURL
		case InfographicResult:
			e.MediaURL = r.ImageURL
		}
	case JobStatusFailed:
		if listed {
			e.Status = EntityStatusFailed
		}
	}
	e.UpdatedAt = now.UTC()
}
