package model

import "time"

type EventKind string

const (
	EventJobCompletion            EventKind = "job-completion"
	EventVoiceoverJobCompletion   EventKind = "voiceover-job-completion"
	EventInfographicJobCompletion EventKind = "infographic-job-completion"
	EventDocumentJobCompletion    EventKind = "document-job-completion"
	EventEntityChange             EventKind = "entity-change"
	EventActivityLogged           EventKind = "activity-logged"
)

// IsCompletion reports whether k belongs to the job-completion family.
func (k EventKind) IsCompletion() bool {
	switch k {
	case EventJobCompletion, EventVoiceoverJobCompletion, EventInfographicJobCompletion, EventDocumentJobCompletion:
		return true
	}
	return false
}

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Event is a transient notification about a job or entity change. Only the
// fields relevant to its kind are set.
type Event struct {
	Kind          EventKind  `json:"kind"`
	JobID         string     `json:"jobId,omitempty"`
	JobType       JobType    `json:"jobType,omitempty"`
	Status        JobStatus  `json:"status,omitempty"`
	PodcastID     string     `json:"podcastId,omitempty"`
	VoiceoverID   string     `json:"voiceoverId,omitempty"`
	InfographicID string     `json:"infographicId,omitempty"`
	DocumentID    string     `json:"documentId,omitempty"`
	EntityType    EntityType `json:"entityType,omitempty"`
	EntityID      string     `json:"entityId,omitempty"`
	ChangeType    ChangeType `json:"changeType,omitempty"`
	Error         string     `json:"error,omitempty"`
	ActivityID    string     `json:"activityId,omitempty"`
	OwnerID       string     `json:"ownerId,omitempty"`
	OccurredAt    time.Time  `json:"occurredAt"`
}

var completionKinds = map[EntityType]EventKind{
	EntityPodcast:     EventJobCompletion,
	EntityVoiceover:   EventVoiceoverJobCompletion,
	EntityInfographic: EventInfographicJobCompletion,
	EntityDocument:    EventDocumentJobCompletion,
}

// CompletionEvent builds the single completion event of a terminal job,
// using the narrower per-entity kind when one exists.
func CompletionEvent(j *Job, ownerID string) Event {
	scope := j.Scope()
	ev := Event{
		Kind:       completionKinds[scope],
		JobID:      j.ID,
		JobType:    j.Type,
		Status:     j.Status,
		EntityType: scope,
		EntityID:   j.TargetID(),
		Error:      j.Error,
		OwnerID:    ownerID,
		OccurredAt: j.UpdatedAt,
	}
	ev.setTargetField(scope, j.TargetID())
	return ev
}

func EntityChangeEvent(e *Entity, change ChangeType, now time.Time) Event {
	ev := Event{
		Kind:       EventEntityChange,
		EntityType: e.Type,
		EntityID:   e.ID,
		ChangeType: change,
		OwnerID:    e.OwnerID,
		OccurredAt: now.UTC(),
	}
	ev.setTargetField(e.Type, e.ID)
	return ev
}

func ActivityLoggedEvent(a *Activity) Event {
	return Event{
		Kind:       EventActivityLogged,
		ActivityID: a.ID,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		OccurredAt: a.CreatedAt,
	}
}

func (e *Event) setTargetField(t EntityType, id string) {
	switch t {
	case EntityPodcast:
		e.PodcastID = id
	case EntityVoiceover:
		e.VoiceoverID = id
	case EntityInfographic:
		e.InfographicID = id
	case EntityDocument:
		e.DocumentID = id
	}
}

func (e Event) targetField(t EntityType) string {
	switch t {
	case EntityPodcast:
		return e.PodcastID
	case EntityVoiceover:
		return e.VoiceoverID
	case EntityInfographic:
		return e.InfographicID
	case EntityDocument:
		return e.DocumentID
	}
	return ""
}

// Target resolves the entity an event refers to. Producers may set either the
// generic entityType/entityId pair or only the kind-specific id field.
func (e Event) Target() (EntityType, string) {
	t := e.EntityType
	if !t.Valid() {
		switch e.Kind {
		case EventVoiceoverJobCompletion:
			t = EntityVoiceover
		case EventInfographicJobCompletion:
			t = EntityInfographic
		case EventDocumentJobCompletion:
			t = EntityDocument
		case EventJobCompletion:
			if e.JobType.Valid() {
				t = e.JobType.Scope()
			}
		}
	}
	if t.Valid() {
		if e.EntityID != "" {
			return t, e.EntityID
		}
		return t, e.targetField(t)
	}
	// no type hint: first populated id field wins
	for _, et := range EntityTypes() {
		if id := e.targetField(et); id != "" {
			return et, id
		}
	}
	return "", ""
}
