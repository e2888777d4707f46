package model

import (
	"fmt"
	"strings"

	"content-studio/internal/domain"
)

type JobType string

const (
	JobGeneratePodcast     JobType = "generate-podcast"
	JobGenerateScript      JobType = "generate-script"
	JobGenerateAudio       JobType = "generate-audio"
	JobGenerateVoiceover   JobType = "generate-voiceover"
	JobGenerateInfographic JobType = "generate-infographic"
	JobGenerateDocument    JobType = "generate-document"
)

type jobTypeInfo struct {
	scope EntityType
	// list rows render fields this job rewrites (title, duration, status badge)
	affectsList bool
}

var jobTypes = map[JobType]jobTypeInfo{
	JobGeneratePodcast:     {EntityPodcast, true},
	JobGenerateScript:      {EntityPodcast, true},
	JobGenerateAudio:       {EntityPodcast, false},
	JobGenerateVoiceover:   {EntityVoiceover, true},
	JobGenerateInfographic: {EntityInfographic, true},
	JobGenerateDocument:    {EntityDocument, true},
}

// JobTypes lists every job type in a stable order.
func JobTypes() []JobType {
	return []JobType{
		JobGeneratePodcast, JobGenerateScript, JobGenerateAudio,
		JobGenerateVoiceover, JobGenerateInfographic, JobGenerateDocument,
	}
}

func (t JobType) Valid() bool {
	_, ok := jobTypes[t]
	return ok
}

// Scope is the entity type a job of this type targets. At most one
// non-terminal job may exist per (scope, target id).
func (t JobType) Scope() EntityType { return jobTypes[t].scope }

// AffectsList reports whether a completed job of this type changes what a
// list view displays, as opposed to only the entity's detail view.
func (t JobType) AffectsList() bool { return jobTypes[t].affectsList }

func ParseJobType(s string) (JobType, error) {
	t := JobType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown job type %q", domain.ErrInvalidArgument, s)
	}
	return t, nil
}

// DefaultJobType is the full-generation job type for an entity type.
func DefaultJobType(e EntityType) JobType {
	switch e {
	case EntityPodcast:
		return JobGeneratePodcast
	case EntityVoiceover:
		return JobGenerateVoiceover
	case EntityInfographic:
		return JobGenerateInfographic
	case EntityDocument:
		return JobGenerateDocument
	}
	return ""
}
