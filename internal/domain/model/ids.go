package model

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// EntityType names a kind of generated content. It doubles as the
// idempotency scope of generation jobs.
type EntityType string

const (
	EntityPodcast     EntityType = "podcast"
	EntityVoiceover   EntityType = "voiceover"
	EntityInfographic EntityType = "infographic"
	EntityDocument    EntityType = "document"
)

var entityPrefixes = map[EntityType]struct{ entity, job string }{
	EntityPodcast:     {"pod", "job"},
	EntityVoiceover:   {"voc", "vojob"},
	EntityInfographic: {"inf", "infjob"},
	EntityDocument:    {"doc", "docjob"},
}

// EntityTypes lists every known entity type in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{EntityPodcast, EntityVoiceover, EntityInfographic, EntityDocument}
}

func (t EntityType) Valid() bool {
	_, ok := entityPrefixes[t]
	return ok
}

// IDPrefix is the human readable prefix of entity ids ("pod", "voc", ...).
func (t EntityType) IDPrefix() string { return entityPrefixes[t].entity }

// JobIDPrefix is the prefix of job ids scoped to this entity type.
func (t EntityType) JobIDPrefix() string { return entityPrefixes[t].job }

// ParseEntityType accepts both singular and plural forms ("podcast", "podcasts").
func ParseEntityType(s string) (EntityType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	t := EntityType(strings.TrimSuffix(s, "s"))
	return t, t.Valid()
}

// NewID returns "<prefix>_<lowercase ulid>".
func NewID(prefix string) string {
	return prefix + "_" + strings.ToLower(ulid.Make().String())
}

func NewEntityID(t EntityType) string { return NewID(t.IDPrefix()) }
