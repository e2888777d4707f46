// Package generator holds the per-job-type generation collaborators the
// dispatcher invokes.
package generator

import (
	"fmt"
	"sync"

	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
)

type Registry struct {
	mu   sync.RWMutex
	byTy map[model.JobType]adapter.Generator
}

func NewRegistry() *Registry {
	return &Registry{byTy: map[model.JobType]adapter.Generator{}}
}

// Register panics on unknown job types; registration happens at startup.
func (r *Registry) Register(t model.JobType, g adapter.Generator) *Registry {
	if !t.Valid() {
		panic(fmt.Sprintf("generator: unknown job type %q", t))
	}
	r.mu.Lock()
	r.byTy[t] = g
	r.mu.Unlock()
	return r
}

func (r *Registry) For(t model.JobType) (adapter.Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byTy[t]
	return g, ok
}

// Deps are the collaborators shared by the built-in generators.
type Deps struct {
	LLM             adapter.AIServiceAdapter
	Media           adapter.MediaService
	Entities        EntityReader
	Model           string
	MaxPromptTokens int
}

// NewDefaultRegistry registers a generator for every job type.
func NewDefaultRegistry(d Deps) *Registry {
	script := &ScriptGenerator{llm: d.LLM, entities: d.Entities, model: d.Model}
	return NewRegistry().
		Register(model.JobGenerateScript, script).
		Register(model.JobGeneratePodcast, &PodcastGenerator{script: script, media: d.Media}).
		Register(model.JobGenerateAudio, &AudioGenerator{media: d.Media, entities: d.Entities}).
		Register(model.JobGenerateVoiceover, &VoiceoverGenerator{media: d.Media, entities: d.Entities}).
		Register(model.JobGenerateInfographic, &InfographicGenerator{llm: d.LLM, media: d.Media, entities: d.Entities, model: d.Model}).
		Register(model.JobGenerateDocument, &DocumentGenerator{llm: d.LLM, entities: d.Entities, model: d.Model, maxTokens: d.MaxPromptTokens})
}
