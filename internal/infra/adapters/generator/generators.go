package generator

import (
	"context"
	"fmt"
	"strings"

	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/adapters/ai"
)

// EntityReader is the read side of the entity store used to build prompts.
type EntityReader interface {
	FindByID(ctx context.Context, tx repository.Tx, t model.EntityType, id string) (*model.Entity, error)
}

func payloadAs[T model.Payload](job *model.Job) (T, error) {
	p, ok := job.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: payload %T for %s", domain.ErrInvalidArgument, job.Payload, job.Type)
	}
	return p, nil
}

func target(ctx context.Context, entities EntityReader, job *model.Job) (*model.Entity, error) {
	e, err := entities.FindByID(ctx, repository.NoTX, job.Scope(), job.TargetID())
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", job.Scope(), job.TargetID(), err)
	}
	return e, nil
}

func chat(ctx context.Context, llm adapter.AIServiceAdapter, model, system, user string) (string, error) {
	out, _, err := llm.ChatWithUsage(ctx, model, []adapter.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty model output", domain.ErrGenerationFailed)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Podcast family
// ──────────────────────────────────────────────────

const scriptSystemPrompt = "You write engaging two-host podcast scripts. Reply with the script only."

type ScriptGenerator struct {
	llm      adapter.AIServiceAdapter
	entities EntityReader
	model    string
}

func (g *ScriptGenerator) Generate(ctx context.Context, job *model.Job) (model.Result, error) {
	p, err := payloadAs[model.ScriptPayload](job)
	if err != nil {
		return nil, err
	}
	script, err := g.write(ctx, job, p.PromptInstructions)
	if err != nil {
		return nil, err
	}
	return model.ScriptResult{Title: titleOf(script), Script: script}, nil
}

func (g *ScriptGenerator) write(ctx context.Context, job *model.Job, instructions string) (string, error) {
	e, err := target(ctx, g.entities, job)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Episode title: %s\n", e.Title)
	if e.Content != "" {
		fmt.Fprintf(&b, "Notes:\n%s\n", e.Content)
	}
	if instructions != "" {
		fmt.Fprintf(&b, "Instructions: %s\n", instructions)
	}
	return chat(ctx, g.llm, g.model, scriptSystemPrompt, b.String())
}

// PodcastGenerator writes a script and then synthesizes it.
type PodcastGenerator struct {
	script *ScriptGenerator
	media  adapter.MediaService
}

func (g *PodcastGenerator) Generate(ctx context.Context, job *model.Job) (model.Result, error) {
	p, err := payloadAs[model.PodcastPayload](job)
	if err != nil {
		return nil, err
	}
	script, err := g.script.write(ctx, job, p.PromptInstructions)
	if err != nil {
		return nil, err
	}
	url, dur, err := g.media.Synthesize(ctx, script, "")
	if err != nil {
		return nil, fmt.Errorf("synthesize podcast: %w", err)
	}
	return model.PodcastResult{Script: script, AudioURL: url, Duration: dur}, nil
}

// AudioGenerator voices the podcast's current script.
type AudioGenerator struct {
	media    adapter.MediaService
	entities EntityReader
}

func (g *AudioGenerator) Generate(ctx context.Context, job *model.Job) (model.Result, error) {
	p, err := payloadAs[model.AudioPayload](job)
	if err != nil {
		return nil, err
	}
	e, err := target(ctx, g.entities, job)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(e.Content) == "" {
		return nil, fmt.Errorf("%w: podcast %s has no script yet", domain.ErrGenerationFailed, e.ID)
	}
	url, dur, err := g.media.Synthesize(ctx, e.Content, p.Voice)
	if err != nil {
		return nil, fmt.Errorf("synthesize audio: %w", err)
	}
	return model.AudioResult{AudioURL: url, Duration: dur}, nil
}

// ──────────────────────────────────────────────────
// Voiceover, infographic, document
// ──────────────────────────────────────────────────

type VoiceoverGenerator struct {
	media    adapter.MediaService
	entities EntityReader
}

// Generate voices the payload text, or the voiceover's stored content.
func (g *VoiceoverGenerator) Generate(ctx context.Context, job *model.Job) (model.Result, error) {
	p, err := payloadAs[model.VoiceoverPayload](job)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		e, err := target(ctx, g.entities, job)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(e.Content)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: nothing to voice", domain.ErrGenerationFailed)
	}
	url, dur, err := g.media.Synthesize(ctx, text, p.Voice)
	if err != nil {
		return nil, fmt.Errorf("synthesize voiceover: %w", err)
	}
	return model.VoiceoverResult{AudioURL: url, Duration: dur}, nil
}

const briefSystemPrompt = "You turn a topic into a concise visual brief for an infographic illustrator. Reply with the brief only."

type InfographicGenerator struct {
	llm      adapter.AIServiceAdapter
	media    adapter.MediaService
	entities EntityReader
	model    string
}

func (g *InfographicGenerator) Generate(ctx context.Context, job *model.Job) (model.Result, error) {
	p, err := payloadAs[model.InfographicPayload](job)
	if err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(p.Prompt)
	if topic == "" {
		e, err := target(ctx, g.entities, job)
		if err != nil {
			return nil, err
		}
		topic = e.Title
	}
	brief, err := chat(ctx, g.llm, g.model, briefSystemPrompt, topic)
	if err != nil {
		return nil, err
	}
	aspect := p.AspectRatio
	if aspect == "" {
		aspect = "3:4"
	}
	url, err := g.media.RenderImage(ctx, brief, aspect)
	if err != nil {
		return nil, fmt.Errorf("render infographic: %w", err)
	}
	return model.InfographicResult{ImageURL: url}, nil
}

const documentSystemPrompt = "You are a careful technical writer. Produce a well structured markdown document."

type DocumentGenerator struct {
	llm       adapter.AIServiceAdapter
	entities  EntityReader
	model     string
	maxTokens int
}

func (g *DocumentGenerator) Generate(ctx context.Context, job *model.Job) (model.Result, error) {
	p, err := payloadAs[model.DocumentPayload](job)
	if err != nil {
		return nil, err
	}
	e, err := target(ctx, g.entities, job)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", e.Title)
	if p.Instructions != "" {
		fmt.Fprintf(&b, "Instructions: %s\n", p.Instructions)
	}
	if src := strings.TrimSpace(p.SourceText); src != "" {
		src, _ = ai.TruncateToTokens(g.model, src, g.maxTokens)
		fmt.Fprintf(&b, "Source material:\n%s\n", src)
	}

	content, err := chat(ctx, g.llm, g.model, documentSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}
	return model.DocumentResult{Content: content, WordCount: len(strings.Fields(content))}, nil
}

// titleOf uses the first non-empty line of a script, stripped of markdown.
func titleOf(script string) string {
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#* "))
		if line != "" {
			if len(line) > 120 {
				line = line[:120]
			}
			return line
		}
	}
	return ""
}
