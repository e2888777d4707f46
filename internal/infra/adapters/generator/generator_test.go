//go:build !integration

package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"content-studio/internal/config"
	"content-studio/internal/domain"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/db/memory"
)

type mockLLM struct {
	ChatFunc func(model string, messages []adapter.Message) (string, error)
	prompts  []string
}

func (m *mockLLM) ListModels(context.Context) ([]string, error) { return []string{"m"}, nil }
func (m *mockLLM) CountTokens(context.Context, string, []adapter.Message) (int, error) {
	return 0, nil
}
func (m *mockLLM) ChatWithUsage(_ context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	m.prompts = append(m.prompts, messages[len(messages)-1].Content)
	out, err := m.ChatFunc(model, messages)
	return out, adapter.Usage{}, err
}

func seed(t *testing.T, entities *memory.EntityRepo, et model.EntityType, title, content string) *model.Entity {
	t.Helper()
	e, _ := model.NewEntity(et, "u1", title, time.Now())
	e.Content = content
	if err := entities.Save(context.Background(), repository.NoTX, e); err != nil {
		t.Fatal(err)
	}
	return e
}

func newJob(t *testing.T, p model.Payload) *model.Job {
	t.Helper()
	j, err := model.NewJob(p, "u1", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func TestDefaultRegistry_Generators(t *testing.T) {
	ctx := context.Background()
	entities := memory.NewEntityRepo()
	llm := &mockLLM{ChatFunc: func(string, []adapter.Message) (string, error) {
		return "# Go in 2026\nHOST A: welcome", nil
	}}
	reg := NewDefaultRegistry(Deps{LLM: llm, Media: NoopMedia{}, Entities: entities, Model: "gpt-4o-mini", MaxPromptTokens: 100})

	for _, jt := range []model.JobType{
		model.JobGeneratePodcast, model.JobGenerateScript, model.JobGenerateAudio,
		model.JobGenerateVoiceover, model.JobGenerateInfographic, model.JobGenerateDocument,
	} {
		if _, ok := reg.For(jt); !ok {
			t.Errorf("no generator for %s", jt)
		}
	}

	pod := seed(t, entities, model.EntityPodcast, "Go in 2026", "")

	t.Run("script", func(t *testing.T) {
		g, _ := reg.For(model.JobGenerateScript)
		res, err := g.Generate(ctx, newJob(t, model.ScriptPayload{PodcastID: pod.ID, UserID: "u1", PromptInstructions: "keep it short"}))
		if err != nil {
			t.Fatal(err)
		}
		sr := res.(model.ScriptResult)
		if sr.Title != "Go in 2026" || !strings.Contains(sr.Script, "HOST A") {
			t.Errorf("unexpected result %+v", sr)
		}
		if p := llm.prompts[len(llm.prompts)-1]; !strings.Contains(p, "keep it short") || !strings.Contains(p, "Go in 2026") {
			t.Errorf("prompt missing context: %q", p)
		}
	})

	t.Run("podcast", func(t *testing.T) {
		g, _ := reg.For(model.JobGeneratePodcast)
		res, err := g.Generate(ctx, newJob(t, model.PodcastPayload{PodcastID: pod.ID, UserID: "u1"}))
		if err != nil {
			t.Fatal(err)
		}
		pr := res.(model.PodcastResult)
		if pr.AudioURL == "" || pr.Duration < 1 || pr.Script == "" {
			t.Errorf("unexpected result %+v", pr)
		}
	})

	t.Run("audio needs a script", func(t *testing.T) {
		g, _ := reg.For(model.JobGenerateAudio)
		_, err := g.Generate(ctx, newJob(t, model.AudioPayload{PodcastID: pod.ID, UserID: "u1"}))
		if !errors.Is(err, domain.ErrGenerationFailed) {
			t.Fatalf("expected ErrGenerationFailed, got %v", err)
		}
	})

	t.Run("voiceover from payload text", func(t *testing.T) {
		vo := seed(t, entities, model.EntityVoiceover, "intro", "")
		g, _ := reg.For(model.JobGenerateVoiceover)
		res, err := g.Generate(ctx, newJob(t, model.VoiceoverPayload{VoiceoverID: vo.ID, UserID: "u1", Text: "hello there"}))
		if err != nil {
			t.Fatal(err)
		}
		if r := res.(model.VoiceoverResult); !strings.HasSuffix(r.AudioURL, ".mp3") {
			t.Errorf("unexpected url %q", r.AudioURL)
		}
	})

	t.Run("infographic", func(t *testing.T) {
		inf := seed(t, entities, model.EntityInfographic, "Cloud costs", "")
		g, _ := reg.For(model.JobGenerateInfographic)
		res, err := g.Generate(ctx, newJob(t, model.InfographicPayload{InfographicID: inf.ID, UserID: "u1"}))
		if err != nil {
			t.Fatal(err)
		}
		if r := res.(model.InfographicResult); !strings.HasSuffix(r.ImageURL, ".png") {
			t.Errorf("unexpected url %q", r.ImageURL)
		}
	})

	t.Run("document truncates source", func(t *testing.T) {
		doc := seed(t, entities, model.EntityDocument, "Guide", "")
		g, _ := reg.For(model.JobGenerateDocument)
		src := strings.Repeat("lorem ipsum ", 2000)
		res, err := g.Generate(ctx, newJob(t, model.DocumentPayload{DocumentID: doc.ID, UserID: "u1", SourceText: src}))
		if err != nil {
			t.Fatal(err)
		}
		if r := res.(model.DocumentResult); r.WordCount != 7 {
			t.Errorf("word count %d", r.WordCount)
		}
		if p := llm.prompts[len(llm.prompts)-1]; len(p) >= len(src) {
			t.Errorf("source was not truncated (%d chars)", len(p))
		}
	})

	t.Run("missing entity", func(t *testing.T) {
		g, _ := reg.For(model.JobGenerateDocument)
		_, err := g.Generate(ctx, newJob(t, model.DocumentPayload{DocumentID: "doc_missing", UserID: "u1"}))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRegistry_RejectsUnknownType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewRegistry().Register("generate-video", adapter.GeneratorFunc(func(context.Context, *model.Job) (model.Result, error) {
		return nil, nil
	}))
}

func TestMediaClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			http.Error(w, "no auth", http.StatusUnauthorized)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/v1/speech":
			_ = json.NewEncoder(w).Encode(map[string]any{"url": "https://cdn/a.mp3", "durationSec": 42})
		case "/v1/images":
			if body["aspectRatio"] != "16:9" {
				http.Error(w, "bad ratio", http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"url": "https://cdn/i.png"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewMediaClient(config.MediaConfig{BaseURL: srv.URL + "/", APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	url, dur, err := c.Synthesize(context.Background(), "hi", "alloy")
	if err != nil || url != "https://cdn/a.mp3" || dur != 42 {
		t.Fatalf("synthesize: %q %d %v", url, dur, err)
	}
	if _, err := c.RenderImage(context.Background(), "x", "1:1"); err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected http 400 error, got %v", err)
	}
	img, err := c.RenderImage(context.Background(), "x", "16:9")
	if err != nil || img != "https://cdn/i.png" {
		t.Fatalf("render: %q %v", img, err)
	}
}
