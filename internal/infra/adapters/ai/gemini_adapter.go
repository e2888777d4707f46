package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	maxOut       int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	var out []string
	for m := range g.client.Models.All(ctx) {
		if m != nil && m.Name != "" {
			out = append(out, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	if len(out) == 0 {
		out = []string{g.defaultModel}
	}
	return out, nil
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	_, contents := toGenAIContents(messages)
	resp, err := g.client.Models.CountTokens(ctx, g.geminiModel(model), contents, nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

func (g *GeminiAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	model = g.geminiModel(model)
	system, contents := toGenAIContents(messages)
	if len(contents) == 0 {
		return "", adapter.Usage{}, errors.New("gemini: no messages")
	}

	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}

	began := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		metrics.ObserveAICall("gemini", model, 0, 0, time.Since(began).Milliseconds(), false)
		return "", adapter.Usage{}, err
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p != nil {
				sb.WriteString(p.Text)
			}
		}
	}
	u := adapter.Usage{}
	if resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	metrics.ObserveAICall("gemini", model, u.PromptTokens, u.CompletionTokens, time.Since(began).Milliseconds(), true)

	if sb.Len() == 0 {
		return "", u, errors.New("gemini: empty response")
	}
	return sb.String(), u, nil
}

// toGenAIContents splits system messages into a system instruction.
func toGenAIContents(msgs []adapter.Message) (*genai.Content, []*genai.Content) {
	var (
		system   *genai.Content
		contents = make([]*genai.Content, 0, len(msgs))
	)
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: m.Content})
		case "assistant", "model":
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return system, contents
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}

// geminiModel swaps in the default for non-Gemini model names, which reach
// this adapter through the router's fallback.
func (g *GeminiAdapter) geminiModel(model string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gemini") {
		return strings.TrimSpace(model)
	}
	return g.defaultModel
}
