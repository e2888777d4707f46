package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter talks to the Chat Completions API or any OpenAI-compatible
// gateway when baseURL is set.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, model, baseURL string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(2)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAIAdapter{client: openai.NewClient(opts...), model: model}, nil
}

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	var out []string
	iter := o.client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		out = append(out, iter.Current().ID)
	}
	if err := iter.Err(); err != nil || len(out) == 0 {
		// gateways often do not expose /models
		return []string{o.model}, nil
	}
	return out, nil
}

func (o *OpenAIAdapter) CountTokens(_ context.Context, model string, messages []adapter.Message) (int, error) {
	return CountMessageTokens(modelOrDefault(model, o.model), messages), nil
}

func (o *OpenAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	model = modelOrDefault(model, o.model)
	if len(messages) == 0 {
		return "", adapter.Usage{}, errors.New("openai: no messages")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(messages),
	}
	began := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		metrics.ObserveAICall("openai", model, 0, 0, time.Since(began).Milliseconds(), false)
		return "", adapter.Usage{}, err
	}

	u := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	metrics.ObserveAICall("openai", model, u.PromptTokens, u.CompletionTokens, time.Since(began).Milliseconds(), true)

	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, u, nil
		}
	}
	return "", u, errors.New("openai: no choice content")
}

func toOpenAIMessages(msgs []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
