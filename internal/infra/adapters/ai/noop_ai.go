package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter answers with deterministic text after a short delay. Used in
// dev mode and when no provider key is configured.
type NoopAIAdapter struct {
	delay time.Duration
	log   *zerolog.Logger
}

func NewNoopAIAdapter(delay time.Duration, logger *zerolog.Logger) *NoopAIAdapter {
	l := logger.With().Str("component", "NoopAI").Logger()
	return &NoopAIAdapter{delay: delay, log: &l}
}

func (a *NoopAIAdapter) ListModels(context.Context) ([]string, error) {
	return []string{"noop"}, nil
}

func (a *NoopAIAdapter) CountTokens(_ context.Context, _ string, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(strings.Fields(m.Content))
	}
	return n, nil
}

func (a *NoopAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return "", adapter.Usage{}, ctx.Err()
	}
	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}
	a.log.Debug().Str("model", model).Int("messages", len(messages)).Msg("noop chat")

	reply := fmt.Sprintf("Draft generated for: %s", firstLine(prompt))
	in, _ := a.CountTokens(ctx, model, messages)
	out := len(strings.Fields(reply))
	return reply, adapter.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
