package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/infra/metrics"
)

var (
	encMu    sync.Mutex
	encCache = map[string]*tiktoken.Tiktoken{}
)

// encodingFor falls back to cl100k_base for models tiktoken does not know
// (gemini, gateway aliases). Returns nil when no encoding can be loaded.
func encodingFor(model string) *tiktoken.Tiktoken {
	encMu.Lock()
	defer encMu.Unlock()
	if enc, ok := encCache[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		enc = nil
	}
	encCache[model] = enc
	return enc
}

// CountMessageTokens estimates prompt tokens with the chat framing overhead
// of 4 tokens per message plus 3 for the reply primer.
func CountMessageTokens(model string, messages []adapter.Message) int {
	enc := encodingFor(model)
	n := 3
	for _, m := range messages {
		n += 4
		if enc != nil {
			n += len(enc.Encode(m.Content, nil, nil))
		} else {
			n += len(m.Content) / 4
		}
	}
	return n
}

// TruncateToTokens cuts text to at most max tokens. It reports whether the
// text was shortened.
func TruncateToTokens(model, text string, max int) (string, bool) {
	if max <= 0 || text == "" {
		return text, false
	}
	enc := encodingFor(model)
	if enc == nil {
		if len(text) <= max*4 {
			return text, false
		}
		metrics.IncPromptTruncated(model)
		return text[:max*4], true
	}
	toks := enc.Encode(text, nil, nil)
	if len(toks) <= max {
		return text, false
	}
	metrics.IncPromptTruncated(model)
	return enc.Decode(toks[:max]), true
}
