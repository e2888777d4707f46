package generator

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"content-studio/internal/config"
	"content-studio/internal/domain/ports/adapter"
)

var _ adapter.MediaService = (*MediaClient)(nil)

// MediaClient calls the media rendering service:
//
//	POST {base}/v1/speech {"text","voice"}          -> {"url","durationSec"}
//	POST {base}/v1/images {"prompt","aspectRatio"}  -> {"url"}
type MediaClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewMediaClient(cfg config.MediaConfig) (*MediaClient, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("media base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &MediaClient{baseURL: base, apiKey: cfg.APIKey, client: &http.Client{Timeout: timeout}}, nil
}

func (c *MediaClient) Synthesize(ctx context.Context, text, voice string) (string, int, error) {
	var out struct {
		URL         string `json:"url"`
		DurationSec int    `json:"durationSec"`
	}
	if err := c.post(ctx, "/v1/speech", map[string]string{"text": text, "voice": voice}, &out); err != nil {
		return "", 0, err
	}
	if out.URL == "" {
		return "", 0, errors.New("media: speech response without url")
	}
	return out.URL, out.DurationSec, nil
}

func (c *MediaClient) RenderImage(ctx context.Context, prompt, aspectRatio string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/v1/images", map[string]string{"prompt": prompt, "aspectRatio": aspectRatio}, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("media: image response without url")
	}
	return out.URL, nil
}

func (c *MediaClient) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("media: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("media: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("media http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("media: decode response: %w", err)
	}
	return nil
}

// NoopMedia returns stable fake URLs derived from the input. Used in dev mode.
type NoopMedia struct {
	BaseURL string
}

var _ adapter.MediaService = NoopMedia{}

func (m NoopMedia) Synthesize(ctx context.Context, text, voice string) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	// roughly 150 spoken words per minute
	dur := len(strings.Fields(text)) * 60 / 150
	if dur == 0 {
		dur = 1
	}
	return m.url("audio", text+voice, "mp3"), dur, nil
}

func (m NoopMedia) RenderImage(ctx context.Context, prompt, aspectRatio string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.url("images", prompt+aspectRatio, "png"), nil
}

func (m NoopMedia) url(kind, seed, ext string) string {
	base := m.BaseURL
	if base == "" {
		base = "https://media.invalid"
	}
	sum := sha1.Sum([]byte(seed))
	return fmt.Sprintf("%s/%s/%s.%s", strings.TrimRight(base, "/"), kind, hex.EncodeToString(sum[:8]), ext)
}
