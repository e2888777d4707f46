package adapter

import "context"

// MediaService renders audio and images for generated content.
type MediaService interface {
	// Synthesize turns text into speech and returns the stored audio URL and
	// its duration in seconds.
	Synthesize(ctx context.Context, text, voice string) (url string, durationSec int, err error)
	RenderImage(ctx context.Context, prompt, aspectRatio string) (url string, err error)
}
