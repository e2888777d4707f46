package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"content-studio/internal/domain"
)

// Payload is the typed input of a job. Each job type has exactly one
// payload variant.
type Payload interface {
	JobType() JobType
	// TargetID is the id of the entity the job generates content for.
	TargetID() string
	Requester() string
	Validate() error
}

// Result is the typed success output of a job.
type Result interface {
	JobType() JobType
}

// ContentResult is implemented by results that replace the target entity's
// textual content when the job completes.
type ContentResult interface {
	Result
	EntityContent() string
}

type PodcastPayload struct {
	PodcastID          string `json:"podcastId"`
	UserID             string `json:"userId"`
	PromptInstructions string `json:"promptInstructions,omitempty"`
}

func (PodcastPayload) JobType() JobType { return JobGeneratePodcast }
func (p PodcastPayload) TargetID() string { return p.PodcastID }
func (p PodcastPayload) Requester() string { return p.UserID }
func (p PodcastPayload) Validate() error { return requireIDs(p.PodcastID, p.UserID) }

type ScriptPayload struct {
	PodcastID          string `json:"podcastId"`
	UserID             string `json:"userId"`
	PromptInstructions string `json:"promptInstructions,omitempty"`
}

func (ScriptPayload) JobType() JobType { return JobGenerateScript }
func (p ScriptPayload) TargetID() string { return p.PodcastID }
func (p ScriptPayload) Requester() string { return p.UserID }
func (p ScriptPayload) Validate() error { return requireIDs(p.PodcastID, p.UserID) }

type AudioPayload struct {
	PodcastID string `json:"podcastId"`
	UserID    string `json:"userId"`
	Voice     string `json:"voice,omitempty"`
}

func (AudioPayload) JobType() JobType { return JobGenerateAudio }
func (p AudioPayload) TargetID() string { return p.PodcastID }
func (p AudioPayload) Requester() string { return p.UserID }
func (p AudioPayload) Validate() error { return requireIDs(p.PodcastID, p.UserID) }

type VoiceoverPayload struct {
	VoiceoverID string `json:"voiceoverId"`
	UserID      string `json:"userId"`
	Text        string `json:"text,omitempty"`
	Voice       string `json:"voice,omitempty"`
}

func (VoiceoverPayload) JobType() JobType { return JobGenerateVoiceover }
func (p VoiceoverPayload) TargetID() string { return p.VoiceoverID }
func (p VoiceoverPayload) Requester() string { return p.UserID }
func (p VoiceoverPayload) Validate() error { return requireIDs(p.VoiceoverID, p.UserID) }

type InfographicPayload struct {
	InfographicID string `json:"infographicId"`
	UserID        string `json:"userId"`
	Prompt        string `json:"prompt,omitempty"`
	AspectRatio   string `json:"aspectRatio,omitempty"`
}

func (InfographicPayload) JobType() JobType { return JobGenerateInfographic }
func (p InfographicPayload) TargetID() string { return p.InfographicID }
func (p InfographicPayload) Requester() string { return p.UserID }
func (p InfographicPayload) Validate() error { return requireIDs(p.InfographicID, p.UserID) }

type DocumentPayload struct {
	DocumentID   string `json:"documentId"`
	UserID       string `json:"userId"`
	Instructions string `json:"instructions,omitempty"`
	SourceText   string `json:"sourceText,omitempty"`
}

func (DocumentPayload) JobType() JobType { return JobGenerateDocument }
func (p DocumentPayload) TargetID() string { return p.DocumentID }
func (p DocumentPayload) Requester() string { return p.UserID }
func (p DocumentPayload) Validate() error { return requireIDs(p.DocumentID, p.UserID) }

type PodcastResult struct {
	Script   string `json:"script"`
	AudioURL string `json:"audioUrl"`
	Duration int    `json:"duration"` // seconds
}

func (PodcastResult) JobType() JobType { return JobGeneratePodcast }
func (r PodcastResult) EntityContent() string { return r.Script }

type ScriptResult struct {
	Title  string `json:"title,omitempty"`
	Script string `json:"script"`
}

func (ScriptResult) JobType() JobType { return JobGenerateScript }
func (r ScriptResult) EntityContent() string { return r.Script }

type AudioResult struct {
	AudioURL string `json:"audioUrl"`
	Duration int    `json:"duration"`
}

func (AudioResult) JobType() JobType { return JobGenerateAudio }

type VoiceoverResult struct {
	AudioURL string `json:"audioUrl"`
	Duration int    `json:"duration"`
}

func (VoiceoverResult) JobType() JobType { return JobGenerateVoiceover }

type InfographicResult struct {
	ImageURL string `json:"imageUrl"`
}

func (InfographicResult) JobType() JobType { return JobGenerateInfographic }

type DocumentResult struct {
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
}

func (DocumentResult) JobType() JobType { return JobGenerateDocument }
func (r DocumentResult) EntityContent() string { return r.Content }

func requireIDs(target, user string) error {
	if strings.TrimSpace(target) == "" || strings.TrimSpace(user) == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

func EncodePayload(p Payload) ([]byte, error) { return json.Marshal(p) }

// DecodePayload parses raw JSON into the payload variant of t.
func DecodePayload(t JobType, raw []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch t {
	case JobGeneratePodcast:
		var v PodcastPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case JobGenerateScript:
		var v ScriptPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case JobGenerateAudio:
		var v AudioPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case JobGenerateVoiceover:
		var v VoiceoverPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case JobGenerateInfographic:
		var v InfographicPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case JobGenerateDocument:
		var v DocumentPayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: unknown job type %q", domain.ErrInvalidArgument, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// EncodeResult returns nil for a nil result.
func EncodeResult(r Result) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// DecodeResult returns a nil Result for empty or null input.
func DecodeResult(t JobType, raw []byte) (Result, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var (
		r   Result
		err error
	)
	switch t {
	case JobGeneratePodcast:
		var v PodcastResult
		err = json.Unmarshal(raw, &v)
		r = v
	case JobGenerateScript:
		var v ScriptResult
		err = json.Unmarshal(raw, &v)
		r = v
	case JobGenerateAudio:
		var v AudioResult
		err = json.Unmarshal(raw, &v)
		r = v
	case JobGenerateVoiceover:
		var v VoiceoverResult
		err = json.Unmarshal(raw, &v)
		r = v
	case JobGenerateInfographic:
		var v InfographicResult
		err = json.Unmarshal(raw, &v)
		r = v
	case JobGenerateDocument:
		var v DocumentResult
		err = json.Unmarshal(raw, &v)
		r = v
	default:
		return nil, fmt.Errorf("%w: unknown job type %q", domain.ErrInvalidArgument, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", t, err)
	}
	return r, nil
}
