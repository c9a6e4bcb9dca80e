// Package speech turns dialogue text into audio files.
package speech

import (
	"context"
	"io"
)

// VoiceSettings tunes the provider's voice rendering.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings is used when the caller gives none.
var DefaultVoiceSettings = VoiceSettings{
	Stability:       0.5,
	SimilarityBoost: 0.75,
	Style:           0.5,
	UseSpeakerBoost: true,
}

// Voice is a selectable TTS voice.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Provider is an external text-to-speech service.
type Provider interface {
	// Synthesize returns an audio stream for text. The caller must Close it.
	Synthesize(ctx context.Context, text, voiceID string, settings VoiceSettings) (io.ReadCloser, error)
	// Voices lists the voices available to the account.
	Voices(ctx context.Context) ([]Voice, error)
}

// DurationProber measures the length of an audio file.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}
