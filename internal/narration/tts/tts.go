// Package tts turns narration text into WAV files through pluggable
// speech engines.
package tts

import (
	"context"
	"time"
)

// Request is a single synthesis call
type Request struct {
	Text     string
	Voice    string
	Language string
	Speed    float64
	Pitch    int
}

// Voice describes one voice offered by an engine
type Voice struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Languages []string `json:"languages,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
}

// Engine synthesizes speech. Synthesize returns a complete WAV document.
type Engine interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
	ListVoices(ctx context.Context) ([]Voice, error)
}

// SupertoneConfig holds the Supertone API settings
type SupertoneConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type Config struct {
	Type          string
	Voice         string
	Language      string
	Speed         float64
	Pitch         int
	MaxChars      int
	Fade          time.Duration
	Supertone     SupertoneConfig
	CacheDir      string
	VoiceCacheTTL time.Duration
}

// DefaultConfig mirrors the viper defaults
func DefaultConfig() Config {
	return Config{
		Type:     EngineTypeAuto.String(),
		Language: "ko",
		Speed:    1.0,
		MaxChars: 500,
		Fade:     30 * time.Millisecond,
		Supertone: SupertoneConfig{
			BaseURL: DefaultSupertoneURL,
			Model:   DefaultSupertoneModel,
		},
		VoiceCacheTTL: 24 * time.Hour,
	}
}

// Label is how a voice is shown in pickers
func (v Voice) Label() string {
	if v.Name == "" || v.Name == v.ID {
		return v.ID
	}
	return v.Name + " (" + v.ID + ")"
}
