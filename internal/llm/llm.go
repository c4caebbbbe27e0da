// Package llm wraps the text generation providers behind one small interface.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// TextGenerator turns a prompt into generated text
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)
}

// StructuredGenerator can constrain its output to a JSON schema and decode it
// into out
type StructuredGenerator interface {
	TextGenerator
	GenerateJSON(ctx context.Context, prompt, name string, schema any, out any) error
}

// Func adapts a plain function to TextGenerator
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string, _ ...Option) (string, error) {
	return f(ctx, prompt)
}

// Option tunes a single request
type Option func(*options)

type options struct {
	temperature *float64
	maxTokens   int
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = &t }
}

// WithMaxTokens caps the generated length
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Provider identifies a text generation backend
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Config selects and configures a provider
type Config struct {
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string
}

// NewTextGenerator builds the configured provider
func NewTextGenerator(ctx context.Context, cfg Config) (TextGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("no API key configured for %s", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model)
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
