package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"scenecast/internal/failure"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-pro"

// GeminiGenerator generates text with the Gemini API
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator connects a Gemini client
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Close releases the underlying connection
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// model builds a fresh handle per request; GenerativeModel carries mutable
// generation config and is shared by concurrent workers otherwise
func (g *GeminiGenerator) newModel(o options) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.model)
	if o.temperature != nil {
		m.SetTemperature(float32(*o.temperature))
	}
	if o.maxTokens > 0 {
		m.SetMaxOutputTokens(int32(o.maxTokens))
	}
	return m
}

// Generate returns the concatenated text parts of the first candidate
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return g.generate(ctx, g.newModel(collect(opts)), prompt)
}

// GenerateJSON asks for an application/json response. The schema is sent in
// the prompt because Gemini's own schema type differs from JSON schema.
func (g *GeminiGenerator) GenerateJSON(ctx context.Context, prompt, name string, schema any, out any) error {
	m := g.newModel(options{})
	m.ResponseMIMEType = "application/json"

	encoded, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	full := fmt.Sprintf("%s\n\nRespond with a single JSON document named %q matching this JSON schema:\n%s", prompt, name, encoded)

	raw, err := g.generate(ctx, m, full)
	if err != nil {
		return err
	}
	if err := decodeJSON(raw, out); err != nil {
		return failure.New(failure.Transient, "gemini.decode", fmt.Errorf("failed to parse JSON response: %w", err))
	}
	return nil
}

func (g *GeminiGenerator) generate(ctx context.Context, m *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", Wrap("gemini.generate", err)
	}

	text := ResponseText(resp)
	if text == "" {
		return "", failure.Newf(failure.Empty, "gemini.generate", "no text in response")
	}

	if resp.UsageMetadata != nil {
		logrus.WithFields(logrus.Fields{
			"model":  g.model,
			"tokens": resp.UsageMetadata.TotalTokenCount,
		}).Debug("Gemini completion")
	}
	return text, nil
}

// ResponseText joins the text parts of the first candidate
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}
