package llm

import (
	"context"
	"fmt"
	"scenecast/internal/failure"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator talks to the chat completions API or any compatible server
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator. baseURL may be empty.
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries belong to the pipeline
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (g *OpenAIGenerator) params(prompt string, o options) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.model,
	}
	if o.temperature != nil {
		params.Temperature = openai.Float(*o.temperature)
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxTokens))
	}
	return params
}

// Generate returns the first choice's content
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return g.complete(ctx, g.params(prompt, collect(opts)))
}

// GenerateJSON requests a strict json_schema response and decodes it into out
func (g *OpenAIGenerator) GenerateJSON(ctx context.Context, prompt, name string, schema any, out any) error {
	params := g.params(prompt, options{})
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   name,
				Schema: schema,
				Strict: openai.Bool(true),
			},
		},
	}

	raw, err := g.complete(ctx, params)
	if err != nil {
		return err
	}
	if err := decodeJSON(raw, out); err != nil {
		return failure.New(failure.Transient, "openai.decode", fmt.Errorf("failed to parse JSON response: %w", err))
	}
	return nil
}

func (g *OpenAIGenerator) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", Wrap("openai.generate", err)
	}
	if len(completion.Choices) == 0 {
		return "", failure.Newf(failure.Empty, "openai.generate", "no choices returned")
	}

	choice := completion.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", failure.Newf(failure.Empty, "openai.generate", "empty response, finish reason %s", choice.FinishReason)
	}

	logrus.WithFields(logrus.Fields{
		"model":  g.model,
		"tokens": completion.Usage.TotalTokens,
	}).Debug("OpenAI completion")

	return content, nil
}
