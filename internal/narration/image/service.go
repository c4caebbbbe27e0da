package image

import (
	"context"
	"fmt"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"scenecast/internal/llm"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Service calls an image generation backend once. It returns encoded image
// bytes or a classified error. attempt counts from 1 across retries of the
// same prompt.
type Service interface {
	Generate(ctx context.Context, prompt string, aspect style.AspectRatio, attempt int) ([]byte, error)
}

const defaultGeminiImageModel = "gemini-3-pro-image-preview"

// GeminiService generates images with a Gemini image model
type GeminiService struct {
	client *genai.Client
	model  string
}

// NewGeminiService connects a Gemini client for image generation
func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiImageModel
	}
	return &GeminiService{client: client, model: model}, nil
}

// Close releases the client
func (s *GeminiService) Close() error {
	return s.client.Close()
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockOnlyHigh})
	}
	return settings
}

// Generate returns the first inline image of the response. Filtered or
// text-only responses are reported as failure.Empty.
func (s *GeminiService) Generate(ctx context.Context, prompt string, aspect style.AspectRatio, _ int) ([]byte, error) {
	m := s.client.GenerativeModel(s.model)
	m.SafetySettings = safetySettings()

	full := fmt.Sprintf("%s\n\nAspect ratio: %s.", prompt, string(aspect))
	resp, err := m.GenerateContent(ctx, genai.Text(full))
	if err != nil {
		return nil, llm.Wrap("gemini.image", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && strings.HasPrefix(blob.MIMEType, "image/") && len(blob.Data) > 0 {
				return blob.Data, nil
			}
		}
	}

	reason := "no candidates"
	if len(resp.Candidates) > 0 {
		reason = resp.Candidates[0].FinishReason.String()
	}
	return nil, failure.Newf(failure.Empty, "gemini.image", "no image in response (%s)", reason)
}
