package script

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"scenecast/internal/llm"
	"strings"
)

// TitleCount is how many titles SuggestTitles returns at most
const TitleCount = 5

// TitleSuggestions is the structured reply requested from the model
type TitleSuggestions struct {
	Titles []string `json:"titles" jsonschema_description:"Five candidate video titles"`
}

var numberingRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-•])\s*`)

// SuggestTitles proposes titles from a topic, an outline or both. Structured
// output is used when the generator supports it.
func SuggestTitles(ctx context.Context, gen llm.TextGenerator, topic, outline string) ([]string, error) {
	topic, outline = strings.TrimSpace(topic), strings.TrimSpace(outline)
	if topic == "" && outline == "" {
		return nil, errors.New("a topic or an outline is required")
	}
	prompt := titlesPrompt(topic, outline)

	if sg, ok := gen.(llm.StructuredGenerator); ok {
		var out TitleSuggestions
		err := sg.GenerateJSON(ctx, prompt, "title_suggestions", llm.GenerateSchema[TitleSuggestions](), &out)
		if err == nil {
			return cleanTitles(out.Titles), nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}

	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest titles: %w", err)
	}
	return cleanTitles(strings.Split(text, "\n")), nil
}

// cleanTitles strips numbering, emphasis and quotes and keeps the first
// TitleCount non-empty lines
func cleanTitles(lines []string) []string {
	var titles []string
	for _, line := range lines {
		clean := numberingRe.ReplaceAllString(strings.TrimSpace(line), "")
		clean = strings.NewReplacer("*", "", `"`, "").Replace(clean)
		clean = strings.TrimSpace(clean)
		if clean == "" {
			continue
		}
		titles = append(titles, clean)
		if len(titles) == TitleCount {
			break
		}
	}
	return titles
}
