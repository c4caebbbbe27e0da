// Package script drafts long-form narration: it outlines a transcript,
// writes each chapter and suggests titles.
package script

import (
	"context"
	"fmt"
	"regexp"
	"scenecast/internal/llm"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Outline is the structured plan of a video
type Outline struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

const (
	IntroTitle    = "Intro (도입부)"
	EpilogueTitle = "Epilogue (결론)"
)

var (
	titleLineRe = regexp.MustCompile(`(?m)^\s*1\.\s*\*\*(.*?)\*\*:\s*(.*)$`)
	parenRe     = regexp.MustCompile(`\(.*?\)`)
	chapterRe   = regexp.MustCompile(`(?:Chapter|챕터)\s*\d+.*`)
)

// Structure asks the model to reorganise a transcript into an intro,
// chapters and an epilogue. fallbackTitle is used when no title line is
// found in the reply.
func Structure(ctx context.Context, gen llm.TextGenerator, transcript, fallbackTitle string) (Outline, error) {
	if strings.TrimSpace(transcript) == "" {
		return Outline{}, fmt.Errorf("transcript is empty")
	}

	text, err := gen.Generate(ctx, structurePrompt(transcript))
	if err != nil {
		return Outline{}, fmt.Errorf("failed to structure transcript: %w", err)
	}

	outline := Outline{Text: text, Title: ExtractTitle(text)}
	if outline.Title == "" {
		outline.Title = fallbackTitle
	}

	logrus.WithFields(logrus.Fields{
		"title":    outline.Title,
		"chapters": len(ChapterTitles(text)) - 2,
	}).Info("Transcript structured")
	return outline, nil
}

// ExtractTitle reads the title from a "1. **Label**: Title" line with any
// parenthetical remarks removed
func ExtractTitle(outline string) string {
	m := titleLineRe.FindStringSubmatch(outline)
	if m == nil {
		return ""
	}
	title := strings.TrimSpace(m[2])
	if title == "" {
		title = strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(parenRe.ReplaceAllString(title, ""))
}

// ChapterTitles lists the sections to write: the intro, each distinct
// chapter line of the outline, then the epilogue
func ChapterTitles(outline string) []string {
	titles := []string{IntroTitle}
	seen := make(map[string]bool)
	for _, ch := range chapterRe.FindAllString(outline, -1) {
		clean := strings.TrimSpace(strings.ReplaceAll(ch, "*", ""))
		if clean == "" || seen[clean] {
			continue
		}
		seen[clean] = true
		titles = append(titles, clean)
	}
	return append(titles, EpilogueTitle)
}

// IsBookend reports whether title is the intro or the epilogue, which are
// always written at the fixed length
func IsBookend(title string) bool {
	for _, marker := range []string{"Intro", "Epilogue", "도입부", "결론"} {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

func structurePrompt(transcript string) string {
	return fmt.Sprintf(`[Role]
You are a professional YouTube content editor and scriptwriter.

[Task]
Analyze the provided transcript and restructure it into a detailed, list-style plan for a new video.

[Output Format]
1. **Video Theme/Title**: (Extract or suggest a catchy title based on the whole script)
2. **Intro**: (Hook and background. No greetings.)
3. **Chapter 1** to **Chapter 8**: (Divide the main content into logical sections with detailed bullet points.)
4. **Epilogue**: (Conclusion and a call to subscribe that teases the next video)

[Constraint]
- Analyze the entire context deeply.
- Write the output in Korean.
- Remove any channel names found in the transcript.

[Transcript]
%s
`, transcript)
}

// Section is one written chapter. Err is set when it could not be written.
type Section struct {
	Title string
	Text  string
	Err   error
}

// GenerateSections writes every title concurrently with at most workers
// requests in flight. Results are in title order and a failed section does
// not stop the others.
func GenerateSections(ctx context.Context, gen llm.TextGenerator, outline string, titles []string, length Length, instruction string, workers int) []Section {
	sections := make([]Section, len(titles))

	g := new(errgroup.Group)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, title := range titles {
		i, title := i, title
		g.Go(func() error {
			l := length
			if IsBookend(title) {
				l = Fixed
			}
			text, err := WriteSection(ctx, gen, title, outline, l, instruction)
			sections[i] = Section{Title: title, Text: text, Err: err}
			if err != nil {
				logrus.WithError(err).WithField("section", title).Warn("Section failed")
			}
			return nil
		})
	}
	g.Wait()
	return sections
}

// WriteSection writes a single section of the outline
func WriteSection(ctx context.Context, gen llm.TextGenerator, title, outline string, length Length, instruction string) (string, error) {
	text, err := gen.Generate(ctx, sectionPrompt(title, outline, length, instruction),
		llm.WithMaxTokens(8192),
		llm.WithTemperature(0.75),
	)
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", title, err)
	}
	return strings.TrimSpace(text), nil
}

// Join concatenates written sections into one narration, skipping failures
func Join(sections []Section) string {
	var parts []string
	for _, s := range sections {
		if s.Err == nil && strings.TrimSpace(s.Text) != "" {
			parts = append(parts, strings.TrimSpace(s.Text))
		}
	}
	return strings.Join(parts, "\n\n")
}
