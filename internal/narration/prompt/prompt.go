// Package prompt turns scene narration into image generation prompts.
package prompt

import (
	"context"
	"fmt"
	"regexp"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"scenecast/internal/llm"
	"scenecast/internal/retry"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
)

// VerticalDirective is forced onto every prompt for vertical layouts
const VerticalDirective = "Vertical 9:16 portrait composition, subject centred and fully inside the frame, no letterboxing."

// FallbackPrefix tags prompts that are just the narration text
const FallbackPrefix = "Illustration: "

// DefaultDenylist holds words that trip image safety filters
var DefaultDenylist = []string{
	"blood", "bloody", "gore", "corpse", "corpses", "suicide", "beheading",
	"massacre", "torture", "naked", "nude",
	"피투성이", "시체", "자살", "학살", "고문", "참수", "나체",
	"死体", "自殺", "虐殺", "拷問",
}

// Result is the outcome of one prompt generation. Err is set when the prompt
// is unusable.
type Result struct {
	Prompt   string
	Fallback bool
	Err      *failure.Error
}

// Failure returns Err as an error, nil when the prompt is usable
func (r Result) Failure() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// Generator synthesises image prompts with a text model
type Generator struct {
	LLM           llm.TextGenerator
	RateLimitWait time.Duration
	Sleep         func(ctx context.Context, d time.Duration) error

	latin *regexp.Regexp
	other []string
}

// NewGenerator compiles the denylist. A nil denylist uses DefaultDenylist.
func NewGenerator(gen llm.TextGenerator, denylist []string) *Generator {
	if denylist == nil {
		denylist = DefaultDenylist
	}
	g := &Generator{
		LLM:           gen,
		RateLimitWait: 2 * time.Second,
		Sleep:         retry.SleepContext,
	}

	var latin []string
	for _, w := range denylist {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if isLatin(w) {
			latin = append(latin, regexp.QuoteMeta(w))
		} else {
			g.other = append(g.other, w)
		}
	}
	if len(latin) > 0 {
		g.latin = regexp.MustCompile(`(?i)\b(?:` + strings.Join(latin, "|") + `)\b`)
	}
	return g
}

// Generate produces the prompt for one chunk. A rate-limited or empty
// response degrades to a tagged copy of the chunk.
func (g *Generator) Generate(ctx context.Context, chunk string, d style.Directives) Result {
	request := fmt.Sprintf("Instruction:\n%s\n\nScript segment:\n%q\n\nImage prompt:", instruction(d), chunk)

	text, err := g.LLM.Generate(ctx, request, llm.WithTemperature(0.7))
	if err != nil {
		kind := llm.Classify(err)
		switch kind {
		case failure.RateLimited:
			logrus.WithError(err).Warn("Prompt generation rate limited, using fallback prompt")
			if serr := g.sleep(ctx, g.RateLimitWait); serr != nil {
				return Result{Err: failure.New(failure.Transient, "prompt.generate", serr)}
			}
			return g.fallback(chunk, d)
		case failure.Empty:
			logrus.WithError(err).Warn("Prompt generation returned nothing, using fallback prompt")
			return g.fallback(chunk, d)
		default:
			return Result{Err: failure.New(kind, "prompt.generate", err)}
		}
	}

	return Result{Prompt: g.Finish(text, d)}
}

func (g *Generator) fallback(chunk string, d style.Directives) Result {
	return Result{Prompt: g.Finish(FallbackPrefix+chunk, d), Fallback: true}
}

// Finish strips denylisted words, collapses whitespace and applies the
// vertical directive
func (g *Generator) Finish(text string, d style.Directives) string {
	if g.latin != nil {
		text = g.latin.ReplaceAllString(text, "")
	}
	for _, w := range g.other {
		text = strings.ReplaceAll(text, w, "")
	}
	text = strings.Join(strings.Fields(text), " ")

	if d.Aspect.IsVertical() && !strings.HasPrefix(text, VerticalDirective) {
		text = VerticalDirective + " " + text
	}
	return text
}

func (g *Generator) sleep(ctx context.Context, d time.Duration) error {
	if g.Sleep == nil {
		return retry.SleepContext(ctx, d)
	}
	return g.Sleep(ctx, d)
}

func isLatin(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return false
		}
	}
	return true
}
