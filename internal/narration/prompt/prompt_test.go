package prompt

import (
	"context"
	"errors"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"scenecast/internal/llm"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(fn llm.Func) (*Generator, *[]time.Duration) {
	var waits []time.Duration
	g := NewGenerator(fn, nil)
	g.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return g, &waits
}

func TestGenerateUsesGenreTemplate(t *testing.T) {
	var seen string
	g, _ := newTestGenerator(func(_ context.Context, p string) (string, error) {
		seen = p
		return "A stickman  stands\n on a bridge.", nil
	})

	d := style.Defaults()
	d.Genre = style.History
	d.Character = "a young scribe with a red scarf"
	d.Title = "The Fall of Rome"

	res := g.Generate(context.Background(), "로마가 무너졌다.", d)

	require.NoError(t, res.Failure())
	assert.Equal(t, "A stickman stands on a bridge.", res.Prompt)
	assert.False(t, res.Fallback)
	assert.Contains(t, seen, "period-drama")
	assert.Contains(t, seen, "a young scribe with a red scarf")
	assert.Contains(t, seen, "The Fall of Rome")
	assert.Contains(t, seen, "로마가 무너졌다.")
	assert.Contains(t, seen, "Hangul")
}

func TestTemplatesAreDistinctPerMode(t *testing.T) {
	seen := map[string]style.GenreMode{}
	for _, m := range style.Modes() {
		d := style.Defaults()
		d.Genre = m
		inst := instruction(d)
		if prev, ok := seen[inst]; ok {
			t.Fatalf("modes %s and %s share a template", prev, m)
		}
		seen[inst] = m
	}
}

func TestRateLimitFallsBackAfterWait(t *testing.T) {
	g, waits := newTestGenerator(func(context.Context, string) (string, error) {
		return "", failure.Newf(failure.RateLimited, "fake", "429")
	})

	res := g.Generate(context.Background(), "The market crashed.", style.Defaults())

	require.NoError(t, res.Failure())
	assert.True(t, res.Fallback)
	assert.Equal(t, "Illustration: The market crashed.", res.Prompt)
	assert.Equal(t, []time.Duration{2 * time.Second}, *waits)
}

func TestOtherErrorsAreUnusable(t *testing.T) {
	g, waits := newTestGenerator(func(context.Context, string) (string, error) {
		return "", failure.New(failure.Permanent, "fake", errors.New("401 bad key"))
	})

	res := g.Generate(context.Background(), "Hello.", style.Defaults())

	require.Error(t, res.Failure())
	assert.Equal(t, failure.Permanent, res.Err.Kind)
	assert.Empty(t, res.Prompt)
	assert.Empty(t, *waits)
}

func TestFinishStripsDenylist(t *testing.T) {
	g := NewGenerator(nil, []string{"blood", "시체"})

	out := g.Finish("Bloody? No: BLOOD on the floor near a 시체 and bloodhound.", style.Defaults())

	assert.Equal(t, "Bloody? No: on the floor near a and bloodhound.", out)
}

func TestFinishPrependsVerticalDirective(t *testing.T) {
	g := NewGenerator(nil, []string{})
	d := style.Defaults()
	d.Aspect = style.Vertical

	out := g.Finish("a lighthouse at dusk", d)
	assert.True(t, strings.HasPrefix(out, VerticalDirective))

	assert.Equal(t, out, g.Finish(out, d))

	d.Aspect = style.Wide
	assert.Equal(t, "a lighthouse at dusk", g.Finish("a lighthouse at dusk", d))
}
