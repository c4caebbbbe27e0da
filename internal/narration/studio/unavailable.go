package studio

import (
	"context"
	"scenecast/internal/domain/style"
	"scenecast/internal/llm"
)

// Stand-ins for services that could not be built. Each fails its stage with
// the construction error.

func failingGenerator(err error) llm.TextGenerator {
	return llm.Func(func(context.Context, string) (string, error) {
		return "", err
	})
}

type missingImages struct{ err error }

func (m missingImages) Generate(context.Context, string, string, style.AspectRatio) (string, error) {
	return "", m.err
}

type missingSpeech struct{ err error }

func (m missingSpeech) Synthesize(context.Context, int, string) (string, error) {
	return "", m.err
}

type missingRenderer struct{ err error }

func (m missingRenderer) Render(context.Context, string, string, string, bool) (string, error) {
	return "", m.err
}

type missingMerger struct{ err error }

func (m missingMerger) Merge(context.Context, []string, string) (string, error) {
	return "", m.err
}
