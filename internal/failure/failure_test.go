package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(RateLimited, "image.generate", errors.New("429 Too Many Requests"))
	wrapped := fmt.Errorf("failed to render scene: %w", base)

	assert.Equal(t, RateLimited, KindOf(wrapped))
	assert.True(t, Is(wrapped, RateLimited))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, Unknown, KindOf(nil))
}

func TestErrorMessageCarriesCategoryAndCause(t *testing.T) {
	err := WithScene(New(VoiceNotFound, "tts.synthesize", errors.New("voice abc missing")), 7)

	assert.Equal(t, "scene 7: tts.synthesize: voice_not_found: voice abc missing", err.Error())
}

func TestWithSceneWrapsUnclassified(t *testing.T) {
	err := WithScene(errors.New("boom"), 3)

	require.NotNil(t, err)
	assert.Equal(t, Permanent, err.Kind)
	assert.Equal(t, 3, err.Scene)
	assert.Nil(t, WithScene(nil, 3))
}

func TestCauseOfExhausted(t *testing.T) {
	last := New(RateLimited, "gemini", errors.New("resource exhausted"))
	err := New(Exhausted, "image.generate", last)

	assert.Equal(t, last, Cause(err))
	assert.Contains(t, err.Error(), "resource exhausted")
}

func TestRetryableKinds(t *testing.T) {
	assert.True(t, Transient.Retryable())
	assert.True(t, RateLimited.Retryable())
	assert.True(t, Empty.Retryable())
	assert.False(t, Permanent.Retryable())
	assert.False(t, VoiceNotFound.Retryable())
	assert.Equal(t, Unknown, ParseKind("no_such_kind"))
}
