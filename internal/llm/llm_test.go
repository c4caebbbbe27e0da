package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"scenecast/internal/failure"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want failure.Kind
	}{
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), failure.RateLimited},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), failure.Transient},
		{"grpc denied", status.Error(codes.PermissionDenied, "key"), failure.Permanent},
		{"wrapped grpc", fmt.Errorf("call: %w", status.Error(codes.ResourceExhausted, "quota")), failure.RateLimited},
		{"message 429", errors.New("googleapi: Error 429: Too Many Requests"), failure.RateLimited},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), failure.Transient},
		{"generic", errors.New("connection reset"), failure.Transient},
		{"already classified", failure.Newf(failure.VoiceNotFound, "tts", "gone"), failure.VoiceNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestKindForStatus(t *testing.T) {
	assert.Equal(t, failure.RateLimited, KindForStatus(429))
	assert.Equal(t, failure.Transient, KindForStatus(503))
	assert.Equal(t, failure.Permanent, KindForStatus(401))
	assert.Equal(t, failure.Permanent, KindForStatus(404))
}

func TestWrapKeepsClassified(t *testing.T) {
	orig := failure.Newf(failure.Empty, "gemini", "blocked")
	assert.Same(t, orig, Wrap("other", orig))

	wrapped := Wrap("gemini.generate", status.Error(codes.ResourceExhausted, "slow down"))
	assert.True(t, failure.Is(wrapped, failure.RateLimited))
	assert.Nil(t, Wrap("x", nil))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON(`Sure! {"a":1} hope it helps`))

	var out struct {
		Titles []string `json:"titles"`
	}
	require.NoError(t, decodeJSON("```\n{\"titles\":[\"x\",\"y\"]}\n```", &out))
	assert.Equal(t, []string{"x", "y"}, out.Titles)
}

type titleList struct {
	Titles []string `json:"titles" jsonschema_description:"Candidate titles"`
}

func TestGenerateSchemaInlinesProperties(t *testing.T) {
	schema := GenerateSchema[titleList]()
	require.NotNil(t, schema)

	raw, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"titles"`)
	assert.Contains(t, string(raw), `"additionalProperties":false`)
	assert.NotContains(t, string(raw), `"$ref"`)
}

func TestFuncAdapter(t *testing.T) {
	var gen TextGenerator = Func(func(_ context.Context, p string) (string, error) {
		return "echo: " + p, nil
	})
	out, err := gen.Generate(context.Background(), "hi", WithTemperature(0.3), WithMaxTokens(10))
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)

	o := collect([]Option{WithTemperature(0.3), WithMaxTokens(10)})
	require.NotNil(t, o.temperature)
	assert.InDelta(t, 0.3, *o.temperature, 1e-9)
	assert.Equal(t, 10, o.maxTokens)
}
