package tts

import (
	"errors"
	"scenecast/internal/failure"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyGoogleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want failure.Kind
	}{
		{"not found", status.Error(codes.NotFound, "voice missing"), failure.VoiceNotFound},
		{"unknown voice name", status.Error(codes.InvalidArgument, "Voice 'ko-KR-Nope-Z' does not exist. Is it misspelled?"), failure.VoiceNotFound},
		{"other invalid argument", status.Error(codes.InvalidArgument, "Input text is too long"), failure.Permanent},
		{"quota", status.Error(codes.ResourceExhausted, "quota exceeded"), failure.RateLimited},
		{"unavailable", status.Error(codes.Unavailable, "try again"), failure.Transient},
		{"plain error", errors.New("connection reset"), failure.Transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyGoogleError(tt.err)
			assert.Equal(t, tt.want, failure.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
