package tts

import (
	"context"
	"fmt"
	"scenecast/internal/failure"
	"scenecast/internal/llm"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultGoogleVoice = "ko-KR-Standard-A"

// GoogleClassicEngine uses Google Cloud Text-to-Speech. LINEAR16 output
// already carries a WAV header.
type GoogleClassicEngine struct {
	client *texttospeech.Client
}

func NewGoogleClassicEngine(ctx context.Context) (*GoogleClassicEngine, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	return &GoogleClassicEngine{client: client}, nil
}

func (g *GoogleClassicEngine) Close() error {
	return g.client.Close()
}

func (g *GoogleClassicEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	voice := req.Voice
	if voice == "" || voice == "default" {
		voice = defaultGoogleVoice
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_LINEAR16,
	}
	// Chirp voices reject speakingRate and pitch
	if !strings.Contains(strings.ToLower(voice), "chirp") {
		if req.Speed > 0 {
			audioCfg.SpeakingRate = req.Speed
		}
		audioCfg.Pitch = float64(req.Pitch)
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode(voice, req.Language),
			Name:         voice,
		},
		AudioConfig: audioCfg,
	})
	if err != nil {
		return nil, classifyGoogleError(err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, failure.Newf(failure.Empty, "google-tts", "empty audio response")
	}

	logrus.WithFields(logrus.Fields{
		"voice": voice,
		"bytes": len(resp.AudioContent),
	}).Debug("Google TTS synthesis complete")
	return resp.AudioContent, nil
}

// classifyGoogleError maps an unknown voice, which the API reports either as
// NotFound or as InvalidArgument naming the voice, to failure.VoiceNotFound
func classifyGoogleError(err error) error {
	st, _ := status.FromError(err)
	msg := strings.ToLower(st.Message())
	switch {
	case st.Code() == codes.NotFound:
		return failure.New(failure.VoiceNotFound, "google-tts", err)
	case st.Code() == codes.InvalidArgument && strings.Contains(msg, "voice") &&
		(strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found") || strings.Contains(msg, "not supported")):
		return failure.New(failure.VoiceNotFound, "google-tts", err)
	}
	return llm.Wrap("google-tts", err)
}

func (g *GoogleClassicEngine) ListVoices(ctx context.Context) ([]Voice, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, llm.Wrap("google-tts.voices", err)
	}

	voices := make([]Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voices = append(voices, Voice{
			ID:        v.Name,
			Name:      v.Name,
			Languages: v.LanguageCodes,
			Gender:    strings.ToLower(v.SsmlGender.String()),
		})
	}
	return voices, nil
}

// languageCode takes the BCP-47 prefix of a voice name such as
// "ko-KR-Standard-A", falling back to the requested language
func languageCode(voice, language string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) == 3 && len(parts[0]) == 2 {
		return parts[0] + "-" + parts[1]
	}
	switch strings.ToLower(language) {
	case "", "ko", "korean":
		return "ko-KR"
	case "ja", "japanese":
		return "ja-JP"
	case "en", "english":
		return "en-US"
	}
	return language
}
