package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"scenecast/internal/failure"
	"scenecast/internal/narration/audio"
	"scenecast/internal/text/chunk"
	"scenecast/internal/text/naming"
	"scenecast/internal/text/normalize"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const terminalMarks = ".?!。？！"

// Synthesizer produces the narration WAV for one scene. It makes a single
// engine call; callers decide whether to retry.
type Synthesizer struct {
	Engine   Engine
	Dir      string
	Voice    string
	Language string
	Speed    float64
	Pitch    int
	MaxChars int
	Fade     time.Duration
}

// NewSynthesizer writes audio into dir using the voice settings of cfg
func NewSynthesizer(engine Engine, dir string, cfg Config) *Synthesizer {
	return &Synthesizer{
		Engine:   engine,
		Dir:      dir,
		Voice:    cfg.Voice,
		Language: cfg.Language,
		Speed:    cfg.Speed,
		Pitch:    cfg.Pitch,
		MaxChars: cfg.MaxChars,
		Fade:     cfg.Fade,
	}
}

// Synthesize returns the path of S%03d_audio.wav. Failures carry
// failure.VoiceNotFound when the voice does not exist.
func (s *Synthesizer) Synthesize(ctx context.Context, scene int, text string) (string, error) {
	prepared := Prepare(text, normalize.ParseLocale(s.Language), s.MaxChars)
	if prepared == "" {
		return "", failure.Newf(failure.Permanent, "tts", "scene %d has no narration", scene)
	}

	data, err := s.Engine.Synthesize(ctx, Request{
		Text:     prepared,
		Voice:    s.Voice,
		Language: s.Language,
		Speed:    s.Speed,
		Pitch:    s.Pitch,
	})
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}
	path := filepath.Join(s.Dir, naming.Audio(scene))
	if err := writeFile(path, data); err != nil {
		return "", err
	}

	if s.Fade > 0 {
		if err := audio.FadeOut(path, s.Fade); err != nil {
			logrus.WithError(err).WithField("file", path).Warn("Failed to apply fade-out")
		}
	}

	logrus.WithFields(logrus.Fields{
		"scene": scene,
		"chars": utf8.RuneCountInString(prepared),
		"file":  path,
	}).Info("Narration synthesized")
	return path, nil
}

// Prepare normalizes numerals, caps the length at maxChars runes and makes
// the text end with exactly one terminal mark. Trailing closing quotes stay
// after the mark.
func Prepare(text string, locale normalize.Locale, maxChars int) string {
	text = strings.TrimSpace(normalize.Normalize(text, locale))
	inner := strings.TrimRightFunc(text, chunk.IsCloser)
	if inner == "" {
		return ""
	}
	closing := text[len(inner):]

	body := strings.TrimRight(inner, terminalMarks)
	mark := "."
	suffix := closing + mark
	if tail := inner[len(body):]; tail != "" {
		r, _ := utf8.DecodeRuneInString(tail)
		mark = string(r)
		suffix = mark + closing
	}

	if n := utf8.RuneCountInString(body); maxChars > 1 && n+utf8.RuneCountInString(suffix) > maxChars {
		if n > maxChars-1 {
			body = string([]rune(body)[:maxChars-1])
		}
		suffix = mark
	}
	body = strings.TrimRight(strings.TrimSpace(body), terminalMarks)
	if body == "" {
		return ""
	}
	return body + suffix
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tts-*.wav")
	if err != nil {
		return fmt.Errorf("failed to create temp audio: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save audio: %w", err)
	}
	return nil
}
