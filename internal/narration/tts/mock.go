package tts

import (
	"context"
	"math"
	"scenecast/internal/narration/audio"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/sirupsen/logrus"
)

// MockEngine produces a tone per word so the pipeline can run offline.
// Words ending a sentence are followed by a long pause.
type MockEngine struct {
	Format  beep.Format
	PerWord time.Duration
	Gap     time.Duration
	Pause   time.Duration
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		Format:  beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2},
		PerWord: 250 * time.Millisecond,
		Gap:     80 * time.Millisecond,
		Pause:   700 * time.Millisecond,
	}
}

func (m *MockEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clip := &audio.Clip{Format: m.Format}
	words := strings.Fields(req.Text)
	speed := speedOrOne(req.Speed)
	freq := 220 * math.Pow(2, float64(req.Pitch)/12)

	for _, word := range words {
		m.tone(clip, time.Duration(float64(m.PerWord)/speed), freq)
		gap := m.Gap
		if strings.TrimRight(word, terminalMarks) != word {
			gap = m.Pause
		}
		m.silence(clip, gap)
	}

	logrus.WithFields(logrus.Fields{
		"words":    len(words),
		"duration": clip.Duration().String(),
	}).Debug("Mock synthesis complete")
	return clip.Bytes()
}

func (m *MockEngine) ListVoices(context.Context) ([]Voice, error) {
	return []Voice{{ID: "mock-voice", Name: "Mock", Languages: []string{"ko-KR", "en-US", "ja-JP"}}}, nil
}

func (m *MockEngine) tone(clip *audio.Clip, d time.Duration, freq float64) {
	rate := float64(m.Format.SampleRate)
	n := m.Format.SampleRate.N(d)
	for i := 0; i < n; i++ {
		v := 0.4 * math.Sin(2*math.Pi*freq*float64(i)/rate)
		clip.Samples = append(clip.Samples, [2]float64{v, v})
	}
}

func (m *MockEngine) silence(clip *audio.Clip, d time.Duration) {
	n := m.Format.SampleRate.N(d)
	clip.Samples = append(clip.Samples, make([][2]float64, n)...)
}
