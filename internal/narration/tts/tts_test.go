package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"scenecast/internal/failure"
	"scenecast/internal/narration/audio"
	"scenecast/internal/text/normalize"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wavBytes(t *testing.T, d time.Duration) []byte {
	t.Helper()
	clip := &audio.Clip{Format: beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}}
	for i := 0; i < clip.Format.SampleRate.N(d); i++ {
		clip.Samples = append(clip.Samples, [2]float64{0.5, 0.5})
	}
	data, err := clip.Bytes()
	require.NoError(t, err)
	return data
}

type fakeSupertone struct {
	*httptest.Server
	body   map[string]interface{}
	path   string
	apiKey string
}

func newFakeSupertone(t *testing.T, wav []byte) *fakeSupertone {
	f := &fakeSupertone{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.path = r.URL.Path
		f.apiKey = r.Header.Get("x-sup-api-key")

		switch {
		case r.URL.Path == "/v1/voices":
			w.Write([]byte(`{"items":[{"voice_id":"v1","name":"Ari","thumbnail_image_url":"http://x/a.png"},{"name":"no id"}]}`))
		case strings.HasSuffix(r.URL.Path, "/missing"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/broken"):
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("upstream exploded"))
		default:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.body))
			w.Header().Set("Content-Type", "audio/wav")
			w.Write(wav)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func newSupertone(t *testing.T, url string) *SupertoneEngine {
	engine, err := NewSupertoneEngine(SupertoneConfig{BaseURL: url, APIKey: "secret"})
	require.NoError(t, err)
	return engine
}

func TestSynthesizeWithSupertone(t *testing.T) {
	srv := newFakeSupertone(t, wavBytes(t, 500*time.Millisecond))
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Voice = "voice-1"
	cfg.Speed = 1.2
	cfg.Pitch = -2
	synth := NewSynthesizer(newSupertone(t, srv.URL), dir, cfg)

	path, err := synth.Synthesize(context.Background(), 3, "총 1,500명입니다")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "S003_audio.wav"), path)

	assert.Equal(t, "/v1/text-to-speech/voice-1", srv.path)
	assert.Equal(t, "secret", srv.apiKey)
	assert.Equal(t, "총 천오백명입니다.", srv.body["text"])
	assert.Equal(t, "ko", srv.body["language"])
	assert.Equal(t, "sona_speech_1", srv.body["model"])
	settings := srv.body["voice_settings"].(map[string]interface{})
	assert.Equal(t, 1.2, settings["speed"])
	assert.Equal(t, float64(-2), settings["pitch_shift"])
	assert.Equal(t, float64(1), settings["pitch_variance"])

	clip, err := audio.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, clip.Duration())
	assert.InDelta(t, 0, clip.Samples[len(clip.Samples)-1][0], 1e-3)
	assert.InDelta(t, 0.5, clip.Samples[0][0], 1e-3)
}

func TestSupertoneOutcomes(t *testing.T) {
	srv := newFakeSupertone(t, nil)
	engine := newSupertone(t, srv.URL)

	_, err := engine.Synthesize(context.Background(), Request{Text: "hi.", Voice: "missing"})
	assert.True(t, failure.Is(err, failure.VoiceNotFound))

	_, err = engine.Synthesize(context.Background(), Request{Text: "hi.", Voice: "broken"})
	require.Error(t, err)
	assert.False(t, failure.Is(err, failure.VoiceNotFound))
	assert.True(t, failure.Is(err, failure.Transient))
	assert.Contains(t, err.Error(), "Error (500): upstream exploded")

	_, err = engine.Synthesize(context.Background(), Request{Text: "hi."})
	assert.True(t, failure.Is(err, failure.Permanent))
}

func TestSynthesizerWritesNothingOnFailure(t *testing.T) {
	srv := newFakeSupertone(t, nil)
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Voice = "missing"

	_, err := NewSynthesizer(newSupertone(t, srv.URL), dir, cfg).Synthesize(context.Background(), 1, "hello")
	assert.True(t, failure.Is(err, failure.VoiceNotFound))

	_, statErr := os.Stat(filepath.Join(dir, "S001_audio.wav"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSupertoneVoices(t *testing.T) {
	srv := newFakeSupertone(t, nil)
	voices, err := newSupertone(t, srv.URL).ListVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "v1", voices[0].ID)
	assert.Equal(t, "Ari (v1)", voices[0].Label())
	assert.Equal(t, "http://x/a.png", voices[0].Thumbnail)

	bare, err := decodeVoices([]byte(`[{"voice_id":"v2","name":"Bo"}]`))
	require.NoError(t, err)
	require.Len(t, bare, 1)
	assert.Equal(t, "v2", bare[0].ID)
}

func TestSupertoneRequiresKey(t *testing.T) {
	_, err := NewSupertoneEngine(SupertoneConfig{})
	assert.True(t, failure.Is(err, failure.Permanent))
}

func TestPrepare(t *testing.T) {
	assert.Equal(t, "Really?", Prepare("Really?!!", normalize.English, 500))
	assert.Equal(t, "Hello.", Prepare("Hello...", normalize.English, 500))
	assert.Equal(t, "It costs five dollars.", Prepare("  It costs 5 dollars ", normalize.English, 500))
	assert.Equal(t, "끝났다。", Prepare("끝났다。", normalize.Korean, 500))
	assert.Equal(t, "", Prepare("   ", normalize.English, 500))
	assert.Equal(t, "a.", Prepare("a. bcdef", normalize.English, 3))
	assert.Equal(t, `"Hello."`, Prepare(`"Hello."`, normalize.English, 500))
	assert.Equal(t, `"Hello".`, Prepare(`"Hello"`, normalize.English, 500))
	assert.Equal(t, "「끝났다!」", Prepare("「끝났다!!」", normalize.Korean, 500))
	assert.Equal(t, "", Prepare(`""`, normalize.English, 500))

	long := Prepare(strings.Repeat("가", 600), normalize.Korean, 500)
	assert.Equal(t, 500, utf8.RuneCountInString(long))
	assert.True(t, strings.HasSuffix(long, "가."))
}

func TestMockEngineScalesWithWords(t *testing.T) {
	engine := NewMockEngine()
	dir := t.TempDir()
	synth := NewSynthesizer(engine, dir, DefaultConfig())

	short, err := synth.Synthesize(context.Background(), 1, "one two")
	require.NoError(t, err)
	long, err := synth.Synthesize(context.Background(), 2, "one two three four five six")
	require.NoError(t, err)

	shortLen, err := audio.Duration(short)
	require.NoError(t, err)
	longLen, err := audio.Duration(long)
	require.NoError(t, err)
	assert.Greater(t, longLen, shortLen)

	voices, err := engine.ListVoices(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, voices)
}

func TestVoiceCatalogFallsBackToStaleCache(t *testing.T) {
	dir := t.TempDir()
	srv := newFakeSupertone(t, nil)
	catalog := NewVoiceCatalog(newSupertone(t, srv.URL), "supertone", dir, time.Hour)

	voices, err := catalog.Voices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)

	srv.Close()
	stale := NewVoiceCatalog(newSupertone(t, srv.URL), "supertone", dir, 0)
	cached, err := stale.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, voices, cached)

	require.NoError(t, stale.Clear())
	_, err = stale.Voices(context.Background())
	assert.Error(t, err)
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(context.Background(), Config{Type: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockEngine{}, engine)

	cfg := Config{Type: "auto", Supertone: SupertoneConfig{APIKey: "k"}}
	engine, err = NewEngine(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &SupertoneEngine{}, engine)
	assert.Equal(t, EngineTypeSupertone, Resolve(cfg))
	assert.Equal(t, EngineTypeMock, Resolve(Config{Type: "mock"}))

	_, err = NewEngine(context.Background(), Config{Type: "gramophone"})
	assert.Error(t, err)
}
