package studio

import (
	"context"
	"os"
	"path/filepath"
	"scenecast/internal/config"
	"scenecast/internal/domain/scene"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"scenecast/internal/narration/tts"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	config.SetDefaults()
	viper.Set("output.dir", t.TempDir())
	viper.Set("tts.type", "mock")
	viper.Set("video.ffmpeg", "scenecast-missing-ffmpeg")
	viper.Set("video.ffprobe", "scenecast-missing-ffprobe")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func writeNarration(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "narration.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestDirectivesFromConfigAndPreset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Style.Genre = "history"
	cfg.Style.Aspect = "9:16"
	cfg.Style.Language = "en"
	cfg.Style.Character = "a bearded scholar"

	s := NewStudio(cfg)
	defer s.Close()

	d, err := s.Directives()
	require.NoError(t, err)
	assert.Equal(t, style.History, d.Genre)
	assert.True(t, d.Aspect.IsVertical())
	assert.Equal(t, style.English, d.Language)
	assert.Equal(t, style.DefaultInstruction, d.Instruction)
	assert.Equal(t, "a bearded scholar", d.Character)

	preset := filepath.Join(t.TempDir(), "preset.yaml")
	require.NoError(t, os.WriteFile(preset, []byte("genre: vector\n"), 0644))
	s.cfg.Style.Preset = preset
	d, err = s.Directives()
	require.NoError(t, err)
	assert.Equal(t, style.Vector, d.Genre)
	assert.Equal(t, "a bearded scholar", d.Character)

	s.cfg.Style.Preset = ""
	s.cfg.Style.Genre = "opera"
	_, err = s.Directives()
	assert.Error(t, err)
}

func TestBudget(t *testing.T) {
	cfg := testConfig(t)
	s := NewStudio(cfg)
	defer s.Close()
	assert.Equal(t, 160, s.Budget())

	s.cfg.Chunk.Budget = 42
	assert.Equal(t, 42, s.Budget())
}

func TestNewRunIsSavedAndLoaded(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunk.Budget = 25
	s := NewStudio(cfg)
	defer s.Close()

	_, err := s.LoadRun()
	assert.Error(t, err)

	path := writeNarration(t, "Sentence number one. Sentence number two. Sentence number three.")
	r, err := s.NewRun(context.Background(), path, "Numbers")
	require.NoError(t, err)
	assert.Len(t, r.Scenes, 3)

	loaded, err := s.LoadRun()
	require.NoError(t, err)
	assert.Equal(t, r.ID, loaded.ID)
	assert.Equal(t, "Numbers", loaded.Title)
	assert.Equal(t, 25, loaded.Budget)
}

func TestServicesFallBackWhenUnavailable(t *testing.T) {
	cfg := testConfig(t)
	s := NewStudio(cfg)
	defer s.Close()

	services := s.Services(context.Background())

	res := services.Prompts.Generate(context.Background(), "a line", style.Defaults())
	assert.Error(t, res.Failure())

	_, err := services.Images.Generate(context.Background(), "p", "x.png", style.Wide)
	assert.True(t, failure.Is(err, failure.Permanent))
	assert.Contains(t, err.Error(), "llm.api_key")

	_, err = services.Renderer.Render(context.Background(), "a", "b", "c", true)
	assert.True(t, failure.Is(err, failure.Permanent))
	_, err = services.Merger.Merge(context.Background(), nil, "out.mp4")
	assert.True(t, failure.Is(err, failure.Permanent))

	assert.IsType(t, &tts.Synthesizer{}, services.Speech)
}

func TestPollinationsNeedsNoKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Image.Provider = "pollinations"
	s := NewStudio(cfg)
	defer s.Close()

	svc, err := s.ImageService(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, svc)

	s.cfg.Image.Provider = "crayons"
	_, err = s.ImageService(context.Background())
	assert.Error(t, err)
}

func TestImagePolicyFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Image.MaxAttempts = 3
	cfg.Image.RateLimitDelay = time.Second
	s := NewStudio(cfg)
	defer s.Close()

	policy := s.imagePolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.RateLimitDelay)
	assert.Equal(t, 5*time.Second, policy.BaseDelay)
}

func TestGenerateAudioWithMockEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunk.Budget = 25
	s := NewStudio(cfg)
	defer s.Close()

	_, err := s.NewRun(context.Background(), writeNarration(t, "Sentence number one. Sentence number two."), "")
	require.NoError(t, err)

	require.NoError(t, s.Generate(scene.Audio)(&cobra.Command{}, []string{"2"}))

	r, err := s.LoadRun()
	require.NoError(t, err)
	assert.Equal(t, scene.Ready, r.Scenes[1].Audio.State)
	assert.Equal(t, scene.Absent, r.Scenes[0].Audio.State)
	assert.FileExists(t, filepath.Join(cfg.Output.Audio(), "S002_audio.wav"))

	err = s.Generate(scene.Video)(&cobra.Command{}, []string{"2"})
	assert.True(t, failure.Is(err, failure.NotReady))

	assert.Error(t, s.Generate(scene.Audio)(&cobra.Command{}, []string{"zero"}))
}

func TestEditSceneInvalidates(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunk.Budget = 25
	s := NewStudio(cfg)
	defer s.Close()

	_, err := s.NewRun(context.Background(), writeNarration(t, "Sentence number one. Sentence number two."), "")
	require.NoError(t, err)
	require.NoError(t, s.Generate(scene.Audio)(&cobra.Command{}, []string{"1"}))

	cmd := &cobra.Command{}
	cmd.Flags().String("file", "", "")
	require.NoError(t, s.EditScene(cmd, []string{"1", "A", "brand", "new", "line."}))

	r, err := s.LoadRun()
	require.NoError(t, err)
	assert.Equal(t, "A brand new line.", r.Scenes[0].Script)
	assert.Equal(t, scene.Absent, r.Scenes[0].Audio.State)
}

func TestResetScene(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunk.Budget = 25
	s := NewStudio(cfg)
	defer s.Close()

	_, err := s.NewRun(context.Background(), writeNarration(t, "Sentence number one. Sentence number two."), "")
	require.NoError(t, err)
	require.NoError(t, s.Generate(scene.Audio)(&cobra.Command{}, []string{"1"}))

	require.NoError(t, s.ResetScene(&cobra.Command{}, []string{"1", "audio"}))

	r, err := s.LoadRun()
	require.NoError(t, err)
	assert.Equal(t, scene.Absent, r.Scenes[0].Audio.State)

	assert.Error(t, s.ResetScene(&cobra.Command{}, []string{"1", "final"}))
	assert.Error(t, s.ResetScene(&cobra.Command{}, []string{"x", "audio"}))
}

func TestCleanForgetsRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunk.Budget = 25
	s := NewStudio(cfg)
	defer s.Close()

	_, err := s.NewRun(context.Background(), writeNarration(t, "Sentence number one."), "")
	require.NoError(t, err)
	require.NoError(t, s.Generate(scene.Audio)(&cobra.Command{}, []string{"1"}))
	require.DirExists(t, cfg.Output.Audio())

	cmd := &cobra.Command{}
	cmd.Flags().Bool("files", false, "")
	require.NoError(t, s.Clean(cmd, nil))
	_, err = s.LoadRun()
	assert.Error(t, err)
	assert.DirExists(t, cfg.Output.Audio())

	_, err = s.NewRun(context.Background(), writeNarration(t, "Sentence number one."), "")
	require.NoError(t, err)
	require.NoError(t, cmd.Flags().Set("files", "true"))
	require.NoError(t, s.Clean(cmd, nil))
	assert.NoDirExists(t, cfg.Output.Audio())
}

func TestVoicesListsEngines(t *testing.T) {
	s := NewStudio(testConfig(t))
	defer s.Close()

	cmd := &cobra.Command{}
	cmd.Flags().Bool("refresh", false, "")
	cmd.Flags().Bool("engines", true, "")
	assert.NoError(t, s.Voices(cmd, nil))
	assert.Contains(t, tts.AvailableEngines(s.ttsConfig()), tts.EngineTypeMock)
}
