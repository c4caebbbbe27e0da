package run

import (
	"errors"
	"scenecast/internal/domain/scene"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRun(t *testing.T) *Run {
	t.Helper()
	r, err := New("test", "First scene here. Second scene here. Third scene here.", 20, style.Defaults())
	require.NoError(t, err)
	require.Len(t, r.Scenes, 3)
	return r
}

func complete(t *testing.T, r *Run, n int, stage scene.Stage, path string) {
	t.Helper()
	tk, _, err := r.Begin(n, stage)
	require.NoError(t, err)
	_, err = r.Complete(tk, path)
	require.NoError(t, err)
}

func readyScene(t *testing.T, r *Run, n int) {
	t.Helper()
	complete(t, r, n, scene.Image, "img.png")
	complete(t, r, n, scene.Audio, "a.wav")
	complete(t, r, n, scene.Video, "v.mp4")
}

func TestNewChunksAndNames(t *testing.T) {
	r := newRun(t)
	assert.NotEmpty(t, r.ID)
	for i, s := range r.Scenes {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, scene.Absent, s.Image.State)
		assert.Contains(t, s.Filename, ".png")
	}
	assert.Equal(t, "S001_First scene here..png", r.Scenes[0].Filename)

	_, err := New("empty", "   ", 100, style.Defaults())
	assert.True(t, failure.Is(err, failure.Permanent))
}

func TestEditScriptInvalidatesEverything(t *testing.T) {
	r := newRun(t)
	readyScene(t, r, 1)
	tk, _, err := r.BeginFinal()
	require.NoError(t, err)
	_, err = r.Complete(tk, "final.mp4")
	require.NoError(t, err)

	filename := r.Scenes[0].Filename
	changes, err := r.EditScript(1, "A brand new line.")
	require.NoError(t, err)

	s := r.Scenes[0]
	assert.Equal(t, scene.Absent, s.Image.State)
	assert.Equal(t, scene.Absent, s.Audio.State)
	assert.Equal(t, scene.Absent, s.Video.State)
	assert.Empty(t, s.Video.Path)
	assert.Equal(t, scene.Absent, r.Final.State)
	assert.Equal(t, filename, s.Filename)

	var stages []scene.Stage
	for _, c := range changes {
		stages = append(stages, c.Stage)
	}
	assert.ElementsMatch(t, []scene.Stage{scene.Image, scene.Video, scene.Final, scene.Audio}, stages)
}

func TestImageRegenerationKeepsAudioAndClearsVideo(t *testing.T) {
	r := newRun(t)
	readyScene(t, r, 2)

	_, _, err := r.Begin(2, scene.Image)
	require.NoError(t, err)

	s := r.Scenes[1]
	assert.Equal(t, scene.Generating, s.Image.State)
	assert.Equal(t, scene.Ready, s.Audio.State)
	assert.Equal(t, "a.wav", s.Audio.Path)
	assert.Equal(t, scene.Absent, s.Video.State)
}

func TestAudioRegenerationClearsVideoOnly(t *testing.T) {
	r := newRun(t)
	readyScene(t, r, 1)

	complete(t, r, 1, scene.Audio, "b.wav")

	s := r.Scenes[0]
	assert.Equal(t, scene.Ready, s.Image.State)
	assert.Equal(t, "b.wav", s.Audio.Path)
	assert.Equal(t, scene.Absent, s.Video.State)
}

func TestBeginRules(t *testing.T) {
	r := newRun(t)

	_, _, err := r.Begin(1, scene.Video)
	assert.True(t, failure.Is(err, failure.NotReady))

	_, _, err = r.Begin(1, scene.Audio)
	require.NoError(t, err)
	_, _, err = r.Begin(1, scene.Audio)
	assert.True(t, failure.Is(err, failure.Busy))

	_, err = r.EditScript(1, "Changed.")
	assert.True(t, failure.Is(err, failure.Busy))

	_, _, err = r.Begin(9, scene.Image)
	assert.Error(t, err)
}

func TestStaleVideoIsDiscarded(t *testing.T) {
	r := newRun(t)
	complete(t, r, 1, scene.Image, "img.png")
	complete(t, r, 1, scene.Audio, "a.wav")

	video, _, err := r.Begin(1, scene.Video)
	require.NoError(t, err)

	// audio regenerated while the video renders
	complete(t, r, 1, scene.Audio, "b.wav")

	_, err = r.Complete(video, "v.mp4")
	assert.True(t, errors.Is(err, ErrStale))
	assert.Equal(t, scene.Absent, r.Scenes[0].Video.State)
	assert.Empty(t, r.VideoPaths())
}

func TestFailKeepsKindAndIsRecoverable(t *testing.T) {
	r := newRun(t)
	tk, _, err := r.Begin(3, scene.Image)
	require.NoError(t, err)

	cause := failure.New(failure.Exhausted, "image.generate", failure.Newf(failure.RateLimited, "gemini", "429 quota"))
	_, err = r.Fail(tk, cause)
	require.NoError(t, err)

	img := r.Scenes[2].Image
	assert.Equal(t, scene.Failed, img.State)
	assert.Equal(t, failure.Exhausted, img.Kind)
	assert.Contains(t, img.Error, "429 quota")

	complete(t, r, 3, scene.Image, "img.png")
	assert.Equal(t, scene.Ready, r.Scenes[2].Image.State)
	assert.Empty(t, r.Scenes[2].Image.Error)
}

func TestVideoPathsInSceneOrder(t *testing.T) {
	r := newRun(t)
	readyScene(t, r, 3)
	readyScene(t, r, 1)

	r.Scenes[0].Video.Path = "one.mp4"
	r.Scenes[2].Video.Path = "three.mp4"
	assert.Equal(t, []string{"one.mp4", "three.mp4"}, r.VideoPaths())

	ready, total := r.Progress()
	assert.Equal(t, 6, ready)
	assert.Equal(t, 9, total)
}

func TestRecoverMarksInterrupted(t *testing.T) {
	r := newRun(t)
	_, _, err := r.Begin(1, scene.Audio)
	require.NoError(t, err)

	assert.Equal(t, 1, r.Recover())
	assert.Equal(t, scene.Failed, r.Scenes[0].Audio.State)
	assert.Contains(t, r.Scenes[0].Audio.Error, "interrupted")
}

func TestCloneIsIndependent(t *testing.T) {
	r := newRun(t)
	cp := r.Clone()
	complete(t, r, 1, scene.Image, "img.png")
	assert.Equal(t, scene.Absent, cp.Scenes[0].Image.State)
}
