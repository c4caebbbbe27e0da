package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"scenecast/internal/domain/run"
	"scenecast/internal/domain/run/store"
	"scenecast/internal/domain/scene"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"scenecast/internal/narration/prompt"
	"scenecast/internal/text/naming"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrompts struct{}

func (fakePrompts) Generate(_ context.Context, chunk string, _ style.Directives) prompt.Result {
	return prompt.Result{Prompt: "picture of " + chunk}
}

type fakeImages struct {
	gate chan struct{}
}

func (f *fakeImages) Generate(ctx context.Context, p, path string, _ style.AspectRatio) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	return path, touch(path, p)
}

type fakeSpeech struct {
	dir  string
	mu   sync.Mutex
	fail map[int]error
}

func (f *fakeSpeech) Synthesize(_ context.Context, n int, text string) (string, error) {
	f.mu.Lock()
	err := f.fail[n]
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	path := filepath.Join(f.dir, naming.Audio(n))
	return path, touch(path, text)
}

type fakeRenderer struct {
	gate    chan struct{}
	panicOn int

	mu   sync.Mutex
	zoom map[int]bool
}

func (f *fakeRenderer) Render(_ context.Context, imagePath, audioPath, out string, zoomIn bool) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	base := filepath.Base(out)
	var n int
	fmt.Sscanf(base, "S%03d", &n)
	if n == f.panicOn {
		panic("encoder exploded")
	}

	f.mu.Lock()
	f.zoom[n] = zoomIn
	f.mu.Unlock()
	return out, touch(out, imagePath+"+"+audioPath)
}

type fakeMerger struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeMerger) Merge(_ context.Context, paths []string, out string) (string, error) {
	f.mu.Lock()
	f.paths = append([]string(nil), paths...)
	f.mu.Unlock()
	return out, touch(out, strings.Join(paths, "\n"))
}

func touch(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

type harness struct {
	o        *Orchestrator
	dirs     OutputDirs
	images   *fakeImages
	speech   *fakeSpeech
	renderer *fakeRenderer
	merger   *fakeMerger
	store    *store.Store
}

func newHarness(t *testing.T, scenes int) *harness {
	t.Helper()
	root := t.TempDir()
	dirs := OutputDirs{
		Images: filepath.Join(root, "images"),
		Audio:  filepath.Join(root, "audio"),
		Video:  filepath.Join(root, "video"),
	}

	var sentences []string
	for i := 1; i <= scenes; i++ {
		sentences = append(sentences, fmt.Sprintf("Sentence number %d.", i))
	}
	r, err := run.New("Test", strings.Join(sentences, " "), 25, style.Defaults())
	require.NoError(t, err)
	require.Len(t, r.Scenes, scenes)

	h := &harness{
		dirs:     dirs,
		images:   &fakeImages{},
		speech:   &fakeSpeech{dir: dirs.Audio, fail: map[int]error{}},
		renderer: &fakeRenderer{zoom: map[int]bool{}},
		merger:   &fakeMerger{},
		store:    store.New(root),
	}
	h.o = New(r, Services{
		Prompts:  fakePrompts{},
		Images:   h.images,
		Speech:   h.speech,
		Renderer: h.renderer,
		Merger:   h.merger,
		Store:    h.store,
	}, Options{Workers: 2, Dirs: dirs})
	return h
}

func (h *harness) scene(t *testing.T, n int) scene.Scene {
	t.Helper()
	s, err := h.o.Scene(n)
	require.NoError(t, err)
	return s
}

func TestRunAllProducesFinalVideo(t *testing.T) {
	h := newHarness(t, 3)
	events, cancel := h.o.Subscribe()
	defer cancel()

	final, err := h.o.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(h.dirs.Video, naming.FinalVideo), final)
	assert.FileExists(t, final)

	snap := h.o.Snapshot()
	for _, s := range snap.Scenes {
		for _, st := range scene.Stages() {
			assert.Equal(t, scene.Ready, s.Artifact(st).State, "scene %d %s", s.Number, st)
		}
		assert.Equal(t, "picture of "+s.Script, s.Prompt)
		assert.Equal(t, filepath.Join(h.dirs.Images, s.Filename), s.Image.Path)
	}
	assert.True(t, snap.Final.IsReady())

	assert.Equal(t, map[int]bool{1: true, 2: false, 3: true}, h.renderer.zoom)
	assert.Equal(t, []string{
		filepath.Join(h.dirs.Video, "S001_video_zoom.mp4"),
		filepath.Join(h.dirs.Video, "S002_video_zoom.mp4"),
		filepath.Join(h.dirs.Video, "S003_video_zoom.mp4"),
	}, h.merger.paths)

	saved, err := h.store.Load()
	require.NoError(t, err)
	assert.True(t, saved.Final.IsReady())

	var sawFinal bool
	for len(events) > 0 {
		e := <-events
		assert.Equal(t, snap.ID, e.RunID)
		if e.Stage == scene.Final && e.State == scene.Ready {
			sawFinal = true
		}
	}
	assert.True(t, sawFinal)
}

func TestSubmitRefusesDuplicateAndUnreadyWork(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	h.images.gate = make(chan struct{})

	require.NoError(t, h.o.Submit(ctx, 1, scene.Image))
	assert.True(t, failure.Is(h.o.Submit(ctx, 1, scene.Image), failure.Busy))
	assert.True(t, failure.Is(h.o.EditScript(1, "Something else."), failure.Busy))
	assert.True(t, failure.Is(h.o.Submit(ctx, 1, scene.Video), failure.NotReady))
	assert.Equal(t, scene.Generating, h.scene(t, 1).Image.State)

	close(h.images.gate)
	h.o.Wait()
	assert.Equal(t, scene.Ready, h.scene(t, 1).Image.State)

	before := h.scene(t, 1)
	require.NoError(t, h.o.EditScript(1, "Something else."))
	after := h.scene(t, 1)
	assert.Equal(t, "Something else.", after.Script)
	assert.Equal(t, before.Filename, after.Filename)
	assert.Equal(t, scene.Absent, after.Image.State)
	assert.Empty(t, after.Prompt)
}

func TestImageRegenerationInvalidatesVideoAndFinal(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	final, err := h.o.RunAll(ctx)
	require.NoError(t, err)
	video1 := h.scene(t, 1).Video.Path
	audio1 := h.scene(t, 1).Audio
	require.FileExists(t, video1)

	require.NoError(t, h.o.Submit(ctx, 1, scene.Image))
	assert.NoFileExists(t, final)
	assert.NoFileExists(t, video1)
	h.o.Wait()

	s1 := h.scene(t, 1)
	assert.Equal(t, scene.Ready, s1.Image.State)
	assert.Equal(t, audio1, s1.Audio)
	assert.Equal(t, scene.Absent, s1.Video.State)
	assert.Equal(t, scene.Ready, h.scene(t, 2).Video.State)
	assert.Equal(t, scene.Absent, h.o.Snapshot().Final.State)
}

func TestStaleVideoIsDiscarded(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()
	require.NoError(t, h.o.Submit(ctx, 1, scene.Image))
	require.NoError(t, h.o.Submit(ctx, 1, scene.Audio))
	h.o.Wait()

	h.renderer.gate = make(chan struct{})
	require.NoError(t, h.o.Submit(ctx, 1, scene.Video))
	require.NoError(t, h.o.Submit(ctx, 1, scene.Audio))
	assert.True(t, failure.Is(h.o.Submit(ctx, 1, scene.Video), failure.Busy))
	assert.Equal(t, scene.Absent, h.scene(t, 1).Video.State)

	close(h.renderer.gate)
	h.o.Wait()

	s := h.scene(t, 1)
	assert.Equal(t, scene.Ready, s.Audio.State)
	assert.Equal(t, scene.Absent, s.Video.State)
	assert.NoFileExists(t, filepath.Join(h.dirs.Video, naming.Video(1)))
}

func TestFailedSceneDoesNotStopSiblings(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()
	h.speech.fail[2] = failure.Newf(failure.VoiceNotFound, "fake", "voice gone")

	_, err := h.o.RunAll(ctx)
	require.NoError(t, err)

	s2 := h.scene(t, 2)
	assert.Equal(t, scene.Failed, s2.Audio.State)
	assert.Equal(t, failure.VoiceNotFound, s2.Audio.Kind)
	assert.Contains(t, s2.Audio.Error, "voice gone")
	assert.Equal(t, scene.Absent, s2.Video.State)
	assert.Equal(t, []string{
		filepath.Join(h.dirs.Video, "S001_video_zoom.mp4"),
		filepath.Join(h.dirs.Video, "S003_video_zoom.mp4"),
	}, h.merger.paths)

	h.speech.mu.Lock()
	delete(h.speech.fail, 2)
	h.speech.mu.Unlock()
	require.NoError(t, h.o.Submit(ctx, 2, scene.Audio))
	h.o.Wait()
	assert.Equal(t, scene.Ready, h.scene(t, 2).Audio.State)
}

func TestImageSubmissionsAreSpaced(t *testing.T) {
	h := newHarness(t, 3)
	h.o.opts.SubmitInterval = 3 * time.Second
	fixed := time.Unix(1000, 0)
	h.o.now = func() time.Time { return fixed }

	var (
		mu     sync.Mutex
		sleeps []time.Duration
	)
	h.o.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
		return nil
	}

	n, err := h.o.SubmitAll(context.Background(), scene.Image)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	h.o.Wait()

	sort.Slice(sleeps, func(i, j int) bool { return sleeps[i] < sleeps[j] })
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second}, sleeps)
}

func TestPanicFailsOnlyThatStage(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	h.renderer.panicOn = 1

	_, err := h.o.RunAll(ctx)
	require.NoError(t, err)

	s1 := h.scene(t, 1)
	assert.Equal(t, scene.Failed, s1.Video.State)
	assert.Equal(t, failure.Permanent, s1.Video.Kind)
	assert.Contains(t, s1.Video.Error, "encoder exploded")
	assert.Equal(t, scene.Ready, h.scene(t, 2).Video.State)
}

func TestMergeWithoutVideos(t *testing.T) {
	h := newHarness(t, 2)
	_, err := h.o.Merge(context.Background())
	assert.True(t, failure.Is(err, failure.NothingToMerge))
	assert.Equal(t, scene.Absent, h.o.Snapshot().Final.State)
}

func TestResetClearsStageAndDependents(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	final, err := h.o.RunAll(ctx)
	require.NoError(t, err)
	video2 := h.scene(t, 2).Video.Path
	require.FileExists(t, video2)

	require.NoError(t, h.o.Reset(2, scene.Audio))

	s2 := h.scene(t, 2)
	assert.Equal(t, scene.Ready, s2.Image.State)
	assert.Equal(t, scene.Absent, s2.Audio.State)
	assert.Equal(t, scene.Absent, s2.Video.State)
	assert.Equal(t, scene.Ready, h.scene(t, 1).Video.State)
	assert.Equal(t, scene.Absent, h.o.Snapshot().Final.State)
	assert.NoFileExists(t, video2)
	assert.NoFileExists(t, final)

	saved, err := h.store.Load()
	require.NoError(t, err)
	assert.Equal(t, scene.Absent, saved.Scenes[1].Audio.State)

	assert.Error(t, h.o.Reset(2, scene.Final))
	assert.Error(t, h.o.Reset(9, scene.Image))
}

func TestResetRefusesSceneInFlight(t *testing.T) {
	h := newHarness(t, 1)
	h.images.gate = make(chan struct{})

	require.NoError(t, h.o.Submit(context.Background(), 1, scene.Image))
	assert.True(t, failure.Is(h.o.Reset(1, scene.Audio), failure.Busy))

	close(h.images.gate)
	h.o.Wait()
	require.NoError(t, h.o.Reset(1, scene.Image))
	assert.Equal(t, scene.Absent, h.scene(t, 1).Image.State)
}
