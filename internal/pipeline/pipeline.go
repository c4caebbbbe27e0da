// Package pipeline schedules prompt, image, speech and video generation for
// the scenes of a run and keeps their artifacts consistent.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"scenecast/internal/domain/run"
	"scenecast/internal/domain/scene"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"scenecast/internal/narration/audio"
	"scenecast/internal/narration/prompt"
	"scenecast/internal/retry"
	"scenecast/internal/text/naming"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type PromptWriter interface {
	Generate(ctx context.Context, chunk string, d style.Directives) prompt.Result
}

type ImageMaker interface {
	Generate(ctx context.Context, prompt, path string, aspect style.AspectRatio) (string, error)
}

type SpeechMaker interface {
	Synthesize(ctx context.Context, scene int, text string) (string, error)
}

type SceneRenderer interface {
	Render(ctx context.Context, imagePath, audioPath, out string, zoomIn bool) (string, error)
}

type VideoMerger interface {
	Merge(ctx context.Context, paths []string, out string) (string, error)
}

type Saver interface {
	Save(r *run.Run) error
}

// SilenceFunc shortens long pauses in a WAV file in place
type SilenceFunc func(path string, p audio.Params) (audio.Report, error)

// Services are the collaborators each stage calls
type Services struct {
	Prompts  PromptWriter
	Images   ImageMaker
	Speech   SpeechMaker
	Silence  SilenceFunc
	Renderer SceneRenderer
	Merger   VideoMerger
	Store    Saver
}

// OutputDirs are where generated files are written
type OutputDirs struct {
	Images string
	Audio  string
	Video  string
}

type Options struct {
	Workers        int
	Silence        *audio.Params // nil disables silence compaction
	SubmitInterval time.Duration // minimum spacing between image requests
	Dirs           OutputDirs
}

type key struct {
	scene int
	stage scene.Stage
}

// job is what a task needs, copied at submission
type job struct {
	ticket     run.Ticket
	scene      scene.Scene
	directives style.Directives
}

// Orchestrator owns a run and every generation task working on it
type Orchestrator struct {
	services Services
	opts     Options

	mu        sync.Mutex
	run       *run.Run
	inflight  map[key]chan struct{}
	nextImage time.Time

	sem    *semaphore.Weighted
	tasks  sync.WaitGroup
	events *broadcaster

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(r *run.Run, services Services, opts Options) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if services.Silence == nil {
		services.Silence = audio.CompactSilence
	}

	return &Orchestrator{
		services: services,
		opts:     opts,
		run:      r,
		inflight: make(map[key]chan struct{}),
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
		events:   newBroadcaster(),
		now:      time.Now,
		sleep:    retry.SleepContext,
	}
}

// Subscribe streams artifact transitions until cancel is called
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	return o.events.subscribe()
}

// Snapshot returns a copy of the run
func (o *Orchestrator) Snapshot() run.Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return *o.run.Clone()
}

// Scene returns a copy of scene n
func (o *Orchestrator) Scene(n int) (scene.Scene, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, err := o.run.Scene(n)
	if err != nil {
		return scene.Scene{}, err
	}
	return *s, nil
}

// Wait blocks until every submitted task has finished
func (o *Orchestrator) Wait() {
	o.tasks.Wait()
}

// Submit starts generating one stage of a scene. It fails with Busy when
// that stage is already in flight and NotReady when a video is requested
// before its image and audio exist.
func (o *Orchestrator) Submit(ctx context.Context, n int, stage scene.Stage) error {
	_, err := o.start(ctx, n, stage)
	return err
}

// SubmitAll submits stage for every scene that is not already in flight
func (o *Orchestrator) SubmitAll(ctx context.Context, stage scene.Stage) (int, error) {
	var (
		submitted int
		errs      []error
	)
	for _, n := range o.sceneNumbers() {
		err := o.Submit(ctx, n, stage)
		switch {
		case err == nil:
			submitted++
		case failure.Is(err, failure.Busy):
		default:
			errs = append(errs, err)
		}
	}
	return submitted, errors.Join(errs...)
}

// EditScript replaces a scene's narration and invalidates everything
// generated from it
func (o *Orchestrator) EditScript(n int, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, st := range scene.Stages() {
		if _, busy := o.inflight[key{n, st}]; busy {
			return failure.WithScene(failure.Newf(failure.Busy, "pipeline.edit", "%s generation in flight", st), n)
		}
	}
	changes, err := o.run.EditScript(n, text)
	if err != nil {
		return err
	}
	o.applyLocked(changes)
	return nil
}

// Reset discards a scene stage and everything derived from it, so the next
// run generates it again. Scenes with generation in flight are refused.
func (o *Orchestrator) Reset(n int, stage scene.Stage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, st := range scene.Stages() {
		if _, busy := o.inflight[key{n, st}]; busy {
			return failure.WithScene(failure.Newf(failure.Busy, "pipeline.reset", "%s generation in flight", st), n)
		}
	}
	changes, err := o.run.Invalidate(n, stage)
	if err != nil {
		return err
	}
	o.applyLocked(changes)
	return nil
}

// RunAll brings every scene to a ready video, then merges. Image and audio
// of a scene run concurrently; its video starts once both are done. A
// failing scene never stops the others.
func (o *Orchestrator) RunAll(ctx context.Context) (string, error) {
	g := new(errgroup.Group)
	g.SetLimit(o.opts.Workers)
	for _, n := range o.sceneNumbers() {
		n := n
		g.Go(func() error {
			o.runScene(ctx, n)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return o.Merge(ctx)
}

func (o *Orchestrator) runScene(ctx context.Context, n int) {
	var pending []<-chan struct{}
	for _, st := range []scene.Stage{scene.Image, scene.Audio} {
		if done := o.ensure(ctx, n, st); done != nil {
			pending = append(pending, done)
		}
	}
	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}

	if done := o.ensure(ctx, n, scene.Video); done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
}

// ensure starts stage unless it is ready, returning a channel closed when
// the task in flight for it ends
func (o *Orchestrator) ensure(ctx context.Context, n int, stage scene.Stage) <-chan struct{} {
	o.mu.Lock()
	if done, ok := o.inflight[key{n, stage}]; ok {
		o.mu.Unlock()
		return done
	}
	s, err := o.run.Scene(n)
	ready := err == nil && s.Artifact(stage).IsReady()
	o.mu.Unlock()
	if ready {
		return nil
	}

	done, err := o.start(ctx, n, stage)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"scene": n,
			"stage": stage,
		}).WithError(err).Warn("Skipping stage")
		return nil
	}
	return done
}

// Merge concatenates the ready scene videos into the final video
func (o *Orchestrator) Merge(ctx context.Context) (string, error) {
	k := key{0, scene.Final}

	o.mu.Lock()
	if _, busy := o.inflight[k]; busy {
		o.mu.Unlock()
		return "", failure.Newf(failure.Busy, "pipeline.merge", "merge already running")
	}
	paths := o.run.VideoPaths()
	if len(paths) == 0 {
		o.mu.Unlock()
		return "", failure.Newf(failure.NothingToMerge, "pipeline.merge", "no scene videos are ready")
	}
	t, changes, err := o.run.BeginFinal()
	if err != nil {
		o.mu.Unlock()
		return "", err
	}
	done := make(chan struct{})
	o.inflight[k] = done
	o.applyLocked(changes)
	o.tasks.Add(1)
	o.mu.Unlock()

	defer o.tasks.Done()
	defer close(done)

	path, err := o.services.Merger.Merge(ctx, paths, filepath.Join(o.opts.Dirs.Video, naming.FinalVideo))
	o.finish(t, path, err)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (o *Orchestrator) start(ctx context.Context, n int, stage scene.Stage) (<-chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	k := key{n, stage}
	if _, busy := o.inflight[k]; busy {
		return nil, failure.WithScene(failure.Newf(failure.Busy, "pipeline.submit", "%s already in flight", stage), n)
	}
	t, changes, err := o.run.Begin(n, stage)
	if err != nil {
		return nil, err
	}
	s, _ := o.run.Scene(n)
	j := job{ticket: t, scene: *s, directives: o.run.Directives}

	done := make(chan struct{})
	o.inflight[k] = done
	o.applyLocked(changes)

	o.tasks.Add(1)
	go o.execute(ctx, j, done)
	return done, nil
}

func (o *Orchestrator) execute(ctx context.Context, j job, done chan struct{}) {
	defer o.tasks.Done()
	defer close(done)

	path, err := o.perform(ctx, j)
	if err != nil && ctx.Err() != nil && failure.KindOf(err) == failure.Unknown {
		err = failure.New(failure.Transient, "pipeline", err)
	}
	o.finish(j.ticket, path, err)
}

// perform runs one stage; a panic becomes a failure of that stage only
func (o *Orchestrator) perform(ctx context.Context, j job) (path string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = failure.Newf(failure.Permanent, "pipeline", "panic: %v", p)
		}
	}()

	if j.ticket.Stage == scene.Image {
		if err := o.waitImageSlot(ctx); err != nil {
			return "", err
		}
	}
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer o.sem.Release(1)

	switch j.ticket.Stage {
	case scene.Image:
		return o.makeImage(ctx, j)
	case scene.Audio:
		return o.makeAudio(ctx, j)
	case scene.Video:
		out := filepath.Join(o.opts.Dirs.Video, naming.Video(j.scene.Number))
		return o.services.Renderer.Render(ctx, j.scene.Image.Path, j.scene.Audio.Path, out, j.scene.ZoomIn())
	default:
		return "", fmt.Errorf("unknown stage %q", j.ticket.Stage)
	}
}

func (o *Orchestrator) makeImage(ctx context.Context, j job) (string, error) {
	res := o.services.Prompts.Generate(ctx, j.scene.Script, j.directives)
	if err := res.Failure(); err != nil {
		return "", err
	}

	o.mu.Lock()
	err := o.run.SetPrompt(j.ticket, res.Prompt, res.Fallback)
	if err == nil {
		o.saveLocked()
	}
	o.mu.Unlock()
	if err != nil {
		return "", err
	}

	path := filepath.Join(o.opts.Dirs.Images, j.scene.Filename)
	return o.services.Images.Generate(ctx, res.Prompt, path, j.directives.Aspect)
}

func (o *Orchestrator) makeAudio(ctx context.Context, j job) (string, error) {
	path, err := o.services.Speech.Synthesize(ctx, j.scene.Number, j.scene.Script)
	if err != nil {
		return "", err
	}
	if o.opts.Silence == nil {
		return path, nil
	}

	report, err := o.services.Silence(path, *o.opts.Silence)
	if err != nil {
		logrus.WithError(err).WithField("scene", j.scene.Number).Warn("Silence compaction failed, keeping original audio")
		return path, nil
	}
	if report.Trimmed > 0 {
		logrus.WithFields(logrus.Fields{
			"scene":   j.scene.Number,
			"trimmed": report.Trimmed,
			"before":  report.Before.String(),
			"after":   report.After.String(),
		}).Info("Compacted narration pauses")
	}
	return path, nil
}

// waitImageSlot spaces image requests SubmitInterval apart
func (o *Orchestrator) waitImageSlot(ctx context.Context) error {
	if o.opts.SubmitInterval <= 0 {
		return nil
	}
	o.mu.Lock()
	now := o.now()
	slot := o.nextImage
	if slot.Before(now) {
		slot = now
	}
	o.nextImage = slot.Add(o.opts.SubmitInterval)
	o.mu.Unlock()

	if d := slot.Sub(now); d > 0 {
		return o.sleep(ctx, d)
	}
	return nil
}

// finish records a task result. Results for artifacts that changed while
// the task ran are dropped, along with any file they produced.
func (o *Orchestrator) finish(t run.Ticket, path string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.inflight, key{t.Scene, t.Stage})
	fields := logrus.Fields{"scene": t.Scene, "stage": t.Stage}

	var (
		changes []run.Change
		ferr    error
	)
	if err != nil && !errors.Is(err, run.ErrStale) {
		changes, ferr = o.run.Fail(t, err)
	} else if err == nil {
		changes, ferr = o.run.Complete(t, path)
	} else {
		ferr = err
	}

	if errors.Is(ferr, run.ErrStale) {
		logrus.WithFields(fields).Info("Discarding stale result")
		if path != "" && (t.Stage == scene.Video || t.Stage == scene.Final) {
			o.removeFile(path)
		}
		o.applyLocked(changes)
		return
	}
	if ferr != nil {
		logrus.WithFields(fields).WithError(ferr).Error("Failed to record result")
		return
	}

	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Stage failed")
	} else {
		logrus.WithFields(fields).WithField("file", path).Info("Stage ready")
	}
	o.applyLocked(changes)
}

// applyLocked publishes changes, deletes files of invalidated videos and
// persists the run
func (o *Orchestrator) applyLocked(changes []run.Change) {
	for _, c := range changes {
		if c.Artifact.State == scene.Absent && o.opts.Dirs.Video != "" {
			switch c.Stage {
			case scene.Final:
				o.removeFile(filepath.Join(o.opts.Dirs.Video, naming.FinalVideo))
			case scene.Video:
				o.removeFile(filepath.Join(o.opts.Dirs.Video, naming.Video(c.Scene)))
			}
		}
		o.events.publish(eventFor(o.run.ID, c))
	}
	if len(changes) > 0 {
		o.saveLocked()
	}
}

func (o *Orchestrator) saveLocked() {
	if o.services.Store == nil {
		return
	}
	if err := o.services.Store.Save(o.run); err != nil {
		logrus.WithError(err).Warn("Failed to persist run state")
	}
}

func (o *Orchestrator) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("file", path).Warn("Failed to remove invalidated video")
	}
}

func (o *Orchestrator) sceneNumbers() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	numbers := make([]int, len(o.run.Scenes))
	for i := range o.run.Scenes {
		numbers[i] = o.run.Scenes[i].Number
	}
	return numbers
}
