package run

import (
	"errors"
	"fmt"
	"scenecast/internal/domain/scene"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"scenecast/internal/text/chunk"
	"scenecast/internal/text/naming"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrStale is returned when a result arrives for an artifact that changed
// after its generation began. The result must be discarded.
var ErrStale = errors.New("artifact changed while generating")

// Run is an ordered, fixed sequence of scenes sharing one style. A Run is not
// safe for concurrent use; the pipeline serialises access to it.
type Run struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Directives style.Directives `json:"directives"`
	Budget     int              `json:"budget"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Scenes     []scene.Scene    `json:"scenes"`
	Final      scene.Artifact   `json:"final"`
}

// Ticket identifies one generation attempt. Results are only accepted while
// the artifact is still at the ticket's revision.
type Ticket struct {
	Scene    int
	Stage    scene.Stage
	Revision int
	Basis    scene.Basis
}

// Change is an artifact transition caused by a Run mutation. Scene is 0 for
// the final video.
type Change struct {
	Scene    int
	Stage    scene.Stage
	Artifact scene.Artifact
}

// New chunks text with budget and creates one scene per chunk
func New(title, text string, budget int, d style.Directives) (*Run, error) {
	chunks := chunk.Split(text, budget)
	if len(chunks) == 0 {
		return nil, failure.Newf(failure.Permanent, "run.new", "no narration text")
	}

	now := time.Now()
	r := &Run{
		ID:         uuid.NewString(),
		Title:      title,
		Directives: d,
		Budget:     budget,
		CreatedAt:  now,
		UpdatedAt:  now,
		Final:      scene.Artifact{State: scene.Absent},
	}
	for i, c := range chunks {
		n := i + 1
		r.Scenes = append(r.Scenes, scene.New(n, c, naming.Derive(n, c)))
	}
	return r, nil
}

// Scene returns scene n (1-based)
func (r *Run) Scene(n int) (*scene.Scene, error) {
	if n < 1 || n > len(r.Scenes) {
		return nil, failure.Newf(failure.Permanent, "run.scene", "scene %d out of range 1..%d", n, len(r.Scenes))
	}
	return &r.Scenes[n-1], nil
}

// EditScript replaces a scene's narration. The prompt, image, audio and video
// are invalidated. Editing a scene with generation in flight is refused.
func (r *Run) EditScript(n int, text string) ([]Change, error) {
	s, err := r.Scene(n)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, failure.Newf(failure.Permanent, "run.edit", "scene %d: empty script", n)
	}
	if s.Busy() {
		return nil, failure.WithScene(failure.Newf(failure.Busy, "run.edit", "generation in flight"), n)
	}
	if text == s.Script {
		return nil, nil
	}

	s.Script = text
	s.Prompt = ""
	s.PromptFallback = false

	var changes []Change
	changes = append(changes, r.reset(s, scene.Image)...)
	changes = append(changes, r.reset(s, scene.Audio)...)
	r.touch()
	return changes, nil
}

// Begin moves a scene stage to generating. Starting an image or audio
// generation invalidates the video; starting a video requires a ready image
// and audio and records the revisions it is based on.
func (r *Run) Begin(n int, stage scene.Stage) (Ticket, []Change, error) {
	s, err := r.Scene(n)
	if err != nil {
		return Ticket{}, nil, err
	}
	a := s.Artifact(stage)
	if a == nil {
		return Ticket{}, nil, failure.Newf(failure.Permanent, "run.begin", "unknown stage %q", stage)
	}
	if a.State == scene.Generating {
		return Ticket{}, nil, failure.WithScene(failure.Newf(failure.Busy, "run.begin", "%s already generating", stage), n)
	}
	if stage == scene.Video && !(s.Image.IsReady() && s.Audio.IsReady()) {
		return Ticket{}, nil, failure.WithScene(failure.Newf(failure.NotReady, "run.begin", "video needs a ready image and audio"), n)
	}

	if stage == scene.Image {
		s.Prompt = ""
		s.PromptFallback = false
	}
	a.Begin()
	changes := []Change{{Scene: n, Stage: stage, Artifact: *a}}
	changes = append(changes, r.downstream(s, stage)...)

	t := Ticket{Scene: n, Stage: stage, Revision: a.Revision}
	if stage == scene.Video {
		s.VideoBasis = s.CurrentBasis()
		t.Basis = s.VideoBasis
	}
	r.touch()
	return t, changes, nil
}

// SetPrompt stores the image prompt produced for a ticket
func (r *Run) SetPrompt(t Ticket, prompt string, fallback bool) error {
	s, _, err := r.current(t)
	if err != nil {
		return err
	}
	s.Prompt = prompt
	s.PromptFallback = fallback
	r.touch()
	return nil
}

// Complete marks the ticket's artifact ready. A video whose image or audio
// changed since Begin is discarded and ErrStale returned.
func (r *Run) Complete(t Ticket, path string) ([]Change, error) {
	if t.Stage == scene.Final {
		return r.completeFinal(t, path)
	}
	s, a, err := r.current(t)
	if err != nil {
		return nil, err
	}
	if t.Stage == scene.Video && s.CurrentBasis() != t.Basis {
		a.Reset()
		r.touch()
		return []Change{{Scene: t.Scene, Stage: t.Stage, Artifact: *a}}, ErrStale
	}

	a.Complete(path)
	changes := []Change{{Scene: t.Scene, Stage: t.Stage, Artifact: *a}}
	changes = append(changes, r.downstream(s, t.Stage)...)
	r.touch()
	return changes, nil
}

// Fail records err against the ticket's artifact
func (r *Run) Fail(t Ticket, cause error) ([]Change, error) {
	if t.Stage == scene.Final {
		if r.Final.State != scene.Generating || r.Final.Revision != t.Revision {
			return nil, ErrStale
		}
		r.Final.Fail(cause)
		r.touch()
		return []Change{{Stage: scene.Final, Artifact: r.Final}}, nil
	}
	_, a, err := r.current(t)
	if err != nil {
		return nil, err
	}
	a.Fail(failure.WithScene(cause, t.Scene))
	r.touch()
	return []Change{{Scene: t.Scene, Stage: t.Stage, Artifact: *a}}, nil
}

// Invalidate resets a scene stage and everything depending on it
func (r *Run) Invalidate(n int, stage scene.Stage) ([]Change, error) {
	s, err := r.Scene(n)
	if err != nil {
		return nil, err
	}
	if s.Artifact(stage) == nil {
		return nil, failure.Newf(failure.Permanent, "run.invalidate", "unknown stage %q", stage)
	}
	changes := r.reset(s, stage)
	r.touch()
	return changes, nil
}

// BeginFinal moves the merged video to generating
func (r *Run) BeginFinal() (Ticket, []Change, error) {
	if r.Final.State == scene.Generating {
		return Ticket{}, nil, failure.Newf(failure.Busy, "run.merge", "merge already running")
	}
	r.Final.Begin()
	r.touch()
	return Ticket{Stage: scene.Final, Revision: r.Final.Revision}, []Change{{Stage: scene.Final, Artifact: r.Final}}, nil
}

func (r *Run) completeFinal(t Ticket, path string) ([]Change, error) {
	if r.Final.State != scene.Generating || r.Final.Revision != t.Revision {
		return nil, ErrStale
	}
	r.Final.Complete(path)
	r.touch()
	return []Change{{Stage: scene.Final, Artifact: r.Final}}, nil
}

// VideoPaths returns the ready scene videos in scene order
func (r *Run) VideoPaths() []string {
	var paths []string
	for i := range r.Scenes {
		if v := r.Scenes[i].Video; v.IsReady() {
			paths = append(paths, v.Path)
		}
	}
	return paths
}

// Progress counts ready artifacts over all scene stages
func (r *Run) Progress() (ready, total int) {
	for i := range r.Scenes {
		for _, st := range scene.Stages() {
			total++
			if r.Scenes[i].Artifact(st).State == scene.Ready {
				ready++
			}
		}
	}
	return ready, total
}

// Recover marks artifacts left generating by an interrupted process as failed
func (r *Run) Recover() int {
	interrupted := failure.Newf(failure.Transient, "run.recover", "interrupted")
	count := 0
	for i := range r.Scenes {
		for _, st := range scene.Stages() {
			if a := r.Scenes[i].Artifact(st); a.State == scene.Generating {
				a.Fail(failure.WithScene(interrupted, r.Scenes[i].Number))
				count++
			}
		}
	}
	if r.Final.State == scene.Generating {
		r.Final.Fail(interrupted)
		count++
	}
	return count
}

// Clone returns a deep copy safe to hand to readers
func (r *Run) Clone() *Run {
	cp := *r
	cp.Scenes = append([]scene.Scene(nil), r.Scenes...)
	return &cp
}

func (r *Run) current(t Ticket) (*scene.Scene, *scene.Artifact, error) {
	s, err := r.Scene(t.Scene)
	if err != nil {
		return nil, nil, err
	}
	a := s.Artifact(t.Stage)
	if a == nil {
		return nil, nil, fmt.Errorf("unknown stage %q", t.Stage)
	}
	if a.State != scene.Generating || a.Revision != t.Revision {
		return nil, nil, ErrStale
	}
	return s, a, nil
}

// reset clears one artifact and cascades to its dependents
func (r *Run) reset(s *scene.Scene, stage scene.Stage) []Change {
	a := s.Artifact(stage)
	if !a.Reset() {
		return nil
	}
	changes := []Change{{Scene: s.Number, Stage: stage, Artifact: *a}}
	return append(changes, r.downstream(s, stage)...)
}

// downstream invalidates whatever was derived from stage: image and audio
// feed the video, any video change stales the merged output
func (r *Run) downstream(s *scene.Scene, stage scene.Stage) []Change {
	switch stage {
	case scene.Image, scene.Audio:
		return r.reset(s, scene.Video)
	case scene.Video:
		if r.Final.Reset() {
			return []Change{{Stage: scene.Final, Artifact: r.Final}}
		}
	}
	return nil
}

func (r *Run) touch() {
	r.UpdatedAt = time.Now()
}
