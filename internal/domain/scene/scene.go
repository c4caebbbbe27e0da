package scene

import (
	"fmt"
	"scenecast/internal/failure"
	"time"
)

// State of one generated artifact
type State string

const (
	Absent     State = "absent"
	Generating State = "generating"
	Ready      State = "ready"
	Failed     State = "failed"
)

// Stage names an artifact-producing step of a scene
type Stage string

const (
	Image Stage = "image" // prompt and image
	Audio Stage = "audio"
	Video Stage = "video"
	Final Stage = "final" // the merged run video, not a scene stage
)

// Stages lists the per-scene stages in causal order
func Stages() []Stage {
	return []Stage{Image, Audio, Video}
}

// ParseStage accepts the per-scene stage names
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case Image, Audio, Video:
		return Stage(s), nil
	default:
		return "", fmt.Errorf("unknown stage %q", s)
	}
}

// Artifact is the state of one generated file. Revision increases on every
// transition so late results can be recognised as stale.
type Artifact struct {
	State     State        `json:"state"`
	Path      string       `json:"path,omitempty"`
	Error     string       `json:"error,omitempty"`
	Kind      failure.Kind `json:"kind,omitempty"`
	Revision  int          `json:"revision"`
	UpdatedAt time.Time    `json:"updated_at,omitempty"`
}

// Begin moves the artifact to generating and clears its previous output
func (a *Artifact) Begin() {
	a.set(Generating, "", nil)
}

// Complete marks the artifact ready at path
func (a *Artifact) Complete(path string) {
	a.set(Ready, path, nil)
}

// Fail records err, keeping its kind for later inspection
func (a *Artifact) Fail(err error) {
	a.set(Failed, "", err)
}

// Reset invalidates the artifact. It reports whether anything changed.
func (a *Artifact) Reset() bool {
	if a.State == Absent && a.Path == "" {
		return false
	}
	a.set(Absent, "", nil)
	return true
}

func (a *Artifact) set(state State, path string, err error) {
	a.State = state
	a.Path = path
	a.Error = ""
	a.Kind = failure.Unknown
	if err != nil {
		a.Error = err.Error()
		a.Kind = failure.KindOf(err)
	}
	a.Revision++
	a.UpdatedAt = time.Now()
}

func (a Artifact) IsReady() bool {
	return a.State == Ready && a.Path != ""
}

// Basis records the upstream revisions a video was rendered from
type Basis struct {
	Image int `json:"image"`
	Audio int `json:"audio"`
}

// Scene is one chunk of narration and the artifacts generated from it
type Scene struct {
	Number         int      `json:"number"`
	Script         string   `json:"script"`
	Filename       string   `json:"filename"`
	Prompt         string   `json:"prompt,omitempty"`
	PromptFallback bool     `json:"prompt_fallback,omitempty"`
	Image          Artifact `json:"image"`
	Audio          Artifact `json:"audio"`
	Video          Artifact `json:"video"`
	VideoBasis     Basis    `json:"video_basis"`
}

// New creates a scene with only its script and file name populated
func New(number int, script, filename string) Scene {
	return Scene{
		Number:   number,
		Script:   script,
		Filename: filename,
		Image:    Artifact{State: Absent},
		Audio:    Artifact{State: Absent},
		Video:    Artifact{State: Absent},
	}
}

// Artifact returns a pointer to the artifact of stage
func (s *Scene) Artifact(stage Stage) *Artifact {
	switch stage {
	case Image:
		return &s.Image
	case Audio:
		return &s.Audio
	case Video:
		return &s.Video
	default:
		return nil
	}
}

// Busy reports whether any stage of the scene is generating
func (s *Scene) Busy() bool {
	for _, st := range Stages() {
		if s.Artifact(st).State == Generating {
			return true
		}
	}
	return false
}

// CurrentBasis is the basis a video rendered now would have
func (s *Scene) CurrentBasis() Basis {
	return Basis{Image: s.Image.Revision, Audio: s.Audio.Revision}
}

// ZoomIn reports the zoom direction: odd scene numbers zoom in
func (s *Scene) ZoomIn() bool {
	return s.Number%2 == 1
}
