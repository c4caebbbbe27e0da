package colours

import (
	"scenecast/internal/domain/scene"

	"github.com/fatih/color"
)

// Color scheme for the CLI
var (
	Title   = color.New(color.FgCyan, color.Bold)
	Prompt  = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Success = color.New(color.FgGreen)
	Info    = color.New(color.FgBlue)
	Warning = color.New(color.FgYellow)
	Muted   = color.New(color.FgHiBlack)
)

// Artifact states
var (
	Absent     = color.New(color.FgHiBlack)
	Generating = color.New(color.FgYellow)
	Ready      = color.New(color.FgGreen)
	Failed     = color.New(color.FgRed)
)

// ForState picks the colour an artifact state is printed in
func ForState(s scene.State) *color.Color {
	switch s {
	case scene.Generating:
		return Generating
	case scene.Ready:
		return Ready
	case scene.Failed:
		return Failed
	default:
		return Absent
	}
}
