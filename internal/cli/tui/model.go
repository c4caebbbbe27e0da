// Package tui is a live terminal view of a run while it generates.
package tui

import (
	"fmt"
	"scenecast/internal/domain/run"
	"scenecast/internal/domain/scene"
	"scenecast/internal/pipeline"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Source is what the watcher reads the run from
type Source interface {
	Snapshot() run.Run
}

// Result is sent on the done channel when the run finishes
type Result struct {
	Path string
	Err  error
}

type eventMsg pipeline.Event

type doneMsg Result

// maxLog is how many recent events are kept on screen
const maxLog = 6

type Model struct {
	source Source
	events <-chan pipeline.Event
	done   <-chan Result

	run      run.Run
	log      []pipeline.Event
	result   *Result
	width    int
	progress progress.Model
	spinner  spinner.Model
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	subtle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cellStyle   = lipgloss.NewStyle().Width(12)
	numberStyle = lipgloss.NewStyle().Width(5).Align(lipgloss.Right).PaddingRight(1)
	nameStyle   = lipgloss.NewStyle().Width(36)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	quitHint    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	stateStyles = map[scene.State]lipgloss.Style{
		scene.Absent:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		scene.Generating: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		scene.Ready:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		scene.Failed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// NewModel watches source, refreshing on every event until done delivers
func NewModel(source Source, events <-chan pipeline.Event, done <-chan Result) Model {
	spinnerModel := spinner.New()
	spinnerModel.Spinner = spinner.Dot

	return Model{
		source:   source,
		events:   events,
		done:     done,
		run:      source.Snapshot(),
		progress: progress.New(progress.WithDefaultGradient()),
		spinner:  spinnerModel,
	}
}

func (model Model) Init() tea.Cmd {
	return tea.Batch(model.spinner.Tick, listenEventCmd(model.events), listenDoneCmd(model.done))
}

func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		model.spinner, cmd = model.spinner.Update(msg)
		return model, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return model, tea.Quit
		}
		return model, nil
	case eventMsg:
		model.log = append(model.log, pipeline.Event(msg))
		if len(model.log) > maxLog {
			model.log = model.log[len(model.log)-maxLog:]
		}
		model.run = model.source.Snapshot()
		return model, tea.Batch(model.progress.SetPercent(model.percent()), listenEventCmd(model.events))
	case doneMsg:
		result := Result(msg)
		model.result = &result
		model.run = model.source.Snapshot()
		return model, model.progress.SetPercent(model.percent())
	case progress.FrameMsg:
		progressModel, cmd := model.progress.Update(msg)
		model.progress = progressModel.(progress.Model)
		return model, cmd
	case tea.WindowSizeMsg:
		model.width = msg.Width
		model.progress.Width = msg.Width - 8
		return model, nil
	}
	return model, nil
}

func (model Model) percent() float64 {
	ready, total := model.run.Progress()
	if total == 0 {
		return 0
	}
	return float64(ready) / float64(total)
}

func (model Model) View() string {
	var b strings.Builder

	title := model.run.Title
	if title == "" {
		title = model.run.ID
	}
	b.WriteString(headerStyle.Render("scenecast · "+title) + "\n\n")

	b.WriteString(numberStyle.Render("#") + nameStyle.Render("file"))
	for _, st := range scene.Stages() {
		b.WriteString(cellStyle.Render(string(st)))
	}
	b.WriteString("\n")
	for i := range model.run.Scenes {
		b.WriteString(model.row(&model.run.Scenes[i]) + "\n")
	}

	ready, total := model.run.Progress()
	b.WriteString("\n" + model.progress.View() + "\n")
	b.WriteString(subtle.Render(fmt.Sprintf("%d/%d artifacts ready · final %s", ready, total, model.run.Final.State)) + "\n\n")

	for _, e := range model.log {
		b.WriteString(subtle.Render(describe(e)) + "\n")
	}

	switch {
	case model.result == nil:
		b.WriteString("\n" + model.spinner.View() + " generating\n")
	case model.result.Err != nil:
		b.WriteString("\n" + errorStyle.Render("✗ "+model.result.Err.Error()) + "\n")
	default:
		b.WriteString("\n" + doneStyle.Render("✓ "+model.result.Path) + "\n")
	}
	b.WriteString(quitHint.Render("q to quit") + "\n")
	return b.String()
}

func (model Model) row(s *scene.Scene) string {
	var b strings.Builder
	b.WriteString(numberStyle.Render(fmt.Sprintf("%d", s.Number)))
	b.WriteString(nameStyle.Render(truncate(s.Filename, 34)))
	for _, st := range scene.Stages() {
		a := s.Artifact(st)
		label := string(a.State)
		if a.State == scene.Generating {
			label = model.spinner.View() + " " + label
		}
		b.WriteString(cellStyle.Inherit(stateStyles[a.State]).Render(label))
	}
	return b.String()
}

func describe(e pipeline.Event) string {
	where := "final"
	if e.Scene > 0 {
		where = fmt.Sprintf("scene %d %s", e.Scene, e.Stage)
	}
	line := fmt.Sprintf("%s  %s → %s", e.At.Format("15:04:05"), where, e.State)
	if e.Message != "" {
		line += ": " + e.Message
	}
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func listenEventCmd(events <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(event)
	}
}

func listenDoneCmd(done <-chan Result) tea.Cmd {
	return func() tea.Msg {
		return doneMsg(<-done)
	}
}

// Result is the run outcome, nil while the run is still going
func (model Model) Result() *Result {
	return model.result
}
