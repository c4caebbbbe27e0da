package studio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"scenecast/internal/bundle"
	"scenecast/internal/cli/scheme/colours"
	"scenecast/internal/cli/tui"
	"scenecast/internal/domain/run"
	"scenecast/internal/domain/scene"
	"scenecast/internal/failure"
	"scenecast/internal/narration/audio"
	"scenecast/internal/narration/tts"
	"scenecast/internal/pipeline"
	"scenecast/internal/server"
	"scenecast/internal/text/chunk"
	"scenecast/internal/text/naming"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func (s *Studio) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("🎬 scenecast")
	fmt.Println()
	colours.Info.Println("📚 Available commands:")
	fmt.Println("  • scenecast chunk <file>       - Preview how narration splits into scenes")
	fmt.Println("  • scenecast run <file>         - Generate every scene and the final video")
	fmt.Println("  • scenecast status             - Show the state of the current run")
	fmt.Println("  • scenecast scene <op> <n>     - Edit or regenerate one scene")
	fmt.Println("  • scenecast merge              - Merge the ready scene videos")
	fmt.Println("  • scenecast serve              - Serve the run over HTTP")
	fmt.Println()
	colours.Muted.Printf("Output directory: %s\n", s.cfg.Output.Dir)
}

// Chunk prints the scenes a narration would be split into without
// creating a run
func (s *Studio) Chunk(cmd *cobra.Command, args []string) error {
	budget, _ := cmd.Flags().GetInt("budget")
	if budget <= 0 {
		budget = s.Budget()
	}

	text, err := s.source.Load(s.ctx, args[0])
	if err != nil {
		return err
	}
	chunks := chunk.Split(text, budget)
	if len(chunks) == 0 {
		colours.Warning.Println("🔍 No sentences found.")
		return nil
	}

	fmt.Println()
	for i, c := range chunks {
		n := i + 1
		colours.Title.Printf("%3d. %s", n, naming.Derive(n, c))
		colours.Muted.Printf("  (%d chars)\n", len([]rune(c)))
		fmt.Printf("     %s\n", c)
	}
	fmt.Println()
	colours.Success.Printf("✨ %d scenes at %d characters per scene\n", len(chunks), budget)
	return nil
}

// Run generates everything for a new run (when a narration is given) or
// resumes the saved one
func (s *Studio) Run(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	useTUI, _ := cmd.Flags().GetBool("tui")

	r, err := s.openRun(args, title)
	if err != nil {
		return err
	}
	orch := s.Orchestrator(s.ctx, r)

	if useTUI {
		return s.runWithTUI(orch)
	}

	events, cancel := orch.Subscribe()
	defer cancel()
	go func() {
		for e := range events {
			printEvent(e)
		}
	}()

	colours.Info.Printf("🎬 Generating %d scenes...\n", len(r.Scenes))
	path, err := orch.RunAll(s.ctx)
	if err != nil {
		return err
	}
	colours.Success.Printf("✅ Final video: %s\n", path)
	return nil
}

func (s *Studio) runWithTUI(orch *pipeline.Orchestrator) error {
	events, cancel := orch.Subscribe()
	defer cancel()

	done := make(chan tui.Result, 1)
	go func() {
		path, err := orch.RunAll(s.ctx)
		done <- tui.Result{Path: path, Err: err}
	}()

	final, err := tea.NewProgram(tui.NewModel(orch, events, done), tea.WithAltScreen()).Run()
	if err != nil {
		s.Cancel()
		return fmt.Errorf("failed to run watcher: %w", err)
	}

	result := final.(tui.Model).Result()
	if result == nil {
		s.Cancel()
		orch.Wait()
		colours.Warning.Println("⏸️  Stopped. Progress is saved, resume with: scenecast run")
		return nil
	}
	if result.Err != nil {
		return result.Err
	}
	colours.Success.Printf("✅ Final video: %s\n", result.Path)
	return nil
}

func (s *Studio) openRun(args []string, title string) (*run.Run, error) {
	if len(args) > 0 {
		return s.NewRun(s.ctx, args[0], title)
	}
	return s.LoadRun()
}

// Status prints every scene's artifacts
func (s *Studio) Status(cmd *cobra.Command, args []string) error {
	r, err := s.LoadRun()
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Println()
	colours.Title.Printf("🎬 %s\n", displayTitle(r))
	colours.Muted.Printf("   run %s · %d scenes · budget %d · %s\n", r.ID, len(r.Scenes), r.Budget, r.Directives.Genre.Label())
	if info := s.store.Info(); info["exists"] == true {
		if modified, ok := info["last_modified"].(time.Time); ok {
			colours.Muted.Printf("   saved %s · %s\n", modified.Format("2006-01-02 15:04:05"), info["path"])
		}
	}
	fmt.Println()

	for i := range r.Scenes {
		sc := &r.Scenes[i]
		fmt.Printf("  %3d. %-40s", sc.Number, sc.Filename)
		for _, st := range scene.Stages() {
			a := sc.Artifact(st)
			fmt.Printf(" %s:%s", st, colours.ForState(a.State).Sprintf("%-10s", a.State))
		}
		fmt.Println()
		for _, st := range scene.Stages() {
			if a := sc.Artifact(st); a.State == scene.Failed {
				colours.Error.Printf("       %s failed (%s): %s\n", st, a.Kind, a.Error)
			}
		}
	}

	ready, total := r.Progress()
	fmt.Println()
	fmt.Printf("  %d/%d artifacts ready · final %s", ready, total, colours.ForState(r.Final.State).Sprint(r.Final.State))
	if r.Final.Path != "" {
		fmt.Printf(" %s", r.Final.Path)
	}
	fmt.Println()
	return nil
}

// EditScene replaces the narration of one scene
func (s *Studio) EditScene(cmd *cobra.Command, args []string) error {
	n, err := sceneNumber(args[0])
	if err != nil {
		return err
	}

	text := strings.Join(args[1:], " ")
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		if text, err = s.source.Load(s.ctx, file); err != nil {
			return err
		}
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no narration given, pass it as arguments or with --file")
	}

	r, err := s.LoadRun()
	if err != nil {
		return err
	}
	if err := s.Orchestrator(s.ctx, r).EditScript(n, text); err != nil {
		return err
	}
	colours.Success.Printf("✏️  Scene %d updated, its image, audio and video will be regenerated\n", n)
	return nil
}

// ResetScene discards one stage of a scene together with everything built
// from it
func (s *Studio) ResetScene(cmd *cobra.Command, args []string) error {
	n, err := sceneNumber(args[0])
	if err != nil {
		return err
	}
	stage, err := scene.ParseStage(args[1])
	if err != nil {
		return err
	}

	r, err := s.LoadRun()
	if err != nil {
		return err
	}
	if err := s.Orchestrator(s.ctx, r).Reset(n, stage); err != nil {
		return err
	}
	colours.Success.Printf("🧹 Scene %d %s cleared\n", n, stage)
	return nil
}

// Clean removes the saved run, and the generated files with --files
func (s *Studio) Clean(cmd *cobra.Command, args []string) error {
	files, _ := cmd.Flags().GetBool("files")

	if !s.store.Exists() && !files {
		colours.Warning.Println("🔍 Nothing to clean.")
		return nil
	}
	if err := s.store.Clear(); err != nil {
		return err
	}
	if files {
		for _, dir := range s.bundleDirs() {
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("failed to remove %s: %w", dir, err)
			}
		}
	}
	colours.Success.Printf("🧹 Cleaned %s\n", s.cfg.Output.Dir)
	return nil
}

// Generate returns the handler that regenerates stage for one scene, or for
// every scene when the argument is "all"
func (s *Studio) Generate(stage scene.Stage) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		r, err := s.LoadRun()
		if err != nil {
			return err
		}
		orch := s.Orchestrator(s.ctx, r)

		events, cancel := orch.Subscribe()
		defer cancel()
		go func() {
			for e := range events {
				printEvent(e)
			}
		}()

		if args[0] == "all" {
			count, err := orch.SubmitAll(s.ctx, stage)
			orch.Wait()
			colours.Info.Printf("🎯 %d scenes submitted\n", count)
			return err
		}

		n, err := sceneNumber(args[0])
		if err != nil {
			return err
		}
		if err := orch.Submit(s.ctx, n, stage); err != nil {
			return err
		}
		orch.Wait()

		sc, err := orch.Scene(n)
		if err != nil {
			return err
		}
		a := sc.Artifact(stage)
		if a.State != scene.Ready {
			return fmt.Errorf("scene %d %s %s: %s", n, stage, a.State, a.Error)
		}
		colours.Success.Printf("✅ %s\n", a.Path)
		return nil
	}
}

// Merge joins the ready scene videos
func (s *Studio) Merge(cmd *cobra.Command, args []string) error {
	r, err := s.LoadRun()
	if err != nil {
		return err
	}
	path, err := s.Orchestrator(s.ctx, r).Merge(s.ctx)
	if err != nil {
		return err
	}
	colours.Success.Printf("✅ Final video: %s\n", path)
	return nil
}

// Bundle zips the generated files of one stage
func (s *Studio) Bundle(cmd *cobra.Command, args []string) error {
	stage, _ := cmd.Flags().GetString("stage")
	dirs := s.bundleDirs()
	dir, ok := dirs[stage]
	if !ok {
		return fmt.Errorf("unknown stage %q, use images, audio or video", stage)
	}

	out := filepath.Join(s.cfg.Output.Dir, stage+".zip")
	if len(args) > 0 {
		out = args[0]
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	count, err := bundle.WriteZip(f, dir)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return err
	}
	colours.Success.Printf("📦 %d files written to %s\n", count, out)
	return nil
}

func (s *Studio) bundleDirs() map[string]string {
	return map[string]string{
		"images": s.cfg.Output.Images(),
		"audio":  s.cfg.Output.Audio(),
		"video":  s.cfg.Output.Video(),
	}
}

// Voices lists the voices of the configured speech engine
func (s *Studio) Voices(cmd *cobra.Command, args []string) error {
	refresh, _ := cmd.Flags().GetBool("refresh")
	if engines, _ := cmd.Flags().GetBool("engines"); engines {
		s.printEngines()
		return nil
	}

	catalog, err := s.VoiceCatalog(s.ctx)
	if err != nil {
		return err
	}
	load := catalog.Voices
	if refresh {
		load = catalog.Refresh
	}
	voices, err := load(s.ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	colours.Title.Printf("🎙️  %d voices\n", len(voices))
	for _, v := range voices {
		fmt.Printf("  • %s", v.Label())
		if len(v.Languages) > 0 {
			colours.Muted.Printf("  %s", strings.Join(v.Languages, ", "))
		}
		if v.Gender != "" {
			colours.Muted.Printf("  %s", v.Gender)
		}
		fmt.Println()
	}
	return nil
}

func (s *Studio) printEngines() {
	cfg := s.ttsConfig()
	current := tts.Resolve(cfg)

	fmt.Println()
	colours.Title.Println("🎙️  Speech engines")
	for _, engine := range tts.AvailableEngines(cfg) {
		if engine == current {
			colours.Success.Printf("  • %s (selected)\n", engine)
			continue
		}
		fmt.Printf("  • %s\n", engine)
	}
}

// Preview plays a scene's narration
func (s *Studio) Preview(cmd *cobra.Command, args []string) error {
	n, err := sceneNumber(args[0])
	if err != nil {
		return err
	}
	r, err := s.LoadRun()
	if err != nil {
		return err
	}
	sc, err := r.Scene(n)
	if err != nil {
		return err
	}
	if !sc.Audio.IsReady() {
		return failure.WithScene(failure.Newf(failure.NotReady, "preview", "audio is %s", sc.Audio.State), n)
	}

	colours.Info.Printf("🎧 %s\n", sc.Script)
	fmt.Println("💡 Press Ctrl+C to stop anytime")
	return audio.Play(s.ctx, sc.Audio.Path)
}

// Serve exposes the run over HTTP until interrupted
func (s *Studio) Serve(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = s.cfg.Server.Addr
	}
	title, _ := cmd.Flags().GetString("title")

	r, err := s.openRun(args, title)
	if err != nil {
		return err
	}
	orch := s.Orchestrator(s.ctx, r)
	defer orch.Wait()

	colours.Info.Printf("🌐 Serving %s on %s\n", displayTitle(r), addr)
	return server.New(s.ctx, orch, s.bundleDirs()).Run(addr)
}

func printEvent(e pipeline.Event) {
	where := "final video"
	if e.Scene > 0 {
		where = fmt.Sprintf("scene %d %s", e.Scene, e.Stage)
	}
	fmt.Printf("  %-18s %s", where, colours.ForState(e.State).Sprint(e.State))
	if e.Message != "" {
		colours.Muted.Printf("  %s", e.Message)
	}
	fmt.Println()
}

func sceneNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid scene number %q", arg)
	}
	return n, nil
}

func displayTitle(r *run.Run) string {
	if r.Title != "" {
		return r.Title
	}
	return "untitled run"
}
