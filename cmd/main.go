package main

import (
	"fmt"
	"os"
	"os/signal"
	"scenecast/internal/cli/scheme/colours"
	"scenecast/internal/config"
	"scenecast/internal/domain/scene"
	"scenecast/internal/narration/studio"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
	if err := config.ConfigureLogging(cfg.Log); err != nil {
		logrus.WithError(err).Warn("Invalid logging config, using defaults")
	}

	app := studio.NewStudio(cfg)
	defer app.Close()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n" + colours.Warning.Sprint("👋 Stopping, finished artifacts are kept"))
		app.Cancel()
		<-sigChan
		os.Exit(130)
	}()

	rootCmd := &cobra.Command{
		Use:   "scenecast",
		Short: "🎬 Turn narration into a narrated, illustrated video",
		Long: `
scenecast splits a narration into scenes, illustrates and voices each one,
renders every scene as a slowly zooming clip and merges them into a video.
Scenes can be edited and regenerated one at a time.
		`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	rootCmd.PersistentFlags().StringP("output", "o", cfg.Output.Dir, "Output directory")
	rootCmd.PersistentFlags().IntP("workers", "w", cfg.Workers, "Concurrent generation tasks (1-10)")
	rootCmd.PersistentFlags().String("log-level", cfg.Log.Level, "Log level")
	viper.BindPFlag("output.dir", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Flags are parsed after the app is built, so reload once they are known
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.ConfigureLogging(cfg.Log); err != nil {
			return err
		}
		app.Reconfigure(cfg)
		return nil
	}

	chunkCmd := &cobra.Command{
		Use:   "chunk <narration>",
		Short: "✂️  Preview how narration splits into scenes",
		Long:  "Split a narration file, URL or - (stdin) into scenes and show their file names",
		Args:  cobra.ExactArgs(1),
		RunE:  app.Chunk,
	}
	chunkCmd.Flags().IntP("budget", "b", 0, "Characters per scene (defaults to chunk.seconds × chunk.chars_per_second)")

	runCmd := &cobra.Command{
		Use:   "run [narration]",
		Short: "🎬 Generate every scene and the final video",
		Long:  "Start a new run from a narration, or resume the saved run when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  app.Run,
	}
	runCmd.Flags().StringP("title", "t", "", "Run title")
	runCmd.Flags().Bool("tui", false, "Watch progress in a live terminal view")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "📋 Show the state of every scene",
		Args:  cobra.NoArgs,
		RunE:  app.Status,
	}
	statusCmd.Flags().Bool("json", false, "Print the run as JSON")

	sceneCmd := &cobra.Command{
		Use:   "scene",
		Short: "🎞️  Edit or regenerate a single scene",
	}
	editCmd := &cobra.Command{
		Use:   "edit <n> [narration...]",
		Short: "✏️  Replace a scene's narration",
		Args:  cobra.MinimumNArgs(1),
		RunE:  app.EditScene,
	}
	editCmd.Flags().StringP("file", "f", "", "Read the narration from a file")
	resetCmd := &cobra.Command{
		Use:   "reset <n> <image|audio|video>",
		Short: "🧹 Discard a generated stage and what depends on it",
		Args:  cobra.ExactArgs(2),
		RunE:  app.ResetScene,
	}
	sceneCmd.AddCommand(editCmd, resetCmd)
	for _, stage := range scene.Stages() {
		sceneCmd.AddCommand(&cobra.Command{
			Use:   fmt.Sprintf("%s <n|all>", stage),
			Short: fmt.Sprintf("🔁 Regenerate the %s of a scene", stage),
			Args:  cobra.ExactArgs(1),
			RunE:  app.Generate(stage),
		})
	}

	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "🧩 Merge the ready scene videos",
		Args:  cobra.NoArgs,
		RunE:  app.Merge,
	}

	bundleCmd := &cobra.Command{
		Use:   "bundle [out.zip]",
		Short: "📦 Zip the generated files of one stage",
		Args:  cobra.MaximumNArgs(1),
		RunE:  app.Bundle,
	}
	bundleCmd.Flags().StringP("stage", "s", "images", "images, audio or video")

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎙️  List voices of the speech engine",
		Args:  cobra.NoArgs,
		RunE:  app.Voices,
	}
	voicesCmd.Flags().Bool("refresh", false, "Bypass the voice cache")
	voicesCmd.Flags().Bool("engines", false, "List the speech engines usable here instead")

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "🧹 Forget the saved run",
		Args:  cobra.NoArgs,
		RunE:  app.Clean,
	}
	cleanCmd.Flags().Bool("files", false, "Also delete generated images, audio and video")

	previewCmd := &cobra.Command{
		Use:   "preview <n>",
		Short: "🎧 Play a scene's narration",
		Args:  cobra.ExactArgs(1),
		RunE:  app.Preview,
	}

	serveCmd := &cobra.Command{
		Use:   "serve [narration]",
		Short: "🌐 Serve the run over HTTP",
		Long:  "Expose the run as a JSON API with a websocket event stream",
		Args:  cobra.MaximumNArgs(1),
		RunE:  app.Serve,
	}
	serveCmd.Flags().String("addr", "", "Listen address (defaults to server.addr)")
	serveCmd.Flags().StringP("title", "t", "", "Run title when starting from a narration")

	rootCmd.AddCommand(chunkCmd, runCmd, statusCmd, sceneCmd, mergeCmd, bundleCmd, voicesCmd, previewCmd, serveCmd, cleanCmd)

	app.AddScriptCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		app.Close()
		os.Exit(1)
	}
}

// Configuration management with Viper
func init() {
	config.Init()
}
