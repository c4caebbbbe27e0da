package studio

import (
	"fmt"
	"os"
	"scenecast/internal/cli/scheme/colours"
	"scenecast/internal/narration/script"

	"github.com/spf13/cobra"
)

// AddScriptCommands registers the script drafting commands
func (s *Studio) AddScriptCommands(rootCmd *cobra.Command) {
	scriptCmd := &cobra.Command{
		Use:   "script",
		Short: "📝 Draft narration with the text model",
		Long:  "Outline a transcript, write its chapters and suggest titles",
	}

	structureCmd := &cobra.Command{
		Use:   "structure <transcript>",
		Short: "🧭 Outline a transcript into intro, chapters and epilogue",
		Args:  cobra.ExactArgs(1),
		RunE:  s.ScriptStructure,
	}
	structureCmd.Flags().StringP("title", "t", "", "Title used when the outline has none")
	structureCmd.Flags().StringP("out", "o", "", "Write the outline to a file")

	sectionsCmd := &cobra.Command{
		Use:   "sections <outline>",
		Short: "✍️  Write every chapter of an outline",
		Args:  cobra.ExactArgs(1),
		RunE:  s.ScriptSections,
	}
	sectionsCmd.Flags().StringP("length", "l", "medium", "Chapter length: short, medium or long")
	sectionsCmd.Flags().StringP("instruction", "i", "", "Extra direction for tone and style")
	sectionsCmd.Flags().IntP("workers", "w", 0, "Chapters written at once (defaults to workers)")
	sectionsCmd.Flags().StringP("out", "o", "", "Write the narration to a file")

	titlesCmd := &cobra.Command{
		Use:   "titles",
		Short: "💡 Suggest video titles",
		RunE:  s.ScriptTitles,
	}
	titlesCmd.Flags().String("topic", "", "Topic or working title")
	titlesCmd.Flags().String("outline", "", "Outline or script file to base titles on")

	scriptCmd.AddCommand(structureCmd, sectionsCmd, titlesCmd)
	rootCmd.AddCommand(scriptCmd)
}

func (s *Studio) ScriptStructure(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	out, _ := cmd.Flags().GetString("out")

	transcript, err := s.source.Load(s.ctx, args[0])
	if err != nil {
		return err
	}
	gen, err := s.TextGenerator(s.ctx)
	if err != nil {
		return err
	}

	colours.Info.Println("🧭 Outlining transcript...")
	outline, err := script.Structure(s.ctx, gen, transcript, title)
	if err != nil {
		return err
	}

	colours.Title.Printf("🎬 %s\n", outline.Title)
	for _, ch := range script.ChapterTitles(outline.Text) {
		fmt.Printf("  • %s\n", ch)
	}
	return emit(out, outline.Text)
}

func (s *Studio) ScriptSections(cmd *cobra.Command, args []string) error {
	lengthName, _ := cmd.Flags().GetString("length")
	instruction, _ := cmd.Flags().GetString("instruction")
	workers, _ := cmd.Flags().GetInt("workers")
	out, _ := cmd.Flags().GetString("out")

	length, err := script.ParseLength(lengthName)
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = s.cfg.Workers
	}

	outline, err := s.source.Load(s.ctx, args[0])
	if err != nil {
		return err
	}
	gen, err := s.TextGenerator(s.ctx)
	if err != nil {
		return err
	}

	titles := script.ChapterTitles(outline)
	colours.Info.Printf("✍️  Writing %d sections (%s)...\n", len(titles), length)
	sections := script.GenerateSections(s.ctx, gen, outline, titles, length, instruction, workers)

	failed := 0
	for _, sec := range sections {
		if sec.Err != nil {
			failed++
			colours.Error.Printf("  ✗ %s: %v\n", sec.Title, sec.Err)
			continue
		}
		colours.Success.Printf("  ✓ %s", sec.Title)
		colours.Muted.Printf(" (%d chars)\n", len([]rune(sec.Text)))
	}
	if failed == len(sections) {
		return fmt.Errorf("no section could be written")
	}
	return emit(out, script.Join(sections))
}

func (s *Studio) ScriptTitles(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	outlineFile, _ := cmd.Flags().GetString("outline")

	var outline string
	if outlineFile != "" {
		text, err := s.source.Load(s.ctx, outlineFile)
		if err != nil {
			return err
		}
		outline = text
	}

	gen, err := s.TextGenerator(s.ctx)
	if err != nil {
		return err
	}
	titles, err := script.SuggestTitles(s.ctx, gen, topic, outline)
	if err != nil {
		return err
	}

	fmt.Println()
	colours.Title.Println("💡 Title ideas")
	for i, t := range titles {
		fmt.Printf("  %d. %s\n", i+1, t)
	}
	return nil
}

// emit writes text to path, or to stdout when path is empty
func emit(path, text string) error {
	if path == "" {
		fmt.Println()
		fmt.Println(text)
		return nil
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	colours.Success.Printf("💾 Saved to %s\n", path)
	return nil
}
