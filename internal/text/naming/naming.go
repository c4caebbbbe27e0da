// Package naming derives the per-scene artifact file names.
package naming

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// FinalVideo is the merged output of a run
	FinalVideo = "FINAL_FULL_VIDEO.mp4"

	maxSummary = 80
	maxWords   = 6
	edgeWords  = 3
	edgeRunes  = 10
	ellipsis   = "..."
)

// Derive returns the image file name for a scene: S001_<summary>.png
func Derive(scene int, text string) string {
	summary := Summary(text)
	if summary == "" {
		return fmt.Sprintf("S%03d.png", scene)
	}
	return fmt.Sprintf("S%03d_%s.png", scene, summary)
}

// Audio is the synthesized narration of a scene
func Audio(scene int) string {
	return fmt.Sprintf("S%03d_audio.wav", scene)
}

// Video is the rendered zoom clip of a scene
func Video(scene int) string {
	return fmt.Sprintf("S%03d_video_zoom.mp4", scene)
}

// Summary shortens text into a filesystem-safe, human readable label
func Summary(text string) string {
	clean := Clean(text)
	words := strings.Fields(clean)

	var summary string
	switch {
	case len(words) == 0:
		return ""
	case len(words) == 1:
		// unsegmented scripts arrive here as one long token
		summary = headTail(words[0], edgeRunes)
	case len(words) <= maxWords:
		summary = strings.Join(words, " ")
	default:
		head := strings.Join(words[:edgeWords], " ")
		tail := strings.Join(words[len(words)-edgeWords:], " ")
		summary = head + ellipsis + tail
	}

	return truncate(summary, maxSummary)
}

// Clean removes characters that are illegal in file names on common
// filesystems and folds line breaks into spaces
func Clean(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			sb.WriteRune(' ')
		case strings.ContainsRune(`\/:*?"<>|`, r), unicode.IsControl(r):
		default:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}

func headTail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= 2*n {
		return s
	}
	return string(runes[:n]) + ellipsis + string(runes[len(runes)-n:])
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
