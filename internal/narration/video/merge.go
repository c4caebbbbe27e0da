package video

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"scenecast/internal/failure"
	"scenecast/internal/proc"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Merger concatenates scene clips in order
type Merger struct {
	FFmpeg   string
	FFprobe  string
	Encoding Encoding
}

// NewMerger resolves ffmpeg and ffprobe on PATH. Empty names use the
// defaults.
func NewMerger(ffmpeg, ffprobe string, enc Encoding) (*Merger, error) {
	ffmpegPath, err := proc.Find(orDefault(ffmpeg, "ffmpeg"))
	if err != nil {
		return nil, err
	}
	ffprobePath, err := proc.Find(orDefault(ffprobe, "ffprobe"))
	if err != nil {
		return nil, err
	}
	return &Merger{FFmpeg: ffmpegPath, FFprobe: ffprobePath, Encoding: enc}, nil
}

func orDefault(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// Size of a video stream
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Merge writes the clips that exist, in the given order, to out. Clips of
// different sizes are letterboxed into the largest width and height.
func (m *Merger) Merge(ctx context.Context, paths []string, out string) (string, error) {
	var (
		clips []string
		frame Size
	)
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			logrus.WithField("file", path).Warn("Skipping missing clip")
			continue
		}
		size, err := m.Probe(ctx, path)
		if err != nil {
			logrus.WithError(err).WithField("file", path).Warn("Skipping unreadable clip")
			continue
		}
		clips = append(clips, path)
		frame.Width = max(frame.Width, size.Width)
		frame.Height = max(frame.Height, size.Height)
	}
	if len(clips) == 0 {
		return "", failure.Newf(failure.NothingToMerge, "video.merge", "no clips to merge")
	}
	frame.Width &^= 1
	frame.Height &^= 1

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", fmt.Errorf("failed to create video directory: %w", err)
	}
	tmp := tempName(out)
	defer os.Remove(tmp)

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, clip := range clips {
		args = append(args, "-i", clip)
	}
	args = append(args,
		"-filter_complex", concatFilter(len(clips), frame, m.Encoding.FPS),
		"-map", "[v]", "-map", "[a]",
	)
	args = append(args, m.Encoding.args()...)
	args = append(args, "-f", "mp4", tmp)

	if err := proc.Run(proc.Command(ctx, m.FFmpeg, args...)); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", failure.New(failure.Transient, "video.merge", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		return "", fmt.Errorf("failed to save merged video: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"file":  out,
		"clips": len(clips),
		"size":  fmt.Sprintf("%dx%d", frame.Width, frame.Height),
	}).Info("Final video merged")
	return out, nil
}

// concatFilter fits every clip into the frame, then joins video and audio
func concatFilter(n int, frame Size, fps int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d[v%d];",
			i, frame.Width, frame.Height, frame.Width, frame.Height, fps, i)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[v%d][%d:a]", i, i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=1[v][a]", n)
	return b.String()
}

// Probe reads the size of the first video stream
func (m *Merger) Probe(ctx context.Context, path string) (Size, error) {
	out, err := proc.Command(ctx, m.FFprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		return Size{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Streams []Size `json:"streams"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return Size{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 || probe.Streams[0].Width == 0 {
		return Size{}, fmt.Errorf("no video stream in %s", path)
	}
	return probe.Streams[0], nil
}

// Duration asks ffprobe for the container duration
func (m *Merger) Duration(ctx context.Context, path string) (float64, error) {
	out, err := proc.Command(ctx, m.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}
