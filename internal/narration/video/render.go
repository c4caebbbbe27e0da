package video

import (
	"bufio"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"scenecast/internal/failure"
	"scenecast/internal/narration/audio"
	"scenecast/internal/proc"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

// Encoding holds the output quality settings shared by render and merge
type Encoding struct {
	FPS          int
	Bitrate      string
	AudioBitrate string
	Preset       string
}

// DefaultEncoding is 30fps H.264 at 8Mbps with 192k AAC
func DefaultEncoding() Encoding {
	return Encoding{
		FPS:          30,
		Bitrate:      "8000k",
		AudioBitrate: "192k",
		Preset:       "slow",
	}
}

func (e Encoding) args() []string {
	return []string{
		"-c:v", "libx264",
		"-b:v", e.Bitrate,
		"-preset", e.Preset,
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", e.AudioBitrate,
		"-movflags", "+faststart",
	}
}

// Renderer turns a still image and its narration into a zooming clip
type Renderer struct {
	FFmpeg   string
	Encoding Encoding
	MaxCrop  float64
	Duration func(path string) (time.Duration, error)
}

// NewRenderer resolves ffmpeg on PATH. An empty name means "ffmpeg".
func NewRenderer(ffmpeg string, enc Encoding) (*Renderer, error) {
	path, err := proc.Find(orDefault(ffmpeg, "ffmpeg"))
	if err != nil {
		return nil, err
	}
	return &Renderer{
		FFmpeg:   path,
		Encoding: enc,
		MaxCrop:  DefaultMaxCrop,
		Duration: audio.Duration,
	}, nil
}

// Render writes out as an mp4 as long as the audio. The file only appears
// once ffmpeg has finished.
func (r *Renderer) Render(ctx context.Context, imagePath, audioPath, out string, zoomIn bool) (string, error) {
	src, err := loadImage(imagePath)
	if err != nil {
		return "", failure.New(failure.Permanent, "video.render", err)
	}
	src = evenBounds(src)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w < 2 || h < 2 {
		return "", failure.Newf(failure.Permanent, "video.render", "image %s is too small", imagePath)
	}

	length, err := r.Duration(audioPath)
	if err != nil {
		return "", failure.New(failure.Permanent, "video.render", err)
	}
	if length <= 0 {
		return "", failure.Newf(failure.Permanent, "video.render", "audio %s is empty", audioPath)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", fmt.Errorf("failed to create video directory: %w", err)
	}
	tmp := tempName(out)
	defer os.Remove(tmp)

	seconds := length.Seconds()
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", strconv.Itoa(r.Encoding.FPS),
		"-i", "pipe:0",
		"-i", audioPath,
		"-map", "0:v", "-map", "1:a",
	}
	args = append(args, r.Encoding.args()...)
	args = append(args, "-t", strconv.FormatFloat(seconds, 'f', 3, 64), "-f", "mp4", tmp)

	cmd := proc.Command(ctx, r.FFmpeg, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open ffmpeg input: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- proc.Run(cmd)
	}()

	zoom := Zoom{MaxCrop: r.MaxCrop, In: zoomIn}
	frames := int(math.Ceil(seconds * float64(r.Encoding.FPS)))
	writeErr := writeFrames(stdin, zoom, src, frames, r.Encoding.FPS, seconds)
	stdin.Close()

	if err := <-done; err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", failure.New(failure.Transient, "video.render", err)
	}
	if writeErr != nil {
		return "", failure.New(failure.Transient, "video.render", writeErr)
	}
	if err := os.Rename(tmp, out); err != nil {
		return "", fmt.Errorf("failed to save video: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"file":     out,
		"frames":   frames,
		"duration": length.String(),
		"zoom_in":  zoomIn,
	}).Info("Scene video rendered")
	return out, nil
}

func writeFrames(w io.Writer, zoom Zoom, src image.Image, frames, fps int, seconds float64) error {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	rgb := make([]byte, b.Dx()*b.Dy()*3)
	bw := bufio.NewWriterSize(w, len(rgb))

	for i := 0; i < frames; i++ {
		zoom.RenderFrame(dst, src, float64(i)/float64(fps), seconds)
		toRGB(rgb, dst)
		if _, err := bw.Write(rgb); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", i, err)
		}
	}
	return bw.Flush()
}

func toRGB(out []byte, img *image.RGBA) {
	j := 0
	for i := 0; i < len(img.Pix); i += 4 {
		out[j] = img.Pix[i]
		out[j+1] = img.Pix[i+1]
		out[j+2] = img.Pix[i+2]
		j += 3
	}
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// tempName is hidden and ends in .part so a crash never leaves a file that
// looks finished
func tempName(out string) string {
	return filepath.Join(filepath.Dir(out), "."+filepath.Base(out)+".part")
}
