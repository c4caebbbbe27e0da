// Package audio post-processes synthesized narration WAV files.
package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// Clip is a fully decoded WAV file
type Clip struct {
	Samples [][2]float64
	Format  beep.Format
}

// Duration of the clip at its sample rate
func (c *Clip) Duration() time.Duration {
	return c.Format.SampleRate.D(len(c.Samples))
}

// Decode reads a whole WAV stream into memory
func Decode(r io.Reader) (*Clip, error) {
	streamer, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	defer streamer.Close()

	clip := &Clip{Format: format}
	if n := streamer.Len(); n > 0 {
		clip.Samples = make([][2]float64, 0, n)
	}

	buf := make([][2]float64, 4096)
	for {
		n, ok := streamer.Stream(buf)
		clip.Samples = append(clip.Samples, buf[:n]...)
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	clip.rescale()
	return clip, nil
}

// rescale maps signed PCM from the decoder's 2^n-1 divisor onto the
// encoder's 2^(n-1)-1 scale. Samples sit half a step past their integer
// value so encoding truncates back to the same integer.
func (c *Clip) rescale() {
	if c.Format.Precision != 2 && c.Format.Precision != 3 {
		return
	}
	bits := float64(c.Format.Precision * 8)
	decoded := math.Exp2(bits) - 1
	encoded := math.Exp2(bits-1) - 1
	for i := range c.Samples {
		for ch := range c.Samples[i] {
			k := math.Round(c.Samples[i][ch] * decoded)
			switch {
			case k > 0:
				k += 0.5
			case k < 0:
				k -= 0.5
			}
			c.Samples[i][ch] = math.Max(-1, math.Min(1, k/encoded))
		}
	}
}

// Load decodes the WAV file at path
func Load(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes the clip to path atomically, keeping the original file if
// anything fails
func (c *Clip) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".audio-*.wav")
	if err != nil {
		return fmt.Errorf("failed to create temp audio: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := wav.Encode(tmp, c.streamer(), c.Format); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace audio: %w", err)
	}
	return nil
}

// Bytes encodes the clip as a WAV document
func (c *Clip) Bytes() ([]byte, error) {
	var ws writeSeeker
	if err := wav.Encode(&ws, c.streamer(), c.Format); err != nil {
		return nil, fmt.Errorf("failed to encode wav: %w", err)
	}
	return ws.buf.Bytes(), nil
}

func (c *Clip) streamer() beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(c.Samples) {
			return 0, false
		}
		n := copy(samples, c.Samples[pos:])
		pos += n
		return n, true
	})
}

// Duration reads the length of a WAV file
func Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	streamer, format, err := wav.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("failed to decode wav: %w", err)
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}

// writeSeeker is an in-memory io.WriteSeeker for wav.Encode, which patches
// the header after writing the samples
type writeSeeker struct {
	buf bytes.Buffer
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > w.buf.Len() {
		w.buf.Write(make([]byte, end-w.buf.Len()))
	}
	copy(w.buf.Bytes()[w.pos:end], p)
	w.pos = end
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = w.pos
	case io.SeekEnd:
		base = w.buf.Len()
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	next := base + int(offset)
	if next < 0 {
		return 0, fmt.Errorf("negative position %d", next)
	}
	w.pos = next
	return int64(next), nil
}
