package audio

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// MinFadeLength is the shortest clip that gets a fade-out
const MinFadeLength = 100 * time.Millisecond

// FadeOut applies a linear fade over the last d of the clip. Clips shorter
// than MinFadeLength are left alone.
func (c *Clip) FadeOut(d time.Duration) bool {
	if d <= 0 || c.Duration() <= MinFadeLength {
		return false
	}
	n := c.Format.SampleRate.N(d)
	if n > len(c.Samples) {
		n = len(c.Samples)
	}
	start := len(c.Samples) - n
	for i := 0; i < n; i++ {
		gain := 1 - float64(i+1)/float64(n)
		c.Samples[start+i][0] *= gain
		c.Samples[start+i][1] *= gain
	}
	return true
}

// FadeOut rewrites the WAV at path with a tail fade
func FadeOut(path string, d time.Duration) error {
	clip, err := Load(path)
	if err != nil {
		return err
	}
	if !clip.FadeOut(d) {
		return nil
	}
	return clip.Save(path)
}

// Params configure silence detection
type Params struct {
	Max        time.Duration // longest silence kept
	MinSilence time.Duration // shortest run counted as silence
	Threshold  float64       // dBFS below which a frame is silent
}

// DefaultParams cap pauses at 300ms
func DefaultParams() Params {
	return Params{
		Max:        300 * time.Millisecond,
		MinSilence: 100 * time.Millisecond,
		Threshold:  -40,
	}
}

// Interval is a detected silence, in samples
type Interval struct {
	Start, End int
}

// Report describes one compaction pass
type Report struct {
	Intervals int
	Trimmed   int
	Before    time.Duration
	After     time.Duration
}

const frame = time.Millisecond

// Silences finds runs of silent 1ms frames at least MinSilence long
func (c *Clip) Silences(p Params) []Interval {
	frameLen := c.Format.SampleRate.N(frame)
	if frameLen <= 0 {
		return nil
	}
	minFrames := int(p.MinSilence / frame)
	if minFrames < 1 {
		minFrames = 1
	}

	var (
		out   []Interval
		start = -1
	)
	frames := len(c.Samples) / frameLen
	for f := 0; f <= frames; f++ {
		silent := f < frames && c.frameDB(f*frameLen, frameLen) < p.Threshold
		if silent {
			if start < 0 {
				start = f
			}
			continue
		}
		if start >= 0 && f-start >= minFrames {
			out = append(out, Interval{Start: start * frameLen, End: f * frameLen})
		}
		start = -1
	}
	return out
}

func (c *Clip) frameDB(offset, n int) float64 {
	var sum float64
	for _, s := range c.Samples[offset : offset+n] {
		sum += s[0]*s[0] + s[1]*s[1]
	}
	rms := math.Sqrt(sum / float64(2*n))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// Compact truncates every silence longer than p.Max to its first p.Max. It
// reports whether the clip changed.
func (c *Clip) Compact(p Params) (Report, bool) {
	report := Report{Before: c.Duration()}
	intervals := c.Silences(p)
	report.Intervals = len(intervals)

	frameLen := c.Format.SampleRate.N(frame)
	keep := int(p.Max/frame) * frameLen

	var out [][2]float64
	cursor := 0
	for _, iv := range intervals {
		if iv.End-iv.Start <= keep {
			continue
		}
		report.Trimmed++
		out = append(out, c.Samples[cursor:iv.Start+keep]...)
		cursor = iv.End
	}
	if report.Trimmed == 0 {
		report.After = report.Before
		return report, false
	}
	out = append(out, c.Samples[cursor:]...)
	c.Samples = out
	report.After = c.Duration()
	return report, true
}

// CompactSilence rewrites the WAV at path with long pauses shortened. When
// nothing exceeds the cap the file is not touched, so a second pass is a
// no-op. On error the original file is kept.
func CompactSilence(path string, p Params) (Report, error) {
	clip, err := Load(path)
	if err != nil {
		return Report{}, err
	}
	report, changed := clip.Compact(p)
	if !changed {
		return report, nil
	}
	if err := clip.Save(path); err != nil {
		return report, err
	}

	logrus.WithFields(logrus.Fields{
		"file":    path,
		"trimmed": report.Trimmed,
		"before":  report.Before.String(),
		"after":   report.After.String(),
	}).Debug("Compacted silence")
	return report, nil
}
