// Package video renders per-scene Ken Burns clips and concatenates them
// into the final film with ffmpeg.
package video

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// DefaultMaxCrop is the tightest crop, as a fraction of the frame
const DefaultMaxCrop = 0.85

// Zoom is a centered crop that shrinks (zoom in) or grows (zoom out)
// linearly over the clip
type Zoom struct {
	MaxCrop float64
	In      bool
}

// Rect is a crop window in source pixels
type Rect struct {
	X, Y, W, H float64
}

// RatioAt is the crop size at time t, between MaxCrop and 1
func (z Zoom) RatioAt(t, duration float64) float64 {
	progress := 0.0
	if duration > 0 {
		progress = t / duration
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	if z.In {
		return 1 - (1-z.MaxCrop)*progress
	}
	return z.MaxCrop + (1-z.MaxCrop)*progress
}

// CropAt is the centered crop window of a w×h frame at time t
func (z Zoom) CropAt(t, duration float64, w, h int) Rect {
	ratio := z.RatioAt(t, duration)
	cw, ch := float64(w)*ratio, float64(h)*ratio
	return Rect{
		X: (float64(w) - cw) / 2,
		Y: (float64(h) - ch) / 2,
		W: cw,
		H: ch,
	}
}

// RenderFrame scales the crop of src at time t up to fill dst
func (z Zoom) RenderFrame(dst *image.RGBA, src image.Image, t, duration float64) {
	b := src.Bounds()
	crop := z.CropAt(t, duration, b.Dx(), b.Dy())
	sx := float64(dst.Bounds().Dx()) / crop.W
	sy := float64(dst.Bounds().Dy()) / crop.H

	// maps source coordinates onto dst
	s2d := f64.Aff3{
		sx, 0, -(crop.X + float64(b.Min.X)) * sx,
		0, sy, -(crop.Y + float64(b.Min.Y)) * sy,
	}
	draw.BiLinear.Transform(dst, s2d, src, b, draw.Src, nil)
}

// evenBounds trims one pixel from odd dimensions, which yuv420p rejects
func evenBounds(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx()&^1, b.Dy()&^1
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
