// Package image generates and stores one illustration per scene.
package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"scenecast/internal/llm"
	"scenecast/internal/retry"
	"time"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

// DefaultPolicy is the backoff used for image generation
func DefaultPolicy() *retry.Policy {
	return &retry.Policy{
		Name:           "image.generate",
		MaxAttempts:    10,
		BaseDelay:      5 * time.Second,
		EmptyDelay:     2 * time.Second,
		RateLimitDelay: 30 * time.Second,
		Jitter:         3 * time.Second,
	}
}

// Generator wraps a Service with the retry policy and persists results as
// PNG. It holds no per-call state and may be used by many workers at once.
type Generator struct {
	service Service
	policy  *retry.Policy
}

// NewGenerator creates a generator. A nil policy uses DefaultPolicy.
func NewGenerator(service Service, policy *retry.Policy) *Generator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Generator{service: service, policy: policy}
}

// Generate produces one image for prompt and writes it to path, replacing
// any previous file. On exhaustion the error is failure.Exhausted carrying
// the last attempt's error.
func (g *Generator) Generate(ctx context.Context, prompt, path string, aspect style.AspectRatio) (string, error) {
	if prompt == "" {
		return "", failure.Newf(failure.Permanent, "image.generate", "empty prompt")
	}

	var img image.Image
	err := g.policy.Do(ctx, func(attempt int) error {
		data, err := g.service.Generate(ctx, prompt, aspect, attempt)
		if err != nil {
			return llm.Wrap("image.generate", err)
		}
		if len(data) == 0 {
			return failure.Newf(failure.Empty, "image.generate", "empty image payload")
		}

		decoded, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return failure.New(failure.Empty, "image.decode", err)
		}
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"format":  format,
			"bounds":  decoded.Bounds().String(),
		}).Debug("Image received")
		img = decoded
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := writePNG(path, img); err != nil {
		return "", failure.New(failure.Permanent, "image.save", err)
	}
	return path, nil
}

func writePNG(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".img-*.png")
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
