package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// VoiceCatalog caches an engine's voice list on disk
type VoiceCatalog struct {
	engine    Engine
	name      string
	cacheFile string
	maxAge    time.Duration
}

// cachedVoices is the on-disk format of the catalog
type cachedVoices struct {
	Engine      string    `json:"engine"`
	Voices      []Voice   `json:"voices"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewVoiceCatalog keeps the cache for the named engine under cacheDir
func NewVoiceCatalog(engine Engine, name, cacheDir string, maxAge time.Duration) *VoiceCatalog {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		logrus.WithError(err).Warn("Failed to create cache directory")
	}

	return &VoiceCatalog{
		engine:    engine,
		name:      name,
		cacheFile: filepath.Join(cacheDir, fmt.Sprintf("voices_%s.json", name)),
		maxAge:    maxAge,
	}
}

// Voices returns the voice list, from cache when fresh. When the engine
// cannot be reached a stale cache is used instead.
func (vc *VoiceCatalog) Voices(ctx context.Context) ([]Voice, error) {
	if vc.isCacheFresh() {
		if voices, err := vc.loadFromCache(); err == nil {
			return voices, nil
		}
	}

	voices, err := vc.engine.ListVoices(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Voice listing failed, trying stale cache")
		if cached, cacheErr := vc.loadFromCache(); cacheErr == nil {
			return cached, nil
		}
		return nil, fmt.Errorf("failed to list voices and no cache available: %w", err)
	}

	if err := vc.saveToCache(voices); err != nil {
		logrus.WithError(err).Warn("Failed to save voice cache")
	}
	return voices, nil
}

// Refresh drops the cache and lists voices again
func (vc *VoiceCatalog) Refresh(ctx context.Context) ([]Voice, error) {
	if err := vc.Clear(); err != nil {
		return nil, err
	}
	return vc.Voices(ctx)
}

func (vc *VoiceCatalog) isCacheFresh() bool {
	info, err := os.Stat(vc.cacheFile)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < vc.maxAge
}

func (vc *VoiceCatalog) loadFromCache() ([]Voice, error) {
	file, err := os.Open(vc.cacheFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open voice cache: %w", err)
	}
	defer file.Close()

	var cached cachedVoices
	if err := json.NewDecoder(file).Decode(&cached); err != nil {
		return nil, fmt.Errorf("failed to decode voice cache: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"voices":       len(cached.Voices),
		"last_updated": cached.LastUpdated.Format(time.RFC3339),
	}).Debug("Loaded voices from cache")
	return cached.Voices, nil
}

func (vc *VoiceCatalog) saveToCache(voices []Voice) error {
	file, err := os.Create(vc.cacheFile)
	if err != nil {
		return fmt.Errorf("failed to create voice cache: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cachedVoices{
		Engine:      vc.name,
		Voices:      voices,
		LastUpdated: time.Now(),
	})
}

// Clear removes the cache file
func (vc *VoiceCatalog) Clear() error {
	if err := os.Remove(vc.cacheFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear voice cache: %w", err)
	}
	return nil
}
