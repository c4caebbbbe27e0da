package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"scenecast/internal/domain/run"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FileName is the run state file kept in the output directory
const FileName = "run.json"

// Store persists a run as JSON so it survives restarts
type Store struct {
	dir  string
	file string
	mu   sync.Mutex
}

// Snapshot is the on-disk envelope around a run
type Snapshot struct {
	Run     run.Run   `json:"run"`
	SavedAt time.Time `json:"saved_at"`
	Scenes  int       `json:"scenes"`
}

// New creates a store rooted at dir
func New(dir string) *Store {
	if err := os.MkdirAll(dir, 0755); err != nil {
		logrus.WithError(err).Warn("Failed to create output directory")
	}

	return &Store{
		dir:  dir,
		file: filepath.Join(dir, FileName),
	}
}

// Path of the state file
func (s *Store) Path() string {
	return s.file
}

// Exists reports whether a saved run is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.file)
	return err == nil
}

// Load reads the saved run. Stages left generating by a previous process
// are marked failed.
func (s *Store) Load() (*run.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.file)
	if err != nil {
		return nil, fmt.Errorf("failed to open run file: %w", err)
	}
	defer file.Close()

	var snap Snapshot
	if err := json.NewDecoder(file).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode run file: %w", err)
	}

	r := &snap.Run
	if n := r.Recover(); n > 0 {
		logrus.WithField("artifacts", n).Warn("Marked interrupted generations as failed")
	}

	logrus.WithFields(logrus.Fields{
		"run":      r.ID,
		"scenes":   len(r.Scenes),
		"saved_at": snap.SavedAt.Format(time.RFC3339),
	}).Debug("Loaded run from disk")

	return r, nil
}

// Save writes r atomically through a temp file
func (s *Store) Save(r *run.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Run:     *r,
		SavedAt: time.Now(),
		Scenes:  len(r.Scenes),
	}

	tmp, err := os.CreateTemp(s.dir, ".run-*.json")
	if err != nil {
		return fmt.Errorf("failed to create run file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode run: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.file); err != nil {
		return fmt.Errorf("failed to replace run file: %w", err)
	}
	return nil
}

// Clear removes the saved run
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear run: %w", err)
	}
	logrus.Info("Cleared saved run")
	return nil
}

// Info describes the state file
func (s *Store) Info() map[string]interface{} {
	info := make(map[string]interface{})

	if stat, err := os.Stat(s.file); err == nil {
		info["exists"] = true
		info["size"] = stat.Size()
		info["last_modified"] = stat.ModTime()
		info["path"] = s.file
	} else {
		info["exists"] = false
	}

	return info
}
