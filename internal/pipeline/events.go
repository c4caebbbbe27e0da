package pipeline

import (
	"scenecast/internal/domain/run"
	"scenecast/internal/domain/scene"
	"scenecast/internal/failure"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event reports one artifact transition. Scene is 0 for the final video.
type Event struct {
	RunID   string       `json:"run_id"`
	Scene   int          `json:"scene"`
	Stage   scene.Stage  `json:"stage"`
	State   scene.State  `json:"state"`
	Path    string       `json:"path,omitempty"`
	Message string       `json:"message,omitempty"`
	Kind    failure.Kind `json:"kind,omitempty"`
	At      time.Time    `json:"at"`
}

func eventFor(runID string, c run.Change) Event {
	return Event{
		RunID:   runID,
		Scene:   c.Scene,
		Stage:   c.Stage,
		State:   c.Artifact.State,
		Path:    c.Artifact.Path,
		Message: c.Artifact.Error,
		Kind:    c.Artifact.Kind,
		At:      c.Artifact.UpdatedAt,
	}
}

const subscriberBuffer = 256

// broadcaster fans events out to subscribers. Slow subscribers lose events
// rather than stall the pipeline.
type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			logrus.WithField("subscriber", id).Debug("Dropping event for slow subscriber")
		}
	}
}
