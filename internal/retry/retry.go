// Package retry holds the single backoff policy used by every retrying
// collaborator (image generation today).
package retry

import (
	"context"
	"math/rand"
	"scenecast/internal/failure"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Class is what a classifier decides about an error
type Class int

const (
	Retryable Class = iota
	RateLimited
	Fatal
)

func (c Class) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case RateLimited:
		return "rate_limited"
	default:
		return "fatal"
	}
}

// Policy describes how many attempts are made and how long to wait between them.
//
// Rate-limited attempts wait RateLimitDelay*attempt plus up to Jitter so that
// concurrently retrying workers spread out. Empty payloads wait EmptyDelay,
// every other retryable error waits BaseDelay.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	EmptyDelay     time.Duration
	RateLimitDelay time.Duration
	Jitter         time.Duration

	// Classify maps an error to a Class. Defaults to ClassifyByKind.
	Classify func(error) Class

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	// Name is used in log lines
	Name string

	mu  sync.Mutex
	rnd *rand.Rand
}

// ClassifyByKind classifies using the failure taxonomy
func ClassifyByKind(err error) Class {
	switch failure.KindOf(err) {
	case failure.RateLimited:
		return RateLimited
	case failure.Transient, failure.Empty, failure.Unknown:
		return Retryable
	default:
		return Fatal
	}
}

// SleepContext waits for d, returning early with ctx.Err() on cancellation
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay returns the wait after a failed attempt (1-based)
func (p *Policy) Delay(attempt int, err error) time.Duration {
	switch p.classify(err) {
	case RateLimited:
		return p.RateLimitDelay*time.Duration(attempt) + p.jitter()
	case Retryable:
		if failure.Is(err, failure.Empty) && p.EmptyDelay > 0 {
			return p.EmptyDelay
		}
		return p.BaseDelay
	default:
		return 0
	}
}

// Do calls fn until it succeeds, a fatal error is returned, the context ends
// or MaxAttempts is used up. Exhaustion is reported as failure.Exhausted
// wrapping the last error.
func (p *Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		last = err

		class := p.classify(err)
		if class == Fatal {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := p.Delay(attempt, err)
		logrus.WithFields(logrus.Fields{
			"policy":  p.Name,
			"attempt": attempt,
			"max":     attempts,
			"class":   class.String(),
			"wait":    wait.String(),
		}).WithError(err).Warn("attempt failed, retrying")

		if err := sleep(ctx, wait); err != nil {
			return failure.New(failure.Exhausted, p.Name, last)
		}
	}

	return failure.New(failure.Exhausted, p.Name, last)
}

func (p *Policy) classify(err error) Class {
	if p.Classify != nil {
		return p.Classify(err)
	}
	return ClassifyByKind(err)
}

func (p *Policy) jitter() time.Duration {
	if p.Jitter <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rnd == nil {
		p.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return time.Duration(p.rnd.Int63n(int64(p.Jitter)))
}
