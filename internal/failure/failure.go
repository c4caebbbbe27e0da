// Package failure carries the error taxonomy shared by every pipeline stage.
package failure

import (
	"errors"
	"fmt"
)

// Kind is the category of a pipeline failure
type Kind int

const (
	Unknown Kind = iota
	Transient
	RateLimited
	Empty
	Permanent
	VoiceNotFound
	Exhausted
	NothingToMerge
	Busy
	NotReady
)

var kindNames = map[Kind]string{
	Unknown:        "unknown",
	Transient:      "transient",
	RateLimited:    "rate_limited",
	Empty:          "empty_response",
	Permanent:      "permanent",
	VoiceNotFound:  "voice_not_found",
	Exhausted:      "retries_exhausted",
	NothingToMerge: "nothing_to_merge",
	Busy:           "busy",
	NotReady:       "not_ready",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of String, used when reading persisted runs
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return Unknown
}

// MarshalText lets kinds appear by name in run.json and API payloads
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

// Retryable reports whether a failure of this kind may succeed when repeated
func (k Kind) Retryable() bool {
	return k == Transient || k == RateLimited || k == Empty
}

// Error is a classified failure. Op names the operation, Scene is 0 when
// the failure is not tied to a single scene.
type Error struct {
	Kind  Kind
	Op    string
	Scene int
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Scene > 0 {
		msg = fmt.Sprintf("scene %d: %s", e.Scene, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified failure
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified failure from a formatted message
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithScene returns a copy of err tagged with the scene number. Unclassified
// errors are wrapped as Permanent.
func WithScene(err error, scene int) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		cp := *fe
		cp.Scene = scene
		return &cp
	}
	return &Error{Kind: Permanent, Scene: scene, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Cause unwraps an Exhausted failure to the last underlying error
func Cause(err error) error {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == Exhausted && fe.Err != nil {
		return fe.Err
	}
	return err
}
