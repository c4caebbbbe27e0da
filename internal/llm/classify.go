package llm

import (
	"context"
	"errors"
	"net/http"
	"scenecast/internal/failure"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Classify maps provider errors onto failure kinds. Errors that are already
// classified keep their kind.
func Classify(err error) failure.Kind {
	if err == nil {
		return failure.Unknown
	}
	if k := failure.KindOf(err); k != failure.Unknown {
		return k
	}

	var oe *openai.Error
	if errors.As(err, &oe) {
		return KindForStatus(oe.StatusCode)
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return failure.Empty
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return KindForStatus(ge.Code)
	}

	switch status.Code(err) {
	case codes.ResourceExhausted:
		return failure.RateLimited
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
		return failure.Transient
	case codes.NotFound, codes.PermissionDenied, codes.Unauthenticated, codes.InvalidArgument:
		return failure.Permanent
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return failure.Transient
	}

	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "ResourceExhausted") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return failure.RateLimited
	}
	return failure.Transient
}

// KindForStatus classifies an HTTP status code
func KindForStatus(code int) failure.Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return failure.RateLimited
	case code >= 500:
		return failure.Transient
	case code == http.StatusRequestTimeout:
		return failure.Transient
	case code >= 400:
		return failure.Permanent
	default:
		return failure.Transient
	}
}

// Wrap classifies err and tags it with op
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *failure.Error
	if errors.As(err, &fe) {
		return err
	}
	return failure.New(Classify(err), op, err)
}
