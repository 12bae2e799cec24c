package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// LLMClient is the external code-generation model. GenerateText blocks until
// the model answers or ctx ends.
type LLMClient interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
	Close() error
}

var ErrEmptyReply = errors.New("llm: model returned no candidates")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// UpstreamKind distinguishes why a model call failed.
type UpstreamKind string

const (
	KindTimeout   UpstreamKind = "timeout"
	KindRejected  UpstreamKind = "rejected"
	KindTransport UpstreamKind = "transport"
	KindEmpty     UpstreamKind = "empty"
)

// UpstreamError is a failed model invocation. No reply was parsed and no
// archive was produced.
type UpstreamError struct {
	Kind  UpstreamKind
	Model string
	Err   error
}

func (e *UpstreamError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("upstream %s (%s): %v", e.Kind, e.Model, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Classify wraps err into an *UpstreamError. An error that already is one is
// returned unchanged.
func Classify(model string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Kind: kindOf(err), Model: model, Err: err}
}

func kindOf(err error) UpstreamKind {
	var netErr net.Error
	var pErr *PermanentError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.Is(err, ErrEmptyReply):
		return KindEmpty
	case errors.As(err, &pErr):
		return KindRejected
	default:
		return KindTransport
	}
}
