package fixer

import "fmt"

// InputError rejects a request before the model is called.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
	}
	return "invalid input: " + e.Reason
}

func (e *InputError) Unwrap() error { return e.Err }

// LimitError reports a request larger than the configured ceilings.
type LimitError struct {
	What  string
	Limit int
	Got   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d > %d", e.What, e.Got, e.Limit)
}

// BodyLimitError reports an upload cut off at the configured body size. Only
// the ceiling is known; the rest of the body is never read.
type BodyLimitError struct {
	Limit int64
}

func (e *BodyLimitError) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}
