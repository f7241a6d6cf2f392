package rag

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks a transient rate-limit signal from the generative
// service. It is the only failure the Generator retries; backends must wrap it
// into the errors they return for the retry policy to recognize it.
var ErrRateLimited = errors.New("rate limited")

// EncoderError reports an embedding failure, including the degenerate
// zero-norm case. It always aborts the pipeline.
type EncoderError struct {
	Err error
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("encoder: %v", e.Err)
}

func (e *EncoderError) Unwrap() error {
	return e.Err
}

// GenerationError reports a failed generation call, either a non-retryable
// failure or retry exhaustion. Err carries the last underlying cause.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
