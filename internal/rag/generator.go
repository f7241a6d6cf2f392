package rag

import (
	"context"
	"errors"
	"time"
)

// CompletionBackend is one call to the external generative-text service.
// Backends signal transient throttling by wrapping ErrRateLimited.
type CompletionBackend interface {
	Complete(ctx context.Context, systemPrompt, question string) (string, error)
}

// Generator wraps the completion backend with the retry policy: a rate-limit
// signal waits a fixed backoff and retries up to maxAttempts total calls; any
// other failure propagates immediately. The backoff sleep is scoped to the
// failing call only.
type Generator struct {
	backend     CompletionBackend
	maxAttempts int
	backoff     time.Duration
	sleep       func(time.Duration)
}

func NewGenerator(backend CompletionBackend, maxAttempts int, backoff time.Duration) *Generator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Generator{
		backend:     backend,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       time.Sleep,
	}
}

func (g *Generator) Complete(ctx context.Context, systemPrompt, question string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		text, err := g.backend.Complete(ctx, systemPrompt, question)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return "", &GenerationError{Attempts: attempt, Err: err}
		}
		lastErr = err
		if attempt < g.maxAttempts {
			g.sleep(g.backoff)
		}
	}
	return "", &GenerationError{Attempts: g.maxAttempts, Err: lastErr}
}
