package rag

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingBackend turns text into a raw (not yet normalized) embedding
// vector. Implementations may be expensive to open.
type EmbeddingBackend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Encoder wraps the shared embedding backend. The backend is opened lazily on
// first use and at most once, even under concurrent first calls; every
// returned vector is L2-normalized here, so downstream retrieval never
// re-normalizes.
type Encoder struct {
	open    func() (EmbeddingBackend, error)
	once    sync.Once
	backend EmbeddingBackend
	openErr error
}

func NewEncoder(open func() (EmbeddingBackend, error)) *Encoder {
	return &Encoder{open: open}
}

func (e *Encoder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.once.Do(func() {
		e.backend, e.openErr = e.open()
	})
	if e.openErr != nil {
		return nil, &EncoderError{Err: fmt.Errorf("failed to open embedding backend: %w", e.openErr)}
	}

	raw, err := e.backend.Embed(ctx, text)
	if err != nil {
		return nil, &EncoderError{Err: err}
	}
	if len(raw) == 0 {
		return nil, &EncoderError{Err: fmt.Errorf("backend returned an empty embedding")}
	}

	normalized, err := Normalize(raw)
	if err != nil {
		return nil, &EncoderError{Err: err}
	}
	return normalized, nil
}
