package rag

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pipeline is the dual-source fusion chain: embed the question once, ground a
// draft answer in each corpus independently, then reconcile both drafts with a
// final generation call. Any stage failure aborts the whole pipeline; a
// partially fused answer is never returned.
type Pipeline struct {
	encoder   *Encoder
	composer  *PromptComposer
	generator *Generator

	regulations *VectorIndex
	services    *VectorIndex

	topK int
}

func NewPipeline(encoder *Encoder, composer *PromptComposer, generator *Generator, regulations, services *VectorIndex, topK int) *Pipeline {
	return &Pipeline{
		encoder:     encoder,
		composer:    composer,
		generator:   generator,
		regulations: regulations,
		services:    services,
		topK:        topK,
	}
}

// Answer runs the three-stage chain. The two source branches are independent
// and run concurrently; fusion starts only after both drafts exist.
func (p *Pipeline) Answer(ctx context.Context, question string) (string, error) {
	vec, err := p.encoder.Embed(ctx, question)
	if err != nil {
		return "", err
	}

	var draftA, draftB string
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		draftA, err = p.sourceDraft(groupCtx, question, vec, p.regulations)
		return err
	})
	group.Go(func() error {
		var err error
		draftB, err = p.sourceDraft(groupCtx, question, vec, p.services)
		return err
	})
	if err := group.Wait(); err != nil {
		return "", err
	}

	fusionPrompt, err := p.composer.FusionPrompt(question, draftA, draftB)
	if err != nil {
		return "", err
	}
	return p.generator.Complete(ctx, fusionPrompt, question)
}

func (p *Pipeline) sourceDraft(ctx context.Context, question string, vec []float32, index *VectorIndex) (string, error) {
	docs, err := index.Search(vec, p.topK)
	if err != nil {
		// A dimension mismatch means the embedding backend does not fit the
		// corpus. Generating on empty context would be an un-grounded answer.
		return "", &EncoderError{Err: err}
	}
	prompt, err := p.composer.SourcePrompt(question, docs)
	if err != nil {
		return "", err
	}
	return p.generator.Complete(ctx, prompt, question)
}
