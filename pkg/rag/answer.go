package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/shelf/pkg/llm"
)

const (
	answerSystemPrompt = "You are a helpful assistant. Use the following context to answer " +
		"the user's question as accurately as possible. Do not mention the context in your " +
		"response; just answer the question."

	refineSystemPrompt = "You are a helpful assistant. Elaborate the answer to be more clear " +
		"and concise. Give a detailed answer. Output only the content, with no preamble or " +
		"description."
)

// Answerer produces answers in two generation stages: a grounded draft from
// the retrieved context, then a refinement pass. The second stage sees only
// the draft, never the context or the question, so it cannot reintroduce
// unretrieved material.
type Answerer struct {
	generator llm.Generator
	logger    *slog.Logger
}

// NewAnswerer creates a two-stage answerer over the given generator.
func NewAnswerer(generator llm.Generator, logger *slog.Logger) *Answerer {
	return &Answerer{
		generator: generator,
		logger:    logger,
	}
}

// Answer generates the grounded draft and refines it. contextText is the
// retrieved context assembled by the retriever.
func (a *Answerer) Answer(ctx context.Context, query, contextText string) (string, error) {
	draftPrompt := fmt.Sprintf("Context:\n%s\n\nUser question: %s", contextText, query)

	draft, err := a.generator.Generate(ctx, answerSystemPrompt, draftPrompt)
	if err != nil {
		return "", fmt.Errorf("draft stage: %w", err)
	}

	a.logger.Debug("draft answer generated", "chars", len(draft))

	refined, err := a.generator.Generate(ctx, refineSystemPrompt, "Answer: "+draft)
	if err != nil {
		return "", fmt.Errorf("refine stage: %w", err)
	}

	a.logger.Debug("refined answer generated", "chars", len(refined))

	return refined, nil
}
