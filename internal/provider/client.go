// Package provider holds the LLM clients the pipeline generates through.
// The pipeline only sees the Client interface; concrete clients live here so
// transport quirks (rate limits, SSE framing, schema support) never leak out.
package provider

import (
	"context"
	"errors"
)

// Client is the minimal surface the pipeline calls an LLM through.
type Client interface {
	// Complete sends a prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteWithSchema enforces a JSON schema on the response. Clients that
	// cannot enforce schemas return ErrSchemaNotSupported.
	CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)

	// CompleteWithStreaming returns ordered content deltas. The content
	// channel closes when the stream ends; a terminal failure arrives on the
	// error channel, which is always closed once the stream is finished, so
	// callers may block on it after the content channel closes. Cancelling
	// ctx stops the underlying stream.
	CompleteWithStreaming(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error)
}

// ErrSchemaNotSupported reports that the model rejected response schema
// enforcement. Callers fall back to prompt-level shaping.
var ErrSchemaNotSupported = errors.New("response schema not supported by model")
