package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"sceneforge/internal/generate"
)

// mockClient is a function-field test double for provider.Client. Unset
// fields fail loudly so a test only exercises the calls it scripted.
type mockClient struct {
	completeFn       func(ctx context.Context, prompt string) (string, error)
	completeSystemFn func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	completeSchemaFn func(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)
	streamFn         func(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error)

	schemaCalls int32
	systemCalls int32
	streamCalls int32
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	if m.completeFn == nil {
		return "", fmt.Errorf("unexpected Complete call")
	}
	return m.completeFn(ctx, prompt)
}

func (m *mockClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	atomic.AddInt32(&m.systemCalls, 1)
	if m.completeSystemFn == nil {
		return "", fmt.Errorf("unexpected CompleteWithSystem call")
	}
	return m.completeSystemFn(ctx, systemPrompt, userPrompt)
}

func (m *mockClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	atomic.AddInt32(&m.schemaCalls, 1)
	if m.completeSchemaFn == nil {
		return "", fmt.Errorf("unexpected CompleteWithSchema call")
	}
	return m.completeSchemaFn(ctx, systemPrompt, userPrompt, jsonSchema)
}

func (m *mockClient) CompleteWithStreaming(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	atomic.AddInt32(&m.streamCalls, 1)
	if m.streamFn == nil {
		deltas := make(chan string)
		errs := make(chan error, 1)
		errs <- fmt.Errorf("unexpected CompleteWithStreaming call")
		close(deltas)
		close(errs)
		return deltas, errs
	}
	return m.streamFn(ctx, systemPrompt, userPrompt)
}

// isValidationSchema distinguishes the validator's schema call from the
// follow-up generator's.
func isValidationSchema(jsonSchema string) bool {
	return strings.Contains(jsonSchema, `"valid"`)
}

// streamOf returns pre-loaded closed channels carrying chunks in order.
func streamOf(chunks ...string) (<-chan string, <-chan error) {
	deltas := make(chan string, len(chunks))
	for _, c := range chunks {
		deltas <- c
	}
	close(deltas)
	errs := make(chan error, 1)
	close(errs)
	return deltas, errs
}

// streamFailing returns a stream that fails terminally with err.
func streamFailing(err error) (<-chan string, <-chan error) {
	deltas := make(chan string)
	close(deltas)
	errs := make(chan error, 1)
	errs <- err
	close(errs)
	return deltas, errs
}

const acceptAll = `{"valid": true, "reason": ""}`

// recordingSink captures progress events for assertions.
type recordingSink struct {
	phases  []generate.Phase
	deltas  []string
	notices []string
}

func (s *recordingSink) Phase(phase generate.Phase) {
	s.phases = append(s.phases, phase)
}

func (s *recordingSink) Delta(chunk string) {
	s.deltas = append(s.deltas, chunk)
}

func (s *recordingSink) Notice(message string) {
	s.notices = append(s.notices, message)
}
