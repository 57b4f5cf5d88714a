package validate

import (
	"context"
	"fmt"
	"testing"

	"sceneforge/internal/provider"
)

type mockClient struct {
	completeSchemaFn func(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)
	completeSystemFn func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("unexpected Complete call")
}

func (m *mockClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if m.completeSystemFn == nil {
		return "", fmt.Errorf("unexpected CompleteWithSystem call")
	}
	return m.completeSystemFn(ctx, systemPrompt, userPrompt)
}

func (m *mockClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	if m.completeSchemaFn == nil {
		return "", fmt.Errorf("unexpected CompleteWithSchema call")
	}
	return m.completeSchemaFn(ctx, systemPrompt, userPrompt, jsonSchema)
}

func (m *mockClient) CompleteWithStreaming(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	deltas := make(chan string)
	close(deltas)
	errs := make(chan error, 1)
	errs <- fmt.Errorf("unexpected CompleteWithStreaming call")
	return deltas, errs
}

func replyWith(response string) *mockClient {
	return &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			return response, nil
		},
	}
}

func TestCheckVerdicts(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantValid  bool
		wantReason string
	}{
		{
			name:      "clean accept",
			response:  `{"valid": true, "reason": ""}`,
			wantValid: true,
		},
		{
			name:       "clean reject",
			response:   `{"valid": false, "reason": "not an animation request"}`,
			wantValid:  false,
			wantReason: "not an animation request",
		},
		{
			name:      "json wrapped in prose",
			response:  "Sure. Here is my verdict:\n```json\n{\"valid\": true, \"reason\": \"\"}\n```",
			wantValid: true,
		},
		{
			name:      "unparseable reply accepts",
			response:  "VALID, definitely valid",
			wantValid: true,
		},
		{
			name:       "reject without reason gets a default",
			response:   `{"valid": false, "reason": ""}`,
			wantValid:  false,
			wantReason: "the request is not something an animation can express",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(replyWith(tt.response))
			verdict, err := v.Check(context.Background(), "make a sunrise")
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if verdict.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", verdict.Valid, tt.wantValid)
			}
			if tt.wantReason != "" && verdict.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", verdict.Reason, tt.wantReason)
			}
		})
	}
}

func TestCheckEmptyPrompt(t *testing.T) {
	// No call should be made for blank input.
	v := New(&mockClient{})
	verdict, err := v.Check(context.Background(), " \t\n")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if verdict.Valid {
		t.Error("blank prompt accepted")
	}
}

func TestCheckSchemaFallback(t *testing.T) {
	systemCalled := false
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			return "", provider.ErrSchemaNotSupported
		},
		completeSystemFn: func(ctx context.Context, sys, user string) (string, error) {
			systemCalled = true
			return `{"valid": true, "reason": ""}`, nil
		},
	}
	verdict, err := New(client).Check(context.Background(), "make a sunrise")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !systemCalled {
		t.Error("no fallback call on ErrSchemaNotSupported")
	}
	if !verdict.Valid {
		t.Error("fallback verdict lost")
	}
}

func TestCheckProviderFailure(t *testing.T) {
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			return "", fmt.Errorf("upstream 500")
		},
	}
	if _, err := New(client).Check(context.Background(), "make a sunrise"); err == nil {
		t.Fatal("provider failure swallowed")
	}
}
