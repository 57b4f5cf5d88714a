// Package validate gates turn prompts before any expensive pipeline work.
package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sceneforge/internal/logging"
	"sceneforge/internal/provider"
)

const validatorSystemPrompt = `You screen requests for a motion-graphics animation generator.
A request is VALID when it asks to create or change an animated scene, or adjusts one already in progress.
A request is INVALID when it is unrelated to animation, asks for something actively harmful, or is pure noise.
Vague but on-topic requests are VALID. When unsure, accept.
Reply with ONLY a JSON object: {"valid": true/false, "reason": "shown to the user when invalid"}`

const verdictSchema = `{
  "type": "object",
  "properties": {
    "valid": {"type": "boolean"},
    "reason": {"type": "string"}
  },
  "required": ["valid", "reason"]
}`

// Verdict is the classification result for one prompt.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// Validator runs the single classification call that guards a turn.
type Validator struct {
	client provider.Client
	log    *zap.Logger
}

// New builds a validator over client.
func New(client provider.Client) *Validator {
	return &Validator{client: client, log: logging.Named("validate")}
}

// Check classifies prompt. A provider failure is returned as-is; the caller
// decides whether the turn can proceed. On an unparseable reply the prompt
// is accepted, since rejecting a legitimate request costs the user more than
// one wasted generation.
func (v *Validator) Check(ctx context.Context, prompt string) (Verdict, error) {
	if strings.TrimSpace(prompt) == "" {
		return Verdict{Valid: false, Reason: "the request is empty"}, nil
	}

	response, err := v.client.CompleteWithSchema(ctx, validatorSystemPrompt, prompt, verdictSchema)
	if errors.Is(err, provider.ErrSchemaNotSupported) {
		response, err = v.client.CompleteWithSystem(ctx, validatorSystemPrompt, prompt)
	}
	if err != nil {
		return Verdict{}, fmt.Errorf("prompt validation: %w", err)
	}

	verdict, ok := parseVerdict(response)
	if !ok {
		v.log.Warn("unparseable validator reply, accepting prompt",
			zap.String("reply", truncate(response, 200)))
		return Verdict{Valid: true}, nil
	}
	if !verdict.Valid && verdict.Reason == "" {
		verdict.Reason = "the request is not something an animation can express"
	}
	return verdict, nil
}

// parseVerdict pulls the JSON object out of a reply that may carry prose or
// a code fence around it.
func parseVerdict(response string) (Verdict, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return Verdict{}, false
	}
	var verdict Verdict
	if err := json.Unmarshal([]byte(response[start:end+1]), &verdict); err != nil {
		return Verdict{}, false
	}
	return verdict, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
