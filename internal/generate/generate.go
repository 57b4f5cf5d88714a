// Package generate turns prompts into scene source. Cold starts stream whole
// programs; follow-ups return structured edit operations against the source
// already on screen.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sceneforge/internal/edit"
	"sceneforge/internal/logging"
	"sceneforge/internal/provider"
	"sceneforge/internal/skills"
)

// Phase tracks where a streaming generation is.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseReasoning  Phase = "reasoning"
	PhaseGenerating Phase = "generating"
)

// Event is one streaming update. Exactly one field is set: Delta carries a
// content chunk, otherwise Phase marks a transition.
type Event struct {
	Phase Phase
	Delta string
}

// Correction carries a prior attempt's failure back into the generator so a
// retry can fix the actual defect instead of regenerating blind.
type Correction struct {
	Stage         string // which pipeline stage rejected the attempt
	Message       string
	FailingSource string
}

// Request is one generation call.
type Request struct {
	Prompt        string
	CurrentSource string // empty means cold start
	History       []string
	Skills        []skills.Descriptor
	Assets        []string // declared media asset names
	Correction    *Correction
}

// ErrMalformedResponse reports a follow-up reply whose JSON could not be
// parsed into operations.
var ErrMalformedResponse = errors.New("malformed edit response")

// EditResponse is a follow-up generation result.
type EditResponse struct {
	Operations []edit.Operation `json:"operations"`
	Summary    string           `json:"summary"`
}

// Generator drives both generation modes over one provider client.
type Generator struct {
	client provider.Client
	log    *zap.Logger
}

// New builds a generator over client.
func New(client provider.Client) *Generator {
	return &Generator{client: client, log: logging.Named("generate")}
}

// Stream runs a cold-start generation. Events arrive in order on the first
// channel, which closes when the stream ends; a terminal provider failure
// arrives on the second. Cancelling ctx aborts the stream, and a cancelled
// stream must be treated as producing nothing.
func (g *Generator) Stream(ctx context.Context, req Request) (<-chan Event, <-chan error) {
	events := make(chan Event, 16)
	errs := make(chan error, 1)

	system := coldStartSystemPrompt(req.Skills)
	user := coldStartUserPrompt(req)
	deltas, streamErrs := g.client.CompleteWithStreaming(ctx, system, user)

	go func() {
		defer close(events)
		events <- Event{Phase: PhaseReasoning}

		generating := false
		for {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case err, ok := <-streamErrs:
				if !ok {
					streamErrs = nil
					continue
				}
				if err != nil {
					errs <- err
					return
				}
			case delta, ok := <-deltas:
				if !ok {
					// The provider closes deltas on failure too, with the
					// terminal error still buffered. Drain it before calling
					// the stream finished, or a select race could report a
					// truncated stream as success.
					if err := finalStreamErr(ctx, streamErrs); err != nil {
						errs <- err
						return
					}
					events <- Event{Phase: PhaseIdle}
					return
				}
				if !generating {
					generating = true
					events <- Event{Phase: PhaseGenerating}
				}
				events <- Event{Delta: delta}
			}
		}
	}()
	return events, errs
}

// finalStreamErr collects the terminal error, if any, once the deltas
// channel has closed. streamErrs is nil when it already closed clean; a
// blocking receive is otherwise safe because the provider always closes it.
func finalStreamErr(ctx context.Context, streamErrs <-chan error) error {
	if streamErrs == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-streamErrs:
		return err
	}
}

// FollowUp runs an edit-mode generation against req.CurrentSource and
// returns the structured operations. Schema enforcement is attempted first;
// models without it fall back to prompt-level shaping with the JSON dug out
// of the reply.
func (g *Generator) FollowUp(ctx context.Context, req Request) (*EditResponse, error) {
	if req.CurrentSource == "" {
		return nil, fmt.Errorf("follow-up generation without current source")
	}

	system := followUpSystemPrompt(req.Skills)
	user := followUpUserPrompt(req)

	response, err := g.client.CompleteWithSchema(ctx, system, user, editResponseSchema)
	if errors.Is(err, provider.ErrSchemaNotSupported) {
		g.log.Debug("schema enforcement unsupported, using prompt shaping")
		response, err = g.client.CompleteWithSystem(ctx, system, user)
	}
	if err != nil {
		return nil, err
	}

	parsed, perr := parseEditResponse(response)
	if perr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, perr)
	}
	g.log.Debug("follow-up generated",
		zap.Int("operations", len(parsed.Operations)),
		zap.String("summary", parsed.Summary))
	return parsed, nil
}

// parseEditResponse tolerates prose and code fences around the JSON object.
func parseEditResponse(response string) (*EditResponse, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var parsed EditResponse
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
