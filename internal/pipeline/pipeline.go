// Package pipeline orchestrates a conversational turn: validation, skill
// selection, generation, edit application, sanitization, compilation, and
// the bounded correction loop that ties them together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"sceneforge/internal/assets"
	"sceneforge/internal/compile"
	"sceneforge/internal/edit"
	"sceneforge/internal/generate"
	"sceneforge/internal/logging"
	"sceneforge/internal/sanitize"
	"sceneforge/internal/skills"
	"sceneforge/internal/validate"
)

// historyWindow bounds how many earlier prompts are restated per call.
const historyWindow = 6

// Sink receives live progress while a turn runs. Implementations must not
// block; the pipeline calls them inline.
type Sink interface {
	Phase(phase generate.Phase)
	Delta(chunk string)
	Notice(message string)
}

// NopSink discards all progress events.
type NopSink struct{}

func (NopSink) Phase(generate.Phase) {}
func (NopSink) Delta(string)         {}
func (NopSink) Notice(string)        {}

// TurnOutcome is the result of a successful turn.
type TurnOutcome struct {
	Source     string
	Artifact   *compile.Artifact
	Summary    string
	SkillsUsed []string
	Preview    *edit.Preview // set on follow-up turns
	Retries    int
}

// Pipeline wires the per-turn stages over shared session state.
type Pipeline struct {
	validator  *validate.Validator
	selector   *skills.Selector
	generator  *generate.Generator
	compiler   *compile.Compiler
	store      *assets.Store
	conv       *Conversation
	maxRetries int
	log        *zap.Logger
}

// New assembles a pipeline. maxRetries bounds the per-turn correction loop.
func New(validator *validate.Validator, selector *skills.Selector, generator *generate.Generator,
	compiler *compile.Compiler, store *assets.Store, maxRetries int) *Pipeline {
	return &Pipeline{
		validator:  validator,
		selector:   selector,
		generator:  generator,
		compiler:   compiler,
		store:      store,
		conv:       NewConversation(),
		maxRetries: maxRetries,
		log:        logging.Named("pipeline"),
	}
}

// Conversation exposes the session state for display layers.
func (p *Pipeline) Conversation() *Conversation { return p.conv }

// ExecuteTurn runs one full turn for prompt. On success the new artifact is
// installed and described; on failure the previous artifact stays live and
// the error says which stage gave out. Only one turn may run at a time.
func (p *Pipeline) ExecuteTurn(ctx context.Context, prompt string, sink Sink) (*TurnOutcome, error) {
	if sink == nil {
		sink = NopSink{}
	}
	if err := p.conv.beginTurn(); err != nil {
		return nil, err
	}
	defer p.conv.endTurn()

	// History is everything before this turn; the prompt itself is carried
	// separately.
	history := p.conv.RecentPrompts(historyWindow)
	p.conv.Append(RoleUser, prompt, Meta{})

	verdict, err := p.validator.Check(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ProviderError{Err: err}
	}
	if !verdict.Valid {
		p.conv.Append(RoleAssistant, verdict.Reason, Meta{ErrorContext: "validation"})
		return nil, &ValidationRejectedError{Reason: verdict.Reason}
	}

	selected, err := p.selector.Select(ctx, prompt, strings.Join(history, "; "), p.conv.UsedSkillIDs())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Skills sharpen generation but are not load-bearing. A dead
		// selector call degrades to generating without them.
		p.log.Warn("skill selection failed, continuing without skills", zap.Error(err))
		selected = nil
	}
	skillIDs := make([]string, len(selected))
	for i, d := range selected {
		skillIDs[i] = d.ID
	}

	outcome, err := p.runCorrectionLoop(ctx, prompt, history, selected, sink)
	if err != nil {
		return nil, err
	}

	p.conv.markSkillsUsed(skillIDs)
	outcome.SkillsUsed = skillIDs

	meta := Meta{SkillsUsed: skillIDs}
	if outcome.Preview != nil {
		meta.EditsApplied = outcome.Preview.Added + outcome.Preview.Removed
	}
	p.conv.Append(RoleAssistant, outcome.Summary, meta)
	return outcome, nil
}

// runCorrectionLoop drives generation attempts until one compiles or the
// budget runs out. A provider failure or cancellation exits immediately
// without touching the installed artifact.
func (p *Pipeline) runCorrectionLoop(ctx context.Context, prompt string, history []string,
	selected []skills.Descriptor, sink Sink) (*TurnOutcome, error) {

	sup := newSupervisor(p.maxRetries, p.log)
	var correction *generate.Correction

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		sup.begin()

		assetNames := p.store.Names()
		sort.Strings(assetNames)

		// A retry after a compile or execution failure re-enters the
		// generator in follow-up mode against the failing source, so the
		// model fixes its own defect instead of regenerating blind. A
		// cold-start retry whose output never became a component starts
		// over from scratch.
		current := p.conv.Source()
		if current == "" && correction != nil && correction.FailingSource != "" &&
			(correction.Stage == "compile" || correction.Stage == "execute") {
			current = correction.FailingSource
		}

		req := generate.Request{
			Prompt:        prompt,
			CurrentSource: current,
			History:       history,
			Skills:        selected,
			Assets:        assetNames,
			Correction:    correction,
		}

		outcome, attemptErr := p.attempt(ctx, req, sink)
		if attemptErr == nil {
			sup.success()
			outcome.Retries = sup.retries
			return outcome, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var provErr *ProviderError
		if errors.As(attemptErr, &provErr) {
			return nil, attemptErr
		}

		failingSource := failingSourceOf(attemptErr)
		if !sup.failure(attemptErr) {
			p.conv.Append(RoleAssistant,
				fmt.Sprintf("I could not produce a working scene: %v", attemptErr),
				Meta{ErrorContext: attemptErr.Error()})
			return nil, &ExhaustedError{Attempts: sup.attempts(), Last: attemptErr}
		}
		sink.Notice(fmt.Sprintf("attempt failed (%v), retrying %d/%d",
			attemptErr, sup.retries, p.maxRetries))
		correction = correctionFor(attemptErr, failingSource)
	}
}

// attemptError carries the source a stage was chewing on when it failed, so
// the correction prompt can show the model its own broken output.
type attemptError struct {
	err    error
	source string
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

func failingSourceOf(err error) string {
	var ae *attemptError
	if errors.As(err, &ae) {
		return ae.source
	}
	return ""
}

// attempt runs a single generation-to-artifact pass.
func (p *Pipeline) attempt(ctx context.Context, req generate.Request, sink Sink) (*TurnOutcome, error) {
	if req.CurrentSource == "" {
		return p.attemptColdStart(ctx, req, sink)
	}
	return p.attemptFollowUp(ctx, req, sink)
}

func (p *Pipeline) attemptColdStart(ctx context.Context, req generate.Request, sink Sink) (*TurnOutcome, error) {
	events, errs := p.generator.Stream(ctx, req)

	var raw strings.Builder
	for ev := range events {
		if ev.Delta != "" {
			raw.WriteString(ev.Delta)
			sink.Delta(ev.Delta)
			continue
		}
		sink.Phase(ev.Phase)
	}
	select {
	case err := <-errs:
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &ProviderError{Err: err}
		}
	default:
	}
	// A cancelled stream produced, at best, a truncated scene. Nothing
	// from it may supersede the live artifact.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	source, err := sanitize.Sanitize(raw.String())
	if err != nil {
		return nil, &attemptError{err: err, source: raw.String()}
	}
	artifact, err := p.compileSource(source)
	if err != nil {
		return nil, err
	}

	p.conv.install(source, artifact)
	return &TurnOutcome{
		Source:   source,
		Artifact: artifact,
		Summary:  "Generated a new scene.",
	}, nil
}

func (p *Pipeline) attemptFollowUp(ctx context.Context, req generate.Request, sink Sink) (*TurnOutcome, error) {
	sink.Phase(generate.PhaseReasoning)
	resp, err := p.generator.FollowUp(ctx, req)
	sink.Phase(generate.PhaseIdle)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, generate.ErrMalformedResponse) {
			return nil, &GenerationError{Err: err}
		}
		return nil, &ProviderError{Err: err}
	}

	edited, err := edit.Apply(req.CurrentSource, resp.Operations)
	if err != nil {
		return nil, err
	}
	source, err := sanitize.Sanitize(edited)
	if err != nil {
		return nil, &attemptError{err: err, source: edited}
	}
	artifact, err := p.compileSource(source)
	if err != nil {
		return nil, err
	}

	preview := edit.Diff(req.CurrentSource, source)
	p.conv.install(source, artifact)

	summary := resp.Summary
	if summary == "" {
		summary = "Updated the scene."
	}
	return &TurnOutcome{
		Source:   source,
		Artifact: artifact,
		Summary:  summary,
		Preview:  &preview,
	}, nil
}

// compileSource compiles against a fresh capability scope built from the
// current asset snapshot.
func (p *Pipeline) compileSource(source string) (*compile.Artifact, error) {
	scope := compile.NewScope(p.store.Snapshot())
	artifact, err := p.compiler.Compile(source, scope)
	if err != nil {
		return nil, &attemptError{err: err, source: source}
	}
	return artifact, nil
}
