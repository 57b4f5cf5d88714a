package pipeline

import (
	"errors"
	"fmt"

	"sceneforge/internal/compile"
	"sceneforge/internal/edit"
	"sceneforge/internal/generate"
	"sceneforge/internal/sanitize"
)

// ErrTurnInFlight reports a turn submitted while another is still running.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// ValidationRejectedError reports a prompt the validator screened out. The
// reason is user-facing text.
type ValidationRejectedError struct {
	Reason string
}

func (e *ValidationRejectedError) Error() string {
	return "request rejected: " + e.Reason
}

// ProviderError wraps a transport or model failure. Provider failures halt
// the turn without consuming the correction budget, since retrying the same
// call against a dead provider only burns quota.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string { return "provider failure: " + e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }

// GenerationError reports a structurally unusable model response, such as a
// follow-up reply whose JSON cannot be parsed. These are retryable: the
// model got the call, it just answered badly.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "unusable generation: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// ExhaustedError reports a turn whose correction budget ran out. Last holds
// the failure of the final attempt.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// retryable reports whether err is a defect a corrected regeneration could
// plausibly fix. Provider failures and validation rejections are not.
func retryable(err error) bool {
	var (
		genErr      *GenerationError
		inapp       *edit.InapplicableError
		noComponent *sanitize.NoComponentError
		compileErr  *compile.CompileError
		runtimeErr  *compile.RuntimeError
	)
	switch {
	case errors.As(err, &genErr),
		errors.As(err, &inapp),
		errors.As(err, &noComponent),
		errors.As(err, &compileErr),
		errors.As(err, &runtimeErr):
		return true
	}
	return false
}

// correctionFor translates a stage failure into the context the next
// generation attempt needs. failingSource is the source (or raw text) the
// stage was working on when it failed; it may be empty when no source got
// far enough to blame.
func correctionFor(err error, failingSource string) *generate.Correction {
	var (
		genErr      *GenerationError
		inapp       *edit.InapplicableError
		noComponent *sanitize.NoComponentError
		compileErr  *compile.CompileError
		runtimeErr  *compile.RuntimeError
	)
	switch {
	case errors.As(err, &inapp):
		// The follow-up prompt restates the live source, so the model sees
		// exactly what its search text failed to match.
		return &generate.Correction{Stage: "edit", Message: inapp.Error()}
	case errors.As(err, &noComponent):
		return &generate.Correction{
			Stage:         "sanitize",
			Message:       noComponent.Error(),
			FailingSource: failingSource,
		}
	case errors.As(err, &compileErr):
		return &generate.Correction{
			Stage:         "compile",
			Message:       compileErr.Error(),
			FailingSource: failingSource,
		}
	case errors.As(err, &runtimeErr):
		return &generate.Correction{
			Stage:         "execute",
			Message:       runtimeErr.Error(),
			FailingSource: failingSource,
		}
	case errors.As(err, &genErr):
		return &generate.Correction{Stage: "generate", Message: genErr.Error()}
	}
	return &generate.Correction{Stage: "pipeline", Message: err.Error()}
}
