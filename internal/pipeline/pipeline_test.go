package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"sceneforge/internal/assets"
	"sceneforge/internal/compile"
	"sceneforge/internal/generate"
	"sceneforge/internal/provider"
	"sceneforge/internal/skills"
	"sceneforge/internal/validate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const goodSceneBody = `func Scene(ctx Context) Node {
	return Group(Circle(100, 100, 25, Style{Fill: "#00ff88"}))
}`

const goodSceneReply = "Here you go:\n\n```go\n" + goodSceneBody + "\n```\n"

const brokenSceneReply = "```go\nfunc Scene(ctx Context) Node {\n\treturn Sphere(1)\n}\n```"

func newTestPipeline(t *testing.T, client provider.Client, maxRetries int) *Pipeline {
	t.Helper()
	catalog, err := skills.LoadCatalog(filepath.Join(t.TempDir(), "skills"))
	require.NoError(t, err)
	store, err := assets.Open(filepath.Join(t.TempDir(), "assets"))
	require.NoError(t, err)

	return New(
		validate.New(client),
		skills.NewSelector(client, catalog),
		generate.New(client),
		compile.New(320, 240, 30),
		store,
		maxRetries,
	)
}

func TestColdStartTurn(t *testing.T) {
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			require.True(t, isValidationSchema(schema), "only the validator should use schemas on a cold start")
			return acceptAll, nil
		},
		streamFn: func(ctx context.Context, sys, user string) (<-chan string, <-chan error) {
			return streamOf("Here you go:\n\n```go\n", goodSceneBody, "\n```\n")
		},
	}
	p := newTestPipeline(t, client, 3)
	sink := &recordingSink{}

	outcome, err := p.ExecuteTurn(context.Background(), "a green circle", sink)
	require.NoError(t, err)
	require.NotNil(t, outcome.Artifact)
	assert.Contains(t, outcome.Source, "func Scene(ctx Context) Node {")
	assert.NotContains(t, outcome.Source, "```")
	assert.Zero(t, outcome.Retries)

	assert.Equal(t, outcome.Source, p.Conversation().Source())
	assert.Same(t, outcome.Artifact, p.Conversation().Artifact())
	assert.NotEmpty(t, sink.deltas, "stream deltas must reach the sink")
	assert.Contains(t, sink.phases, generate.PhaseGenerating)
}

func TestInvalidPromptShortCircuits(t *testing.T) {
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			require.True(t, isValidationSchema(schema))
			return `{"valid": false, "reason": "that is not something an animation can express"}`, nil
		},
	}
	p := newTestPipeline(t, client, 3)

	_, err := p.ExecuteTurn(context.Background(), "what is the capital of France", nil)
	var rejected *ValidationRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, rejected.Reason, "animation")

	// No generation of any kind may have run.
	assert.EqualValues(t, 0, atomic.LoadInt32(&client.streamCalls))
	assert.EqualValues(t, 0, atomic.LoadInt32(&client.systemCalls))
	assert.Empty(t, p.Conversation().Source())

	// The rejection still lands in the transcript.
	msgs := p.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
}

func TestFollowUpAppliesEdits(t *testing.T) {
	followUps := 0
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			if isValidationSchema(schema) {
				return acceptAll, nil
			}
			followUps++
			return `{"operations": [{"kind": "search-replace", "search": "\"#00ff88\"", "replace": "\"#ff8800\""}], "summary": "Made the circle orange."}`, nil
		},
		streamFn: func(ctx context.Context, sys, user string) (<-chan string, <-chan error) {
			return streamOf(goodSceneReply)
		},
	}
	p := newTestPipeline(t, client, 3)

	_, err := p.ExecuteTurn(context.Background(), "a green circle", nil)
	require.NoError(t, err)

	outcome, err := p.ExecuteTurn(context.Background(), "make it orange", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, followUps)
	assert.Contains(t, outcome.Source, "#ff8800")
	assert.NotContains(t, outcome.Source, "#00ff88")
	assert.Equal(t, "Made the circle orange.", outcome.Summary)
	require.NotNil(t, outcome.Preview)
	assert.Equal(t, 1, outcome.Preview.Added)
	assert.Equal(t, 1, outcome.Preview.Removed)

	// Cold starts must not happen once source exists.
	assert.EqualValues(t, 1, atomic.LoadInt32(&client.streamCalls))
}

func TestInapplicableEditRetriesWithCorrection(t *testing.T) {
	var followUpPrompts []string
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			if isValidationSchema(schema) {
				return acceptAll, nil
			}
			followUpPrompts = append(followUpPrompts, user)
			if len(followUpPrompts) == 1 {
				// Search text that exists nowhere in the scene.
				return `{"operations": [{"kind": "search-replace", "search": "Square(9, 9)", "replace": "x"}], "summary": "bad"}`, nil
			}
			return `{"operations": [{"kind": "search-replace", "search": "Circle(100, 100, 25", "replace": "Circle(100, 100, 50"}], "summary": "Doubled the radius."}`, nil
		},
		streamFn: func(ctx context.Context, sys, user string) (<-chan string, <-chan error) {
			return streamOf(goodSceneReply)
		},
	}
	p := newTestPipeline(t, client, 3)

	_, err := p.ExecuteTurn(context.Background(), "a green circle", nil)
	require.NoError(t, err)
	before := p.Conversation().Source()

	sink := &recordingSink{}
	outcome, err := p.ExecuteTurn(context.Background(), "make it bigger", sink)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Retries)
	assert.Len(t, followUpPrompts, 2)
	assert.Contains(t, followUpPrompts[1], "failed at the edit stage",
		"retry prompt must carry the inapplicability context")
	assert.NotEmpty(t, sink.notices)

	// The only change is the one the successful edit made.
	assert.Equal(t, strings.Replace(before, "Circle(100, 100, 25", "Circle(100, 100, 50", 1), outcome.Source)
}

func TestCorrectionBudgetExhausted(t *testing.T) {
	// Every attempt produces a scene referencing an undeclared capability.
	// The first failure comes from the cold-start stream; retries re-enter
	// in follow-up mode against the failing source and fail the same way.
	followUps := 0
	var retryPrompts []string
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			if isValidationSchema(schema) {
				return acceptAll, nil
			}
			followUps++
			retryPrompts = append(retryPrompts, user)
			return `{"operations": [{"kind": "full-replace", "source": "func Scene(ctx Context) Node {\n\treturn Sphere(2)\n}"}], "summary": "tried again"}`, nil
		},
		streamFn: func(ctx context.Context, sys, user string) (<-chan string, <-chan error) {
			return streamOf(brokenSceneReply)
		},
	}
	p := newTestPipeline(t, client, 2)

	_, err := p.ExecuteTurn(context.Background(), "a bouncing ball", nil)
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts, "initial attempt plus two retries")
	assert.EqualValues(t, 1, atomic.LoadInt32(&client.streamCalls))
	assert.Equal(t, 2, followUps, "retries run in follow-up mode against the failing source")
	for _, user := range retryPrompts {
		assert.Contains(t, user, "Sphere(", "failing source must be restated to the model")
	}
	assert.Empty(t, p.Conversation().Source(), "no artifact may install from failed attempts")
}

func TestFailedTurnKeepsLastGoodArtifact(t *testing.T) {
	turn := 0
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			if isValidationSchema(schema) {
				return acceptAll, nil
			}
			// Every follow-up turn answers with an inapplicable edit.
			return `{"operations": [{"kind": "search-replace", "search": "nope", "replace": "x"}], "summary": "bad"}`, nil
		},
		streamFn: func(ctx context.Context, sys, user string) (<-chan string, <-chan error) {
			turn++
			return streamOf(goodSceneReply)
		},
	}
	p := newTestPipeline(t, client, 1)

	_, err := p.ExecuteTurn(context.Background(), "a green circle", nil)
	require.NoError(t, err)
	goodSource := p.Conversation().Source()
	goodArtifact := p.Conversation().Artifact()

	_, err = p.ExecuteTurn(context.Background(), "rearrange everything", nil)
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)

	assert.Equal(t, goodSource, p.Conversation().Source())
	assert.Same(t, goodArtifact, p.Conversation().Artifact())
}

func TestProviderFailureDoesNotConsumeRetries(t *testing.T) {
	boom := fmt.Errorf("upstream 503")
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			require.True(t, isValidationSchema(schema))
			return acceptAll, nil
		},
		streamFn: func(ctx context.Context, sys, user string) (<-chan string, <-chan error) {
			return streamFailing(boom)
		},
	}
	p := newTestPipeline(t, client, 3)

	_, err := p.ExecuteTurn(context.Background(), "a green circle", nil)
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.EqualValues(t, 1, atomic.LoadInt32(&client.streamCalls),
		"provider failures halt the turn, they are not retried")
}

func TestCancelledValidationIsNotAProviderFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &mockClient{
		completeSchemaFn: func(callCtx context.Context, sys, user, schema string) (string, error) {
			require.True(t, isValidationSchema(schema))
			cancel()
			return "", callCtx.Err()
		},
	}
	p := newTestPipeline(t, client, 3)

	_, err := p.ExecuteTurn(ctx, "a green circle", nil)
	require.ErrorIs(t, err, context.Canceled)
	var provErr *ProviderError
	assert.False(t, errors.As(err, &provErr),
		"an abandoned turn is not an upstream outage")
}

func TestCancelledTurnInstallsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			require.True(t, isValidationSchema(schema))
			return acceptAll, nil
		},
		streamFn: func(streamCtx context.Context, sys, user string) (<-chan string, <-chan error) {
			// Cancel mid-stream: a complete scene has already arrived, but
			// the turn was abandoned.
			cancel()
			return streamOf(goodSceneReply)
		},
	}
	p := newTestPipeline(t, client, 3)

	_, err := p.ExecuteTurn(ctx, "a green circle", nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Conversation().Source())
	assert.Nil(t, p.Conversation().Artifact())
}

func TestSingleTurnInFlight(t *testing.T) {
	p := newTestPipeline(t, &mockClient{}, 3)
	require.NoError(t, p.Conversation().beginTurn())
	defer p.Conversation().endTurn()

	_, err := p.ExecuteTurn(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, ErrTurnInFlight)
}

func TestMalformedFollowUpRetries(t *testing.T) {
	replies := []string{
		"I think you should change the color yourself.",
		`{"operations": [{"kind": "full-replace", "source": "func Scene(ctx Context) Node {\n\treturn Group(Rect(0, 0, 10, 10, Style{}))\n}"}], "summary": "Rebuilt the scene."}`,
	}
	reply := 0
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			if isValidationSchema(schema) {
				return acceptAll, nil
			}
			r := replies[reply]
			reply++
			return r, nil
		},
		streamFn: func(ctx context.Context, sys, user string) (<-chan string, <-chan error) {
			return streamOf(goodSceneReply)
		},
	}
	p := newTestPipeline(t, client, 3)

	_, err := p.ExecuteTurn(context.Background(), "a green circle", nil)
	require.NoError(t, err)

	outcome, err := p.ExecuteTurn(context.Background(), "replace it with a square", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Retries)
	assert.Contains(t, outcome.Source, "Rect(0, 0, 10, 10")
}

func TestSkillsInjectedAndExcluded(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "catalog.yaml", `
- id: bounce-motion
  category: guidance
  trigger: the user wants bouncing or springy movement
  body: Use Spring for bounce. Overshoot slightly, then settle.
- id: starfield
  category: example
  trigger: the user wants a night sky or stars
  body: |
    func Scene(ctx Context) Node {
    	return Group()
    }
`)
	catalog, err := skills.LoadCatalog(dir)
	require.NoError(t, err)

	var selectorCalls int
	var generatorSystem string
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			require.True(t, isValidationSchema(schema))
			return acceptAll, nil
		},
		completeSystemFn: func(ctx context.Context, sys, user string) (string, error) {
			selectorCalls++
			assert.Contains(t, user, "bounce-motion")
			return `["bounce-motion", "made-up-skill"]`, nil
		},
		streamFn: func(ctx context.Context, sys, user string) (<-chan string, <-chan error) {
			generatorSystem = sys
			return streamOf(goodSceneReply)
		},
	}
	store, err := assets.Open(filepath.Join(t.TempDir(), "assets"))
	require.NoError(t, err)
	p := New(validate.New(client), skills.NewSelector(client, catalog),
		generate.New(client), compile.New(320, 240, 30), store, 3)

	outcome, err := p.ExecuteTurn(context.Background(), "a bouncing ball", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, selectorCalls)
	assert.Equal(t, []string{"bounce-motion"}, outcome.SkillsUsed,
		"hallucinated ids are dropped")
	assert.Contains(t, generatorSystem, "Use Spring for bounce")
	assert.Equal(t, []string{"bounce-motion"}, p.Conversation().UsedSkillIDs())
}

func TestSelectorFailureDegradesToNoSkills(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, "catalog.yaml", `
- id: bounce-motion
  category: guidance
  trigger: bouncing
  body: Use Spring.
`)
	catalog, err := skills.LoadCatalog(dir)
	require.NoError(t, err)

	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			require.True(t, isValidationSchema(schema))
			return acceptAll, nil
		},
		completeSystemFn: func(ctx context.Context, sys, user string) (string, error) {
			return "", fmt.Errorf("selector transport down")
		},
		streamFn: func(ctx context.Context, sys, user string) (<-chan string, <-chan error) {
			return streamOf(goodSceneReply)
		},
	}
	store, err := assets.Open(filepath.Join(t.TempDir(), "assets"))
	require.NoError(t, err)
	p := New(validate.New(client), skills.NewSelector(client, catalog),
		generate.New(client), compile.New(320, 240, 30), store, 3)

	outcome, err := p.ExecuteTurn(context.Background(), "a bouncing ball", nil)
	require.NoError(t, err)
	assert.Empty(t, outcome.SkillsUsed)
	require.NotNil(t, outcome.Artifact)
}

func TestConversationReset(t *testing.T) {
	client := &mockClient{
		completeSchemaFn: func(ctx context.Context, sys, user, schema string) (string, error) {
			return acceptAll, nil
		},
		streamFn: func(ctx context.Context, sys, user string) (<-chan string, <-chan error) {
			return streamOf(goodSceneReply)
		},
	}
	p := newTestPipeline(t, client, 3)

	_, err := p.ExecuteTurn(context.Background(), "a green circle", nil)
	require.NoError(t, err)
	require.NotEmpty(t, p.Conversation().Source())

	p.Conversation().Reset()
	assert.Empty(t, p.Conversation().Source())
	assert.Nil(t, p.Conversation().Artifact())
	assert.Empty(t, p.Conversation().Messages())
	assert.Empty(t, p.Conversation().UsedSkillIDs())

	// The next turn is a cold start again.
	_, err = p.ExecuteTurn(context.Background(), "a red square", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&client.streamCalls))
}

func writeSkillFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
