package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"sceneforge/internal/config"
	"sceneforge/internal/generate"
	"sceneforge/internal/pipeline"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive scene-building session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			p, store, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			// Asset changes land in the next compile without a restart.
			if err := store.Watch(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "warning: asset watching disabled:", err)
			}

			return runChat(ctx, p)
		},
	}
}

// consoleSink prints streaming progress the way a chat log reads: phase
// markers on their own lines, deltas inline.
type consoleSink struct {
	streamed bool
}

func (s *consoleSink) Phase(phase generate.Phase) {
	switch phase {
	case generate.PhaseReasoning:
		fmt.Println("… thinking")
	case generate.PhaseGenerating:
		fmt.Println("… writing scene")
	case generate.PhaseIdle:
		if s.streamed {
			fmt.Println()
		}
	}
}

func (s *consoleSink) Delta(chunk string) {
	s.streamed = true
	fmt.Print(chunk)
}

func (s *consoleSink) Notice(message string) {
	fmt.Println("…", message)
}

func runChat(ctx context.Context, p *pipeline.Pipeline) error {
	fmt.Println("sceneforge chat. Describe a scene; /source, /reset, /quit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/reset":
			p.Conversation().Reset()
			fmt.Println("session cleared")
			continue
		case "/source":
			src := p.Conversation().Source()
			if src == "" {
				fmt.Println("no scene yet")
			} else {
				fmt.Println(src)
			}
			continue
		}

		outcome, err := p.ExecuteTurn(ctx, line, &consoleSink{})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			reportTurnError(err)
			continue
		}
		fmt.Println(outcome.Summary)
		if outcome.Preview != nil {
			fmt.Print(outcome.Preview.String())
		}
		if outcome.Retries > 0 {
			fmt.Printf("(recovered after %d retries)\n", outcome.Retries)
		}
	}
}

func reportTurnError(err error) {
	var rejected *pipeline.ValidationRejectedError
	var exhausted *pipeline.ExhaustedError
	switch {
	case errors.As(err, &rejected):
		fmt.Println(rejected.Reason)
	case errors.As(err, &exhausted):
		fmt.Println("I kept hitting errors and gave up; the previous scene is still live.")
		fmt.Println("  last failure:", exhausted.Last)
	default:
		fmt.Println("turn failed:", err)
	}
}
