package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sceneforge/internal/assets"
	"sceneforge/internal/compile"
	"sceneforge/internal/config"
	"sceneforge/internal/generate"
	"sceneforge/internal/logging"
	"sceneforge/internal/pipeline"
	"sceneforge/internal/provider"
	"sceneforge/internal/skills"
	"sceneforge/internal/validate"
)

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "sceneforge",
		Short:         "Conversational text-to-animation pipeline",
		Long:          "sceneforge turns chat prompts into compiled, renderable animated scenes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Init(debug)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newChatCmd())
	root.AddCommand(newSkillsCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newRenderCmd())
	return root
}

// buildPipeline assembles the full turn pipeline from config. The asset
// store tolerates a missing directory; the skill catalog does too.
func buildPipeline(cfg config.Config) (*pipeline.Pipeline, *assets.Store, error) {
	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("no API key: set SCENEFORGE_API_KEY or run 'sceneforge config init'")
	}

	client := provider.NewGeminiClient(cfg.APIKey)
	if cfg.Model != "" {
		client.SetModel(cfg.Model)
	}

	catalog, err := skills.LoadCatalog(cfg.SkillsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading skills: %w", err)
	}
	store, err := assets.Open(cfg.AssetsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening assets: %w", err)
	}

	p := pipeline.New(
		validate.New(client),
		skills.NewSelector(client, catalog),
		generate.New(client),
		compile.New(cfg.Width, cfg.Height, cfg.FPS),
		store,
		cfg.MaxRetries,
	)
	return p, store, nil
}
