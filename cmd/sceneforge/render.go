package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sceneforge/internal/assets"
	"sceneforge/internal/compile"
	"sceneforge/internal/config"
	"sceneforge/scenekit"
)

// newRenderCmd compiles a scene file and probes it at a point in time,
// without any model in the loop. Useful for checking skill example bodies
// and assets offline.
func newRenderCmd() *cobra.Command {
	var at float64

	cmd := &cobra.Command{
		Use:   "render <scene-file>",
		Short: "Compile a scene file and print its tree at a point in time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			store, err := assets.Open(cfg.AssetsDir)
			if err != nil {
				return err
			}

			compiler := compile.New(cfg.Width, cfg.Height, cfg.FPS)
			artifact, err := compiler.Compile(string(source), compile.NewScope(store.Snapshot()))
			if err != nil {
				return err
			}

			node, err := artifact.Render(at, scenekit.Params{})
			if err != nil {
				return err
			}
			tree, err := json.MarshalIndent(node, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(tree))
			return nil
		},
	}
	cmd.Flags().Float64Var(&at, "at", 0, "scene time in seconds")
	return cmd
}
