package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sceneforge/internal/config"
	"sceneforge/internal/skills"
)

func newSkillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Inspect the skill catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List loaded skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			catalog, err := skills.LoadCatalog(cfg.SkillsDir)
			if err != nil {
				return err
			}
			if catalog.Len() == 0 {
				fmt.Printf("no skills in %s\n", cfg.SkillsDir)
				return nil
			}
			for _, d := range catalog.All() {
				fmt.Printf("%-24s %-9s %s\n", d.ID, d.Category, d.Trigger)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a skill body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			catalog, err := skills.LoadCatalog(cfg.SkillsDir)
			if err != nil {
				return err
			}
			d, ok := catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("no skill %q", args[0])
			}
			fmt.Println(d.Body)
			return nil
		},
	})

	return cmd
}
