package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sceneforge/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.APIKey != "" {
				cfg.APIKey = "<set>"
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			path, err := config.ConfigFile()
			if err == nil {
				fmt.Println("file:", path)
			}
			return nil
		},
	})

	var apiKey, model string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			cfg.APIKey = apiKey
			if model != "" {
				cfg.Model = model
			}
			if err := config.Save(cfg); err != nil {
				return err
			}
			path, err := config.ConfigFile()
			if err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&apiKey, "api-key", "", "provider API key")
	initCmd.Flags().StringVar(&model, "model", "", "model name override")
	cmd.AddCommand(initCmd)

	return cmd
}
