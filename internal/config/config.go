package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds user preferences and pipeline tuning.
type Config struct {
	APIKey       string `json:"api_key"`
	Model        string `json:"model"`
	MaxRetries   int    `json:"max_retries"` // correction supervisor budget
	SkillsDir    string `json:"skills_dir"`  // skill catalog YAML files
	AssetsDir    string `json:"assets_dir"`  // media assets
	DebugLogging bool   `json:"debug_logging"`
	Width        int    `json:"width"` // scene canvas
	Height       int    `json:"height"`
	FPS          int    `json:"fps"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Model:      "gemini-3-flash-preview",
		MaxRetries: 3,
		SkillsDir:  "skills",
		AssetsDir:  "assets",
		Width:      1280,
		Height:     720,
		FPS:        30,
	}
}

// ConfigDir returns the directory where config is stored.
func ConfigDir() (string, error) {
	// Prefer project-local .sceneforge directory if present or creatable
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".sceneforge")
		if stat, err := os.Stat(localDir); (err == nil && stat.IsDir()) || os.IsNotExist(err) {
			return localDir, nil
		}
	}

	// Fallback to home-level config
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sceneforge"), nil
}

// ConfigFile returns the full path to the config file.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk. The SCENEFORGE_API_KEY environment
// variable overrides the stored key.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigFile()
	if err != nil {
		return applyEnv(cfg), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return applyEnv(cfg), nil
	}
	if err != nil {
		return applyEnv(cfg), err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return applyEnv(DefaultConfig()), err
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if key := os.Getenv("SCENEFORGE_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	return cfg
}

// Save writes the configuration to disk.
func Save(cfg Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigFile()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
