package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir is a stand-in for t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.Width != 1280 || cfg.Height != 720 || cfg.FPS != 30 {
		t.Errorf("canvas defaults = %dx%d@%d", cfg.Width, cfg.Height, cfg.FPS)
	}
	if cfg.Model == "" {
		t.Error("no default model")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCENEFORGE_API_KEY", "")

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.MaxRetries = 5
	cfg.SkillsDir = "my-skills"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.APIKey != "test-key" || loaded.MaxRetries != 5 || loaded.SkillsDir != "my-skills" {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

func TestLoadPrefersLocalDir(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path, err := ConfigFile()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(filepath.Dir(path)) != dir {
		t.Errorf("config file %q not under cwd %q", path, dir)
	}
}

func TestEnvOverridesAPIKey(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCENEFORGE_API_KEY", "env-key")

	cfg := DefaultConfig()
	cfg.APIKey = "file-key"
	if err := Save(cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", loaded.APIKey)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCENEFORGE_API_KEY", "")

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.MaxRetries != DefaultConfig().MaxRetries {
		t.Errorf("defaults not applied: %+v", loaded)
	}
}

func TestLoadRepairsBadRetries(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCENEFORGE_API_KEY", "")

	cfg := DefaultConfig()
	cfg.MaxRetries = 0
	if err := Save(cfg); err != nil {
		t.Fatal(err)
	}
	// Saved zero comes back as the minimum sane budget.
	loaded, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want repaired to 3", loaded.MaxRetries)
	}
}
