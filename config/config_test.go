package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dialogvm.toml")
	if err := os.WriteFile(path, []byte(`
[image]
path = "story.dnx"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Image.Path != filepath.Join(dir, "story.dnx") {
		t.Errorf("image path = %q", cfg.Image.Path)
	}
	if cfg.Save.Slot != "default" {
		t.Errorf("default slot = %q, want %q", cfg.Save.Slot, "default")
	}
	if cfg.Save.DatabasePath != filepath.Join(dir, "saves.db") {
		t.Errorf("default save db = %q", cfg.Save.DatabasePath)
	}
}

func TestLoadMissingImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dialogvm.toml")
	if err := os.WriteFile(path, []byte(`[rng]
seed = 7
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing image path")
	}
}
