// Package config loads the dialogvm host's TOML configuration file:
// where the compiled image and translation text live, where saves are
// kept, and how to reach an out-of-process host-function bridge.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the parsed dialogvm.toml.
type Config struct {
	Image       ImageConfig       `toml:"image"`
	Translation TranslationConfig `toml:"translation"`
	Save        SaveConfig        `toml:"save"`
	Bridge      BridgeConfig      `toml:"bridge"`
	RNG         RNGConfig         `toml:"rng"`

	// Dir is the directory containing the config file (set at load time).
	Dir string `toml:"-"`
}

// ImageConfig locates the compiled .dnx binary image.
type ImageConfig struct {
	Path string `toml:"path"`
}

// TranslationConfig locates the external translation text file.
// Optional: images with an internal translation table don't need one.
type TranslationConfig struct {
	Path string `toml:"path"`
}

// SaveConfig locates the SQLite save database and the default slot.
type SaveConfig struct {
	DatabasePath string `toml:"database_path"`
	Slot         string `toml:"slot"`
}

// BridgeConfig points at an out-of-process host-function daemon.
// When Address is empty, the host uses an in-process registry instead.
type BridgeConfig struct {
	Address string `toml:"address"`
}

// RNGConfig seeds the VM's chance/weighted-choose RNG for reproducible
// playthroughs. Zero means "derive a seed and log it".
type RNGConfig struct {
	Seed int64 `toml:"seed"`
}

// Load reads and parses a dialogvm.toml file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving directory of %s: %w", path, err)
	}
	c.Dir = dir

	if c.Image.Path == "" {
		return nil, fmt.Errorf("%s: [image] path is required", path)
	}
	if !filepath.IsAbs(c.Image.Path) {
		c.Image.Path = filepath.Join(dir, c.Image.Path)
	}
	if c.Translation.Path != "" && !filepath.IsAbs(c.Translation.Path) {
		c.Translation.Path = filepath.Join(dir, c.Translation.Path)
	}
	if c.Save.DatabasePath == "" {
		c.Save.DatabasePath = filepath.Join(dir, "saves.db")
	} else if !filepath.IsAbs(c.Save.DatabasePath) {
		c.Save.DatabasePath = filepath.Join(dir, c.Save.DatabasePath)
	}
	if c.Save.Slot == "" {
		c.Save.Slot = "default"
	}

	return &c, nil
}
