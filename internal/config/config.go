// Package config loads tool configuration and the caller identity.
//
// Configuration comes from an optional YAML file with environment
// overrides (LORE_* variables). Identity comes from an identity.yaml
// written by the external auth flow; a missing identity file means an
// unauthenticated caller, which is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/lorekit/lore/internal/core"
)

// DefaultPath is the config file location relative to the working
// directory.
const DefaultPath = ".lore/config.yaml"

// Config is the tool configuration.
type Config struct {
	// DataDir holds the database, trail files, and identity file.
	DataDir string `yaml:"data_dir" env:"LORE_DATA_DIR" env-default:".lore"`

	// DatabaseFile is the SQLite file name inside DataDir.
	DatabaseFile string `yaml:"database_file" env:"LORE_DATABASE_FILE" env-default:"lore.db"`

	// TrailDir overrides the trail directory. Empty means DataDir/trail.
	TrailDir string `yaml:"trail_dir" env:"LORE_TRAIL_DIR"`

	// IdentityFile overrides the identity file path. Empty means
	// DataDir/identity.yaml.
	IdentityFile string `yaml:"identity_file" env:"LORE_IDENTITY_FILE"`
}

// Load reads the config file at path (DefaultPath when empty) with
// environment overrides. A missing file falls back to defaults plus
// environment.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("read config from env: %w", err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

// DatabasePath returns the SQLite file path.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// TrailPath returns the trail directory.
func (c Config) TrailPath() string {
	if c.TrailDir != "" {
		return c.TrailDir
	}
	return filepath.Join(c.DataDir, "trail")
}

// IdentityPath returns the identity file path.
func (c Config) IdentityPath() string {
	if c.IdentityFile != "" {
		return c.IdentityFile
	}
	return filepath.Join(c.DataDir, "identity.yaml")
}

// LoadIdentity reads the identity file. A missing file returns the zero
// Identity: an unauthenticated caller with public-only catalog access.
func LoadIdentity(path string) (core.Identity, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return core.Identity{}, nil
	}
	if err != nil {
		return core.Identity{}, fmt.Errorf("read identity %s: %w", path, err)
	}

	var id core.Identity
	if err := yaml.Unmarshal(raw, &id); err != nil {
		return core.Identity{}, fmt.Errorf("parse identity %s: %w", path, err)
	}
	if id.OrgID != "" && id.UserID == "" {
		return core.Identity{}, fmt.Errorf("identity %s: org without user", path)
	}
	return id, nil
}
