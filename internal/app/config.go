package app

import (
	"errors"
	"path/filepath"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// RootPath is the module tree root directory.
	RootPath string

	// Namespace is the root module name. Defaults to the base name of
	// RootPath, matching how the host derives an addon identifier from
	// its install directory.
	Namespace string

	// Patterns select submodules by dotted name; "*" selects everything.
	Patterns []string

	// HostVersion is checked against manifest requires_host constraints
	// when set.
	HostVersion string

	// PolicyPath optionally points at a YAML bucket-policy file for the
	// cycle fallback.
	PolicyPath string

	// ForceOrder bypasses the sorter with an explicit module order.
	ForceOrder []string

	// Strict turns dangling manifest references into hard errors.
	Strict bool

	// DebugGraph writes the Mermaid dependency diagram under the tree's
	// debug/ directory.
	DebugGraph bool

	// Watch keeps the process alive, re-resolving and re-activating the
	// tree whenever it changes on disk.
	Watch bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates and normalizes a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.RootPath == "" {
		return nil, errors.New("RootPath is a required configuration field and cannot be empty")
	}

	if cfg.Namespace == "" {
		cfg.Namespace = filepath.Base(filepath.Clean(cfg.RootPath))
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = []string{"*"}
	}

	return &cfg, nil
}
