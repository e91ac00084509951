package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the workspace configuration file searched for in the analysis
// root and its ancestors.
const FileName = ".revet.toml"

// ConfigError is fatal: an invalid configuration aborts the run before any
// parsing starts.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("config: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config is the parsed .revet.toml.
type Config struct {
	General GeneralConfig `toml:"general"`
	Ignore  IgnoreConfig  `toml:"ignore"`
	Cache   CacheConfig   `toml:"cache"`
}

// GeneralConfig holds run-wide knobs.
type GeneralConfig struct {
	// DiffBase is the revision findings are computed against.
	DiffBase string `toml:"diff_base"`

	// FailOn is the severity threshold for a failing exit code:
	// "error", "warning", "info", or "never".
	FailOn string `toml:"fail_on"`

	// Workers bounds the parallel parse pool; 0 means one per CPU.
	Workers int `toml:"workers"`

	// MaxImpactDepth bounds impact traversal; 0 means unbounded.
	MaxImpactDepth int `toml:"max_impact_depth"`
}

// IgnoreConfig filters what gets analyzed and reported.
type IgnoreConfig struct {
	// Paths are glob patterns (doublestar syntax) excluded from discovery,
	// on top of version-control ignore rules.
	Paths []string `toml:"paths"`

	// Findings are finding ID prefixes to suppress.
	Findings []string `toml:"findings"`
}

// CacheConfig controls the on-disk parse cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// DefaultIgnorePaths are directories no analysis should ever descend into.
func DefaultIgnorePaths() []string {
	return []string{
		"vendor/",
		"node_modules/",
		"dist/",
		".git/",
		"__pycache__/",
		".venv/",
		"venv/",
		"env/",
		"site-packages/",
		"build/",
		"target/",
		".tox/",
		".eggs/",
		".mypy_cache/",
		".pytest_cache/",
		".revet-cache/",
	}
}

// Default returns the configuration used when no .revet.toml exists.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			DiffBase:       "main",
			FailOn:         "error",
			Workers:        0,
			MaxImpactDepth: 3,
		},
		Ignore: IgnoreConfig{
			Paths: DefaultIgnorePaths(),
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".revet-cache",
		},
	}
}

// Load reads and validates the configuration file at path. User settings
// override defaults field by field.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: "unreadable", Err: err}
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Path: path, Reason: "malformed TOML", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) && cerr.Path == "" {
			cerr.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// Find walks from dir to the filesystem root looking for a .revet.toml.
func Find(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// LoadOrDefault loads the nearest config above dir, or the defaults when
// none exists. A config file that exists but fails to load or validate is
// a fatal error, never silently ignored.
func LoadOrDefault(dir string) (*Config, error) {
	path, ok := Find(dir)
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the threshold value and every ignore pattern.
func (c *Config) Validate() error {
	switch c.General.FailOn {
	case "error", "warning", "info", "never":
	default:
		return &ConfigError{
			Reason: fmt.Sprintf("invalid fail_on %q (want error, warning, info, or never)", c.General.FailOn),
		}
	}

	if c.General.Workers < 0 {
		return &ConfigError{Reason: fmt.Sprintf("workers must be >= 0, got %d", c.General.Workers)}
	}
	if c.General.MaxImpactDepth < 0 {
		return &ConfigError{Reason: fmt.Sprintf("max_impact_depth must be >= 0, got %d", c.General.MaxImpactDepth)}
	}

	for _, pattern := range c.Ignore.Paths {
		if !doublestar.ValidatePattern(pattern) {
			return &ConfigError{Reason: fmt.Sprintf("malformed ignore pattern %q", pattern)}
		}
	}
	return nil
}
