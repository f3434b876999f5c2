package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for gravedigger.
type Config struct {
	// Test module discovery
	Scan ScanConfig `koanf:"scan" toml:"scan"`

	// Test case classification
	Hierarchy HierarchyConfig `koanf:"hierarchy" toml:"hierarchy"`

	// External test runner
	Runner RunnerConfig `koanf:"runner" toml:"runner"`

	// Version control behaviour
	VCS VCSConfig `koanf:"vcs" toml:"vcs"`

	// Refactor loop behaviour
	Refactor RefactorConfig `koanf:"refactor" toml:"refactor"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// ScanConfig controls which files are treated as test modules.
type ScanConfig struct {
	Patterns []string `koanf:"patterns" toml:"patterns"` // glob on the base name
	Workers  int      `koanf:"workers" toml:"workers"`   // 0 means 2x NumCPU
}

// HierarchyConfig controls how test cases are recognised.
type HierarchyConfig struct {
	Indicators       []string `koanf:"indicators" toml:"indicators"`
	TestMethodPrefix string   `koanf:"test_method_prefix" toml:"test_method_prefix"`
	UniversalBase    string   `koanf:"universal_base" toml:"universal_base"`
	OnCollision      string   `koanf:"on_collision" toml:"on_collision"` // last, first, error
}

// RunnerConfig describes how a single test class is executed.
type RunnerConfig struct {
	// Command is a shell template; "{}" is replaced by the test reference.
	Command string `koanf:"command" toml:"command"`
	Shell   string `koanf:"shell" toml:"shell"`
	Timeout string `koanf:"timeout" toml:"timeout"` // Go duration, "0" disables
	// EnvFile is a dotenv file whose variables are added to the test
	// environment. Relative paths resolve against the project root; a
	// missing file is ignored.
	EnvFile string `koanf:"env_file" toml:"env_file"`
}

// VCSConfig controls the git working branch and commits.
type VCSConfig struct {
	Branch            string   `koanf:"branch" toml:"branch"`
	ProtectedBranches []string `koanf:"protected_branches" toml:"protected_branches"`
	CommitMessage     string   `koanf:"commit_message" toml:"commit_message"` // %s is the class name
	Push              bool     `koanf:"push" toml:"push"`
	Remote            string   `koanf:"remote" toml:"remote"`
	AuthorName        string   `koanf:"author_name" toml:"author_name"`
	AuthorEmail       string   `koanf:"author_email" toml:"author_email"`
}

// RefactorConfig controls the edit/test/commit loop.
type RefactorConfig struct {
	AbortOnRewriteError bool `koanf:"abort_on_rewrite_error" toml:"abort_on_rewrite_error"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching of parsed modules.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Patterns: []string{"test*.py"},
		},
		Hierarchy: HierarchyConfig{
			Indicators:       []string{"TestCase"},
			TestMethodPrefix: "test_",
			UniversalBase:    "object",
			OnCollision:      CollisionLast,
		},
		Runner: RunnerConfig{
			Command: "python -m unittest {}",
			Shell:   "sh",
			Timeout: "30m",
			EnvFile: ".env",
		},
		VCS: VCSConfig{
			Branch:            "gravedigger",
			ProtectedBranches: []string{"main", "master"},
			CommitMessage:     "Simplified %s",
			Remote:            "origin",
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				".git",
				".tox",
				".venv",
				"venv",
				"node_modules",
				"__pycache__",
				"build",
				"dist",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".gravedigger/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Collision policies for duplicate class names.
const (
	CollisionLast  = "last"
	CollisionFirst = "first"
	CollisionError = "error"
)

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// configNames are the file names searched by LoadOrDefault, in order.
var configNames = []string{
	"gravedigger.toml",
	"gravedigger.yaml",
	"gravedigger.yml",
	"gravedigger.json",
	".gravedigger.toml",
	".gravedigger.yaml",
	".gravedigger.yml",
	".gravedigger.json",
}

// LoadOrDefault searches dir and dir/.gravedigger for a config file.
// It returns defaults when none exists. A config file that exists but
// cannot be loaded is an error.
func LoadOrDefault(dir string) (*Config, error) {
	for _, d := range []string{dir, filepath.Join(dir, ".gravedigger")} {
		for _, name := range configNames {
			path := filepath.Join(d, name)
			if _, err := os.Stat(path); err == nil {
				return Load(path)
			}
		}
	}
	return DefaultConfig(), nil
}

// Validate checks values that would otherwise fail late in a run.
func (c *Config) Validate() error {
	if len(c.Scan.Patterns) == 0 {
		return fmt.Errorf("scan.patterns must not be empty")
	}
	for _, p := range c.Scan.Patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("scan.patterns: bad pattern %q: %w", p, err)
		}
	}
	if c.Hierarchy.TestMethodPrefix == "" {
		return fmt.Errorf("hierarchy.test_method_prefix must not be empty")
	}
	switch c.Hierarchy.OnCollision {
	case CollisionLast, CollisionFirst, CollisionError:
	default:
		return fmt.Errorf("hierarchy.on_collision must be one of last, first, error (got %q)", c.Hierarchy.OnCollision)
	}
	if strings.Count(c.Runner.Command, "{}") != 1 {
		return fmt.Errorf("runner.command must contain exactly one {} placeholder")
	}
	if _, err := c.RunnerTimeout(); err != nil {
		return err
	}
	if c.VCS.Branch == "" {
		return fmt.Errorf("vcs.branch must not be empty")
	}
	for _, b := range c.VCS.ProtectedBranches {
		if b == c.VCS.Branch {
			return fmt.Errorf("vcs.branch %q is a protected branch", b)
		}
	}
	return nil
}

// RunnerTimeout parses Runner.Timeout. Zero means no timeout.
func (c *Config) RunnerTimeout() (time.Duration, error) {
	if c.Runner.Timeout == "" || c.Runner.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Runner.Timeout)
	if err != nil {
		return 0, fmt.Errorf("runner.timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("runner.timeout must not be negative (got %s)", d)
	}
	return d, nil
}

// IsExcludedDir reports whether a directory base name is excluded.
func (c *Config) IsExcludedDir(name string) bool {
	for _, dir := range c.Exclude.Dirs {
		if name == dir {
			return true
		}
	}
	return false
}

// IsTestModule reports whether a file base name matches a scan pattern
// and no exclude pattern.
func (c *Config) IsTestModule(base string) bool {
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}
	for _, pattern := range c.Scan.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
