package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/gravedigger/internal/output"
	"github.com/panbanda/gravedigger/pkg/config"
	"github.com/urfave/cli/v2"
)

// invocation holds the three positional inputs.
type invocation struct {
	root       string
	prefix     string
	indicators []string
}

// parseArgs reads <project root> <reference prefix> <indicators>. Missing
// arguments fall back to ".", no prefix and the configured indicators.
func parseArgs(args []string) (invocation, error) {
	if len(args) > 3 {
		return invocation{}, fmt.Errorf("expected at most 3 arguments, got %d", len(args))
	}

	inv := invocation{root: "."}
	if len(args) > 0 && args[0] != "" {
		inv.root = args[0]
	}
	if len(args) > 1 {
		inv.prefix = strings.Trim(args[1], ".")
	}
	if len(args) > 2 {
		inv.indicators = splitIndicators(args[2])
	}

	abs, err := filepath.Abs(inv.root)
	if err != nil {
		return invocation{}, fmt.Errorf("invalid project root %s: %w", inv.root, err)
	}
	inv.root = abs
	return inv, nil
}

// splitIndicators splits a comma separated list, dropping blanks.
func splitIndicators(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// flagString returns the value of name from the nearest command that set
// it, so global flags given before a subcommand are not shadowed.
func flagString(c *cli.Context, name string) string {
	for _, lc := range c.Lineage() {
		if lc.IsSet(name) {
			return lc.String(name)
		}
	}
	return c.String(name)
}

func flagBool(c *cli.Context, name string) bool {
	for _, lc := range c.Lineage() {
		if lc.IsSet(name) {
			return lc.Bool(name)
		}
	}
	return c.Bool(name)
}

// loadConfig reads --config or the project's config file, then applies
// command line overrides and validates the result.
func loadConfig(c *cli.Context, root string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := flagString(c, "config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault(root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if v := flagString(c, "test-cmd"); v != "" {
		cfg.Runner.Command = v
	}
	if v := flagString(c, "timeout"); v != "" {
		cfg.Runner.Timeout = v
	}
	if v := flagString(c, "branch"); v != "" {
		cfg.VCS.Branch = v
	}
	if v := flagString(c, "format"); v != "" {
		cfg.Output.Format = v
	}
	if flagBool(c, "push") {
		cfg.VCS.Push = true
	}
	if flagBool(c, "no-cache") {
		cfg.Cache.Enabled = false
	}
	if flagBool(c, "verbose") {
		cfg.Output.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveIndicators prefers the command line list over the configured one.
func resolveIndicators(inv invocation, cfg *config.Config) ([]string, error) {
	indicators := inv.indicators
	if len(indicators) == 0 {
		indicators = cfg.Hierarchy.Indicators
	}
	if len(indicators) == 0 {
		return nil, fmt.Errorf("no test case indicators given")
	}
	return indicators, nil
}

// cacheDir places a relative cache directory under the project root.
func cacheDir(root string, cfg *config.Config) string {
	if filepath.IsAbs(cfg.Cache.Dir) {
		return cfg.Cache.Dir
	}
	return filepath.Join(root, cfg.Cache.Dir)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// newConsole returns the stderr console, keeping stdout for the report.
// Color follows output.color once a config is loaded.
func newConsole(cfg *config.Config) *output.Console {
	return output.NewConsole(os.Stderr, cfg == nil || cfg.Output.Color)
}
