package main

import (
	"os"

	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		newConsole(nil).Error("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "gravedigger",
		Usage:     "Prune superclasses that Python test classes do not need",
		Version:   version,
		ArgsUsage: "<project root> <reference prefix> <indicatorA,indicatorB>",
		Description: `gravedigger finds test classes that inherit from bases contributing no
test methods, removes one such base at a time, runs the class's tests and
commits the edit on a working branch only when they still pass.

Running without a command is the same as "gravedigger run".`,
		Flags:  append(globalFlags(), runFlags()...),
		Action: runAction,
		Commands: []*cli.Command{
			runCmd(),
			analyzeCmd(),
			initCmd(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file (TOML, YAML, or JSON)",
			EnvVars: []string{"GRAVEDIGGER_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, markdown, toon",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the report to file",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Disable the parse cache",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Print each candidate and the output of failing tests",
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "test-cmd",
			Usage: `Test command template, "{}" is replaced by the test reference`,
		},
		&cli.StringFlag{
			Name:  "timeout",
			Usage: "Per-test timeout as a Go duration, 0 disables",
		},
		&cli.StringFlag{
			Name:  "branch",
			Usage: "Working branch for commits",
		},
		&cli.BoolFlag{
			Name:  "push",
			Usage: "Push the working branch after each commit",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "List candidates without editing, testing or committing",
		},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Remove unneeded superclasses, keeping only edits whose tests pass",
		ArgsUsage: "<project root> <reference prefix> <indicatorA,indicatorB>",
		Flags:     append(globalFlags(), runFlags()...),
		Action:    runAction,
	}
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Classify test cases and list removal candidates without touching files",
		ArgsUsage: "<project root> <reference prefix> <indicatorA,indicatorB>",
		Flags:     globalFlags(),
		Action:    analyzeAction,
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a default gravedigger.toml",
		Description: `Creates a gravedigger.toml configuration file in the current directory
with the default settings.

Examples:
  gravedigger init                           # Creates gravedigger.toml
  gravedigger init -o .gravedigger/gravedigger.toml
  gravedigger init --force                   # Overwrite an existing file`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "gravedigger.toml",
				Usage:   "Output file path",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing config file",
			},
		},
		Action: initAction,
	}
}
