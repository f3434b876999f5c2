package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/panbanda/gravedigger/internal/cache"
	"github.com/panbanda/gravedigger/internal/output"
	"github.com/panbanda/gravedigger/internal/progress"
	"github.com/panbanda/gravedigger/internal/refactor"
	"github.com/panbanda/gravedigger/internal/runner"
	"github.com/panbanda/gravedigger/internal/scanner"
	"github.com/panbanda/gravedigger/internal/vcs"
	"github.com/panbanda/gravedigger/pkg/config"
	"github.com/panbanda/gravedigger/pkg/models"
	"github.com/urfave/cli/v2"
)

func runAction(c *cli.Context) error {
	inv, err := parseArgs(c.Args().Slice())
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c, inv.root)
	if err != nil {
		return err
	}
	indicators, err := resolveIndicators(inv, cfg)
	if err != nil {
		return err
	}
	dryRun := flagBool(c, "dry-run")
	console := newConsole(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The working tree is checked and the branch switched before anything
	// is read, so a dirty tree fails fast.
	var wt *vcs.GitWorktree
	if !dryRun {
		wt, err = vcs.Open(inv.root, vcs.OptionsFromConfig(cfg))
		if err != nil {
			return fmt.Errorf("cannot prepare repository: %w", err)
		}
		branch, _ := wt.CurrentBranch()
		console.Info("Working on branch %s", branch)
	}

	loader, loaded, err := scanProject(ctx, console, cfg, inv.root)
	if err != nil {
		return err
	}

	observer := newConsoleObserver(console, cfg.Output.Verbose)
	defer observer.stop()
	opts := []refactor.Option{
		refactor.WithLoader(loader),
		refactor.WithDryRun(dryRun),
		refactor.WithObserver(observer.observe),
	}
	if !dryRun {
		r, err := runner.New(cfg, inv.root)
		if err != nil {
			return err
		}
		opts = append(opts, refactor.WithWorktree(wt), refactor.WithRunner(r))
	}

	controller := refactor.New(cfg, loaded.Registry, opts...)
	report, runErr := controller.Run(ctx, refactor.Request{
		Root:       inv.root,
		Prefix:     inv.prefix,
		Indicators: indicators,
	})
	if report == nil {
		return runErr
	}
	annotate(report, loaded)

	if err := writeReport(c, cfg, func(colored bool) output.Renderable {
		return output.NewPruneReport(report, colored)
	}); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("run stopped: %w", runErr)
	}
	return nil
}

func analyzeAction(c *cli.Context) error {
	inv, err := parseArgs(c.Args().Slice())
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c, inv.root)
	if err != nil {
		return err
	}
	indicators, err := resolveIndicators(inv, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, loaded, err := scanProject(ctx, newConsole(cfg), cfg, inv.root)
	if err != nil {
		return err
	}

	controller := refactor.New(cfg, loaded.Registry, refactor.WithLoader(loader), refactor.WithDryRun(true))
	report, err := controller.Run(ctx, refactor.Request{
		Root:       inv.root,
		Prefix:     inv.prefix,
		Indicators: indicators,
	})
	if err != nil {
		return err
	}
	annotate(report, loaded)

	return writeReport(c, cfg, func(bool) output.Renderable {
		return output.NewClassificationReport(report)
	})
}

// scanProject finds the test modules under root and parses them with a
// progress bar on stderr.
func scanProject(ctx context.Context, console *output.Console, cfg *config.Config, root string) (*scanner.Loader, *scanner.LoadResult, error) {
	c, err := cache.New(cacheDir(root, cfg), cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		console.Warning("Parse cache unavailable: %v", err)
		c = nil
	}
	loader := scanner.NewLoader(cfg, c)

	files, err := scanner.NewScanner(cfg).ScanDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan directory %s: %w", root, err)
	}
	if len(files) == 0 {
		console.Warning("No test modules found under %s", root)
	}

	tracker := progress.NewTracker("Scanning test modules...", len(files))
	loaded, err := loader.LoadFiles(ctx, files, tracker.Tick)
	if err != nil {
		tracker.FinishError(err)
		return nil, nil, fmt.Errorf("scan failed: %w", err)
	}
	tracker.FinishSuccess()

	if loaded.Skipped != nil && loaded.Skipped.HasErrors() {
		console.Warning("Skipped %d unreadable modules", len(loaded.Skipped.Errors))
		if cfg.Output.Verbose {
			for _, e := range loaded.Skipped.Errors {
				console.Printf("  %v\n", e)
			}
		}
	}
	if cfg.Output.Verbose && loaded.Cached > 0 {
		console.Printf("%d of %d modules served from cache\n", loaded.Cached, len(loaded.Modules))
	}
	return loader, loaded, nil
}

// annotate copies scan counts into the report.
func annotate(report *models.Report, loaded *scanner.LoadResult) {
	report.Summary.Modules = len(loaded.Modules)
	if loaded.Skipped != nil {
		report.Summary.SkippedModules = len(loaded.Skipped.Errors)
		for _, e := range loaded.Skipped.Errors {
			report.Warn("skipped module " + e.Error())
		}
	}
}

// writeReport renders the report built by build to stdout or --output.
func writeReport(c *cli.Context, cfg *config.Config, build func(colored bool) output.Renderable) error {
	formatter, err := output.NewFormatter(output.ParseFormat(cfg.Output.Format), flagString(c, "output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(build(formatter.Colored()))
}

// consoleObserver prints one status line per candidate and keeps a
// spinner running while the candidate is edited and tested.
type consoleObserver struct {
	console *output.Console
	verbose bool
	spinner *progress.Tracker
}

func newConsoleObserver(console *output.Console, verbose bool) *consoleObserver {
	return &consoleObserver{console: console, verbose: verbose}
}

func (o *consoleObserver) observe(e refactor.Event) {
	switch e.Kind {
	case refactor.EventCandidate:
		o.stop()
		if o.verbose {
			o.console.Printf("Trying %s without %s\n", e.Candidate.Class, e.Candidate.Superclass)
		}
		o.spinner = progress.NewSpinner("Editing " + e.Candidate.Class)
	case refactor.EventTestRun:
		if o.spinner != nil {
			o.spinner.Describe("Testing " + e.TestRef)
		}
	case refactor.EventOutcome:
		o.stop()
		printOutcome(o.console, e.Outcome, o.verbose)
	}
}

// stop clears a running spinner. A run that ends with an error may leave
// one behind.
func (o *consoleObserver) stop() {
	if o.spinner != nil {
		o.spinner.FinishSuccess()
		o.spinner = nil
	}
}

func printOutcome(console *output.Console, o *models.Outcome, verbose bool) {
	switch o.State {
	case models.StateConfirmed:
		console.Success("Simplified %s: removed %s", o.Class, o.Superclass)
		if o.Reason != "" {
			console.Warning("  %s", o.Reason)
		}
	case models.StateReverted:
		console.Error("Kept %s on %s: %s", o.Superclass, o.Class, truncate(o.Reason, 120))
		if verbose && o.Output != "" {
			console.Printf("%s\n", strings.TrimRight(o.Output, "\n"))
		}
	case models.StateSkipped:
		console.Warning("Skipped %s on %s: %s", o.Superclass, o.Class, o.Reason)
	}
}
