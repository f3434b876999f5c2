// Package refactor runs the edit, test, commit-or-revert loop over removal
// candidates.
package refactor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/panbanda/gravedigger/internal/runner"
	"github.com/panbanda/gravedigger/internal/scanner"
	"github.com/panbanda/gravedigger/internal/vcs"
	"github.com/panbanda/gravedigger/pkg/config"
	"github.com/panbanda/gravedigger/pkg/hierarchy"
	"github.com/panbanda/gravedigger/pkg/models"
	"github.com/panbanda/gravedigger/pkg/registry"
	"github.com/panbanda/gravedigger/pkg/rewrite"
)

// ErrRevertMismatch is returned when a reverted file does not match its
// content from before the edit.
var ErrRevertMismatch = errors.New("reverted file differs from its pre-edit content")

// ErrMissingCollaborator is returned when Run needs a worktree or runner
// that was not configured.
var ErrMissingCollaborator = errors.New("controller needs a worktree and a test runner")

// Skip reasons that do not come from the rewriter.
const (
	ReasonOutsideProject = "outside_project"
	ReasonUnknownClass   = "unknown_class"
	ReasonStale          = "superclass_no_longer_declared"
)

// EventKind identifies a step of the loop.
type EventKind int

const (
	EventCandidate EventKind = iota // a candidate is about to be processed
	EventTestRun                    // the edit was applied and the test starts
	EventOutcome                    // the candidate reached a final state
)

// Event is passed to an Observer as the loop progresses.
type Event struct {
	Kind      EventKind
	Candidate models.Candidate
	TestRef   string
	Outcome   *models.Outcome
}

// Observer receives loop events, for console output.
type Observer func(Event)

// Request names the project and the classification inputs of one run.
type Request struct {
	Root       string
	Prefix     string
	Indicators []string
}

// Controller owns the analysis state of one run.
type Controller struct {
	config   *config.Config
	registry *registry.Registry
	analyzer *hierarchy.Analyzer
	rewriter *rewrite.Rewriter
	loader   *scanner.Loader
	worktree vcs.Worktree
	runner   runner.Runner
	observer Observer
	dryRun   bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithWorktree sets the version control adapter.
func WithWorktree(wt vcs.Worktree) Option {
	return func(c *Controller) { c.worktree = wt }
}

// WithRunner sets the test runner.
func WithRunner(r runner.Runner) Option {
	return func(c *Controller) { c.runner = r }
}

// WithLoader sets the loader used to re-scan a module after a confirmed edit.
func WithLoader(l *scanner.Loader) Option {
	return func(c *Controller) { c.loader = l }
}

// WithObserver sets a callback for loop events.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithDryRun plans candidates without editing, testing or committing.
func WithDryRun(dryRun bool) Option {
	return func(c *Controller) { c.dryRun = dryRun }
}

// New creates a controller over reg.
func New(cfg *config.Config, reg *registry.Registry, opts ...Option) *Controller {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &Controller{
		config:   cfg,
		registry: reg,
		rewriter: rewrite.New(),
		analyzer: hierarchy.New(reg,
			hierarchy.WithTestPrefix(cfg.Hierarchy.TestMethodPrefix),
			hierarchy.WithUniversalBase(cfg.Hierarchy.UniversalBase),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loader == nil {
		c.loader = scanner.NewLoader(cfg, nil)
	}
	return c
}

// Run classifies the registry, computes the candidates and processes them
// one at a time. The report is returned even when a fatal error stops the
// run early.
func (c *Controller) Run(ctx context.Context, req Request) (*models.Report, error) {
	root, err := resolveRoot(req.Root)
	if err != nil {
		return nil, err
	}

	report := models.NewReport(root, req.Indicators)
	report.DryRun = c.dryRun
	report.Summary.Classes = c.registry.Len()

	for _, col := range c.registry.Collisions() {
		report.Warn(fmt.Sprintf("class %s declared in %s and %s; using %s", col.Name, col.Kept, col.Dropped, col.Kept))
	}
	for _, cycle := range c.analyzer.Cycles() {
		report.Cycles = append(report.Cycles, cycle)
		report.Warn("inheritance cycle: " + strings.Join(cycle, " -> "))
	}

	classification := c.analyzer.Classify(req.Indicators)
	report.SetClassification(classification)
	candidates := c.analyzer.CandidatesFor(classification, req.Indicators)
	report.SetCandidates(candidates)

	if c.dryRun {
		for _, cand := range candidates {
			o := models.Outcome{Class: cand.Class, Superclass: cand.Superclass, State: models.StatePending}
			if d, ok := c.registry.Get(cand.Class); ok {
				o.File = d.File
				o.TestRef = TestReference(root, d.File, cand.Class, req.Prefix)
			}
			report.Outcomes = append(report.Outcomes, o)
		}
		return report, nil
	}

	if c.worktree == nil || c.runner == nil {
		return report, ErrMissingCollaborator
	}
	if branch, err := c.worktree.CurrentBranch(); err == nil {
		report.Branch = branch
	}

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		c.notify(Event{Kind: EventCandidate, Candidate: cand})

		outcome, err := c.process(ctx, root, req.Prefix, cand)
		if outcome != nil {
			report.Record(*outcome)
			c.notify(Event{Kind: EventOutcome, Candidate: cand, TestRef: outcome.TestRef, Outcome: outcome})
		}
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// process moves one candidate from pending to a final state. A non-nil
// error stops the whole run.
func (c *Controller) process(ctx context.Context, root, prefix string, cand models.Candidate) (*models.Outcome, error) {
	clean, err := c.worktree.IsClean()
	if err != nil {
		return nil, fmt.Errorf("failed to check working tree: %w", err)
	}
	if !clean {
		return nil, vcs.ErrDirtyWorkingDir
	}

	outcome := &models.Outcome{
		Class:      cand.Class,
		Superclass: cand.Superclass,
		State:      models.StatePending,
		ExitCode:   -1,
	}

	desc, ok := c.registry.Get(cand.Class)
	if !ok {
		return skip(outcome, ReasonUnknownClass), nil
	}
	outcome.File = desc.File

	if !scanner.IsWithinRoot(desc.File, root) {
		return skip(outcome, ReasonOutsideProject), nil
	}
	if !declares(desc, cand.Superclass) {
		return skip(outcome, ReasonStale), nil
	}

	rel, err := c.repoPath(desc.File)
	if err != nil {
		return skip(outcome, ReasonOutsideProject), nil
	}

	before, err := os.ReadFile(desc.File)
	if err != nil {
		return c.rewriteRefused(outcome, rewrite.ReasonIO.String(), err)
	}

	res := c.rewriter.RemoveSuperclass(desc.File, cand.Class, cand.Superclass)
	if res.Reason != rewrite.ReasonNone {
		return c.rewriteRefused(outcome, res.Reason.String(), res.Err())
	}
	outcome.State = models.StateEdited

	outcome.TestRef = TestReference(root, desc.File, cand.Class, prefix)
	c.notify(Event{Kind: EventTestRun, Candidate: cand, TestRef: outcome.TestRef})

	start := time.Now()
	result, runErr := c.runner.Run(ctx, outcome.TestRef)
	outcome.Duration = time.Since(start)
	if result != nil {
		outcome.ExitCode = result.ExitCode
		outcome.Output = result.Output
		outcome.Duration = result.Duration
	}

	if runErr == nil && result != nil && result.Passed {
		return c.confirm(ctx, outcome, desc.File, rel, before)
	}

	switch {
	case runErr != nil:
		outcome.Reason = runErr.Error()
	case result != nil && result.TimedOut:
		outcome.Reason = "timed out"
	default:
		outcome.Reason = fmt.Sprintf("tests failed (exit %d)", outcome.ExitCode)
	}
	if err := c.revert(desc.File, rel, before); err != nil {
		return outcome, err
	}
	outcome.State = models.StateReverted

	// A cancelled run stops after the candidate has been reverted.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome, ctxErr
	}
	return outcome, nil
}

func (c *Controller) confirm(ctx context.Context, outcome *models.Outcome, file, rel string, before []byte) (*models.Outcome, error) {
	hash, err := c.worktree.Commit(CommitMessage(c.config.VCS.CommitMessage, outcome.Class), rel)
	if err != nil {
		err = fmt.Errorf("failed to commit %s: %w", rel, err)
		if revertErr := c.revert(file, rel, before); revertErr != nil {
			return outcome, errors.Join(err, revertErr)
		}
		outcome.State = models.StateReverted
		outcome.Reason = err.Error()
		return outcome, err
	}
	outcome.Commit = hash
	outcome.State = models.StateConfirmed

	if err := c.worktree.Push(ctx); err != nil {
		outcome.Reason = err.Error()
	}

	// Later candidates must see the edited header.
	if err := c.loader.Reload(c.registry, file); err != nil {
		outcome.Reason = fmt.Sprintf("failed to re-scan %s: %v", rel, err)
	}
	return outcome, nil
}

// revert restores every modified file from the index and checks that the
// edited file matches before.
func (c *Controller) revert(file, rel string, before []byte) error {
	if err := c.worktree.RevertAll(); err != nil {
		return fmt.Errorf("failed to revert %s: %w", rel, err)
	}
	after, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to verify revert of %s: %w", rel, err)
	}
	if !bytes.Equal(before, after) {
		return fmt.Errorf("%w: %s", ErrRevertMismatch, rel)
	}
	return nil
}

// rewriteRefused skips the candidate, or stops the run when configured to.
func (c *Controller) rewriteRefused(outcome *models.Outcome, reason string, err error) (*models.Outcome, error) {
	skip(outcome, reason)
	if c.config.Refactor.AbortOnRewriteError {
		return outcome, fmt.Errorf("cannot remove %s from %s: %w", outcome.Superclass, outcome.Class, err)
	}
	return outcome, nil
}

// repoPath returns file relative to the repository root.
func (c *Controller) repoPath(file string) (string, error) {
	rel, err := filepath.Rel(c.worktree.Root(), file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside the repository %s", file, c.worktree.Root())
	}
	return filepath.ToSlash(rel), nil
}

func (c *Controller) notify(e Event) {
	if c.observer != nil {
		c.observer(e)
	}
}

func skip(o *models.Outcome, reason string) *models.Outcome {
	o.State = models.StateSkipped
	o.Reason = reason
	return o
}

func declares(d *registry.ClassDescriptor, superclass string) bool {
	for _, s := range d.Superclasses {
		if s == superclass {
			return true
		}
	}
	return false
}

func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

// TestReference builds the dotted test id of class: the module path relative
// to root with ".py" dropped and separators turned into dots, followed by
// the class name. A leading "prefix." is stripped.
func TestReference(root, file, class, prefix string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		rel = file
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".py")
	ref := strings.ReplaceAll(rel, "/", ".") + "." + class
	if prefix != "" {
		ref = strings.TrimPrefix(ref, prefix+".")
	}
	return ref
}

// CommitMessage fills the class name into a commit message template.
func CommitMessage(template, class string) string {
	if template == "" {
		template = "Simplified %s"
	}
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, class)
}
