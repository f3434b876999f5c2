// Package vcs provides the git working tree the pruner edits.
package vcs

import (
	"context"
	"errors"

	"github.com/panbanda/gravedigger/pkg/config"
)

// ErrDirtyWorkingDir is returned when the working directory has uncommitted changes.
var ErrDirtyWorkingDir = errors.New("working directory has uncommitted changes")

// ErrDetachedHead is returned when the repository is in detached HEAD state.
var ErrDetachedHead = errors.New("repository is in detached HEAD state; checkout a branch first")

// ErrProtectedBranch is returned when the working branch is a protected branch.
var ErrProtectedBranch = errors.New("refusing to work on a protected branch")

// ErrNoCommits is returned for a repository without any commit.
var ErrNoCommits = errors.New("repository has no commits")

// Worktree is the set of git operations the refactor loop relies on.
// Paths are relative to the repository root, slash separated.
type Worktree interface {
	// Root returns the absolute path of the working tree.
	Root() string
	// IsClean reports whether no tracked file is modified or staged.
	// Untracked files are ignored.
	IsClean() (bool, error)
	// ModifiedPaths lists tracked files that differ from HEAD or the index.
	ModifiedPaths() ([]string, error)
	// Revert restores paths from the index.
	Revert(paths ...string) error
	// RevertAll restores every modified path from the index.
	RevertAll() error
	// Commit stages paths and commits them, returning the commit hash.
	Commit(message string, paths ...string) (string, error)
	// Push pushes the working branch. It does nothing unless pushing is enabled.
	Push(ctx context.Context) error
	// CheckoutBranch switches to name, creating it from HEAD if needed.
	CheckoutBranch(name string) error
	// CurrentBranch returns the short name of the checked out branch.
	CurrentBranch() (string, error)
}

// Options configures Open.
type Options struct {
	Branch            string
	ProtectedBranches []string
	Remote            string
	Push              bool
	AuthorName        string
	AuthorEmail       string
}

// OptionsFromConfig builds Options from the vcs section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return Options{
		Branch:            cfg.VCS.Branch,
		ProtectedBranches: cfg.VCS.ProtectedBranches,
		Remote:            cfg.VCS.Remote,
		Push:              cfg.VCS.Push,
		AuthorName:        cfg.VCS.AuthorName,
		AuthorEmail:       cfg.VCS.AuthorEmail,
	}
}

// IsProtected reports whether branch is one of the protected branches.
func (o Options) IsProtected(branch string) bool {
	for _, b := range o.ProtectedBranches {
		if b == branch {
			return true
		}
	}
	return false
}
