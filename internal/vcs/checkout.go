package vcs

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// CheckoutBranch switches to the named branch, creating it from HEAD when it
// does not exist yet. Protected branches are refused.
func (g *GitWorktree) CheckoutBranch(name string) error {
	if g.opts.IsProtected(name) {
		return fmt.Errorf("%w: %s", ErrProtectedBranch, name)
	}

	current, err := g.CurrentBranch()
	if err == nil && current == name {
		return nil
	}

	branchRef := plumbing.NewBranchReferenceName(name)
	_, err = g.repo.Reference(branchRef, true)
	switch {
	case err == nil:
		return g.wt.Checkout(&git.CheckoutOptions{
			Branch: branchRef,
		})
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return g.wt.Checkout(&git.CheckoutOptions{
			Branch: branchRef,
			Create: true,
		})
	default:
		return err
	}
}

// CurrentBranch returns the short name of the checked out branch.
func (g *GitWorktree) CurrentBranch() (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", ErrNoCommits
		}
		return "", err
	}

	if !head.Name().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Name().Short(), nil
}
