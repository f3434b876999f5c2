package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitWorktree implements Worktree with go-git.
type GitWorktree struct {
	repo *git.Repository
	wt   *git.Worktree
	root string
	opts Options
}

var _ Worktree = (*GitWorktree)(nil)

// Open opens the repository containing path and prepares it for editing:
// the tree must be clean, HEAD must be on a branch, and the working branch
// from opts is checked out (created from HEAD if it does not exist).
func Open(path string, opts Options) (*GitWorktree, error) {
	g, err := openWorktree(path, opts)
	if err != nil {
		return nil, err
	}

	clean, err := g.IsClean()
	if err != nil {
		return nil, err
	}
	if !clean {
		return nil, ErrDirtyWorkingDir
	}

	if _, err := g.CurrentBranch(); err != nil {
		return nil, err
	}

	if opts.Branch != "" {
		if err := g.CheckoutBranch(opts.Branch); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// openWorktree opens the repository without any precondition checks.
func openWorktree(path string, opts Options) (*GitWorktree, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	root := wt.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	if opts.Remote == "" {
		opts.Remote = git.DefaultRemoteName
	}
	return &GitWorktree{repo: repo, wt: wt, root: root, opts: opts}, nil
}

func (g *GitWorktree) Root() string {
	return g.root
}

func (g *GitWorktree) IsClean() (bool, error) {
	paths, err := g.ModifiedPaths()
	if err != nil {
		return false, err
	}
	return len(paths) == 0, nil
}

func (g *GitWorktree) ModifiedPaths() ([]string, error) {
	status, err := g.wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}

	var paths []string
	for path, s := range status {
		if isModified(s) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// isModified reports whether a status entry counts as an uncommitted change.
// Untracked files are not considered dirty.
func isModified(s *git.FileStatus) bool {
	if s.Staging == git.Untracked && s.Worktree == git.Untracked {
		return false
	}
	return s.Staging != git.Unmodified || s.Worktree != git.Unmodified
}

// Revert writes the index version of each path back to the working tree,
// like "git checkout -- <path>".
func (g *GitWorktree) Revert(paths ...string) error {
	idx, err := g.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	for _, path := range paths {
		path = filepath.ToSlash(path)
		entry, err := idx.Entry(path)
		if err != nil {
			return fmt.Errorf("cannot revert %s: %w", path, err)
		}

		mode, err := entry.Mode.ToOSFileMode()
		if err != nil {
			return err
		}

		blob, err := g.repo.BlobObject(entry.Hash)
		if err != nil {
			return fmt.Errorf("cannot revert %s: %w", path, err)
		}
		if err := g.writeBlob(path, blob, mode.Perm()); err != nil {
			return fmt.Errorf("cannot revert %s: %w", path, err)
		}
	}
	return nil
}

func (g *GitWorktree) writeBlob(path string, blob *object.Blob, perm os.FileMode) error {
	r, err := blob.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := g.wt.Filesystem.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (g *GitWorktree) RevertAll() error {
	paths, err := g.ModifiedPaths()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	return g.Revert(paths...)
}

// Commit stages paths and commits them. When staging or the commit fails,
// the staged paths are reset to HEAD so a later revert from the index
// restores the committed content.
func (g *GitWorktree) Commit(message string, paths ...string) (string, error) {
	var staged []string
	for _, path := range paths {
		path = filepath.ToSlash(path)
		if _, err := g.wt.Add(path); err != nil {
			return "", errors.Join(fmt.Errorf("failed to stage %s: %w", path, err), g.unstage(staged))
		}
		staged = append(staged, path)
	}

	opts := &git.CommitOptions{}
	if g.opts.AuthorName != "" {
		opts.Author = &object.Signature{
			Name:  g.opts.AuthorName,
			Email: g.opts.AuthorEmail,
			When:  time.Now(),
		}
	}

	hash, err := g.wt.Commit(message, opts)
	if err != nil {
		return "", errors.Join(fmt.Errorf("failed to commit: %w", err), g.unstage(staged))
	}
	return hash.String(), nil
}

// unstage resets the index entries of paths to their HEAD version, like
// "git restore --staged".
func (g *GitWorktree) unstage(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := g.wt.Restore(&git.RestoreOptions{Staged: true, Files: paths}); err != nil {
		return fmt.Errorf("failed to unstage %v: %w", paths, err)
	}
	return nil
}

func (g *GitWorktree) Push(ctx context.Context) error {
	if !g.opts.Push {
		return nil
	}
	branch, err := g.CurrentBranch()
	if err != nil {
		return err
	}

	ref := plumbing.NewBranchReferenceName(branch)
	err = g.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: g.opts.Remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(ref + ":" + ref)},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push %s to %s: %w", branch, g.opts.Remote, err)
	}
	return nil
}
