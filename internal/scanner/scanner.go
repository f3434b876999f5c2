package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/gravedigger/pkg/config"
)

// Scanner finds test modules in a directory tree.
type Scanner struct {
	config  *config.Config
	matcher gitignore.Matcher
	gitRoot string
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadGitignore reads every .gitignore below the git root containing root.
func (s *Scanner) loadGitignore(root string) {
	s.matcher = nil
	s.gitRoot = ""
	if !s.config.Exclude.Gitignore {
		return
	}
	gitRoot := findGitRoot(root)
	if gitRoot == "" {
		return
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err != nil || len(patterns) == 0 {
		return
	}
	s.matcher = gitignore.NewMatcher(patterns)
	s.gitRoot = gitRoot
}

// isIgnored checks a path against the loaded .gitignore patterns.
func (s *Scanner) isIgnored(path string, isDir bool) bool {
	if s.matcher == nil {
		return false
	}
	rel, err := filepath.Rel(s.gitRoot, path)
	if err != nil || rel == "." {
		return false
	}
	return s.matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}

// ScanDir recursively scans a directory for test modules and returns their
// absolute paths in lexical order.
// Symlinks that resolve outside the root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadGitignore(absRoot)

	var files []string
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
			info, err := os.Stat(resolved)
			if err != nil || info.IsDir() {
				// WalkDir does not follow directory symlinks
				return nil
			}
		}

		if d.IsDir() {
			if path != absRoot && (s.config.IsExcludedDir(d.Name()) || s.isIgnored(path, true)) {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.config.IsTestModule(d.Name()) || s.isIgnored(path, false) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// IsWithinRoot reports whether path lies inside root after resolving both
// to absolute, symlink-free paths where possible.
func IsWithinRoot(path, root string) bool {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	return isWithinRoot(path, absRoot)
}
