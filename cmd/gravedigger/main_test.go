package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/panbanda/gravedigger/internal/output"
	"github.com/panbanda/gravedigger/internal/refactor"
	"github.com/panbanda/gravedigger/internal/vcs"
	"github.com/panbanda/gravedigger/pkg/config"
	"github.com/panbanda/gravedigger/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooModule = `class BaseTestCase(object):
    pass


class Helper(object):
    def assist(self):
        pass


class Foo(BaseTestCase, Helper):
    def test_one(self):
        pass
`

func TestParseArgs(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
		want invocation
	}{
		{"defaults", nil, invocation{root: cwd}},
		{"root only", []string{"/project"}, invocation{root: "/project"}},
		{"prefix trimmed", []string{"/project", "app.tests."}, invocation{root: "/project", prefix: "app.tests"}},
		{"indicators", []string{"/project", "", "TestCase, ApiTestCase,,"}, invocation{root: "/project", indicators: []string{"TestCase", "ApiTestCase"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = parseArgs([]string{"a", "b", "c", "d"})
	assert.Error(t, err)
}

func TestResolveIndicators(t *testing.T) {
	cfg := config.DefaultConfig()

	got, err := resolveIndicators(invocation{indicators: []string{"ApiTestCase"}}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"ApiTestCase"}, got)

	got, err = resolveIndicators(invocation{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"TestCase"}, got)

	cfg.Hierarchy.Indicators = nil
	_, err = resolveIndicators(invocation{}, cfg)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "tests f...", truncate("tests failed (exit 1)", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))
}

func TestConsoleObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := newConsoleObserver(output.NewConsole(&buf, false), true)
	cand := models.Candidate{Class: "Foo", Superclass: "Helper"}

	obs.observe(refactor.Event{Kind: refactor.EventCandidate, Candidate: cand})
	require.NotNil(t, obs.spinner)
	obs.observe(refactor.Event{Kind: refactor.EventTestRun, Candidate: cand, TestRef: "tests.test_foo.Foo"})
	obs.observe(refactor.Event{Kind: refactor.EventOutcome, Candidate: cand, Outcome: &models.Outcome{
		Class: "Foo", Superclass: "Helper", State: models.StateReverted,
		Reason: "tests failed (exit 1)", Output: "FAILED (failures=1)\n",
	}})
	assert.Nil(t, obs.spinner, "the spinner stops once the candidate is final")

	assert.Equal(t, "Trying Foo without Helper\n"+
		"ERROR: Kept Helper on Foo: tests failed (exit 1)\n"+
		"FAILED (failures=1)\n", buf.String())

	obs.observe(refactor.Event{Kind: refactor.EventCandidate, Candidate: cand})
	obs.stop()
	assert.Nil(t, obs.spinner)
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gravedigger.toml")

	require.NoError(t, newApp().Run([]string{"gravedigger", "init", "-o", path}))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	defaults := config.DefaultConfig()
	assert.Equal(t, defaults.Runner, cfg.Runner)
	assert.Equal(t, defaults.Hierarchy, cfg.Hierarchy)
	assert.Equal(t, defaults.VCS.Branch, cfg.VCS.Branch)
	assert.Equal(t, defaults.VCS.ProtectedBranches, cfg.VCS.ProtectedBranches)
	assert.Equal(t, defaults.Exclude.Dirs, cfg.Exclude.Dirs)

	err = newApp().Run([]string{"gravedigger", "init", "-o", path})
	assert.ErrorContains(t, err, "already exists")

	assert.NoError(t, newApp().Run([]string{"gravedigger", "init", "--force", "-o", path}))
}

// newRepo commits tests/test_foo.py into a fresh repository.
func newRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	path := filepath.Join(root, "tests", "test_foo.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(fooModule), 0644))

	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add("tests/test_foo.py")
	require.NoError(t, err)
	_, err = w.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return root
}

// writeConfig writes a config outside the repository so it stays untracked.
func writeConfig(t *testing.T, command string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gravedigger.toml")
	content := `[runner]
command = "` + command + `"
timeout = "1m"

[vcs]
author_name = "Test"
author_email = "test@example.com"

[cache]
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readReport(t *testing.T, path string) models.Report {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report models.Report
	require.NoError(t, json.Unmarshal(data, &report))
	return report
}

func headMessage(t *testing.T, root string) string {
	t.Helper()
	repo, err := git.PlainOpen(root)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	c, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	return c.Message
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test commands run through sh")
	}
}

func TestAnalyzeCommand(t *testing.T) {
	root := newRepo(t)
	out := filepath.Join(t.TempDir(), "report.json")

	err := newApp().Run([]string{"gravedigger", "analyze", "--no-cache", "-f", "json", "-o", out, root, "tests", "BaseTestCase"})
	require.NoError(t, err)

	report := readReport(t, out)
	assert.True(t, report.DryRun)
	assert.Equal(t, []string{"Foo"}, report.Classification.TestCases)
	assert.Equal(t, []models.Candidate{{Class: "Foo", Superclass: "Helper"}}, report.Candidates)
	assert.Equal(t, 1, report.Summary.Modules)

	data, err := os.ReadFile(filepath.Join(root, "tests", "test_foo.py"))
	require.NoError(t, err)
	assert.Equal(t, fooModule, string(data))
}

func TestRunCommandConfirmsPassingEdit(t *testing.T) {
	skipWithoutShell(t)
	root := newRepo(t)
	out := filepath.Join(t.TempDir(), "report.json")

	err := newApp().Run([]string{"gravedigger", "run", "--config", writeConfig(t, "true {}"), "-f", "json", "-o", out, root, "tests", "BaseTestCase"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "tests", "test_foo.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "class Foo(BaseTestCase):\n")
	assert.Equal(t, "Simplified Foo", headMessage(t, root))

	report := readReport(t, out)
	assert.Equal(t, "gravedigger", report.Branch)
	assert.Equal(t, 1, report.Summary.Confirmed)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "test_foo.Foo", report.Outcomes[0].TestRef)
}

func TestRunCommandRevertsFailingEdit(t *testing.T) {
	skipWithoutShell(t)
	root := newRepo(t)
	out := filepath.Join(t.TempDir(), "report.json")

	// --test-cmd overrides the configured command.
	err := newApp().Run([]string{"gravedigger", "run", "--config", writeConfig(t, "true {}"), "--test-cmd", "false {}", "-f", "json", "-o", out, root, "", "BaseTestCase"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "tests", "test_foo.py"))
	require.NoError(t, err)
	assert.Equal(t, fooModule, string(data))
	assert.Equal(t, "Initial commit", headMessage(t, root))

	report := readReport(t, out)
	assert.Equal(t, 1, report.Summary.Reverted)
	assert.Equal(t, "tests.test_foo.Foo", report.Outcomes[0].TestRef)
}

func TestRunCommandRefusesDirtyTree(t *testing.T) {
	root := newRepo(t)
	path := filepath.Join(root, "tests", "test_foo.py")
	dirty := fooModule + "\n# local change\n"
	require.NoError(t, os.WriteFile(path, []byte(dirty), 0644))

	err := newApp().Run([]string{"gravedigger", "run", "--config", writeConfig(t, "true {}"), root, "", "BaseTestCase"})
	assert.ErrorIs(t, err, vcs.ErrDirtyWorkingDir)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, dirty, string(data))
}

func TestRunCommandDryRun(t *testing.T) {
	root := newRepo(t)
	out := filepath.Join(t.TempDir(), "plan.md")

	err := newApp().Run([]string{"gravedigger", "--no-cache", "--dry-run", "-f", "markdown", "-o", out, root, "", "BaseTestCase"})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| Foo | Helper | tests/test_foo.py | tests.test_foo.Foo |")

	repo, err := git.PlainOpen(root)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, "master", head.Name().Short(), "a dry run must not switch branches")
}

func TestRunCommandRejectsBadTemplate(t *testing.T) {
	root := newRepo(t)
	err := newApp().Run([]string{"gravedigger", "run", "--test-cmd", "make test", root, "", "BaseTestCase"})
	assert.ErrorContains(t, err, "placeholder")
}
