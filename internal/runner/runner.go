// Package runner executes one test class through an external shell command.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/panbanda/gravedigger/pkg/config"
)

// Placeholder is replaced by the test reference in a command template.
const Placeholder = "{}"

// waitDelay bounds how long Run waits for output pipes after the process
// has been killed.
const waitDelay = 5 * time.Second

// Result is the verdict of one test run.
type Result struct {
	Command  string
	Passed   bool
	ExitCode int
	TimedOut bool
	Output   string
	Duration time.Duration
}

// Runner runs the tests of one class and reports pass or fail.
type Runner interface {
	Run(ctx context.Context, testRef string) (*Result, error)
}

// ShellRunner runs a command template through a shell in the project root.
type ShellRunner struct {
	template string
	shell    string
	dir      string
	timeout  time.Duration
	env      []string
}

// New creates a ShellRunner from the runner section of cfg.
func New(cfg *config.Config, dir string) (*ShellRunner, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if strings.Count(cfg.Runner.Command, Placeholder) != 1 {
		return nil, fmt.Errorf("runner command %q must contain exactly one %s", cfg.Runner.Command, Placeholder)
	}
	timeout, err := cfg.RunnerTimeout()
	if err != nil {
		return nil, err
	}
	shell := cfg.Runner.Shell
	if shell == "" {
		shell = "sh"
	}
	env, err := loadEnv(cfg.Runner.EnvFile, dir)
	if err != nil {
		return nil, err
	}
	return &ShellRunner{
		template: cfg.Runner.Command,
		shell:    shell,
		dir:      dir,
		timeout:  timeout,
		env:      env,
	}, nil
}

// loadEnv returns the process environment extended with the variables of
// the dotenv file at path. File values win over inherited ones.
func loadEnv(path, dir string) ([]string, error) {
	env := os.Environ()
	if path == "" {
		return env, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return env, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env, nil
}

// Command returns the shell command for testRef.
func (r *ShellRunner) Command(testRef string) string {
	return strings.Replace(r.template, Placeholder, testRef, 1)
}

// Run executes the command for testRef and waits for it. A non-zero exit or
// a timeout is a failed run, not an error. An error is returned when the
// command could not be started or ctx was cancelled by the caller; the
// returned Result is still populated as far as possible.
func (r *ShellRunner) Run(ctx context.Context, testRef string) (*Result, error) {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	command := r.Command(testRef)
	cmd := exec.CommandContext(runCtx, r.shell, "-c", command)
	cmd.Dir = r.dir
	cmd.Env = r.env
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	start := time.Now()
	output, err := cmd.CombinedOutput()
	result := &Result{
		Command:  command,
		Output:   string(output),
		Duration: time.Since(start),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		return result, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.Passed = true
	case errors.As(err, &exitErr):
	default:
		return result, fmt.Errorf("failed to run %q: %w", command, err)
	}
	return result, nil
}
