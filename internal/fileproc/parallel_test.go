package fileproc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/panbanda/gravedigger/pkg/parser"
)

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

func TestMapFiles(t *testing.T) {
	tmpDir := t.TempDir()

	files := []string{
		createTestFile(t, tmpDir, "test_a.py", "class A(object):\n    pass\n"),
		createTestFile(t, tmpDir, "test_b.py", "class B(A):\n    pass\n"),
		createTestFile(t, tmpDir, "test_c.py", "class C(B):\n    pass\n"),
	}

	results, errs := MapFiles(context.Background(), files, 0, func(p *parser.Parser, path string) (string, error) {
		source, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		result, err := p.Parse(source, parser.LangPython, path)
		if err != nil {
			return "", err
		}
		return parser.ExtractClasses(result)[0].Name, nil
	}, nil)

	if errs != nil {
		t.Errorf("Unexpected errors: %v", errs)
	}

	want := []string{"A", "B", "C"}
	if len(results) != len(want) {
		t.Fatalf("Expected %d results, got %d", len(want), len(results))
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("results[%d] = %s, want %s (input order must be preserved)", i, results[i], want[i])
		}
	}
}

func TestMapFiles_EmptyFileList(t *testing.T) {
	results, errs := MapFiles(context.Background(), []string{}, 0, func(p *parser.Parser, path string) (string, error) {
		return path, nil
	}, nil)

	if results != nil {
		t.Errorf("Expected nil for empty file list, got %v", results)
	}
	if errs != nil {
		t.Errorf("Expected nil errors for empty file list, got %v", errs)
	}
}

func TestMapFiles_CollectsErrors(t *testing.T) {
	files := []string{"good_1", "bad", "good_2"}
	errBad := errors.New("unparseable")

	results, errs := MapFiles(context.Background(), files, 1, func(p *parser.Parser, path string) (string, error) {
		if path == "bad" {
			return "", errBad
		}
		return path, nil
	}, nil)

	if len(results) != 2 || results[0] != "good_1" || results[1] != "good_2" {
		t.Errorf("results = %v", results)
	}
	if errs == nil || !errs.HasErrors() {
		t.Fatal("expected collected errors")
	}
	if len(errs.Errors) != 1 || errs.Errors[0].Path != "bad" {
		t.Errorf("errs.Errors = %v", errs.Errors)
	}
	if !errors.Is(errs.Errors[0], errBad) {
		t.Error("ProcessingError should unwrap to the original error")
	}
}

func TestMapFiles_ProgressAndCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ticks atomic.Int32
	files := []string{"a", "b", "c", "d"}
	results, errs := MapFiles(ctx, files, 2, func(p *parser.Parser, path string) (string, error) {
		return path, nil
	}, func() { ticks.Add(1) })

	if len(results) != 0 {
		t.Errorf("cancelled context should produce no results, got %v", results)
	}
	if errs == nil || len(errs.Errors) != len(files) {
		t.Fatalf("expected %d errors, got %v", len(files), errs)
	}
	if !errors.Is(errs.Errors[0], context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", errs.Errors[0].Err)
	}
	if int(ticks.Load()) != len(files) {
		t.Errorf("progress ticks = %d, want %d", ticks.Load(), len(files))
	}
}

func TestProcessingErrorsMessage(t *testing.T) {
	var e ProcessingErrors
	if e.Error() != "no errors" {
		t.Errorf("Error() = %q", e.Error())
	}
	e.Add("a.py", errors.New("boom"))
	if e.Error() != "a.py: boom" {
		t.Errorf("Error() = %q", e.Error())
	}
	e.Add("b.py", errors.New("bang"))
	if e.Error() != "2 files failed to process (first: a.py: boom)" {
		t.Errorf("Error() = %q", e.Error())
	}
}
