// Package rewrite edits the superclass list of a Python class header in place.
//
// The rewrite is a narrow text transform: the header is located with a
// regular expression, validated, and only the superclass list is touched.
package rewrite

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Reason explains why a rewrite did or did not happen.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonClassNotFound      Reason = "class_not_found"
	ReasonSuperclassNotFound Reason = "superclass_not_found"
	ReasonAmbiguousHeader    Reason = "ambiguous_header"
	ReasonRemovalFailed      Reason = "removal_failed"
	ReasonIO                 Reason = "io_error"
)

func (r Reason) String() string { return string(r) }

// Result describes one rewrite attempt. Before and After hold the class
// header text.
type Result struct {
	Changed bool
	Reason  Reason
	Before  string
	After   string

	err error
}

// Err returns a descriptive error for a refused rewrite, or nil.
func (r Result) Err() error {
	if r.Reason == ReasonNone {
		return nil
	}
	return &Error{Reason: r.Reason, Err: r.err}
}

// Error is returned by Result.Err.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Rewriter removes superclasses from class headers on disk.
type Rewriter struct{}

// New creates a Rewriter.
func New() *Rewriter {
	return &Rewriter{}
}

// headerPattern matches "class <name>(<superclasses>):" at the start of a line.
func headerPattern(class string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^class\s+` + regexp.QuoteMeta(class) + `\s*\((?P<super>[\w,.\s]*)\)\s*:`)
}

// RemoveSuperclass drops superclass from the header of class in path. The
// file is only written when the header was found, the superclass is listed
// in it, and the removal produced a different header.
func (r *Rewriter) RemoveSuperclass(path, class, superclass string) Result {
	content, err := os.ReadFile(path)
	if err != nil {
		return Result{Reason: ReasonIO, err: err}
	}

	updated, res := RemoveFromSource(string(content), class, superclass)
	if res.Reason != ReasonNone {
		return res
	}

	if err := writeFileAtomic(path, []byte(updated)); err != nil {
		return Result{Reason: ReasonIO, Before: res.Before, After: res.After, err: err}
	}
	res.Changed = true
	return res
}

// RemoveFromSource applies the header edit to source and returns the new
// content. It never touches the filesystem.
func RemoveFromSource(source, class, superclass string) (string, Result) {
	re := headerPattern(class)
	matches := re.FindAllStringSubmatchIndex(source, -1)
	switch {
	case len(matches) == 0:
		return source, Result{Reason: ReasonClassNotFound, err: fmt.Errorf("class %s could not be found", class)}
	case len(matches) > 1:
		return source, Result{Reason: ReasonAmbiguousHeader, err: fmt.Errorf("class %s is declared %d times", class, len(matches))}
	}

	m := matches[0]
	superIdx := re.SubexpIndex("super")
	headerStart, headerEnd := m[0], m[1]
	listStart, listEnd := m[2*superIdx], m[2*superIdx+1]
	header := source[headerStart:headerEnd]
	list := source[listStart:listEnd]

	if !listContains(list, superclass) {
		return source, Result{
			Reason: ReasonSuperclassNotFound,
			Before: header,
			err:    fmt.Errorf("superclass %s could not be found in header of %s", superclass, class),
		}
	}

	newList, ok := removeToken(list, superclass)
	if !ok {
		return source, Result{Reason: ReasonRemovalFailed, Before: header, err: fmt.Errorf("removing %s from %q failed", superclass, list)}
	}

	newHeader := header[:listStart-headerStart] + newList + header[listEnd-headerStart:]
	updated := source[:headerStart] + newHeader + source[headerEnd:]
	return updated, Result{Before: header, After: newHeader}
}

// ParseSuperclasses splits a header's superclass list into names, dropping
// whitespace and empty entries.
func ParseSuperclasses(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		name := strings.Join(strings.Fields(part), "")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func listContains(list, name string) bool {
	for _, s := range ParseSuperclasses(list) {
		if s == name {
			return true
		}
	}
	return false
}

// removeToken tries the three removal shapes in order: "name," then ",name"
// then "name" alone. Each shape matches whole names only and absorbs the
// whitespace between the name and its comma.
func removeToken(list, name string) (string, bool) {
	q := regexp.QuoteMeta(name)
	shapes := []*regexp.Regexp{
		regexp.MustCompile(`(^|[^\w.])(` + q + `\s*,\s*)`),
		regexp.MustCompile(`(\s*,\s*)(` + q + `)($|[^\w.])`),
		regexp.MustCompile(`(^|[^\w.])(\s*` + q + `\s*)($|[^\w.])`),
	}

	for i, re := range shapes {
		loc := re.FindStringSubmatchIndex(list)
		if loc == nil {
			continue
		}
		if i == 1 {
			// leading comma: drop ", name" and keep the boundary after it
			return list[:loc[2]] + list[loc[5]:], true
		}
		// keep the boundary before the name
		return list[:loc[4]] + list[loc[5]:], true
	}
	return list, false
}

// writeFileAtomic replaces path with data via a synced temp file in the same
// directory, keeping the original permissions.
func writeFileAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
