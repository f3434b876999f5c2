// Package registry holds the class descriptors discovered in a project.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// ClassDescriptor describes one class as declared in a test module.
type ClassDescriptor struct {
	Name         string   `json:"name"`
	File         string   `json:"file"`
	Line         uint32   `json:"line"`
	Superclasses []string `json:"superclasses"`
	Methods      []string `json:"methods"`
}

// CollisionPolicy decides what happens when two files declare the same class name.
type CollisionPolicy string

const (
	// KeepLast replaces the earlier descriptor and records a warning.
	KeepLast CollisionPolicy = "last"
	// KeepFirst ignores the later descriptor and records a warning.
	KeepFirst CollisionPolicy = "first"
	// Reject makes Add return a *CollisionError.
	Reject CollisionPolicy = "error"
)

// Collision records two files declaring the same class name.
type Collision struct {
	Name    string `json:"name"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}

// CollisionError is returned by Add under the Reject policy.
type CollisionError struct {
	Name     string
	Existing string
	Incoming string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("class %s declared in both %s and %s", e.Name, e.Existing, e.Incoming)
}

// Registry maps class names to descriptors. It is not safe for concurrent
// mutation; the scanner merges results on a single goroutine.
type Registry struct {
	policy     CollisionPolicy
	classes    map[string]*ClassDescriptor
	collisions []Collision
}

// New creates an empty registry. An empty policy means KeepLast.
func New(policy CollisionPolicy) *Registry {
	if policy == "" {
		policy = KeepLast
	}
	return &Registry{
		policy:  policy,
		classes: make(map[string]*ClassDescriptor),
	}
}

// Add registers a descriptor, applying the collision policy when the
// name is already declared in a different file. Re-adding a class from
// the same file replaces it silently.
func (r *Registry) Add(desc ClassDescriptor) error {
	existing, ok := r.classes[desc.Name]
	if ok && existing.File != desc.File {
		switch r.policy {
		case Reject:
			return &CollisionError{Name: desc.Name, Existing: existing.File, Incoming: desc.File}
		case KeepFirst:
			r.collisions = append(r.collisions, Collision{Name: desc.Name, Kept: existing.File, Dropped: desc.File})
			return nil
		default:
			r.collisions = append(r.collisions, Collision{Name: desc.Name, Kept: desc.File, Dropped: existing.File})
		}
	}
	d := desc
	r.classes[desc.Name] = &d
	return nil
}

// Get returns the descriptor for name. A dotted name ("pkg.mod.Class")
// that is not registered verbatim is looked up by its last segment.
func (r *Registry) Get(name string) (*ClassDescriptor, bool) {
	if d, ok := r.classes[name]; ok {
		return d, true
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		d, ok := r.classes[name[i+1:]]
		return d, ok
	}
	return nil, false
}

// RemoveFile drops every descriptor declared in file. Used before a
// module is re-scanned after an edit.
func (r *Registry) RemoveFile(file string) int {
	n := 0
	for name, d := range r.classes {
		if d.File == file {
			delete(r.classes, name)
			n++
		}
	}
	return n
}

// ReplaceFile swaps the descriptors of one file for a fresh scan of it.
func (r *Registry) ReplaceFile(file string, descs []ClassDescriptor) error {
	r.RemoveFile(file)
	for _, d := range descs {
		if err := r.Add(d); err != nil {
			return err
		}
	}
	return nil
}

// Names returns all registered class names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	return len(r.classes)
}

// Collisions returns the name collisions seen so far.
func (r *Registry) Collisions() []Collision {
	return r.collisions
}
