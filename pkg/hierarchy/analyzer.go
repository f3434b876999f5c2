// Package hierarchy classifies test classes and finds superclasses that can
// be dropped from their headers.
package hierarchy

import (
	"sort"
	"strings"

	"github.com/panbanda/gravedigger/pkg/models"
	"github.com/panbanda/gravedigger/pkg/registry"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Defaults used when an option is left empty.
const (
	DefaultTestPrefix    = "test_"
	DefaultUniversalBase = "object"
)

// Analyzer answers inheritance questions against one registry.
// Every traversal carries a visited set, so cyclic declarations terminate.
type Analyzer struct {
	registry      *registry.Registry
	testPrefix    string
	universalBase string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTestPrefix sets the method-name prefix that marks a test method.
func WithTestPrefix(prefix string) Option {
	return func(a *Analyzer) {
		if prefix != "" {
			a.testPrefix = prefix
		}
	}
}

// WithUniversalBase sets the implicit root class name.
func WithUniversalBase(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.universalBase = name
		}
	}
}

// New creates an analyzer over reg.
func New(reg *registry.Registry, opts ...Option) *Analyzer {
	a := &Analyzer{
		registry:      reg,
		testPrefix:    DefaultTestPrefix,
		universalBase: DefaultUniversalBase,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SuperclassNames returns the direct superclasses of class as written in its
// header. Unknown classes have none.
func (a *Analyzer) SuperclassNames(class string) []string {
	d, ok := a.registry.Get(class)
	if !ok {
		return nil
	}
	return d.Superclasses
}

// InheritsFrom reports whether target appears anywhere in the transitive
// superclass closure of class. A cycle is treated as "not found".
func (a *Analyzer) InheritsFrom(class, target string) bool {
	return a.inheritsFrom(class, target, make(map[string]bool))
}

func (a *Analyzer) inheritsFrom(class, target string, visited map[string]bool) bool {
	d, ok := a.enter(class, visited)
	if !ok {
		return false
	}

	supers := d.Superclasses
	if len(supers) == 0 || a.onlyUniversalBase(supers) {
		return false
	}
	for _, s := range supers {
		if sameName(s, target) {
			return true
		}
	}
	for _, s := range supers {
		if p, ok := a.superclass(d.Name, s); ok && a.inheritsFrom(p.Name, target, visited) {
			return true
		}
	}
	return false
}

// HasTestMethods reports whether class or any of its ancestors defines a
// method starting with the test prefix.
func (a *Analyzer) HasTestMethods(class string) bool {
	return a.hasTestMethods(class, make(map[string]bool))
}

func (a *Analyzer) hasTestMethods(class string, visited map[string]bool) bool {
	d, ok := a.enter(class, visited)
	if !ok {
		return false
	}
	for _, m := range d.Methods {
		if strings.HasPrefix(m, a.testPrefix) {
			return true
		}
	}
	for _, s := range d.Superclasses {
		if s == a.universalBase {
			continue
		}
		if p, ok := a.superclass(d.Name, s); ok && a.hasTestMethods(p.Name, visited) {
			return true
		}
	}
	return false
}

// enter marks the registry entry behind name as visited and returns it. It
// reports false when the name is unknown or was already visited.
func (a *Analyzer) enter(name string, visited map[string]bool) (*registry.ClassDescriptor, bool) {
	d, ok := a.registry.Get(name)
	if !ok || visited[d.Name] {
		return nil, false
	}
	visited[d.Name] = true
	return d, true
}

// superclass resolves a reference from the header of owner. A dotted
// reference whose last segment is owner's own name, as in
// "class TestCase(unittest.TestCase)", names an external class and does not
// resolve back to owner.
func (a *Analyzer) superclass(owner, ref string) (*registry.ClassDescriptor, bool) {
	d, ok := a.registry.Get(ref)
	if !ok || (d.Name == owner && ref != owner) {
		return nil, false
	}
	return d, true
}

func (a *Analyzer) onlyUniversalBase(supers []string) bool {
	return len(supers) == 1 && supers[0] == a.universalBase
}

// SafeRemovalCandidates returns the direct superclasses of class that are
// neither the universal base, nor in protect, nor contribute test methods.
// Only one level is considered. The result is sorted and deduplicated.
func (a *Analyzer) SafeRemovalCandidates(class string, protect []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range a.SuperclassNames(class) {
		if seen[s] || s == a.universalBase || isProtected(s, protect) {
			continue
		}
		seen[s] = true
		if a.HasTestMethods(s) {
			continue
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func isProtected(name string, protect []string) bool {
	for _, p := range protect {
		if sameName(name, p) {
			return true
		}
	}
	return false
}

// Classify computes the test-case sets. A class is a test case only when it
// inherits from one of the indicators and has test methods in its chain.
func (a *Analyzer) Classify(indicators []string) models.Classification {
	c := models.Classification{
		ByInheritance: []string{},
		ByTestMethods: []string{},
		TestCases:     []string{},
	}
	for _, name := range a.registry.Names() {
		inherits := false
		for _, ind := range indicators {
			if a.InheritsFrom(name, ind) {
				inherits = true
				break
			}
		}
		hasTests := a.HasTestMethods(name)

		if inherits {
			c.ByInheritance = append(c.ByInheritance, name)
		}
		if hasTests {
			c.ByTestMethods = append(c.ByTestMethods, name)
		}
		if inherits && hasTests {
			c.TestCases = append(c.TestCases, name)
		}
	}
	return c
}

// Candidates returns one removal candidate per safe superclass of every test
// case, ordered by class then superclass. Indicators are never candidates.
func (a *Analyzer) Candidates(indicators []string) []models.Candidate {
	return a.CandidatesFor(a.Classify(indicators), indicators)
}

// CandidatesFor is Candidates for an existing classification.
func (a *Analyzer) CandidatesFor(c models.Classification, indicators []string) []models.Candidate {
	out := []models.Candidate{}
	for _, class := range c.TestCases {
		for _, s := range a.SafeRemovalCandidates(class, indicators) {
			out = append(out, models.Candidate{Class: class, Superclass: s})
		}
	}
	return out
}

// Cycles returns groups of registered classes that inherit from each other,
// including classes naming themselves as a superclass. Each group and the
// list of groups are sorted.
func (a *Analyzer) Cycles() [][]string {
	names := a.registry.Names()
	if len(names) == 0 {
		return nil
	}

	ids := make(map[string]int64, len(names))
	g := simple.NewDirectedGraph()
	for i, name := range names {
		ids[name] = int64(i)
		g.AddNode(simple.Node(i))
	}

	var cycles [][]string
	selfLoop := make(map[string]bool)
	for _, name := range names {
		d, _ := a.registry.Get(name)
		for _, s := range d.Superclasses {
			target, ok := a.superclass(name, s)
			if !ok {
				continue
			}
			// gonum simple graphs reject self loops
			if target.Name == name {
				if !selfLoop[name] {
					selfLoop[name] = true
					cycles = append(cycles, []string{name})
				}
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(ids[name]), T: simple.Node(ids[target.Name])})
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		group := make([]string, 0, len(scc))
		for _, n := range scc {
			group = append(group, names[n.ID()])
		}
		sort.Strings(group)
		cycles = append(cycles, group)
	}

	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], ",") < strings.Join(cycles[j], ",")
	})
	return cycles
}

// sameName matches a superclass reference against a class name. A dotted
// reference also matches on its last segment.
func sameName(ref, name string) bool {
	if ref == name {
		return true
	}
	return lastSegment(ref) == lastSegment(name)
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
