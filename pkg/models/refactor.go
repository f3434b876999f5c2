package models

import "time"

// Candidate is one proposed edit: drop Superclass from the header of Class.
type Candidate struct {
	Class      string `json:"class"`
	Superclass string `json:"superclass"`
}

// State is the lifecycle position of a candidate.
type State string

const (
	StatePending   State = "pending"
	StateEdited    State = "edited"
	StateConfirmed State = "confirmed" // test passed, edit committed
	StateReverted  State = "reverted"  // test failed, edit discarded
	StateSkipped   State = "skipped"   // never edited
)

// Outcome is the final state of one candidate.
type Outcome struct {
	Class      string        `json:"class"`
	Superclass string        `json:"superclass"`
	File       string        `json:"file,omitempty"`
	State      State         `json:"state"`
	TestRef    string        `json:"test_ref,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Commit     string        `json:"commit,omitempty"`
	ExitCode   int           `json:"exit_code"`
	Duration   time.Duration `json:"duration_ns"`
	Output     string        `json:"output,omitempty"`
}

// Classification holds the three test-case sets, each sorted.
type Classification struct {
	ByInheritance []string `json:"by_inheritance"`
	ByTestMethods []string `json:"by_test_methods"`
	TestCases     []string `json:"test_cases"`
}

// ReportSummary counts outcomes by state.
type ReportSummary struct {
	Modules        int `json:"modules"`
	SkippedModules int `json:"skipped_modules"`
	Classes        int `json:"classes"`
	ByInheritance  int `json:"by_inheritance"`
	ByTestMethods  int `json:"by_test_methods"`
	TestCases      int `json:"test_cases"`
	Candidates     int `json:"candidates"`
	Confirmed      int `json:"confirmed"`
	Reverted       int `json:"reverted"`
	Skipped        int `json:"skipped"`
}

// Report is the result of one pruning run.
type Report struct {
	GeneratedAt    time.Time      `json:"generated_at"`
	Root           string         `json:"root"`
	Branch         string         `json:"branch,omitempty"`
	DryRun         bool           `json:"dry_run"`
	Indicators     []string       `json:"indicators"`
	Summary        ReportSummary  `json:"summary"`
	Candidates     []Candidate    `json:"candidates"`
	Outcomes       []Outcome      `json:"outcomes"`
	Cycles         [][]string     `json:"cycles,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	Classification Classification `json:"classification"`
}

// NewReport creates an empty report for root.
func NewReport(root string, indicators []string) *Report {
	return &Report{
		GeneratedAt: time.Now(),
		Root:        root,
		Indicators:  indicators,
		Candidates:  []Candidate{},
		Outcomes:    []Outcome{},
	}
}

// Record appends an outcome and updates the counters.
func (r *Report) Record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.State {
	case StateConfirmed:
		r.Summary.Confirmed++
	case StateReverted:
		r.Summary.Reverted++
	case StateSkipped:
		r.Summary.Skipped++
	}
}

// SetClassification stores the classification sets and their sizes.
func (r *Report) SetClassification(c Classification) {
	r.Classification = c
	r.Summary.ByInheritance = len(c.ByInheritance)
	r.Summary.ByTestMethods = len(c.ByTestMethods)
	r.Summary.TestCases = len(c.TestCases)
}

// SetCandidates stores the planned candidates.
func (r *Report) SetCandidates(cs []Candidate) {
	r.Candidates = cs
	r.Summary.Candidates = len(cs)
}

// Warn records a non-fatal problem.
func (r *Report) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
