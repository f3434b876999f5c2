package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/panbanda/gravedigger/pkg/models"
)

// NewPruneReport lays out a run report as summary, outcome table and
// warnings. JSON and TOON output serialize the report itself.
func NewPruneReport(r *models.Report, colored bool) *Report {
	title := "Gravedigger Report"
	if r.DryRun {
		title = "Gravedigger Plan (dry run)"
	}

	out := &Report{Title: title, Data: r}
	out.Sections = append(out.Sections, summarySection(r))

	if len(r.Outcomes) > 0 {
		out.Sections = append(out.Sections, outcomeTable(r, colored))
	}

	if len(r.Cycles) > 0 || len(r.Warnings) > 0 {
		out.Sections = append(out.Sections, &Section{
			Title:   "Warnings",
			Content: bulletList(r.Warnings),
		})
	}
	return out
}

func summarySection(r *models.Report) *Section {
	s := r.Summary
	lines := []string{
		fmt.Sprintf("Root:            %s", r.Root),
		fmt.Sprintf("Indicators:      %s", strings.Join(r.Indicators, ", ")),
		fmt.Sprintf("Modules:         %d (%d skipped)", s.Modules, s.SkippedModules),
		fmt.Sprintf("Classes:         %d", s.Classes),
		fmt.Sprintf("Test cases:      %d (%d by inheritance, %d with test methods)", s.TestCases, s.ByInheritance, s.ByTestMethods),
		fmt.Sprintf("Candidates:      %d", s.Candidates),
	}
	if r.Branch != "" {
		lines = append([]string{fmt.Sprintf("Branch:          %s", r.Branch)}, lines...)
	}
	if !r.DryRun {
		lines = append(lines, fmt.Sprintf("Confirmed:       %d", s.Confirmed),
			fmt.Sprintf("Reverted:        %d", s.Reverted),
			fmt.Sprintf("Skipped:         %d", s.Skipped))
	}
	return &Section{Title: "Summary", Content: strings.Join(lines, "\n")}
}

func outcomeTable(r *models.Report, colored bool) *Table {
	headers := []string{"Class", "Superclass", "State", "Test", "Detail"}
	if r.DryRun {
		headers = []string{"Class", "Superclass", "File", "Test"}
	}

	rows := make([][]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if r.DryRun {
			rows = append(rows, []string{o.Class, o.Superclass, relativeTo(r.Root, o.File), o.TestRef})
			continue
		}
		state := string(o.State)
		if colored {
			state = StateColor(state, state)
		}
		detail := o.Reason
		if o.Commit != "" {
			detail = shortHash(o.Commit)
			if o.Reason != "" {
				detail += " (" + o.Reason + ")"
			}
		}
		rows = append(rows, []string{o.Class, o.Superclass, state, o.TestRef, detail})
	}

	title := "Outcomes"
	if r.DryRun {
		title = "Candidates"
	}
	return NewTable(title, headers, rows, nil, nil)
}

// NewClassificationReport lists the three test case sets and the candidates
// computed from them.
func NewClassificationReport(r *models.Report) *Report {
	c := r.Classification
	out := &Report{Title: "Test Case Classification", Data: r}
	out.Sections = append(out.Sections,
		&Section{Title: fmt.Sprintf("Inherit from an indicator (%d)", len(c.ByInheritance)), Content: bulletList(c.ByInheritance)},
		&Section{Title: fmt.Sprintf("Have test methods (%d)", len(c.ByTestMethods)), Content: bulletList(c.ByTestMethods)},
		&Section{Title: fmt.Sprintf("Test cases (%d)", len(c.TestCases)), Content: bulletList(c.TestCases)},
	)

	rows := make([][]string, 0, len(r.Candidates))
	for _, cand := range r.Candidates {
		rows = append(rows, []string{cand.Class, cand.Superclass})
	}
	out.Sections = append(out.Sections, NewTable("Removal candidates", []string{"Class", "Superclass"}, rows, nil, nil))

	if len(r.Warnings) > 0 {
		out.Sections = append(out.Sections, &Section{Title: "Warnings", Content: bulletList(r.Warnings)})
	}
	return out
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

func relativeTo(root, path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
