// Package render turns classified coverage data into plain structured text.
// Output is Markdown: a summary block for the loaded report and, per
// category, tables grouped by reason then by file with line numbers sorted
// ascending. Rendering is a pure data-to-text transformation; nothing here
// touches the stores.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/redlinehq/coverlay/internal/covreport"
	"github.com/redlinehq/coverlay/internal/triage"
)

// Summary renders the report-wide percentages. The MC/DC row is omitted
// when the report carried no MC/DC figure.
func Summary(s covreport.Summary) string {
	var b strings.Builder
	b.WriteString("## Coverage Summary\n\n")
	b.WriteString("| Metric | Coverage |\n")
	b.WriteString("|--------|----------|\n")
	fmt.Fprintf(&b, "| Statement | %.1f%% |\n", s.StatementPercent)
	fmt.Fprintf(&b, "| Branch | %.1f%% |\n", s.BranchPercent)
	if s.MCDCPercent >= 0 {
		fmt.Fprintf(&b, "| MC/DC | %.1f%% |\n", s.MCDCPercent)
	}
	return b.String()
}

// categoryTitle maps a category to its report heading.
func categoryTitle(c triage.Category) string {
	switch c {
	case triage.Document:
		return "Documented Gaps"
	case triage.CommentPlanned:
		return "Comment Planned"
	case triage.CoverPlanned:
		return "Coverage Planned"
	default:
		return c.String()
	}
}

// Category renders one category's classifications as Markdown, grouped by
// reason and then by file. An empty category renders as an explicit "none"
// marker so the reader can tell absence from omission.
func Category(c triage.Category, byReason map[string][]*triage.Line) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", categoryTitle(c))

	if len(byReason) == 0 {
		b.WriteString("_No classified lines._\n")
		return b.String()
	}

	reasons := make([]string, 0, len(byReason))
	for r := range byReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	for _, reason := range reasons {
		if reason != "" {
			fmt.Fprintf(&b, "### %s\n\n", reason)
		}
		b.WriteString("| File | Lines |\n")
		b.WriteString("|------|-------|\n")

		byFile := make(map[string][]int)
		for _, cl := range byReason[reason] {
			path := cl.LocalPath
			if path == "" {
				path = cl.ReportPath
			}
			byFile[path] = append(byFile[path], cl.Line)
		}
		files := make([]string, 0, len(byFile))
		for f := range byFile {
			files = append(files, f)
		}
		sort.Strings(files)
		for _, f := range files {
			lines := byFile[f]
			sort.Ints(lines)
			fmt.Fprintf(&b, "| %s | %s |\n", f, joinLines(lines))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Report renders the full classification report: every category in order,
// preceded by the coverage summary when one is available.
func Report(summary *covreport.Summary, st *triage.Store) string {
	var sections []string
	if summary != nil {
		sections = append(sections, Summary(*summary))
	}
	for _, c := range []triage.Category{triage.Document, triage.CommentPlanned, triage.CoverPlanned} {
		sections = append(sections, Category(c, st.ByCategory(c)))
	}
	return strings.Join(sections, "\n")
}

// joinLines renders sorted line numbers, collapsing contiguous runs into
// ranges: 3, 7-9, 12.
func joinLines(lines []int) string {
	var parts []string
	for i := 0; i < len(lines); {
		j := i
		for j+1 < len(lines) && lines[j+1] == lines[j]+1 {
			j++
		}
		if j == i {
			parts = append(parts, fmt.Sprintf("%d", lines[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", lines[i], lines[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}
