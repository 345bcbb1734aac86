// Package covreport models an externally generated coverage report as three
// disjoint sets of 1-based line numbers per source file (covered, uncovered,
// partially covered) plus a global percentage summary. Report paths are kept
// exactly as written in the report; normalization happens only at lookup time
// in the pathmap package.
package covreport

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidReport is returned when the report is missing its summary or
// contains no function records. No partial report is installed on this error.
var ErrInvalidReport = errors.New("covreport: invalid report")

// Summary holds the report-wide coverage percentages. MCDCPercent is -1 when
// the report does not carry an MC/DC figure.
type Summary struct {
	StatementPercent float64
	BranchPercent    float64
	MCDCPercent      float64
}

// FileCoverage holds the three line sets for one reported file. The sets are
// pairwise disjoint by construction: when the raw report lists a line as both
// covered and uncovered (or partial), the uncovered/partial membership wins
// and the covered one is discarded.
type FileCoverage struct {
	ReportPath string
	Covered    map[int]bool
	Uncovered  map[int]bool
	Partial    map[int]bool
}

// Report is the parsed coverage report. Files is keyed by the report path
// string exactly as it appears in the report.
type Report struct {
	Summary Summary
	Files   map[string]*FileCoverage
}

// Clone returns a deep copy of the three line sets. The drift tracker mutates
// copies only; the parsed report stays immutable after construction.
func (f *FileCoverage) Clone() *FileCoverage {
	c := &FileCoverage{
		ReportPath: f.ReportPath,
		Covered:    make(map[int]bool, len(f.Covered)),
		Uncovered:  make(map[int]bool, len(f.Uncovered)),
		Partial:    make(map[int]bool, len(f.Partial)),
	}
	for n := range f.Covered {
		c.Covered[n] = true
	}
	for n := range f.Uncovered {
		c.Uncovered[n] = true
	}
	for n := range f.Partial {
		c.Partial[n] = true
	}
	return c
}

// xmlReport mirrors the report document structure. The summary percentages
// are attributes; each function record carries a file path and three
// comma-separated line lists. Multiple functions may reference the same file.
type xmlReport struct {
	XMLName   xml.Name       `xml:"coverage"`
	Summary   *xmlSummary    `xml:"summary"`
	Functions []*xmlFunction `xml:"function"`
}

type xmlSummary struct {
	Statement string `xml:"statement,attr"`
	Branch    string `xml:"branch,attr"`
	MCDC      string `xml:"mcdc,attr"`
}

type xmlFunction struct {
	Name      string `xml:"name,attr"`
	File      string `xml:"file,attr"`
	Covered   string `xml:"covered,attr"`
	Uncovered string `xml:"uncovered,attr"`
	Partial   string `xml:"partial,attr"`
}

// ParseFile reads and parses the report at path.
func ParseFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("covreport: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a report document. A missing summary block or an empty
// function list makes the whole document invalid; unparseable individual
// line-number tokens are skipped without failing the file they belong to.
func Parse(data []byte) (*Report, error) {
	var doc xmlReport
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if doc.Summary == nil {
		return nil, fmt.Errorf("%w: missing summary", ErrInvalidReport)
	}
	if len(doc.Functions) == 0 {
		return nil, fmt.Errorf("%w: no function records", ErrInvalidReport)
	}

	r := &Report{
		Summary: Summary{
			StatementPercent: parsePercent(doc.Summary.Statement, 0),
			BranchPercent:    parsePercent(doc.Summary.Branch, 0),
			MCDCPercent:      parsePercent(doc.Summary.MCDC, -1),
		},
		Files: make(map[string]*FileCoverage),
	}

	for _, fn := range doc.Functions {
		if fn.File == "" {
			continue
		}
		fc := r.Files[fn.File]
		if fc == nil {
			fc = &FileCoverage{
				ReportPath: fn.File,
				Covered:    make(map[int]bool),
				Uncovered:  make(map[int]bool),
				Partial:    make(map[int]bool),
			}
			r.Files[fn.File] = fc
		}
		for _, n := range parseLineList(fn.Covered) {
			fc.Covered[n] = true
		}
		for _, n := range parseLineList(fn.Uncovered) {
			fc.Uncovered[n] = true
		}
		for _, n := range parseLineList(fn.Partial) {
			fc.Partial[n] = true
		}
	}

	// Disjointness repair: uncovered/partial membership wins over covered.
	for _, fc := range r.Files {
		for n := range fc.Uncovered {
			delete(fc.Covered, n)
		}
		for n := range fc.Partial {
			delete(fc.Covered, n)
			delete(fc.Uncovered, n)
		}
	}
	return r, nil
}

// parseLineList splits a comma-separated list of 1-based line numbers.
// Tokens that fail to parse, and non-positive values, are dropped silently.
func parseLineList(s string) []int {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []int
	for _, tok := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil || n < 1 {
			continue
		}
		out = append(out, n)
	}
	return out
}

func parsePercent(s string, absent float64) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return absent
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return absent
	}
	return v
}
