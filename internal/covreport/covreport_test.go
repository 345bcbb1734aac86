package covreport

import (
	"errors"
	"testing"
)

const sampleReport = `<?xml version="1.0"?>
<coverage>
  <summary statement="82.5" branch="64.0" mcdc="51.2"/>
  <function name="alpha" file="C:\build\src\pkg\alpha.c" covered="1,2,3" uncovered="10,11" partial="12"/>
  <function name="beta" file="C:\build\src\pkg\alpha.c" covered="20,21" uncovered="30"/>
  <function name="gamma" file="C:\build\src\pkg\gamma.c" covered="5" uncovered="6,7,8"/>
</coverage>`

func TestParse_UnionsPerFile(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(sampleReport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(r.Files))
	}
	fc := r.Files[`C:\build\src\pkg\alpha.c`]
	if fc == nil {
		t.Fatal("alpha.c missing; report paths must be kept verbatim")
	}
	for _, n := range []int{1, 2, 3, 20, 21} {
		if !fc.Covered[n] {
			t.Errorf("covered[%d] missing", n)
		}
	}
	for _, n := range []int{10, 11, 30} {
		if !fc.Uncovered[n] {
			t.Errorf("uncovered[%d] missing", n)
		}
	}
	if !fc.Partial[12] {
		t.Error("partial[12] missing")
	}
}

func TestParse_Summary(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(sampleReport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Summary.StatementPercent != 82.5 {
		t.Errorf("statement = %v, want 82.5", r.Summary.StatementPercent)
	}
	if r.Summary.BranchPercent != 64.0 {
		t.Errorf("branch = %v, want 64.0", r.Summary.BranchPercent)
	}
	if r.Summary.MCDCPercent != 51.2 {
		t.Errorf("mcdc = %v, want 51.2", r.Summary.MCDCPercent)
	}
}

func TestParse_MCDCAbsent(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(`<coverage><summary statement="50" branch="50"/><function file="a.c" covered="1"/></coverage>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Summary.MCDCPercent != -1 {
		t.Errorf("mcdc = %v, want -1 when absent", r.Summary.MCDCPercent)
	}
}

func TestParse_InvalidReports(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "not an xml document"},
		{"missing summary", `<coverage><function file="a.c" covered="1"/></coverage>`},
		{"no functions", `<coverage><summary statement="1" branch="1"/></coverage>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse([]byte(tt.doc)); !errors.Is(err, ErrInvalidReport) {
				t.Errorf("Parse = %v, want ErrInvalidReport", err)
			}
		})
	}
}

func TestParse_BadTokensSkipped(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(`<coverage><summary statement="1" branch="1"/><function file="a.c" covered="1,x,3,-2,0,4"/></coverage>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fc := r.Files["a.c"]
	want := []int{1, 3, 4}
	if len(fc.Covered) != len(want) {
		t.Fatalf("covered = %v, want exactly %v", fc.Covered, want)
	}
	for _, n := range want {
		if !fc.Covered[n] {
			t.Errorf("covered[%d] missing", n)
		}
	}
}

func TestParse_ConflictPrecedence(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(`<coverage><summary statement="1" branch="1"/><function file="a.c" covered="5,6,7" uncovered="5" partial="6"/></coverage>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fc := r.Files["a.c"]
	if fc.Covered[5] || fc.Covered[6] {
		t.Error("conflicting lines must be dropped from covered")
	}
	if !fc.Uncovered[5] || !fc.Partial[6] || !fc.Covered[7] {
		t.Errorf("precedence repair wrong: %+v", fc)
	}
}

func TestClone_Independent(t *testing.T) {
	t.Parallel()
	fc := &FileCoverage{
		ReportPath: "a.c",
		Covered:    map[int]bool{1: true},
		Uncovered:  map[int]bool{2: true},
		Partial:    map[int]bool{3: true},
	}
	c := fc.Clone()
	c.Uncovered[99] = true
	delete(c.Covered, 1)
	if fc.Uncovered[99] || !fc.Covered[1] {
		t.Error("Clone must not share set storage with the original")
	}
}
