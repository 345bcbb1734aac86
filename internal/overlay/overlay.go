// Package overlay ties the core subsystems together behind one session
// type: report loading, path resolution, drift tracking, and triage. The
// editor integration (or the CLI) holds a Session and calls into it on
// discrete events; every operation is synchronous and single-threaded.
package overlay

import (
	"fmt"
	"sort"

	"github.com/redlinehq/coverlay/internal/covreport"
	"github.com/redlinehq/coverlay/internal/drift"
	"github.com/redlinehq/coverlay/internal/pathmap"
	"github.com/redlinehq/coverlay/internal/snapshot"
	"github.com/redlinehq/coverlay/internal/telemetry"
	"github.com/redlinehq/coverlay/internal/triage"
)

// Session is the live coverage overlay state for one project.
type Session struct {
	Resolver *pathmap.Resolver
	Tracker  *drift.Tracker
	Triage   *triage.Store

	Report     *covreport.Report
	Resolved   map[string]string // report path → local path
	Unresolved []string          // report paths with no local match

	Telemetry *telemetry.Emitter
}

// New creates an empty session rooted at searchRoot. em may be nil.
func New(searchRoot string, walkDepth int, em *telemetry.Emitter) *Session {
	r := pathmap.NewResolver(searchRoot)
	r.WalkDepth = walkDepth
	return &Session{
		Resolver:  r,
		Tracker:   drift.NewTracker(),
		Triage:    triage.NewStore(),
		Resolved:  make(map[string]string),
		Telemetry: em,
	}
}

// lineSets converts parsed coverage into the tracker's representation.
func lineSets(fc *covreport.FileCoverage) drift.LineSets {
	s := drift.NewLineSets()
	for n := range fc.Covered {
		s.Covered[n] = true
	}
	for n := range fc.Uncovered {
		s.Uncovered[n] = true
	}
	for n := range fc.Partial {
		s.Partial[n] = true
	}
	return s
}

// LoadReport parses the report at path, resolves every report path against
// the search root, and registers each resolved file with the tracker.
// Previously restored offsets take effect at registration, so drift from a
// prior session carries over. The resolver is reset first, cache and
// filename index both: a reload is the one event that invalidates cached
// resolutions, and it must see files created since the last walk.
func (s *Session) LoadReport(path string) error {
	r, err := covreport.ParseFile(path)
	if err != nil {
		return err
	}
	s.Report = r
	s.Resolver.Reset()
	s.Resolved = make(map[string]string)
	s.Unresolved = nil

	reportPaths := make([]string, 0, len(r.Files))
	for rp := range r.Files {
		reportPaths = append(reportPaths, rp)
	}
	sort.Strings(reportPaths)

	for _, rp := range reportPaths {
		local, found := s.Resolver.Resolve(rp)
		if !found {
			s.Unresolved = append(s.Unresolved, rp)
			s.Telemetry.Record(telemetry.KindPathUnresolved, rp, nil)
			continue
		}
		s.Resolved[rp] = local
		s.Tracker.Register(local, lineSets(r.Files[rp]))
		s.Telemetry.Record(telemetry.KindPathResolved, rp, map[string]string{"local": local})
	}

	s.Telemetry.Record(telemetry.KindReportLoaded, path, map[string]int{
		"files":      len(r.Files),
		"resolved":   len(s.Resolved),
		"unresolved": len(s.Unresolved),
	})
	return nil
}

// localFor maps a path in either form to the tracked local path. A path
// that is already a resolved local path passes through; a report-form path
// goes through the resolved table via suffix matching.
func (s *Session) localFor(path string) (string, bool) {
	if s.Tracker.Registered(path) {
		return path, true
	}
	if local, ok := s.Resolved[path]; ok {
		return local, true
	}
	if s.Report != nil {
		if rp, _, ok := pathmap.FindCoverage(path, s.Report.Files); ok {
			if local, resolved := s.Resolved[rp]; resolved {
				return local, true
			}
		}
	}
	return "", false
}

// reportFor maps a local path back to its report path, if any.
func (s *Session) reportFor(localPath string) string {
	if s.Report == nil {
		return ""
	}
	rp, _, _ := pathmap.FindCoverage(localPath, s.Report.Files)
	return rp
}

// ApplyEdit feeds one edit event into the tracker and reports whether the
// overlay for that file must be recomputed. Edits for unregistered files
// are no-ops.
func (s *Session) ApplyEdit(localPath string, e drift.Edit) bool {
	changed := s.Tracker.ApplyEdit(localPath, e)
	if changed {
		s.Telemetry.Record(telemetry.KindEditApplied, localPath, map[string]int{
			"start": e.StartLine, "delta": e.Delta(),
		})
	}
	return changed
}

// Classify records a classification for the uncovered block around line.
// The path may be given in report or local form. With blockExpand false
// only the given line is classified. Returns the lines actually recorded;
// lines already classified are skipped.
func (s *Session) Classify(path string, line int, c triage.Category, reason string, blockExpand bool) ([]int, error) {
	local, ok := s.localFor(path)
	if !ok {
		return nil, fmt.Errorf("overlay: %s is not a tracked file", path)
	}
	lines := []int{line}
	if blockExpand {
		lines = s.Tracker.UncoveredBlock(local, line)
	}
	var recorded []int
	for _, n := range lines {
		if s.Triage.Classify(local, s.reportFor(local), []int{n}, c, reason) > 0 {
			recorded = append(recorded, n)
		}
	}
	if len(recorded) > 0 {
		s.Telemetry.Record(telemetry.KindLineClassified, local, map[string]any{
			"lines": recorded, "category": c.String(),
		})
	}
	return recorded, nil
}

// Declassify removes the classification at (path, line); either path form
// works. Removing a line that is not classified is a no-op.
func (s *Session) Declassify(path string, line int) bool {
	removed := s.Triage.Remove(path, line)
	if removed {
		s.Telemetry.Record(telemetry.KindLineRemoved, path, map[string]int{"line": line})
	}
	return removed
}

// Snapshot captures the persistable session state.
func (s *Session) Snapshot() snapshot.Snapshot {
	return snapshot.Capture(s.Tracker, s.Triage)
}

// RestoreSnapshot installs persisted state. Call before LoadReport so
// imported offsets apply when files register.
func (s *Session) RestoreSnapshot(snap snapshot.Snapshot) error {
	return snapshot.Restore(snap, s.Tracker, s.Triage)
}

// FileStatus summarizes one tracked file after drift.
type FileStatus struct {
	LocalPath     string
	ReportPath    string
	Covered       int
	Uncovered     int
	Partial       int
	Classified    int
	NeedAttention int // uncovered+partial lines with no classification
}

// Status reports per-file counts for every tracked file, sorted by path.
func (s *Session) Status() []FileStatus {
	var out []FileStatus
	for _, local := range s.Tracker.Paths() {
		cur := s.Tracker.Current(local)
		fs := FileStatus{
			LocalPath:  local,
			ReportPath: s.reportFor(local),
			Covered:    len(cur.Covered),
			Uncovered:  len(cur.Uncovered),
			Partial:    len(cur.Partial),
		}
		for n := range cur.Uncovered {
			if s.Triage.IsClassified(local, n) != nil {
				fs.Classified++
			} else {
				fs.NeedAttention++
			}
		}
		for n := range cur.Partial {
			if s.Triage.IsClassified(local, n) != nil {
				fs.Classified++
			} else {
				fs.NeedAttention++
			}
		}
		out = append(out, fs)
	}
	return out
}

// Clear drops all coverage state: tracker registrations, resolution cache,
// and the loaded report. Classifications survive; they are user decisions,
// not report data.
func (s *Session) Clear() {
	s.Tracker.Clear()
	s.Resolver.Reset()
	s.Report = nil
	s.Resolved = make(map[string]string)
	s.Unresolved = nil
}
