// Package triage records user decisions about uncovered lines. A classified
// line carries a category plus a free-form reason and is findable via either
// of its two path identities: the path as written in the coverage report and
// the resolved local path. Entries are grouped by category:reason for report
// generation and mirrored into a normalized-suffix index for O(1) existence
// checks, which sit on the hot path for every visible line of every open
// file.
package triage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/redlinehq/coverlay/internal/pathmap"
)

// Category is the closed set of dispositions a line can be given.
type Category int

const (
	// Document: the gap is acceptable and should be documented, with a
	// reason.
	Document Category = iota
	// CommentPlanned: a clarifying comment is planned for the code.
	CommentPlanned
	// CoverPlanned: a test covering the line is planned.
	CoverPlanned
)

// String returns the stable name used in group keys and persistence.
func (c Category) String() string {
	switch c {
	case Document:
		return "document"
	case CommentPlanned:
		return "comment-planned"
	case CoverPlanned:
		return "cover-planned"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory maps a stable name back to its Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "document":
		return Document, nil
	case "comment-planned":
		return CommentPlanned, nil
	case "cover-planned":
		return CoverPlanned, nil
	}
	return 0, fmt.Errorf("triage: unknown category %q", s)
}

// Line is one classified line. Both path identities are retained; Line is
// the current (post-drift) line number at classification time. Reason is
// meaningful only for Document and empty otherwise.
type Line struct {
	LocalPath  string
	ReportPath string
	Line       int
	Category   Category
	Reason     string
}

// Reason is one entry of the user-grown reason vocabulary. Identity is ID;
// Label is what gets copied into classified lines, so deleting a reason
// never rewrites already-stored entries.
type Reason struct {
	ID    string
	Label string
}

// indexDepth is the suffix depth used for index keys. Two segments is the
// resolver floor; using the same depth here means a report path and the
// local path it resolved to produce the same key.
const indexDepth = pathmap.MinSuffixDepth

func indexKey(path string, line int) string {
	return fmt.Sprintf("%s:%d", pathmap.NormalizedSuffix(path, indexDepth), line)
}

// GroupKey builds the storage key for a category and reason.
func GroupKey(c Category, reason string) string {
	return c.String() + ":" + reason
}

// Store holds all classifications, grouped for reporting and indexed for
// lookup. The two structures never observably diverge: every mutation
// updates both before returning.
type Store struct {
	groups  map[string][]*Line
	index   map[string]*Line
	reasons []Reason
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		groups: make(map[string][]*Line),
		index:  make(map[string]*Line),
	}
}

// Classify records one classification per line that is not already
// classified. Duplicate detection on the write side is by exact path string
// equality, so two genuinely different files with colliding suffixes cannot
// swallow each other's entries; the read-side index handles the
// report-vs-local duality. Returns the number of lines actually added.
func (s *Store) Classify(localPath, reportPath string, lines []int, c Category, reason string) int {
	if c != Document {
		reason = ""
	}
	key := GroupKey(c, reason)
	added := 0
	for _, n := range lines {
		if s.classifiedExact(localPath, reportPath, n) {
			continue
		}
		cl := &Line{
			LocalPath:  localPath,
			ReportPath: reportPath,
			Line:       n,
			Category:   c,
			Reason:     reason,
		}
		s.groups[key] = append(s.groups[key], cl)
		s.index[indexKey(localPath, n)] = cl
		if reportPath != "" {
			s.index[indexKey(reportPath, n)] = cl
		}
		added++
	}
	return added
}

// classifiedExact reports whether any group already holds an entry for the
// same line under either exact path identity.
func (s *Store) classifiedExact(localPath, reportPath string, line int) bool {
	for _, group := range s.groups {
		for _, cl := range group {
			if cl.Line != line {
				continue
			}
			if (localPath != "" && cl.LocalPath == localPath) ||
				(reportPath != "" && cl.ReportPath == reportPath) {
				return true
			}
		}
	}
	return false
}

// IsClassified answers whether (path, line) carries a classification, in
// O(1) via the suffix index. The path may be given in either report or
// local form.
func (s *Store) IsClassified(path string, line int) *Line {
	return s.index[indexKey(path, line)]
}

// Remove deletes the classification for (path, line), matching by
// normalized suffix so the caller may pass either path form. Group and
// index are updated together; a group emptied by the removal is deleted.
// Removing a line that is not classified is a no-op.
func (s *Store) Remove(path string, line int) bool {
	target := s.index[indexKey(path, line)]
	if target == nil {
		return false
	}
	for key, group := range s.groups {
		for i, cl := range group {
			if cl != target {
				continue
			}
			s.groups[key] = append(group[:i], group[i+1:]...)
			if len(s.groups[key]) == 0 {
				delete(s.groups, key)
			}
			s.removeFromIndex(target)
			return true
		}
	}
	// The index pointed at an entry no group holds; repair the index
	// rather than leave the predicate lying.
	s.removeFromIndex(target)
	return false
}

func (s *Store) removeFromIndex(cl *Line) {
	delete(s.index, indexKey(cl.LocalPath, cl.Line))
	if cl.ReportPath != "" {
		delete(s.index, indexKey(cl.ReportPath, cl.Line))
	}
}

// ByCategory returns the classifications of one category grouped by literal
// reason string. Reason strings differing in case or whitespace are distinct
// groups. Lines within a group are sorted by path then line.
func (s *Store) ByCategory(c Category) map[string][]*Line {
	out := make(map[string][]*Line)
	prefix := c.String() + ":"
	for key, group := range s.groups {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		reason := strings.TrimPrefix(key, prefix)
		lines := make([]*Line, len(group))
		copy(lines, group)
		sort.Slice(lines, func(i, j int) bool {
			if lines[i].LocalPath != lines[j].LocalPath {
				return lines[i].LocalPath < lines[j].LocalPath
			}
			return lines[i].Line < lines[j].Line
		})
		out[reason] = lines
	}
	return out
}

// Groups returns every group keyed by category:reason, for persistence.
// Group keys are sorted; the caller owns the returned slices.
func (s *Store) Groups() map[string][]*Line {
	out := make(map[string][]*Line, len(s.groups))
	for key, group := range s.groups {
		lines := make([]*Line, len(group))
		copy(lines, group)
		out[key] = lines
	}
	return out
}

// LoadGroups replaces the store contents with the given groups, as after
// bulk deserialization, then rebuilds the index. The result is identical to
// having applied every insert incrementally.
func (s *Store) LoadGroups(groups map[string][]*Line) {
	s.groups = make(map[string][]*Line, len(groups))
	for key, group := range groups {
		lines := make([]*Line, len(group))
		copy(lines, group)
		s.groups[key] = lines
	}
	s.RebuildIndex()
}

// RebuildIndex reconstructs the suffix index from the groups.
func (s *Store) RebuildIndex() {
	s.index = make(map[string]*Line)
	for _, group := range s.groups {
		for _, cl := range group {
			s.index[indexKey(cl.LocalPath, cl.Line)] = cl
			if cl.ReportPath != "" {
				s.index[indexKey(cl.ReportPath, cl.Line)] = cl
			}
		}
	}
}

// Len returns the total number of classified lines.
func (s *Store) Len() int {
	n := 0
	for _, group := range s.groups {
		n += len(group)
	}
	return n
}

// Reasons returns the reason vocabulary in ID order.
func (s *Store) Reasons() []Reason {
	out := make([]Reason, len(s.reasons))
	copy(out, s.reasons)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddReason adds or relabels a vocabulary entry.
func (s *Store) AddReason(id, label string) {
	for i := range s.reasons {
		if s.reasons[i].ID == id {
			s.reasons[i].Label = label
			return
		}
	}
	s.reasons = append(s.reasons, Reason{ID: id, Label: label})
}

// RemoveReason deletes a vocabulary entry. Classified lines that copied the
// reason's label keep it.
func (s *Store) RemoveReason(id string) bool {
	for i := range s.reasons {
		if s.reasons[i].ID == id {
			s.reasons = append(s.reasons[:i], s.reasons[i+1:]...)
			return true
		}
	}
	return false
}

// SetReasons replaces the vocabulary, for snapshot restore.
func (s *Store) SetReasons(reasons []Reason) {
	s.reasons = make([]Reason, len(reasons))
	copy(s.reasons, reasons)
}
