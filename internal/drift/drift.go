// Package drift keeps a sparse set of coverage line numbers semantically
// correct as the underlying text is edited. Each tracked file carries the
// line sets as originally registered (the baseline), the sets after all
// edits so far (the current view, kept as a cache for O(1) reads), and a
// compact cumulative offset map that, replayed once against the baseline,
// reproduces the current view. The offset map is what gets persisted, so
// drift survives process restarts without replaying edit history.
package drift

import (
	"sort"
	"strings"
)

// LineSets holds the three coverage line sets for one file. Lines are
// 1-based. The sets are pairwise disjoint.
type LineSets struct {
	Covered   map[int]bool
	Uncovered map[int]bool
	Partial   map[int]bool
}

// NewLineSets returns empty sets.
func NewLineSets() LineSets {
	return LineSets{
		Covered:   make(map[int]bool),
		Uncovered: make(map[int]bool),
		Partial:   make(map[int]bool),
	}
}

// Clone deep-copies the sets.
func (s LineSets) Clone() LineSets {
	c := NewLineSets()
	for n := range s.Covered {
		c.Covered[n] = true
	}
	for n := range s.Uncovered {
		c.Uncovered[n] = true
	}
	for n := range s.Partial {
		c.Partial[n] = true
	}
	return c
}

// Len returns the total number of tracked lines across the three sets.
func (s LineSets) Len() int {
	return len(s.Covered) + len(s.Uncovered) + len(s.Partial)
}

// Edit describes one text change in terms of physical lines: the 1-based
// inclusive range it touched and the number of lines the changed region
// spanned before and after.
type Edit struct {
	StartLine int
	EndLine   int
	OldSpan   int
	NewSpan   int
}

// Delta is the net line-count change of the edit.
func (e Edit) Delta() int { return e.NewSpan - e.OldSpan }

// EditFromChange builds an Edit from an editor change event: the affected
// range plus the replaced and inserted text. Spans are derived by counting
// line breaks, so a change that neither adds nor removes a newline has
// Delta zero and never shifts numbering.
func EditFromChange(startLine, endLine int, replaced, inserted string) Edit {
	return Edit{
		StartLine: startLine,
		EndLine:   endLine,
		OldSpan:   strings.Count(replaced, "\n") + 1,
		NewSpan:   strings.Count(inserted, "\n") + 1,
	}
}

// fileState is the tracker's per-file record. Offsets map a baseline line
// number to the total signed delta for every baseline line at or beyond that
// key (up to the next key). currentLines is derivable from baseline+offsets
// and kept for O(1) reads.
type fileState struct {
	current  LineSets
	baseline LineSets
	offsets  map[int]int
	// registered distinguishes a fully registered file from one that only
	// has offsets restored from a previous session.
	registered bool
}

// Tracker owns the drift state for every registered file, keyed by local
// path. All operations are synchronous and cannot fail; operations on an
// untracked file are no-ops.
type Tracker struct {
	files map[string]*fileState
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{files: make(map[string]*fileState)}
}

// Register installs lines as both baseline and current view for path. If
// offsets were restored for this path before registration, they are applied
// to derive the actual current view, so registration is idempotent with
// respect to previously accumulated drift.
func (t *Tracker) Register(path string, lines LineSets) {
	st := t.files[path]
	if st == nil {
		st = &fileState{offsets: make(map[int]int)}
		t.files[path] = st
	}
	st.baseline = lines.Clone()
	st.current = applyOffsets(st.baseline, st.offsets)
	st.registered = true
}

// Registered reports whether path has a registered baseline.
func (t *Tracker) Registered(path string) bool {
	st := t.files[path]
	return st != nil && st.registered
}

// Paths returns the registered file paths in sorted order.
func (t *Tracker) Paths() []string {
	var out []string
	for p, st := range t.files {
		if st.registered {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Current returns a copy of the post-drift line sets for path, or empty sets
// if the file is not tracked.
func (t *Tracker) Current(path string) LineSets {
	st := t.files[path]
	if st == nil || !st.registered {
		return NewLineSets()
	}
	return st.current.Clone()
}

// ApplyEdit mutates the tracked sets for path so they keep referring to the
// same logical source lines after the edit. It reports whether any tracked
// line was shifted or dropped; false means downstream overlays need not be
// recomputed. Edits for an untracked file are ignored.
func (t *Tracker) ApplyEdit(path string, e Edit) (changed bool) {
	st := t.files[path]
	if st == nil || !st.registered {
		return false
	}
	delta := e.Delta()
	if delta == 0 {
		return false
	}

	// Net deletion removes the physical range [StartLine, remEnd]; a line
	// whose own text was deleted always loses its annotation.
	remEnd := -1
	if e.OldSpan > e.NewSpan {
		remEnd = e.StartLine + (e.OldSpan - e.NewSpan) - 1
	}

	var moved LineSets
	moved.Covered, changed = shiftSet(st.current.Covered, e, delta, remEnd, changed)
	moved.Uncovered, changed = shiftSet(st.current.Uncovered, e, delta, remEnd, changed)
	moved.Partial, changed = shiftSet(st.current.Partial, e, delta, remEnd, changed)
	if changed {
		st.current = moved
		recombineOffsets(st.offsets, e.StartLine, delta)
	}
	return changed
}

// shiftSet applies the shift and drop rules to one set, returning the new
// set. Building a fresh map avoids a shifted line colliding with a not yet
// processed original.
func shiftSet(set map[int]bool, e Edit, delta, remEnd int, changed bool) (map[int]bool, bool) {
	out := make(map[int]bool, len(set))
	for n := range set {
		switch {
		case n >= e.StartLine && n <= remEnd:
			// The line's own text was deleted.
			changed = true
		case n < e.StartLine:
			out[n] = true
		case n > e.EndLine:
			out[n+delta] = true
			changed = true
		case delta > 0:
			// Inside the edited span: the line moves down with the
			// inserted content rather than being dropped.
			out[n+delta] = true
			changed = true
		case n+delta >= e.StartLine:
			out[n+delta] = true
			changed = true
		default:
			changed = true
		}
	}
	return out, changed
}

// recombineOffsets folds one edit into the cumulative offset map: every key
// strictly beyond the edit start absorbs the delta, and the entry at the
// start itself becomes the prior cumulative value plus the delta. The result
// replays against the baseline in one pass.
func recombineOffsets(offsets map[int]int, startLine, delta int) {
	inherited := 0
	bestKey := -1
	for k := range offsets {
		if k > startLine {
			offsets[k] += delta
		} else if k > bestKey {
			bestKey = k
			inherited = offsets[k]
		}
	}
	if _, ok := offsets[startLine]; ok {
		offsets[startLine] += delta
	} else {
		offsets[startLine] = inherited + delta
	}
}

// applyOffsets derives the current view from a baseline and an offset map.
// Entries are applied in ascending key order: each baseline line takes the
// cumulative delta of the greatest key at or below it, and is dropped when
// the shift would carry it above the key that introduced it (its text was
// deleted).
func applyOffsets(baseline LineSets, offsets map[int]int) LineSets {
	if len(offsets) == 0 {
		return baseline.Clone()
	}
	keys := make([]int, 0, len(offsets))
	for k := range offsets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	shift := func(n int) (int, bool) {
		idx := sort.SearchInts(keys, n+1) - 1
		if idx < 0 {
			return n, true
		}
		key := keys[idx]
		moved := n + offsets[key]
		if moved < key {
			return 0, false
		}
		return moved, true
	}

	out := NewLineSets()
	pairs := []struct {
		src map[int]bool
		dst map[int]bool
	}{
		{baseline.Covered, out.Covered},
		{baseline.Uncovered, out.Uncovered},
		{baseline.Partial, out.Partial},
	}
	for _, p := range pairs {
		for n := range p.src {
			if moved, ok := shift(n); ok {
				p.dst[moved] = true
			}
		}
	}
	return out
}

// Offsets returns a copy of the cumulative offset map for path, keyed by
// baseline line. This is the persistable representation of drift.
func (t *Tracker) Offsets(path string) map[int]int {
	st := t.files[path]
	if st == nil || len(st.offsets) == 0 {
		return nil
	}
	out := make(map[int]int, len(st.offsets))
	for k, v := range st.offsets {
		out[k] = v
	}
	return out
}

// AllOffsets returns the offset maps for every path that has accumulated
// drift.
func (t *Tracker) AllOffsets() map[string]map[int]int {
	out := make(map[string]map[int]int)
	for p := range t.files {
		if m := t.Offsets(p); m != nil {
			out[p] = m
		}
	}
	return out
}

// ImportOffsets restores persisted offsets for path. If the file is already
// registered the current view is recomputed from the baseline; otherwise the
// offsets wait for the next Register call.
func (t *Tracker) ImportOffsets(path string, offsets map[int]int) {
	st := t.files[path]
	if st == nil {
		st = &fileState{offsets: make(map[int]int)}
		t.files[path] = st
	}
	st.offsets = make(map[int]int, len(offsets))
	for k, v := range offsets {
		st.offsets[k] = v
	}
	if st.registered {
		st.current = applyOffsets(st.baseline, st.offsets)
	}
}

// UncoveredBlock returns the maximal contiguous run of lines around line that
// are all uncovered or partially covered, found by scanning outward while
// membership holds. If line itself is not uncovered/partial, or the file is
// not tracked, the block is just [line].
func (t *Tracker) UncoveredBlock(path string, line int) []int {
	st := t.files[path]
	if st == nil || !st.registered {
		return []int{line}
	}
	member := func(n int) bool {
		return st.current.Uncovered[n] || st.current.Partial[n]
	}
	if !member(line) {
		return []int{line}
	}
	lo := line
	for lo > 1 && member(lo-1) {
		lo--
	}
	hi := line
	for member(hi + 1) {
		hi++
	}
	block := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		block = append(block, n)
	}
	return block
}

// Reset restores the current view to the registered baseline and discards
// the accumulated offsets for path, keeping the registration itself.
func (t *Tracker) Reset(path string) {
	st := t.files[path]
	if st == nil || !st.registered {
		return
	}
	st.current = st.baseline.Clone()
	st.offsets = make(map[int]int)
}

// Unregister drops all tracked state for path.
func (t *Tracker) Unregister(path string) {
	delete(t.files, path)
}

// Clear drops all tracked state for every path.
func (t *Tracker) Clear() {
	t.files = make(map[string]*fileState)
}
