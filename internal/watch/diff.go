package watch

import (
	"strings"

	"github.com/redlinehq/coverlay/internal/drift"
)

// DiffEdit compares two file contents and describes the change as a single
// edit event: the 1-based line range that differs, found by trimming the
// common prefix and suffix, with spans taken from what each side holds in
// between. Identical contents yield ok=false.
//
// A single contiguous change is exact. When a save bundles multiple
// disjoint changes, the edit covers the whole spanning region; the net line
// delta is still correct, so lines outside the region shift exactly and
// lines inside follow the tracker's conservative in-span rules.
func DiffEdit(oldContent, newContent string) (drift.Edit, bool) {
	if oldContent == newContent {
		return drift.Edit{}, false
	}
	oldLines := strings.Split(oldContent, "\n")
	newLines := strings.Split(newContent, "\n")

	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) && oldLines[prefix] == newLines[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}

	oldSpan := len(oldLines) - prefix - suffix
	newSpan := len(newLines) - prefix - suffix

	start := prefix + 1
	end := prefix + oldSpan
	if end < start {
		// Pure insertion: the edit anchors at the insertion point.
		end = start
	}
	return drift.Edit{
		StartLine: start,
		EndLine:   end,
		OldSpan:   oldSpan,
		NewSpan:   newSpan,
	}, true
}
