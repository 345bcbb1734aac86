// Package snapshot serializes the user-owned state that must survive a
// session: per-file drift offsets, classifications, and the reason
// vocabulary. Coverage line sets themselves are not persisted — they are
// rebuilt from a fresh report load and the offsets are replayed on top.
// The encoding is TOML with canonical ordering, so loading a snapshot and
// saving it again without intervening edits reproduces equivalent bytes.
package snapshot

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/redlinehq/coverlay/internal/drift"
	"github.com/redlinehq/coverlay/internal/triage"
)

// LineRecord is one persisted classification.
type LineRecord struct {
	LocalPath  string `toml:"local_path"`
	ReportPath string `toml:"report_path,omitempty"`
	Line       int    `toml:"line"`
	Category   string `toml:"category"`
	Reason     string `toml:"reason,omitempty"`
}

// Group is one category:reason bucket of classifications.
type Group struct {
	Key   string       `toml:"key"`
	Lines []LineRecord `toml:"lines"`
}

// ReasonRecord is one vocabulary entry.
type ReasonRecord struct {
	ID    string `toml:"id"`
	Label string `toml:"label"`
}

// Snapshot is the process-boundary persistence structure: everything the process
// needs to restore triage decisions and accumulated drift. Offset keys are
// baseline line numbers rendered as strings (TOML table keys).
type Snapshot struct {
	Offsets         map[string]map[string]int `toml:"offsets,omitempty"`
	Classifications []Group                   `toml:"classifications,omitempty"`
	Reasons         []ReasonRecord            `toml:"reasons,omitempty"`
}

// Capture builds a canonical snapshot from the tracker and store.
func Capture(tr *drift.Tracker, st *triage.Store) Snapshot {
	var snap Snapshot

	all := tr.AllOffsets()
	if len(all) > 0 {
		snap.Offsets = make(map[string]map[string]int, len(all))
		for path, offsets := range all {
			m := make(map[string]int, len(offsets))
			for line, delta := range offsets {
				m[strconv.Itoa(line)] = delta
			}
			snap.Offsets[path] = m
		}
	}

	groups := st.Groups()
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		g := Group{Key: key}
		for _, cl := range groups[key] {
			g.Lines = append(g.Lines, LineRecord{
				LocalPath:  cl.LocalPath,
				ReportPath: cl.ReportPath,
				Line:       cl.Line,
				Category:   cl.Category.String(),
				Reason:     cl.Reason,
			})
		}
		sort.Slice(g.Lines, func(i, j int) bool {
			if g.Lines[i].LocalPath != g.Lines[j].LocalPath {
				return g.Lines[i].LocalPath < g.Lines[j].LocalPath
			}
			return g.Lines[i].Line < g.Lines[j].Line
		})
		snap.Classifications = append(snap.Classifications, g)
	}

	for _, r := range st.Reasons() {
		snap.Reasons = append(snap.Reasons, ReasonRecord{ID: r.ID, Label: r.Label})
	}
	return snap
}

// Restore applies a snapshot: offsets are imported into the tracker (taking
// effect when files register), classifications replace the store contents
// and the index is rebuilt, and the reason vocabulary is installed.
func Restore(snap Snapshot, tr *drift.Tracker, st *triage.Store) error {
	for path, m := range snap.Offsets {
		offsets := make(map[int]int, len(m))
		for lineStr, delta := range m {
			line, err := strconv.Atoi(lineStr)
			if err != nil || line < 1 {
				return fmt.Errorf("snapshot: bad offset key %q for %s", lineStr, path)
			}
			offsets[line] = delta
		}
		tr.ImportOffsets(path, offsets)
	}

	groups := make(map[string][]*triage.Line, len(snap.Classifications))
	for _, g := range snap.Classifications {
		for _, rec := range g.Lines {
			cat, err := triage.ParseCategory(rec.Category)
			if err != nil {
				return fmt.Errorf("snapshot: group %q: %w", g.Key, err)
			}
			groups[g.Key] = append(groups[g.Key], &triage.Line{
				LocalPath:  rec.LocalPath,
				ReportPath: rec.ReportPath,
				Line:       rec.Line,
				Category:   cat,
				Reason:     rec.Reason,
			})
		}
	}
	st.LoadGroups(groups)

	reasons := make([]triage.Reason, 0, len(snap.Reasons))
	for _, r := range snap.Reasons {
		reasons = append(reasons, triage.Reason{ID: r.ID, Label: r.Label})
	}
	st.SetReasons(reasons)
	return nil
}

// Encode renders the snapshot as TOML. go-toml emits map keys sorted, so a
// canonical snapshot encodes deterministically.
func Encode(snap Snapshot) ([]byte, error) {
	data, err := toml.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return data, nil
}

// Decode parses a TOML snapshot.
func Decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := toml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	return snap, nil
}

// SaveFile writes the snapshot to path.
func SaveFile(path string, snap Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a snapshot from path.
func LoadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	return Decode(data)
}
