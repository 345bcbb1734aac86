// Package pathmap resolves the path recorded in a coverage report (typically
// produced on a build machine with a different root directory) to a file on
// the local filesystem, and back. Matching compares a normalized suffix of
// both paths at degrading depth: filename plus a handful of trailing segments
// is usually sufficient and robust to drive and prefix differences.
package pathmap

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// MaxSuffixDepth is the number of trailing path segments compared first.
const MaxSuffixDepth = 5

// MinSuffixDepth is the floor: a match on fewer segments than this is
// considered a false positive and reported as not found.
const MinSuffixDepth = 2

// DefaultWalkDepth bounds how deep the candidate walk descends below the
// search root. Resolution is the one potentially expensive core operation,
// so the scan is capped rather than unbounded.
const DefaultWalkDepth = 16

// NormalizedSuffix reduces a path to its last depth segments, lowercased and
// slash-separated. Windows and POSIX forms of the same trailing structure
// normalize to the same key. Depth values larger than the segment count use
// the whole path.
func NormalizedSuffix(path string, depth int) string {
	s := strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
	s = strings.TrimRight(s, "/")
	segs := strings.Split(s, "/")
	// Drop empty leading segment from absolute paths and drive markers.
	kept := segs[:0]
	for _, seg := range segs {
		if seg != "" {
			kept = append(kept, seg)
		}
	}
	if depth < len(kept) {
		kept = kept[len(kept)-depth:]
	}
	return strings.Join(kept, "/")
}

// segmentCount returns the number of non-empty segments in path.
func segmentCount(path string) int {
	s := strings.ReplaceAll(path, `\`, "/")
	n := 0
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}

type cacheEntry struct {
	local string
	found bool
}

// Cache remembers resolution outcomes per report path, hits and misses both,
// so a repeated failed lookup returns instantly instead of re-walking the
// tree. Entries are only added, never mutated; the cache is cleared solely by
// an explicit reload action.
type Cache struct {
	entries map[string]cacheEntry
}

// NewCache returns an empty resolution cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Lookup reports whether reportPath has a cached outcome.
func (c *Cache) Lookup(reportPath string) (local string, found, cached bool) {
	e, ok := c.entries[reportPath]
	return e.local, e.found, ok
}

func (c *Cache) store(reportPath, local string, found bool) {
	c.entries[reportPath] = cacheEntry{local: local, found: found}
}

// Clear drops every cached outcome. Called on report reload.
func (c *Cache) Clear() {
	c.entries = make(map[string]cacheEntry)
}

// Resolver maps report paths to local files under SearchRoot.
type Resolver struct {
	SearchRoot string
	WalkDepth  int // 0 means DefaultWalkDepth
	Cache      *Cache

	// byName indexes candidate files under SearchRoot by lowercased
	// filename, in lexical walk order. Built lazily on first resolve.
	byName map[string][]string
}

// NewResolver creates a resolver rooted at searchRoot with a fresh cache.
func NewResolver(searchRoot string) *Resolver {
	return &Resolver{SearchRoot: searchRoot, Cache: NewCache()}
}

// Resolve maps reportPath to a local file, or reports found=false. Matching
// starts at MaxSuffixDepth trailing segments and degrades one segment at a
// time down to MinSuffixDepth; ties at a given depth go to the first
// candidate in lexical walk order. Both outcomes are cached.
func (r *Resolver) Resolve(reportPath string) (local string, found bool) {
	if r.Cache == nil {
		r.Cache = NewCache()
	}
	if l, f, cached := r.Cache.Lookup(reportPath); cached {
		return l, f
	}
	local, found = r.resolveUncached(reportPath)
	r.Cache.store(reportPath, local, found)
	return local, found
}

// Reset drops both the resolution cache and the filename index, so the next
// Resolve re-walks the search root. Called on report reload; files created
// since the last walk become resolvable again.
func (r *Resolver) Reset() {
	if r.Cache == nil {
		r.Cache = NewCache()
	}
	r.Cache.Clear()
	r.byName = nil
}

func (r *Resolver) resolveUncached(reportPath string) (string, bool) {
	if r.byName == nil {
		r.buildIndex()
	}
	name := strings.ToLower(filepath.Base(strings.ReplaceAll(reportPath, `\`, "/")))
	candidates := r.byName[name]
	if len(candidates) == 0 {
		return "", false
	}
	for depth := MaxSuffixDepth; depth >= MinSuffixDepth; depth-- {
		want := NormalizedSuffix(reportPath, depth)
		for _, cand := range candidates {
			// A candidate shallower than the probe depth would compare a
			// shorter suffix against a longer one; skip until depth fits.
			if segmentCount(cand) < depth && segmentCount(reportPath) >= depth {
				continue
			}
			if NormalizedSuffix(cand, depth) == want {
				return cand, true
			}
		}
	}
	return "", false
}

// buildIndex walks SearchRoot once, lexically, collecting regular files up to
// the depth ceiling.
func (r *Resolver) buildIndex() {
	r.byName = make(map[string][]string)
	maxDepth := r.WalkDepth
	if maxDepth <= 0 {
		maxDepth = DefaultWalkDepth
	}
	root := filepath.Clean(r.SearchRoot)
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator)) + 1
		if d.IsDir() {
			if path != root && (depth > maxDepth || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		name := strings.ToLower(d.Name())
		r.byName[name] = append(r.byName[name], path)
		return nil
	})
}

// FileSets is the minimal view of a parsed report the reverse lookup needs:
// report path → anything. It avoids importing the report model here.
type FileSets[T any] map[string]T

// FindCoverage maps a local path back to the report entry it corresponds to,
// using the identical suffix-degradation algorithm but iterating over report
// entries rather than the filesystem. Report paths are probed in sorted order
// so ties resolve deterministically.
func FindCoverage[T any](localPath string, files FileSets[T]) (reportPath string, value T, found bool) {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for depth := MaxSuffixDepth; depth >= MinSuffixDepth; depth-- {
		want := NormalizedSuffix(localPath, depth)
		for _, k := range keys {
			if segmentCount(k) < depth && segmentCount(localPath) >= depth {
				continue
			}
			if NormalizedSuffix(k, depth) == want {
				return k, files[k], true
			}
		}
	}
	var zero T
	return "", zero, false
}
