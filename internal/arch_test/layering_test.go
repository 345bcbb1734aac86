package arch_test

import (
	"path/filepath"
	"testing"
)

// layers assigns each internal package a dependency layer. A package may
// only import internal packages in strictly lower layers.
var layers = map[string]int{
	"covreport": 0,
	"pathmap":   0,
	"drift":     0,
	"telemetry": 0,
	"config":    0,

	"triage": 1,
	"watch":  1,

	"render":   2,
	"snapshot": 2,

	"store": 3,

	"overlay": 4,
}

func TestDependencyLayering(t *testing.T) {
	t.Parallel()

	dir := internalDirPath(t)
	for _, pkg := range internalPackages(t) {
		pkgLayer, ok := layers[pkg]
		if !ok {
			continue // reported by TestNoUnknownPackages
		}
		for _, imp := range importsOf(t, filepath.Join(dir, pkg)) {
			impLayer, ok := layers[imp]
			if !ok {
				t.Errorf("%s imports %s, which has no assigned layer", pkg, imp)
				continue
			}
			if impLayer >= pkgLayer {
				t.Errorf("%s (layer %d) imports %s (layer %d); imports must point strictly downward",
					pkg, pkgLayer, imp, impLayer)
			}
		}
	}
}

func TestNoUnknownPackages(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		if _, ok := layers[pkg]; !ok {
			t.Errorf("internal package %s has no layer assignment; add it to the layers map", pkg)
		}
	}
}
