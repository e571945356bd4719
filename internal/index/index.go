// Package index builds the installed-unit index: a mapping from unit name to
// its location on disk, plus ownership queries ("which unit does this file
// belong to") over a sorted set of unit roots.
package index

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Unit is an independently installable component known to the runtime.
// Root is an absolute path with symlinks resolved: a directory for package
// units, the file itself for single-file units.
type Unit struct {
	Name string
	Root string
}

// Resolution is the outcome of locating one enumerated unit. Units that
// cannot be resolved (broken install, namespace-only package, unreadable
// entry) carry a non-nil Err and are filtered out during Build.
type Resolution struct {
	Name string
	Unit Unit
	Err  error
}

// Registry enumerates every unit the runtime can locate. Enumerate returns
// one Resolution per candidate; it fails as a whole only when the registry
// itself cannot be queried.
type Registry interface {
	Enumerate() ([]Resolution, error)
}

// Index is the immutable name -> Unit mapping. Built once, read-only after.
type Index struct {
	units  map[string]Unit
	roots  []string          // sorted ascending, for ownership lookups
	byRoot map[string]string // root -> unit name
}

// Build constructs an Index from a registry walk. Per-unit resolution
// failures are logged and skipped; they never abort index construction.
func Build(reg Registry, log *zap.Logger) (*Index, error) {
	if log == nil {
		log = zap.NewNop()
	}
	resolutions, err := reg.Enumerate()
	if err != nil {
		return nil, fmt.Errorf("enumerate units: %w", err)
	}

	ix := &Index{
		units:  make(map[string]Unit, len(resolutions)),
		byRoot: make(map[string]string, len(resolutions)),
	}
	skipped := 0
	for _, res := range resolutions {
		if res.Err != nil {
			skipped++
			log.Debug("skipping unresolvable unit",
				zap.String("unit", res.Name), zap.Error(res.Err))
			continue
		}
		if _, dup := ix.units[res.Unit.Name]; dup {
			// first occurrence wins, matching search-path precedence
			continue
		}
		ix.units[res.Unit.Name] = res.Unit
		if prev, ok := ix.byRoot[res.Unit.Root]; !ok || res.Unit.Name < prev {
			ix.byRoot[res.Unit.Root] = res.Unit.Name
		}
	}
	ix.roots = make([]string, 0, len(ix.byRoot))
	for root := range ix.byRoot {
		ix.roots = append(ix.roots, root)
	}
	sort.Strings(ix.roots)

	log.Info("unit index built",
		zap.Int("units", len(ix.units)), zap.Int("skipped", skipped))
	return ix, nil
}

// Len returns the number of indexed units.
func (ix *Index) Len() int { return len(ix.units) }

// Lookup returns the unit with the given name.
func (ix *Index) Lookup(name string) (Unit, bool) {
	u, ok := ix.units[name]
	return u, ok
}

// Names returns all unit names in sorted order.
func (ix *Index) Names() []string {
	names := make([]string, 0, len(ix.units))
	for name := range ix.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Owner returns the unit whose root is the longest prefix of path, so a file
// sitting under both a parent unit and a more specific sub-unit is attributed
// to the sub-unit. It walks the path's ancestor chain from most to least
// specific, binary-searching each candidate in the sorted root set.
func (ix *Index) Owner(path string) (Unit, bool) {
	for p := path; ; {
		i := sort.SearchStrings(ix.roots, p)
		if i < len(ix.roots) && ix.roots[i] == p {
			return ix.units[ix.byRoot[p]], true
		}
		parent := filepath.Dir(p)
		if parent == p {
			return Unit{}, false
		}
		p = parent
	}
}

// UnderRoot reports whether path is root itself or lies beneath it.
func UnderRoot(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
