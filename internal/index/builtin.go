package index

import (
	"fmt"
	"path/filepath"
)

// BuiltinSet derives the names of units that ship with the platform's base
// distribution. The reference unit must be one that is always present in the
// base install; its parent directory becomes the base root, and the
// conventional third-party subdirectory beneath that root is excluded. A
// missing reference unit means the built-in/third-party distinction cannot be
// computed at all, which is fatal for the caller.
//
// The base-root-plus-site-subdirectory convention is a platform assumption;
// see DESIGN.md for the portability note.
func BuiltinSet(ix *Index, reference, siteDir string) (map[string]struct{}, error) {
	ref, ok := ix.Lookup(reference)
	if !ok {
		return nil, fmt.Errorf("reference unit %q not present in index: broken runtime install", reference)
	}
	base := filepath.Dir(ref.Root)
	site := filepath.Join(base, siteDir)

	builtin := make(map[string]struct{})
	for name, u := range ix.units {
		if UnderRoot(u.Root, base) && !UnderRoot(u.Root, site) {
			builtin[name] = struct{}{}
		}
	}
	return builtin, nil
}
