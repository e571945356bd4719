package index

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// errNamespaceOnly marks directories that import as namespace packages: they
// have no initializer file, so there is no single loadable location to index.
var errNamespaceOnly = errors.New("namespace package has no loadable file")

// PythonRegistry enumerates importable units by walking an interpreter's
// search path, top-level entries only, in path order. A directory with an
// __init__.py is a package unit rooted at the directory; a lone .py file or a
// compiled extension module is a file unit.
type PythonRegistry struct {
	// SearchPaths in interpreter order; earlier entries shadow later ones.
	SearchPaths []string
}

// Enumerate implements Registry.
func (r *PythonRegistry) Enumerate() ([]Resolution, error) {
	var out []Resolution
	for _, dir := range r.SearchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			// search paths routinely contain missing directories
			continue
		}
		for _, e := range entries {
			name, ok := unitName(e.Name(), e.IsDir())
			if !ok {
				continue
			}
			out = append(out, resolve(name, filepath.Join(dir, e.Name()), e.IsDir()))
		}
	}
	return out, nil
}

// resolve canonicalizes one candidate unit location.
func resolve(name, path string, isDir bool) Resolution {
	if isDir {
		if _, err := os.Stat(filepath.Join(path, "__init__.py")); err != nil {
			return Resolution{Name: name, Err: errNamespaceOnly}
		}
		// directory-based unit: the containing directory is the root
		root, err := Expand(path)
		if err != nil {
			return Resolution{Name: name, Err: err}
		}
		return Resolution{Name: name, Unit: Unit{Name: name, Root: root}}
	}
	root, err := Expand(path)
	if err != nil {
		return Resolution{Name: name, Err: err}
	}
	return Resolution{Name: name, Unit: Unit{Name: name, Root: root}}
}

// unitName maps a directory entry to an importable unit name, or reports
// that the entry is not a unit at all (data files, metadata dirs, caches).
func unitName(entry string, isDir bool) (string, bool) {
	if isDir {
		if !isIdentifier(entry) {
			return "", false
		}
		return entry, true
	}
	switch {
	case strings.HasSuffix(entry, ".py"):
		stem := strings.TrimSuffix(entry, ".py")
		if !isIdentifier(stem) {
			return "", false
		}
		return stem, true
	case strings.HasSuffix(entry, ".so"), strings.HasSuffix(entry, ".pyd"):
		// extension modules carry platform tags: name.cpython-311-x86_64.so
		stem, _, _ := strings.Cut(entry, ".")
		if !isIdentifier(stem) {
			return "", false
		}
		return stem, true
	}
	return "", false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
