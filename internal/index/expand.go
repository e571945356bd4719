package index

import (
	"os"
	"path/filepath"
	"strings"
)

// Expand resolves user-home shorthand and symlinks, returning an absolute
// path. The target must exist: a dangling symlink or missing file is an
// error, which callers treat as "not classifiable".
func Expand(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
