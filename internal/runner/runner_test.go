package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikedh/packz/internal/config"
	"github.com/mikedh/packz/internal/index"
)

type fixedRegistry map[string]string

func (r fixedRegistry) Enumerate() ([]index.Resolution, error) {
	var out []index.Resolution
	for name, root := range r {
		out = append(out, index.Resolution{
			Name: name,
			Unit: index.Unit{Name: name, Root: root},
		})
	}
	return out, nil
}

func TestNew_MissingReferenceUnitIsFatal(t *testing.T) {
	_, err := New(context.Background(), Options{
		Registry: fixedRegistry{"numpy": "/site/numpy"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "built-in")
}

func TestNew_DerivesBuiltinSet(t *testing.T) {
	r, err := New(context.Background(), Options{
		Registry: fixedRegistry{
			"collections": "/usr/lib/python3.11/collections",
			"json":        "/usr/lib/python3.11/json",
			"numpy":       "/usr/lib/python3.11/site-packages/numpy",
		},
	})
	require.NoError(t, err)

	assert.True(t, r.Builtin("collections"))
	assert.True(t, r.Builtin("json"))
	assert.False(t, r.Builtin("numpy"))
	assert.Equal(t, 3, r.Index().Len())
}

func TestNew_RejectsBadBlacklistPattern(t *testing.T) {
	_, err := New(context.Background(), Options{
		Registry: fixedRegistry{"collections": "/usr/lib/python3.11/collections"},
		Config:   config.Config{FileBlacklist: []string{"[oops"}},
	})
	assert.Error(t, err)
}

// fakeInterpreter writes a shell script that prints the given search path,
// standing in for the real sys.path query.
func fakeInterpreter(t *testing.T, searchPath string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script interpreter stub requires a unix shell")
	}
	path := filepath.Join(t.TempDir(), "python3")
	script := "#!/bin/sh\necho '[\"" + searchPath + "\"]'\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestNew_IndexesScriptDirectory(t *testing.T) {
	// a minimal base install so the built-in derivation has its anchor
	base, err := index.Expand(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "collections"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "collections", "__init__.py"), nil, 0o644))

	// a package-structured program next to its entry script
	proj, err := index.Expand(t.TempDir())
	require.NoError(t, err)
	script := filepath.Join(proj, "main.py")
	require.NoError(t, os.WriteFile(script, []byte("import app\n"), 0o644))
	subInit := filepath.Join(proj, "app", "sub", "__init__.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(subInit), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(proj, "app", "__init__.py"), nil, 0o644))
	require.NoError(t, os.WriteFile(subInit, nil, 0o644))

	r, err := New(context.Background(), Options{
		Config: config.Config{Python: fakeInterpreter(t, base)},
		Script: script,
	})
	require.NoError(t, err)

	// the program's own package is a unit, owning its nested files
	u, ok := r.Index().Lookup("app")
	require.True(t, ok, "script directory must be indexed; units: %v", r.Index().Names())
	assert.Equal(t, filepath.Join(proj, "app"), u.Root)
	owner, ok := r.Index().Owner(subInit)
	require.True(t, ok)
	assert.Equal(t, "app", owner.Name)
	assert.False(t, r.Builtin("app"))
	assert.True(t, r.Builtin("collections"))
}

func TestCommand_RequiresLocatedInterpreter(t *testing.T) {
	r, err := New(context.Background(), Options{
		Registry: fixedRegistry{"collections": "/usr/lib/python3.11/collections"},
	})
	require.NoError(t, err)

	_, err = r.Command("script.py")
	assert.Error(t, err)
}

func TestStop_WithoutStart(t *testing.T) {
	r, err := New(context.Background(), Options{
		Registry: fixedRegistry{"collections": "/usr/lib/python3.11/collections"},
	})
	require.NoError(t, err)
	assert.Error(t, r.Stop())
}
