package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikedh/packz/internal/index"
)

// fixedRegistry builds an index from literal name->root pairs.
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

func buildIndex(t *testing.T, reg fixedRegistry) *index.Index {
	t.Helper()
	ix, err := index.Build(reg, nil)
	require.NoError(t, err)
	return ix
}

func TestClassify_FileBlacklistShortCircuits(t *testing.T) {
	ix := buildIndex(t, fixedRegistry{"pkg": "/a/pkg"})
	c, err := New(ix, nil, Config{FileBlacklist: []string{"*secret*"}})
	require.NoError(t, err)

	// blacklisted by base name even though pkg owns it
	_, ok := c.Classify("/a/pkg/config_secret.json")
	assert.False(t, ok)

	// an unowned file with a blacklisted name is excluded too
	_, ok = c.Classify("/elsewhere/topsecret.bin")
	assert.False(t, ok)
}

func TestClassify_BuiltinAndBlacklistedUnitsExcluded(t *testing.T) {
	ix := buildIndex(t, fixedRegistry{
		"json":  "/usr/lib/python3.11/json",
		"numpy": "/site/numpy",
		"fcl":   "/site/fcl",
	})
	builtin := map[string]struct{}{"json": {}}
	c, err := New(ix, builtin, Config{UnitBlacklist: []string{"fcl"}})
	require.NoError(t, err)

	_, ok := c.Classify("/usr/lib/python3.11/json/decoder.py")
	assert.False(t, ok, "built-in units are never bundled")

	_, ok = c.Classify("/site/fcl/core.py")
	assert.False(t, ok, "blacklisted units are never bundled")

	m, ok := c.Classify("/site/numpy/core/api.py")
	require.True(t, ok)
	assert.Equal(t, "numpy", m.Unit)
	assert.Equal(t, "numpy/core/api.py", m.Dest)
}

func TestClassify_UnownedFilesGoToCatchAll(t *testing.T) {
	ix := buildIndex(t, fixedRegistry{"pkg": "/a/pkg"})

	t.Run("default bucket", func(t *testing.T) {
		c, err := New(ix, nil, Config{})
		require.NoError(t, err)

		m, ok := c.Classify("/opt/data/weights.bin")
		require.True(t, ok)
		assert.Empty(t, m.Unit)
		assert.Equal(t, filepath.Join(DefaultCatchAll, "weights.bin"), m.Dest)
	})

	t.Run("configured bucket", func(t *testing.T) {
		c, err := New(ix, nil, Config{CatchAll: "vendor"})
		require.NoError(t, err)

		m, ok := c.Classify("/opt/data/weights.bin")
		require.True(t, ok)
		assert.Equal(t, "vendor/weights.bin", m.Dest)
	})
}

func TestClassify_DestinationStartsWithUnitDirName(t *testing.T) {
	ix := buildIndex(t, fixedRegistry{
		"pkg":     "/a/pkg",
		"pkg.sub": "/a/pkg/sub",
		"six":     "/site/six.py",
	})
	c, err := New(ix, nil, Config{})
	require.NoError(t, err)

	cases := []struct {
		path, dest string
	}{
		{"/a/pkg/mod.py", "pkg/mod.py"},
		{"/a/pkg/sub/x.py", "sub/x.py"}, // owned by pkg.sub, rooted at its dir name
		{"/site/six.py", "six.py"},
	}
	for _, tc := range cases {
		m, ok := c.Classify(tc.path)
		require.True(t, ok, tc.path)
		assert.Equal(t, tc.dest, m.Dest)
		assert.False(t, filepath.IsAbs(m.Dest), "destinations are always relative")
	}
}

func TestClassify_OutputIsIdempotent(t *testing.T) {
	ix := buildIndex(t, fixedRegistry{"pkg": "/a/pkg"})
	c, err := New(ix, nil, Config{})
	require.NoError(t, err)

	first, ok1 := c.Classify("/a/pkg/mod.py")
	second, ok2 := c.Classify("/a/pkg/mod.py")
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestLedger_ChargedExplicitly(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "pkg")
	require.NoError(t, os.MkdirAll(root, 0o755))
	mod := filepath.Join(root, "mod.py")
	require.NoError(t, os.WriteFile(mod, make([]byte, 100), 0o644))

	ix := buildIndex(t, fixedRegistry{"pkg": root})
	c, err := New(ix, nil, Config{})
	require.NoError(t, err)

	// classification alone never charges; only retained entries do
	_, ok := c.Classify(mod)
	require.True(t, ok)
	assert.Empty(t, c.Ledger())

	c.Charge("pkg", SizeOf(mod))
	c.Charge("pkg", 50)
	assert.Equal(t, int64(150), c.Ledger()["pkg"])

	// the empty unit name (unowned files) charges nothing
	c.Charge("", 999)
	assert.Len(t, c.Ledger(), 1)
}

func TestNew_RejectsInvalidGlob(t *testing.T) {
	ix := buildIndex(t, fixedRegistry{})
	_, err := New(ix, nil, Config{FileBlacklist: []string{"[unclosed"}})
	assert.Error(t, err)
}
