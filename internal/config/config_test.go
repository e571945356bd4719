package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "lib", cfg.CatchAllDir)
	assert.Empty(t, cfg.UnitBlacklist)
}

func TestLoad_FileContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packz.json")
	body := `{
		"python": "/opt/py/bin/python3",
		"unit_blacklist": ["fcl"],
		"file_blacklist": ["*assimp*"],
		"catch_all_dir": "vendor"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/py/bin/python3", cfg.Python)
	assert.Equal(t, []string{"fcl"}, cfg.UnitBlacklist)
	assert.Equal(t, []string{"*assimp*"}, cfg.FileBlacklist)
	assert.Equal(t, "vendor", cfg.CatchAllDir)
}

func TestLoad_MalformedFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packz.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packz.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"python": "/from/file"}`), 0o644))
	t.Setenv("PACKZ_PYTHON", "/from/env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Python)
}
