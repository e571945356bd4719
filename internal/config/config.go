// Package config loads packz settings: an optional JSON file, overridden by
// environment variables, overridden again by flags at the CLI layer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config carries everything a Runner can be constructed with. All fields are
// optional; zero values mean "use defaults".
type Config struct {
	// Python is the interpreter whose module registry is indexed and which
	// runs the monitored program.
	Python string `json:"python,omitempty"`
	// UnitBlacklist names units that are never bundled.
	UnitBlacklist []string `json:"unit_blacklist,omitempty"`
	// FileBlacklist holds filename glob patterns that are never bundled,
	// regardless of owning unit.
	FileBlacklist []string `json:"file_blacklist,omitempty"`
	// CatchAllDir is the bundle directory for files no unit owns.
	CatchAllDir string `json:"catch_all_dir,omitempty"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{CatchAllDir: "lib"}
}

// Load reads a config file and applies environment overrides. A missing file
// is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
			if cfg.CatchAllDir == "" {
				cfg.CatchAllDir = Default().CatchAllDir
			}
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file contents.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PACKZ_PYTHON"); v != "" {
		c.Python = v
	}
	if v := os.Getenv("PACKZ_CATCH_ALL"); v != "" {
		c.CatchAllDir = v
	}
}
