// Package pyenv locates a Python interpreter and interrogates it for the
// runtime facts the index needs. The interpreter is invoked exactly once per
// question; everything downstream works on native filesystem walks.
package pyenv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// EnvInterpreter overrides interpreter discovery when set.
const EnvInterpreter = "PACKZ_PYTHON"

// Interpreter is a resolved Python executable.
type Interpreter struct {
	Path string
}

// Locate resolves the interpreter to use: an explicit path wins, then the
// PACKZ_PYTHON environment variable, then python3/python on PATH.
func Locate(explicit string) (Interpreter, error) {
	candidates := []string{explicit, os.Getenv(EnvInterpreter), "python3", "python"}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		path, err := exec.LookPath(c)
		if err != nil {
			continue
		}
		return Interpreter{Path: path}, nil
	}
	return Interpreter{}, fmt.Errorf("no python interpreter found (set %s or --python)", EnvInterpreter)
}

// searchPathScript dumps sys.path as JSON. Empty entries mean "current
// directory" in interpreter terms and are dropped: the index only walks
// stable install locations.
const searchPathScript = `import json, sys; print(json.dumps([p for p in sys.path if p]))`

// SearchPaths asks the interpreter for its module search path, in order.
func (it Interpreter) SearchPaths(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, it.Path, "-c", searchPathScript)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("query %s for sys.path: %w (stderr: %s)",
			it.Path, err, bytes.TrimSpace(stderr.Bytes()))
	}
	var paths []string
	if err := json.Unmarshal(stdout.Bytes(), &paths); err != nil {
		return nil, fmt.Errorf("parse sys.path output: %w", err)
	}
	return paths, nil
}
