package snapshot

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// LsofSnapshotter shells out to lsof, the portable way to list open handles
// when procfs is unavailable. Output is parsed in field mode: every line
// starting with 'n' carries one file name.
type LsofSnapshotter struct{}

// Snapshot implements Snapshotter.
func (*LsofSnapshotter) Snapshot(pid int) (map[string]struct{}, error) {
	cmd := exec.Command("lsof", "-Fn", "-p", strconv.Itoa(pid))
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	// lsof exits nonzero when some handles cannot be described; partial
	// output is still usable, so only a completely empty result is an error
	runErr := cmd.Run()

	files := make(map[string]struct{})
	for _, line := range strings.Split(stdout.String(), "\n") {
		if !strings.HasPrefix(line, "n/") {
			continue
		}
		path := line[1:]
		if regularFile(path) {
			files[path] = struct{}{}
		}
	}
	if len(files) == 0 && runErr != nil {
		return nil, fmt.Errorf("lsof -p %d: %w", pid, runErr)
	}
	return files, nil
}
