// Package snapshot captures the set of regular files a process holds open.
// Two snapshots bracket a monitored run; their difference catches
// dependencies loaded as native resources that execution tracing cannot see.
// A failed query degrades to an empty set, never to a failed run.
package snapshot

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
)

// Snapshotter lists the regular files currently open in a process.
// Directories, sockets, pipes and anonymous handles are excluded.
type Snapshotter interface {
	Snapshot(pid int) (map[string]struct{}, error)
}

// Chain tries each snapshotter in order and returns the first success.
type Chain []Snapshotter

// Snapshot implements Snapshotter.
func (c Chain) Snapshot(pid int) (map[string]struct{}, error) {
	var lastErr error
	for _, s := range c {
		files, err := s.Snapshot(pid)
		if err == nil {
			return files, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no snapshotters configured")
	}
	return nil, lastErr
}

// Default is the standard snapshotter stack: procfs first, lsof as fallback.
func Default() Snapshotter {
	return Chain{&ProcSnapshotter{}, &LsofSnapshotter{}}
}

// Capture runs a snapshot and absorbs failure into an empty set, logging the
// degradation. Discovery then proceeds on tracer results alone.
func Capture(s Snapshotter, pid int, log *zap.Logger) map[string]struct{} {
	files, err := s.Snapshot(pid)
	if err != nil {
		if log != nil {
			log.Warn("open-handle snapshot failed, continuing without it",
				zap.Int("pid", pid), zap.Error(err))
		}
		return map[string]struct{}{}
	}
	return files
}

// Diff returns the paths in final that are absent from baseline, sorted.
func Diff(final, baseline map[string]struct{}) []string {
	var out []string
	for path := range final {
		if _, ok := baseline[path]; !ok {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// regularFile reports whether path names an existing regular file.
func regularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
