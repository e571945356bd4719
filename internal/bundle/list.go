// Package bundle aggregates classified files into a copy list and
// materializes them as a self-contained dependency tree.
package bundle

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/mikedh/packz/internal/classify"
	"github.com/mikedh/packz/internal/index"
)

// Origin tags how a touched file was discovered.
type Origin string

const (
	// OriginExecuted files were seen by the execution tracer.
	OriginExecuted Origin = "executed"
	// OriginOpened files appeared only in the open-handle diff.
	OriginOpened Origin = "opened"
)

// Entry is one unit of copy work: an absolute source and a relative
// destination inside the bundle. A directory source means the whole subtree.
type Entry struct {
	Source  string   `json:"source"`
	Dest    string   `json:"dest"`
	Unit    string   `json:"unit,omitempty"`
	Size    int64    `json:"size"`
	Origins []Origin `json:"origins"`
}

// List is the finished copy plan, ordered by destination.
type List struct {
	Entries   []Entry
	TotalSize int64
}

// BuildList merges both discovery channels, resolves and filters the touched
// paths, classifies each survivor and returns the copy plan.
//
// Directories are kept only when a unit owns them (a touched unit root is
// copied as a whole subtree); interpreters open plenty of unrelated
// directories while scanning, and bundling those would drag in entire
// installation trees. Entries nested inside a kept directory are subsumed by
// it. A destination claimed by two distinct surviving sources is an error:
// the bundle would silently overwrite itself.
func BuildList(executed, opened []string, c *classify.Classifier, log *zap.Logger) (*List, error) {
	if log == nil {
		log = zap.NewNop()
	}

	// collapse duplicates by resolved path identity, keeping origin tags
	touched := make(map[string]map[Origin]struct{})
	collect := func(paths []string, origin Origin) {
		for _, p := range paths {
			resolved, err := index.Expand(p)
			if err != nil {
				// dangling link or vanished file: not classifiable
				log.Debug("dropping unresolvable touched file",
					zap.String("path", p), zap.Error(err))
				continue
			}
			if touched[resolved] == nil {
				touched[resolved] = make(map[Origin]struct{})
			}
			touched[resolved][origin] = struct{}{}
		}
	}
	collect(executed, OriginExecuted)
	collect(opened, OriginOpened)

	paths := make([]string, 0, len(touched))
	for p := range touched {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	// first pass: classify survivors, remembering which are directories
	type candidate struct {
		Entry
		isDir bool
	}
	var candidates []candidate
	var keptDirs []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !(info.Mode().IsRegular() || info.IsDir()) {
			continue
		}
		m, ok := c.Classify(p)
		if !ok {
			continue
		}
		if info.IsDir() && m.Unit == "" {
			continue
		}
		entry := Entry{Source: p, Dest: m.Dest, Unit: m.Unit}
		for origin := range touched[p] {
			entry.Origins = append(entry.Origins, origin)
		}
		sort.Slice(entry.Origins, func(i, j int) bool { return entry.Origins[i] < entry.Origins[j] })
		candidates = append(candidates, candidate{Entry: entry, isDir: info.IsDir()})
		if info.IsDir() {
			keptDirs = append(keptDirs, p)
		}
	}

	// second pass: drop anything a kept directory already covers
	covered := func(p string) bool {
		for _, d := range keptDirs {
			if p != d && index.UnderRoot(p, d) {
				return true
			}
		}
		return false
	}

	list := &List{}
	claimed := make(map[string]string) // dest -> source
	for _, cand := range candidates {
		if covered(cand.Source) {
			continue
		}
		if prev, dup := claimed[cand.Dest]; dup {
			return nil, fmt.Errorf("destination collision: %q claimed by both %q and %q",
				cand.Dest, prev, cand.Source)
		}
		claimed[cand.Dest] = cand.Source

		cand.Size = classify.SizeOf(cand.Source)
		c.Charge(cand.Unit, cand.Size)
		list.Entries = append(list.Entries, cand.Entry)
		list.TotalSize += cand.Size
	}

	sort.Slice(list.Entries, func(i, j int) bool { return list.Entries[i].Dest < list.Entries[j].Dest })
	log.Info("copy list built",
		zap.Int("entries", len(list.Entries)), zap.Int64("bytes", list.TotalSize))
	return list, nil
}
