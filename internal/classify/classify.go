// Package classify decides, for each file touched during a monitored run,
// whether it belongs in the bundle and where it lands inside the
// reconstructed dependency tree.
package classify

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mikedh/packz/internal/index"
)

// DefaultCatchAll is the destination bucket for files no unit owns.
const DefaultCatchAll = "lib"

// Mapping is a retained classification: the owning unit (empty for unowned
// files) and the relative destination inside the bundle.
type Mapping struct {
	Unit string
	Dest string
}

// Config carries the exclusion rules, all optional.
type Config struct {
	// UnitBlacklist names units to exclude outright.
	UnitBlacklist []string
	// FileBlacklist holds glob patterns matched against file base names.
	FileBlacklist []string
	// CatchAll overrides the directory name for unowned files.
	CatchAll string
}

// Classifier maps touched files to bundle destinations. Classification is a
// pure function of the path; the size ledger is charged separately, per
// retained copy-plan entry, and exists for reporting only.
type Classifier struct {
	idx           *index.Index
	builtin       map[string]struct{}
	unitBlacklist map[string]struct{}
	fileBlacklist []string
	catchAll      string
	ledger        map[string]int64
}

// New builds a Classifier. Blacklist glob patterns are validated here so a
// bad pattern fails loudly at construction instead of silently matching
// nothing per file.
func New(ix *index.Index, builtin map[string]struct{}, cfg Config) (*Classifier, error) {
	for _, pat := range cfg.FileBlacklist {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid file blacklist pattern %q", pat)
		}
	}
	units := make(map[string]struct{}, len(cfg.UnitBlacklist))
	for _, name := range cfg.UnitBlacklist {
		units[name] = struct{}{}
	}
	catchAll := cfg.CatchAll
	if catchAll == "" {
		catchAll = DefaultCatchAll
	}
	if builtin == nil {
		builtin = map[string]struct{}{}
	}
	return &Classifier{
		idx:           ix,
		builtin:       builtin,
		unitBlacklist: units,
		fileBlacklist: cfg.FileBlacklist,
		catchAll:      catchAll,
		ledger:        make(map[string]int64),
	}, nil
}

// Classify maps an absolute path to its bundle destination. The second
// return is false when the file is excluded: blacklisted by name, owned by a
// built-in unit, or owned by a blacklisted unit. Checks short-circuit in
// that order.
func (c *Classifier) Classify(path string) (Mapping, bool) {
	base := filepath.Base(path)
	for _, pat := range c.fileBlacklist {
		// patterns validated in New; error is unreachable here
		if ok, _ := doublestar.Match(pat, base); ok {
			return Mapping{}, false
		}
	}

	owner, owned := c.idx.Owner(path)
	if !owned {
		// unowned files are bucketed, never dropped
		return Mapping{Dest: filepath.Join(c.catchAll, base)}, true
	}
	if _, ok := c.builtin[owner.Name]; ok {
		return Mapping{}, false
	}
	if _, ok := c.unitBlacklist[owner.Name]; ok {
		return Mapping{}, false
	}

	// strip the parent of the unit root so the unit's own top-level
	// directory name becomes the first segment of the destination
	head := filepath.Dir(owner.Root)
	dest := strings.TrimPrefix(path, head)
	dest = strings.TrimPrefix(dest, string(filepath.Separator))

	return Mapping{Unit: owner.Name, Dest: dest}, true
}

// Charge adds bytes to a unit's ledger total. Callers charge once per entry
// that survives plan filtering, so the ledger matches what the bundle holds
// rather than what classification saw.
func (c *Classifier) Charge(unit string, size int64) {
	if unit == "" {
		return
	}
	c.ledger[unit] += size
}

// Ledger returns a copy of the per-unit byte totals accumulated so far.
func (c *Classifier) Ledger() map[string]int64 {
	out := make(map[string]int64, len(c.ledger))
	for name, size := range c.ledger {
		out[name] = size
	}
	return out
}

// SizeOf returns a file's size, or the recursive size of a directory. Sizing
// failures count as zero: sizes inform reporting, never control flow.
func SizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	if !info.IsDir() {
		return info.Size()
	}
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total
}
