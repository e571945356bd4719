// Package runner wires the pipeline together: index the installed units,
// trace one monitored run, classify everything it touched and materialize
// the bundle. One Runner owns one monitored run; size totals are scoped to
// the instance, so concurrent Runners never share a ledger.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikedh/packz/internal/bundle"
	"github.com/mikedh/packz/internal/classify"
	"github.com/mikedh/packz/internal/config"
	"github.com/mikedh/packz/internal/index"
	"github.com/mikedh/packz/internal/pyenv"
	"github.com/mikedh/packz/internal/snapshot"
	"github.com/mikedh/packz/internal/trace"
)

// ReferenceUnit anchors the built-in set derivation: a unit that always
// ships with the base distribution. SiteDir is the conventional third-party
// subdirectory beneath the base root. Both are platform assumptions; if the
// install layout differs, these must be re-derived, not papered over.
const (
	ReferenceUnit = "collections"
	SiteDir       = "site-packages"
)

// Options configures a Runner. Everything is optional except that a default
// (python) registry needs a reachable interpreter.
type Options struct {
	Config config.Config
	// Script is the program that will be monitored. Its parent directory
	// joins the front of the interpreter search path, the way the
	// interpreter itself prepends it at runtime, so the program's own
	// packages are indexed as units rather than flattened as unowned files.
	Script string
	// Registry overrides installed-unit enumeration; defaults to the
	// interpreter's search-path walk.
	Registry index.Registry
	// Snapshotter overrides open-handle capture; defaults to procfs with
	// an lsof fallback.
	Snapshotter snapshot.Snapshotter
	Logger      *zap.Logger
	// Progress receives human-readable copy progress; defaults to stdout.
	Progress io.Writer
	// ChildStdout and ChildStderr receive the monitored program's output;
	// defaults to the parent's streams.
	ChildStdout, ChildStderr *os.File
}

// Runner drives one discover-classify-materialize cycle.
type Runner struct {
	id       string
	log      *zap.Logger
	cfg      config.Config
	interp   pyenv.Interpreter
	idx      *index.Index
	builtin  map[string]struct{}
	class    *classify.Classifier
	tracer   *trace.Tracer
	snap     snapshot.Snapshotter
	progress io.Writer

	childStdout, childStderr *os.File

	// written on the trace thread via callbacks; read only after Stop
	baseline map[string]struct{}
	final    map[string]struct{}

	executed []string
	exitCode int
	list     *bundle.List
}

// New builds the unit index and the classifier. It fails when the built-in
// reference unit cannot be found: without the built-in/third-party
// distinction, bundling would ship the whole standard distribution.
func New(ctx context.Context, opts Options) (*Runner, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := &Runner{
		id:          uuid.NewString(),
		log:         log,
		cfg:         opts.Config,
		snap:        opts.Snapshotter,
		progress:    opts.Progress,
		childStdout: opts.ChildStdout,
		childStderr: opts.ChildStderr,
	}
	if r.snap == nil {
		r.snap = snapshot.Default()
	}
	if r.progress == nil {
		r.progress = os.Stdout
	}

	reg := opts.Registry
	if reg == nil {
		interp, err := pyenv.Locate(opts.Config.Python)
		if err != nil {
			return nil, err
		}
		r.interp = interp
		paths, err := interp.SearchPaths(ctx)
		if err != nil {
			return nil, err
		}
		paths, err = prependScriptDir(opts.Script, paths)
		if err != nil {
			return nil, err
		}
		reg = &index.PythonRegistry{SearchPaths: paths}
		log.Info("interpreter located",
			zap.String("run_id", r.id),
			zap.String("python", interp.Path),
			zap.Int("search_paths", len(paths)))
	}

	idx, err := index.Build(reg, log)
	if err != nil {
		return nil, err
	}
	r.idx = idx

	builtin, err := index.BuiltinSet(idx, ReferenceUnit, SiteDir)
	if err != nil {
		return nil, fmt.Errorf("derive built-in set: %w", err)
	}
	r.builtin = builtin

	r.class, err = classify.New(idx, builtin, classify.Config{
		UnitBlacklist: opts.Config.UnitBlacklist,
		FileBlacklist: opts.Config.FileBlacklist,
		CatchAll:      opts.Config.CatchAllDir,
	})
	if err != nil {
		return nil, err
	}
	r.tracer = trace.New(log)
	return r, nil
}

// prependScriptDir puts the monitored script's directory at the front of the
// search path, where it shadows installed units exactly as the interpreter's
// own path ordering does.
func prependScriptDir(script string, paths []string) ([]string, error) {
	if script == "" {
		return paths, nil
	}
	dir, err := index.Expand(filepath.Dir(script))
	if err != nil {
		return nil, fmt.Errorf("resolve script directory for %s: %w", script, err)
	}
	return append([]string{dir}, paths...), nil
}

// Command builds the argv for running a script under the indexed
// interpreter. It fails when the Runner was constructed without interpreter
// discovery (an explicit Registry); callers in that mode own their own argv.
func (r *Runner) Command(script string, args ...string) ([]string, error) {
	if r.interp.Path == "" {
		return nil, fmt.Errorf("no interpreter located; pass a full command line instead")
	}
	return append([]string{r.interp.Path, script}, args...), nil
}

// Start begins the monitored run: baseline handle snapshot, then the traced
// program. The caller decides when the program is done and calls Stop.
func (r *Runner) Start(ctx context.Context, argv []string) error {
	return r.tracer.Start(ctx, trace.Config{
		Argv:   argv,
		Stdout: r.childStdout,
		Stderr: r.childStderr,
		OnLaunch: func(pid int) {
			r.baseline = snapshot.Capture(r.snap, pid, r.log)
			r.log.Debug("baseline snapshot taken",
				zap.String("run_id", r.id), zap.Int("pid", pid),
				zap.Int("open_files", len(r.baseline)))
		},
		OnExit: func(pid int) {
			r.final = snapshot.Capture(r.snap, pid, r.log)
			r.log.Debug("final snapshot taken",
				zap.String("run_id", r.id), zap.Int("pid", pid),
				zap.Int("open_files", len(r.final)))
		},
	})
}

// Stop waits for the monitored program and collects the trace.
func (r *Runner) Stop() error {
	res, err := r.tracer.Stop()
	if err != nil {
		return err
	}
	r.executed = res.Files
	r.exitCode = res.ExitCode
	r.log.Info("monitored run finished",
		zap.String("run_id", r.id),
		zap.Int("exit_code", res.ExitCode),
		zap.Int("traced_files", len(res.Files)))
	return nil
}

// ExitCode is the monitored program's exit status, valid after Stop.
func (r *Runner) ExitCode() int { return r.exitCode }

// BuildList unions both discovery channels and classifies the result.
func (r *Runner) BuildList() (*bundle.List, error) {
	if r.list != nil {
		return r.list, nil
	}
	opened := snapshot.Diff(r.final, r.baseline)
	list, err := bundle.BuildList(r.executed, opened, r.class, r.log)
	if err != nil {
		return nil, err
	}
	r.list = list
	return list, nil
}

// Materialize copies the bundle into outputRoot and writes the manifest.
func (r *Runner) Materialize(outputRoot string) error {
	list, err := r.BuildList()
	if err != nil {
		return err
	}
	if err := bundle.Materialize(list, outputRoot, r.progress); err != nil {
		return err
	}
	ledger := r.class.Ledger()
	for unit, size := range ledger {
		r.log.Debug("unit size",
			zap.String("run_id", r.id),
			zap.String("unit", unit), zap.Int64("bytes", size))
	}
	return bundle.WriteManifest(bundle.Manifest{
		RunID:       r.id,
		Interpreter: r.interp.Path,
		GeneratedAt: time.Now().UTC(),
		TotalSize:   list.TotalSize,
		UnitTotals:  ledger,
		Entries:     list.Entries,
	}, outputRoot)
}

// Index exposes the unit index for inspection commands.
func (r *Runner) Index() *index.Index { return r.idx }

// Builtin reports whether a unit is part of the base distribution.
func (r *Runner) Builtin(name string) bool {
	_, ok := r.builtin[name]
	return ok
}
