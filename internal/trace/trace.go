// Package trace runs a program as a monitored child process and records
// every file path it asks the kernel to open or execute. The hook runs while
// the child is stopped at a syscall boundary, so it executes synchronously
// inline with the monitored program; its work is a single path append.
//
// A Tracer is single-shot: idle -> recording -> stopped. A stopped tracer
// cannot record again; monitoring another run takes a fresh Tracer.
package trace

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// State is the tracer lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

var (
	// ErrUnsupported is returned where no tracing backend exists.
	ErrUnsupported = errors.New("trace: execution tracing is only supported on linux amd64/arm64")
	// ErrNotIdle rejects reuse of a tracer that already ran.
	ErrNotIdle = errors.New("trace: tracer already started; use a new instance")
	// ErrNotRecording rejects Stop on a tracer that never started.
	ErrNotRecording = errors.New("trace: tracer is not recording")
)

// Config describes one monitored run.
type Config struct {
	// Argv is the full command line, Argv[0] being the executable.
	Argv []string
	// Dir is the child's working directory; empty means inherit.
	Dir string
	// Env is the child's environment; nil means inherit.
	Env []string
	// Stdout and Stderr receive the child's output; nil means the
	// parent's own streams. Files avoid intermediary copy goroutines.
	Stdout, Stderr *os.File
	// OnLaunch fires once the child exists but before its first
	// instruction runs: the place to take a baseline handle snapshot.
	OnLaunch func(pid int)
	// OnExit fires while the child is about to exit and still holds its
	// descriptors: the place for the final handle snapshot.
	OnExit func(pid int)
}

// Result is what a completed run produced.
type Result struct {
	// Files are the deduplicated paths the program touched, sorted.
	Files []string
	// ExitCode is the monitored program's exit status.
	ExitCode int
}

// Tracer monitors a single program run.
type Tracer struct {
	log *zap.Logger

	mu    sync.Mutex
	state State
	done  chan struct{}

	// written only by the trace thread, read after done closes
	files    []string
	exitCode int
	runErr   error
}

// New returns an idle tracer.
func New(log *zap.Logger) *Tracer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracer{log: log}
}

// State reports the current lifecycle state.
func (t *Tracer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start launches the monitored program under the recording hook. It returns
// once the child is spawned and instrumented; the program then runs to
// completion on a dedicated OS thread (ptrace requires every request to come
// from the attaching thread). Cancelling ctx kills the monitored program.
func (t *Tracer) Start(ctx context.Context, cfg Config) error {
	t.mu.Lock()
	if t.state != StateIdle {
		t.mu.Unlock()
		return ErrNotIdle
	}
	t.state = StateRecording
	t.done = make(chan struct{})
	t.mu.Unlock()

	started := make(chan error, 1)
	go func() {
		defer close(t.done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		t.run(ctx, cfg, started)
	}()

	if err := <-started; err != nil {
		<-t.done
		t.mu.Lock()
		t.state = StateStopped
		t.mu.Unlock()
		return err
	}
	return nil
}

// Stop waits for the monitored program to finish, removes the hook and
// returns the recorded result. The caller owns the program's lifetime; Stop
// blocks until it ends (or the Start context kills it).
func (t *Tracer) Stop() (*Result, error) {
	t.mu.Lock()
	if t.state != StateRecording {
		t.mu.Unlock()
		return nil, ErrNotRecording
	}
	done := t.done
	t.mu.Unlock()

	<-done

	t.mu.Lock()
	t.state = StateStopped
	t.mu.Unlock()

	if t.runErr != nil {
		return nil, t.runErr
	}
	return &Result{Files: dedup(t.files), ExitCode: t.exitCode}, nil
}

// record is the execution hook: O(1), allocation beyond the path itself is
// deferred to dedup at Stop time.
func (t *Tracer) record(path string) {
	t.files = append(t.files, path)
}

func dedup(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
