//go:build linux && (amd64 || arm64)

package trace

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// run spawns the child with PTRACE_TRACEME set and pumps its syscall stops
// until exit. Must be called from a locked OS thread.
func (t *Tracer) run(ctx context.Context, cfg Config, started chan<- error) {
	if len(cfg.Argv) == 0 {
		started <- fmt.Errorf("trace: empty command")
		return
	}
	cmd := exec.Command(cfg.Argv[0], cfg.Argv[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = cfg.Env
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	if err := cmd.Start(); err != nil {
		started <- fmt.Errorf("trace: start %s: %w", cfg.Argv[0], err)
		return
	}
	pid := cmd.Process.Pid

	// the child stops with SIGTRAP once its exec completes
	var ws unix.WaitStatus
	if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
		_ = cmd.Process.Kill()
		started <- fmt.Errorf("trace: wait for exec stop: %w", err)
		return
	}
	opts := unix.PTRACE_O_TRACESYSGOOD | unix.PTRACE_O_TRACEEXIT | unix.PTRACE_O_EXITKILL
	if err := unix.PtraceSetOptions(pid, opts); err != nil {
		_ = cmd.Process.Kill()
		_, _ = unix.Wait4(pid, &ws, 0, nil)
		started <- fmt.Errorf("trace: set ptrace options: %w", err)
		return
	}
	// tracee exists but has not run a single instruction of its own yet
	if cfg.OnLaunch != nil {
		cfg.OnLaunch(pid)
	}
	started <- nil

	// kill the child if the context is cancelled while it runs
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
		case <-watchDone:
		}
	}()

	t.pump(pid, cfg)
	_ = cmd.Process.Release()
}

// pump resumes the child from stop to stop. The hook fires on every syscall
// entry; the PTRACE_EVENT_EXIT stop is the last moment the child's open
// descriptors are observable.
func (t *Tracer) pump(pid int, cfg Config) {
	var ws unix.WaitStatus
	insyscall := false
	sig := 0
	for {
		if err := unix.PtraceSyscall(pid, sig); err != nil {
			t.failRun(pid, fmt.Errorf("trace: resume pid %d: %w", pid, err))
			return
		}
		sig = 0
		if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
			t.failRun(pid, fmt.Errorf("trace: wait pid %d: %w", pid, err))
			return
		}
		switch {
		case ws.Exited():
			t.exitCode = ws.ExitStatus()
			return
		case ws.Signaled():
			t.exitCode = 128 + int(ws.Signal())
			return
		case ws.Stopped():
			switch {
			case ws.StopSignal() == unix.SIGTRAP|0x80:
				// syscall stop; entry and exit alternate
				if !insyscall {
					t.onSyscallEntry(pid)
				}
				insyscall = !insyscall
			case ws.StopSignal() == unix.SIGTRAP && ws.TrapCause() == unix.PTRACE_EVENT_EXIT:
				if cfg.OnExit != nil {
					cfg.OnExit(pid)
				}
			case ws.StopSignal() == unix.SIGTRAP:
				// other trace traps carry no file information
			default:
				// forward real signals to the child
				sig = int(ws.StopSignal())
			}
		}
	}
}

// failRun records a pump failure and makes sure the child does not keep
// running untraced.
func (t *Tracer) failRun(pid int, err error) {
	t.runErr = err
	_ = unix.Kill(pid, unix.SIGKILL)
	var ws unix.WaitStatus
	_, _ = unix.Wait4(pid, &ws, 0, nil)
	t.log.Error("trace pump failed", zap.Int("pid", pid), zap.Error(err))
}

// onSyscallEntry decodes path-carrying syscalls and feeds the hook. Failed
// opens are recorded too; list building filters to files that exist.
func (t *Tracer) onSyscallEntry(pid int) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(pid, &regs); err != nil {
		return
	}

	dirfd := int32(unix.AT_FDCWD)
	var addr uintptr
	switch scNum(&regs) {
	case sysOpen, sysExecve:
		addr = uintptr(scArg(&regs, 0))
	case sysOpenat, sysOpenat2, sysExecveat:
		dirfd = int32(scArg(&regs, 0))
		addr = uintptr(scArg(&regs, 1))
	default:
		return
	}

	path, err := readString(pid, addr)
	if err != nil || path == "" {
		return
	}
	if !filepath.IsAbs(path) {
		base, err := resolveBase(pid, dirfd)
		if err != nil {
			return
		}
		path = filepath.Join(base, path)
	}
	t.record(path)
}

// resolveBase finds the directory a relative path is anchored to, via the
// tracee's procfs entries.
func resolveBase(pid int, dirfd int32) (string, error) {
	if dirfd == unix.AT_FDCWD {
		return os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
	}
	return os.Readlink(fmt.Sprintf("/proc/%d/fd/%d", pid, dirfd))
}

// readString copies a NUL-terminated string out of the tracee word by word.
func readString(pid int, addr uintptr) (string, error) {
	if addr == 0 {
		return "", nil
	}
	const maxPath = 4096
	var out []byte
	var word [8]byte
	for len(out) < maxPath {
		n, err := unix.PtracePeekData(pid, addr+uintptr(len(out)), word[:])
		if err != nil {
			if len(out) > 0 {
				break
			}
			return "", err
		}
		for i := 0; i < n; i++ {
			if word[i] == 0 {
				return string(out), nil
			}
			out = append(out, word[i])
		}
		if n < len(word) {
			break
		}
	}
	return string(out), nil
}
