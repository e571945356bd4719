//go:build linux && arm64

package trace

import "golang.org/x/sys/unix"

const (
	// arm64 never had a plain open syscall
	sysOpen     = ^uint64(0)
	sysOpenat   = unix.SYS_OPENAT
	sysOpenat2  = unix.SYS_OPENAT2
	sysExecve   = unix.SYS_EXECVE
	sysExecveat = unix.SYS_EXECVEAT
)

func scNum(r *unix.PtraceRegs) uint64 { return r.Regs[8] }

func scArg(r *unix.PtraceRegs, i int) uint64 { return r.Regs[i] }
