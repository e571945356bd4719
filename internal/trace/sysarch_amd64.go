//go:build linux && amd64

package trace

import "golang.org/x/sys/unix"

const (
	sysOpen     = unix.SYS_OPEN
	sysOpenat   = unix.SYS_OPENAT
	sysOpenat2  = unix.SYS_OPENAT2
	sysExecve   = unix.SYS_EXECVE
	sysExecveat = unix.SYS_EXECVEAT
)

func scNum(r *unix.PtraceRegs) uint64 { return r.Orig_rax }

func scArg(r *unix.PtraceRegs, i int) uint64 {
	switch i {
	case 0:
		return r.Rdi
	case 1:
		return r.Rsi
	case 2:
		return r.Rdx
	case 3:
		return r.R10
	case 4:
		return r.R8
	default:
		return r.R9
	}
}
