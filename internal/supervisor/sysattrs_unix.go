//go:build !windows

package supervisor

import "syscall"

// detachedSysProcAttr places the child in its own process group so it
// survives the control plane and does not receive its terminal signals.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
