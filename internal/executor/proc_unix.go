//go:build unix

package executor

import (
	"os/exec"
	"syscall"
)

// setProcessGroup gives the child its own process group so a timeout kill
// reaches every descendant, not just the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	// Negative PID addresses the whole group.
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

// detach puts a started application in its own session so it outlives us.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
