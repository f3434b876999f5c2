//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts the command in its own process group and kills
// the whole group on cancellation, so test processes spawned by the shell
// do not outlive a timeout.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
