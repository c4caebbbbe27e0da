//go:build unix

package proc

import (
	"os/exec"
	"syscall"
)

// configure puts the child in its own process group so cancellation also
// stops anything it spawned
func configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
