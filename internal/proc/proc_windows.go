//go:build windows

package proc

import "os/exec"

// configure relies on the default Process.Kill; Windows has no process
// groups to signal
func configure(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Kill()
	}
}
