//go:build unix

package steps

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// isolate starts cmd as the leader of a new process group and makes
// cancellation kill the whole group rather than only the shell.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		if err == unix.ESRCH {
			return nil
		}
		return err
	}
}
