//go:build !unix && !windows

package procexec

import "os/exec"

func configureProcess(*exec.Cmd) {}

func killProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
