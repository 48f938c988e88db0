//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// detachProcess puts the server into its own process group so it survives
// the CLI exiting
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
}
