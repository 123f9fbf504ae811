//go:build unix

package sidecar

import (
	"os/exec"
	"syscall"
)

// setProcAttr puts the sidecar in its own process group so terminal signals
// aimed at the host do not reach it; the host decides when it stops.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
