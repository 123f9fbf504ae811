//go:build !windows

package sidecar

import (
	"os/exec"
)

// DefaultKiller signals the child directly.
func DefaultKiller() Killer {
	return DirectKiller{}
}

func hideWindow(cmd *exec.Cmd) {}
