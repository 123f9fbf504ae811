//go:build windows

package sidecar

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// DefaultKiller on Windows kills the whole process tree, since the sidecar
// launches helper processes that would otherwise be orphaned.
func DefaultKiller() Killer {
	return TreeKiller{}
}

func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

func setProcAttr(cmd *exec.Cmd) {
	hideWindow(cmd)
}
