package sidecar

import (
	"os/exec"
	"strconv"
)

// DirectKiller force-kills only the child itself. Descendants are the
// child's own business.
type DirectKiller struct{}

func (DirectKiller) Kill(h Handle) error {
	return h.Kill()
}

// TreeKiller force-kills the child and everything it spawned using the
// system tree-kill command. Command defaults to "taskkill".
type TreeKiller struct {
	Command string
}

func (k TreeKiller) Kill(h Handle) error {
	name := k.Command
	if name == "" {
		name = "taskkill"
	}
	cmd := exec.Command(name, treeKillArgs(h.Pid())...)
	// Leaving Stdout/Stderr nil sends the command's output to the null device.
	hideWindow(cmd)
	return cmd.Run()
}

func treeKillArgs(pid int) []string {
	return []string{"/PID", strconv.Itoa(pid), "/T", "/F"}
}
