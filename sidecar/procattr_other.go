//go:build !unix && !windows

package sidecar

import "os/exec"

func setProcAttr(cmd *exec.Cmd) {}
