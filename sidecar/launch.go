package sidecar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	eventBuffer = 64

	// flushGrace bounds how long output is drained after the process has
	// been reaped. Grandchildren that inherited the pipes would otherwise
	// keep the stream open indefinitely.
	flushGrace = 500 * time.Millisecond
)

// LaunchError reports that the sidecar binary could not be resolved or
// started. It is the only sidecar error that aborts host startup.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching sidecar %q: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Child is a running sidecar process.
type Child struct {
	cmd  *exec.Cmd
	pid  int
	exit atomic.Pointer[ExitPayload] // set before EventTerminated is sent
}

func (c *Child) Pid() int { return c.pid }

// Exit returns how the process ended. It is only meaningful once
// EventTerminated has been received from the stream.
func (c *Child) Exit() *ExitPayload { return c.exit.Load() }

// Exited reports whether the process has been reaped.
func (c *Child) Exited() bool { return c.exit.Load() != nil }

func (c *Child) Kill() error {
	return c.cmd.Process.Kill()
}

// ResolveBinary finds the sidecar executable. An explicit path wins;
// otherwise the binary shipped next to the host executable is used, and
// finally PATH is searched so development builds work.
func ResolveBinary(name, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", &LaunchError{Binary: explicit, Err: err}
		}
		return explicit, nil
	}

	file := name
	if runtime.GOOS == "windows" && filepath.Ext(file) == "" {
		file += ".exe"
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), file)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	p, err := exec.LookPath(name)
	if err != nil {
		return "", &LaunchError{Binary: name, Err: err}
	}
	return p, nil
}

// Launch starts binary with env added to the host's environment. The
// returned channel yields the child's output lines in order and ends with a
// single EventTerminated, after which it is closed. The caller must drain
// it.
func Launch(binary string, args []string, env Environment) (*Child, <-chan Event, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, nil, &LaunchError{Binary: binary, Err: fmt.Errorf("creating stdout pipe: %w", err)}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, nil, &LaunchError{Binary: binary, Err: fmt.Errorf("creating stderr pipe: %w", err)}
	}

	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(), env.Strings()...)
	cmd.Stdout = outW
	cmd.Stderr = errW
	setProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		return nil, nil, &LaunchError{Binary: binary, Err: err}
	}
	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()

	child := &Child{cmd: cmd, pid: cmd.Process.Pid}
	events := make(chan Event, eventBuffer)

	var readers sync.WaitGroup
	readers.Add(2)
	go readLines(outR, EventStdout, events, &readers)
	go readLines(errR, EventStderr, events, &readers)

	go func() {
		waitErr := cmd.Wait()

		flushed := make(chan struct{})
		go func() {
			readers.Wait()
			close(flushed)
		}()
		select {
		case <-flushed:
		case <-time.After(flushGrace):
			outR.Close()
			errR.Close()
			<-flushed
		}
		outR.Close()
		errR.Close()

		exit := exitPayload(cmd.ProcessState, waitErr)
		child.exit.Store(exit)
		events <- Event{Kind: EventTerminated, Exit: exit}
		close(events)
	}()

	return child, events, nil
}

func readLines(f *os.File, kind EventKind, events chan<- Event, wg *sync.WaitGroup) {
	defer wg.Done()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			events <- Event{Kind: kind, Line: strings.ToValidUTF8(string(line), "\uFFFD")}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				events <- Event{Kind: EventError, Err: fmt.Errorf("reading sidecar %s: %w", kind, err)}
			}
			return
		}
	}
}

func exitPayload(ps *os.ProcessState, waitErr error) *ExitPayload {
	if ps == nil {
		p := &ExitPayload{Code: -1}
		if waitErr != nil {
			p.Signal = waitErr.Error()
		}
		return p
	}
	p := &ExitPayload{Code: ps.ExitCode()}
	if !ps.Exited() {
		p.Signal = strings.TrimPrefix(ps.String(), "signal: ")
	}
	return p
}
