package sidecar

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// collect reads events until the stream closes.
func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for sidecar events")
		}
	}
}

func TestLaunch_StreamsOutputThenTerminated(t *testing.T) {
	t.Setenv(helperEnv, "echo")

	child, events, err := Launch(helperBinary(t), nil, nil)
	require.NoError(t, err)
	require.Greater(t, child.Pid(), 0)

	got := collect(t, events)
	require.NotEmpty(t, got)

	last := got[len(got)-1]
	require.Equal(t, EventTerminated, last.Kind)
	require.NotNil(t, last.Exit)
	require.Equal(t, 3, last.Exit.Code)
	require.Equal(t, last.Exit, child.Exit())

	var stdout, stderr []string
	for _, ev := range got[:len(got)-1] {
		switch ev.Kind {
		case EventStdout:
			stdout = append(stdout, ev.Line)
		case EventStderr:
			stderr = append(stderr, ev.Line)
		case EventTerminated:
			t.Fatal("terminated must be the last event")
		}
	}
	require.Equal(t, []string{"a\n"}, stdout)
	require.Equal(t, []string{"b\r\n"}, stderr)
}

func TestLaunch_PassesEnvironment(t *testing.T) {
	t.Setenv(helperEnv, "env")

	env := BuildEnvironment(EnvOptions{
		ParentPID: os.Getpid(),
		WebHost:   "127.0.0.1",
		WebPort:   8765,
		LookupEnv: func(string) (string, bool) { return "", false },
	})
	_, events, err := Launch(helperBinary(t), nil, env)
	require.NoError(t, err)

	var lines []string
	for _, ev := range collect(t, events) {
		if ev.Kind == EventStdout {
			lines = append(lines, strings.TrimSpace(ev.Line))
		}
	}
	require.Contains(t, lines, "TIPTUNE_PARENT_PID="+strconv.Itoa(os.Getpid()))
	require.Contains(t, lines, "TIPTUNE_WEB_HOST=127.0.0.1")
	require.Contains(t, lines, "TIPTUNE_WEB_PORT=8765")
	require.Contains(t, lines, "TIPTUNE_LOG_LEVEL=INFO")
}

func TestLaunch_LossyDecode(t *testing.T) {
	t.Setenv(helperEnv, "invalid-utf8")

	_, events, err := Launch(helperBinary(t), nil, nil)
	require.NoError(t, err)

	var line string
	for _, ev := range collect(t, events) {
		if ev.Kind == EventStdout {
			line = ev.Line
		}
	}
	require.Equal(t, "x\uFFFDy\n", line)
}

func TestLaunch_KillEndsStream(t *testing.T) {
	t.Setenv(helperEnv, "sleep")

	child, events, err := Launch(helperBinary(t), nil, nil)
	require.NoError(t, err)

	first := <-events
	require.Equal(t, EventStdout, first.Kind)
	require.Equal(t, "ready\n", first.Line)

	require.NoError(t, child.Kill())

	got := collect(t, events)
	require.NotEmpty(t, got)
	require.Equal(t, EventTerminated, got[len(got)-1].Kind)
	require.NotEqual(t, 0, got[len(got)-1].Exit.Code)
}

func TestLaunch_GrandchildDoesNotStallStream(t *testing.T) {
	t.Setenv(helperEnv, "orphan")

	start := time.Now()
	_, events, err := Launch(helperBinary(t), nil, nil)
	require.NoError(t, err)
	got := collect(t, events)
	elapsed := time.Since(start)

	for _, ev := range got {
		if pid, ok := strings.CutPrefix(strings.TrimSpace(ev.Line), "grandchild="); ok && ev.Kind == EventStdout {
			n, err := strconv.Atoi(pid)
			require.NoError(t, err)
			t.Cleanup(func() {
				if p, err := os.FindProcess(n); err == nil {
					p.Kill()
				}
			})
		}
	}

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	require.Equal(t, EventTerminated, last.Kind)
	require.Equal(t, 0, last.Exit.Code)
	// The grandchild sleeps for a minute; only the flush grace may delay
	// the end of the stream.
	require.Less(t, elapsed, 5*time.Second)
}

func TestLaunch_InvalidBinary(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "does-not-exist")

	child, events, err := Launch(bin, nil, nil)
	require.Nil(t, child)
	require.Nil(t, events)

	var le *LaunchError
	require.True(t, errors.As(err, &le))
	require.Equal(t, bin, le.Binary)
}

func TestResolveBinary(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "TipTune")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	got, err := ResolveBinary("TipTune", bin)
	require.NoError(t, err)
	require.Equal(t, bin, got)

	_, err = ResolveBinary("TipTune", filepath.Join(dir, "missing"))
	var le *LaunchError
	require.ErrorAs(t, err, &le)

	_, err = ResolveBinary("tiptune-definitely-not-installed", "")
	require.ErrorAs(t, err, &le)
}
