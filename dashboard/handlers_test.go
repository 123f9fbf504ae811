package dashboard

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tiptune-shell/sidecar"
)

type fakeController struct {
	mu      sync.Mutex
	running bool
	reasons []sidecar.Reason
	logPath string
	done    chan struct{}
}

func (c *fakeController) Shutdown(r sidecar.Reason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, r)
	c.running = false
}

func (c *fakeController) Status() sidecar.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sidecar.Status{RunRecord: sidecar.RunRecord{PID: 77, LogPath: c.logPath}, Running: c.running}
}

func (c *fakeController) GetLogs() (string, error) {
	if c.logPath == "" {
		return "", errors.New("sidecar log path not set")
	}
	data, err := os.ReadFile(c.logPath)
	return string(data), err
}

func (c *fakeController) LogPath() string       { return c.logPath }
func (c *fakeController) Done() <-chan struct{} { return c.done }

func TestHandleStatus(t *testing.T) {
	ctl := &fakeController{running: true, done: make(chan struct{})}
	srv := httptest.NewServer(NewServer("", ctl, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sidecar")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st sidecar.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.True(t, st.Running)
	require.Equal(t, 77, st.PID)
}

func TestHandleGetLogs(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "tiptune-sidecar.log")
	require.NoError(t, os.WriteFile(logPath, []byte("started\n"), 0o644))

	ctl := &fakeController{logPath: logPath, done: make(chan struct{})}
	srv := httptest.NewServer(NewServer("", ctl, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sidecar/logs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "started\n", body)
}

func TestHandleGetLogs_NoPath(t *testing.T) {
	ctl := &fakeController{done: make(chan struct{})}
	srv := httptest.NewServer(NewServer("", ctl, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sidecar/logs")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleStop(t *testing.T) {
	ctl := &fakeController{running: true, done: make(chan struct{})}
	srv := httptest.NewServer(NewServer("", ctl, nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sidecar/stop", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st sidecar.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.False(t, st.Running)
	require.Equal(t, []sidecar.Reason{sidecar.ReasonOperator}, ctl.reasons)

	resp2, err := http.Get(srv.URL + "/api/sidecar/stop")
	require.NoError(t, err)
	resp2.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestHandleStreamLogs(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "tiptune-sidecar.log")
	require.NoError(t, os.WriteFile(logPath, []byte("first\n"), 0o644))

	ctl := &fakeController{logPath: logPath, done: make(chan struct{})}
	srv := httptest.NewServer(NewServer("", ctl, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sidecar/logs/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	expect := func(want string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case l, ok := <-lines:
				require.True(t, ok, "stream ended before %q", want)
				if l == want {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q", want)
			}
		}
	}

	expect("data: first")

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	expect("data: second")

	close(ctl.done)
	expect("event: exit")
}

func TestSendSSEData(t *testing.T) {
	rec := httptest.NewRecorder()
	sendSSEData(rec, rec, "a\nb\n")
	require.Equal(t, "data: a\ndata: b\n\n", rec.Body.String())
	require.True(t, strings.HasSuffix(rec.Body.String(), "\n\n"))
}
