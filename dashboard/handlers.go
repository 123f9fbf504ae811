package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"tiptune-shell/sidecar"
)

const maxInitialRead = 100 * 1024

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ctl.Status())
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.ctl.GetLogs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(logs))
}

func (s *Server) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	logPath := s.ctl.LogPath()
	if logPath == "" {
		http.Error(w, "sidecar log path not set", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	f, err := os.Open(logPath)
	if err != nil {
		sendSSEEvent(w, flusher, "error", err.Error())
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		sendSSEEvent(w, flusher, "error", err.Error())
		return
	}
	if offset := stat.Size() - maxInitialRead; offset > 0 {
		f.Seek(offset, io.SeekStart)
	}

	initial, _ := io.ReadAll(f)
	if len(initial) > 0 {
		sendSSEData(w, flusher, string(initial))
	} else {
		flusher.Flush()
	}

	currentPos, _ := f.Seek(0, io.SeekCurrent)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	ctx := r.Context()
	done := s.ctl.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			// Flush whatever the sidecar wrote last, then end the stream.
			if data, _ := readFrom(f, currentPos); len(data) > 0 {
				sendSSEData(w, flusher, string(data))
			}
			sendSSEEvent(w, flusher, "exit", "sidecar stopped")
			return
		case <-ticker.C:
			data, pos := readFrom(f, currentPos)
			currentPos = pos
			if len(data) > 0 {
				sendSSEData(w, flusher, string(data))
			}
		}
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.log.Info("stop requested from dashboard", zap.String("remote", r.RemoteAddr))
	s.ctl.Shutdown(sidecar.ReasonOperator)
	writeJSON(w, s.ctl.Status())
}

// readFrom returns the bytes appended to f since pos and the new position.
// A truncated file is read from the start.
func readFrom(f *os.File, pos int64) ([]byte, int64) {
	stat, err := f.Stat()
	if err != nil || stat.Size() == pos {
		return nil, pos
	}
	if stat.Size() < pos {
		pos = 0
	}
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return nil, pos
	}
	data, err := io.ReadAll(f)
	return data, pos + int64(len(data))
}

func sendSSEData(w http.ResponseWriter, flusher http.Flusher, data string) {
	// SSE format: multi-line data uses "data:" prefix for each line
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		if i < len(lines)-1 || line != "" {
			fmt.Fprintf(w, "data: %s\n", line)
		}
	}
	fmt.Fprintf(w, "\n")
	flusher.Flush()
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
