package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tiptune-shell/sidecar"
)

// Server serves sidecar status and logs over HTTP for local diagnostics.
type Server struct {
	ctl    sidecar.Controller
	log    *zap.Logger
	server *http.Server
}

// NewServer creates a new dashboard server bound to the given address.
func NewServer(addr string, ctl sidecar.Controller, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{ctl: ctl, log: log}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the dashboard's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sidecar", s.handleStatus)
	mux.HandleFunc("GET /api/sidecar/logs", s.handleGetLogs)
	mux.HandleFunc("GET /api/sidecar/logs/stream", s.handleStreamLogs)
	mux.HandleFunc("POST /api/sidecar/stop", s.handleStop)
	return mux
}

// Start listens on the configured address and serves in the background.
// Listen errors are returned; serve errors after that are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.log.Info("dashboard listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("dashboard stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
