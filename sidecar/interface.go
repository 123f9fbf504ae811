package sidecar

// Handle is a live child process that can be killed.
type Handle interface {
	Pid() int
	Kill() error
}

// Killer terminates a child process. Implementations decide whether the
// child's descendants go with it.
type Killer interface {
	Kill(h Handle) error
}

// Sequencer tears the sidecar down. Terminate is idempotent and reports
// whether this call was the one that removed the child from the state.
type Sequencer interface {
	Terminate(reason Reason) bool
}

// LineSink receives trimmed output lines from the drain loop. Implementations
// must not block.
type LineSink interface {
	Line(stream EventKind, text string)
}

// Controller is the supervisor surface shared by the lifecycle bridge, the
// MCP tools and the HTTP dashboard.
type Controller interface {
	// Shutdown ensures the sidecar is not running. Safe to call any number
	// of times from any goroutine.
	Shutdown(reason Reason)

	// Status returns the current run record and liveness.
	Status() Status

	// GetLogs returns the last ~100KB of the sidecar's log file.
	GetLogs() (string, error)

	// LogPath returns the sidecar log file path, or "" if the sidecar was
	// left to pick its own.
	LogPath() string

	// Done is closed once the drain loop has finished, i.e. the sidecar
	// process is gone.
	Done() <-chan struct{}
}
