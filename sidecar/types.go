package sidecar

import (
	"fmt"
	"time"
)

// EventKind tags a sidecar Event.
type EventKind int

const (
	EventOther EventKind = iota
	EventStdout
	EventStderr
	EventError
	EventTerminated
)

func (k EventKind) String() string {
	switch k {
	case EventStdout:
		return "stdout"
	case EventStderr:
		return "stderr"
	case EventError:
		return "error"
	case EventTerminated:
		return "terminated"
	default:
		return "other"
	}
}

// Event is one item of the stream produced by Launch. Line is set for
// stdout/stderr events, Err for error events and Exit for the final
// terminated event.
type Event struct {
	Kind EventKind
	Line string
	Err  error
	Exit *ExitPayload
}

// ExitPayload describes how the sidecar process ended. Code is -1 when the
// process was killed by a signal.
type ExitPayload struct {
	Code   int    `json:"code"`
	Signal string `json:"signal,omitempty"`
}

func (p ExitPayload) String() string {
	if p.Signal != "" {
		return fmt.Sprintf("code=%d signal=%s", p.Code, p.Signal)
	}
	return fmt.Sprintf("code=%d", p.Code)
}

// Reason names the trigger that asked for the sidecar to be torn down.
type Reason string

const (
	ReasonWindowClose     Reason = "window-close-requested"
	ReasonExitRequested   Reason = "exit-requested"
	ReasonExit            Reason = "exit"
	ReasonChildTerminated Reason = "child-terminated"
	ReasonOperator        Reason = "operator"
	ReasonStale           Reason = "stale"
)

// Unsolicited reports whether the reason means the sidecar went away on its
// own rather than being stopped by the host.
func (r Reason) Unsolicited() bool {
	return r == ReasonChildTerminated
}

// RunRecord is the persisted description of the current or last sidecar run.
type RunRecord struct {
	PID        int          `json:"pid"`
	CreateTime int64        `json:"create_time,omitempty"` // ms since epoch, as reported by the OS
	Binary     string       `json:"binary"`
	LogPath    string       `json:"log_path,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	ExitedAt   *time.Time   `json:"exited_at,omitempty"`
	Exit       *ExitPayload `json:"exit,omitempty"`
	StopReason Reason       `json:"stop_reason,omitempty"`
}

// Status is the supervisor's view of the sidecar, as served to the
// dashboard and the MCP tools.
type Status struct {
	RunRecord
	Running    bool    `json:"running"`
	RSSBytes   uint64  `json:"rss_bytes,omitempty"`
	CPUPercent float64 `json:"cpu_percent,omitempty"`
}
