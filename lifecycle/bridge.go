package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tiptune-shell/sidecar"
)

// Event is a lifecycle notification from the hosting shell.
type Event int

const (
	WindowCloseRequested Event = iota + 1
	ExitRequested
	Exit
)

func (e Event) String() string {
	switch e {
	case WindowCloseRequested:
		return "window-close-requested"
	case ExitRequested:
		return "exit-requested"
	case Exit:
		return "exit"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Reason maps the event to the supervisor's teardown reason.
func (e Event) Reason() sidecar.Reason {
	switch e {
	case WindowCloseRequested:
		return sidecar.ReasonWindowClose
	case ExitRequested:
		return sidecar.ReasonExitRequested
	default:
		return sidecar.ReasonExit
	}
}

// ParseEvent accepts the names produced by Event.String.
func ParseEvent(s string) (Event, error) {
	for _, e := range []Event{WindowCloseRequested, ExitRequested, Exit} {
		if e.String() == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown lifecycle event %q", s)
}

// Bridge is the inbound channel of lifecycle events.
type Bridge struct {
	events chan Event
	closed chan struct{}
	once   sync.Once
}

func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan Event, 16),
		closed: make(chan struct{}),
	}
}

// Raise delivers e to Run. It returns false once the bridge is closed.
func (b *Bridge) Raise(e Event) bool {
	select {
	case <-b.closed:
		return false
	default:
	}
	select {
	case b.events <- e:
		return true
	case <-b.closed:
		return false
	}
}

// Close stops accepting events.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.closed) })
}

// Target is what the bridge drives; *sidecar.Supervisor satisfies it.
type Target interface {
	Shutdown(reason sidecar.Reason)
	Done() <-chan struct{}
	Status() sidecar.Status
}

type Options struct {
	// ExitWithSidecar ends Run when the sidecar goes away on its own. An
	// operator stop never ends Run.
	ExitWithSidecar bool
	Logger          *zap.Logger
}

// Run dispatches bridge events to target until the host is leaving. Every
// exit path ends with a Shutdown(ReasonExit), matching the application's
// final exit notification.
func Run(ctx context.Context, b *Bridge, target Target, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	defer b.Close()
	defer target.Shutdown(sidecar.ReasonExit)

	sidecarDone := target.Done()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-sidecarDone:
			sidecarDone = nil
			reason := target.Status().StopReason
			if opts.ExitWithSidecar && reason.Unsolicited() {
				log.Info("sidecar is gone, exiting")
				return nil
			}
			log.Info("sidecar is gone, host keeps running", zap.String("reason", string(reason)))

		case e := <-b.events:
			log.Info("lifecycle event", zap.Stringer("event", e))
			if dispatch(e, target) {
				return nil
			}
		}
	}
}

// dispatch applies e and reports whether the host is now exiting. Closing
// the window exits the application, which in turn raises exit-requested
// and exit; each step tears the sidecar down on its own.
func dispatch(e Event, target Target) bool {
	switch e {
	case WindowCloseRequested:
		target.Shutdown(sidecar.ReasonWindowClose)
		target.Shutdown(sidecar.ReasonExitRequested)
		return true
	case ExitRequested:
		target.Shutdown(sidecar.ReasonExitRequested)
		return true
	case Exit:
		return true
	}
	return false
}
