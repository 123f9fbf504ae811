package sidecar

import (
	"go.uber.org/zap"
)

// Terminator is the single teardown path for the sidecar. Every lifecycle
// trigger and the drain loop converge on Terminate.
type Terminator struct {
	state  *State
	killer Killer
	log    *zap.Logger

	// onTaken runs after a successful take, outside the lock and before
	// the kill.
	onTaken func(h Handle, reason Reason)
}

// NewTerminator returns a Terminator for state. A nil killer selects the
// platform default.
func NewTerminator(state *State, killer Killer, log *zap.Logger) *Terminator {
	if killer == nil {
		killer = DefaultKiller()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Terminator{state: state, killer: killer, log: log}
}

// Terminate makes sure the sidecar is not running. The handle is taken out
// of the state under the lock and the kill happens after the lock is
// released, so a concurrent caller sees the slot empty and returns at once.
// Kill errors are dropped: the process is either already gone or cannot be
// reached, and this is routinely called speculatively.
func (t *Terminator) Terminate(reason Reason) bool {
	h := t.state.Take()
	if h == nil {
		t.log.Debug("sidecar already stopped", zap.String("reason", string(reason)))
		return false
	}

	fields := []zap.Field{zap.Int("pid", h.Pid()), zap.String("reason", string(reason))}
	if reason.Unsolicited() {
		t.log.Warn("sidecar exited on its own, cleaning up", fields...)
	} else {
		t.log.Info("stopping sidecar", fields...)
	}

	if t.onTaken != nil {
		t.onTaken(h, reason)
	}

	// A reaped child's pid may already belong to another process.
	if e, ok := h.(exiter); ok && reason.Unsolicited() && e.Exited() {
		return true
	}
	if err := t.killer.Kill(h); err != nil {
		t.log.Debug("kill failed", append(fields, zap.Error(err))...)
	}
	return true
}

// exiter is implemented by handles that know whether their process has
// been reaped.
type exiter interface {
	Exited() bool
}
