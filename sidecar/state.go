package sidecar

import (
	"errors"
	"sync"
)

// ErrAlreadyRunning is returned by State.Put when a child is already held.
var ErrAlreadyRunning = errors.New("sidecar already running")

// State holds the live sidecar handle, or nothing. It is shared by the
// drain loop and every lifecycle event handler.
type State struct {
	mu    sync.Mutex
	child Handle
}

// Put stores h. At most one child is held at a time.
func (s *State) Put(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.child != nil {
		return ErrAlreadyRunning
	}
	s.child = h
	return nil
}

// Take removes and returns the held child, or nil if the slot is empty.
func (s *State) Take() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.child
	s.child = nil
	return h
}

// Present reports whether a child is held.
func (s *State) Present() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.child != nil
}

// Pid returns the held child's pid.
func (s *State) Pid() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.child == nil {
		return 0, false
	}
	return s.child.Pid(), true
}
