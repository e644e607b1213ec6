package session

import (
	"context"
	"sync"
)

// Signal is a resettable readiness flag that callers can wait on.
//
// Wait blocks until Set or Fail is called (or the context ends). Clear
// re-arms the signal so later waiters block again.
type Signal struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
	err error
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set marks the resource ready and wakes all waiters
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = true
	s.err = nil
	s.fire()
}

// Fail wakes all waiters with err. The signal stays failed until Set,
// Clear or ResetIfFailed.
func (s *Signal) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = false
	s.err = err
	s.fire()
}

// Clear marks the resource unavailable
func (s *Signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rearm()
}

// ResetIfFailed re-arms a failed signal and leaves a ready or pending one alone
func (s *Signal) ResetIfFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		s.rearm()
	}
}

func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Err returns the provisioning error if the signal failed
func (s *Signal) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait returns nil once the signal is set, the failure error if it failed,
// or the context error.
func (s *Signal) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.set {
			s.mu.Unlock()
			return nil
		}
		if s.err != nil {
			err := s.err
			s.mu.Unlock()
			return err
		}
		ch := s.ch
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// fire closes the current channel once. Must hold mu.
func (s *Signal) fire() {
	select {
	case <-s.ch:
	default:
		close(s.ch)
	}
}

// rearm resets state and swaps in an open channel if the old one fired. Must hold mu.
func (s *Signal) rearm() {
	s.set = false
	s.err = nil
	select {
	case <-s.ch:
		s.ch = make(chan struct{})
	default:
	}
}
