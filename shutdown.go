// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package wicket

import (
	"time"

	"github.com/saucelabs/customerror"
)

//////
// Const, and vars.
//////

// ErrAwaitTimeout indicates a shutdown future didn't complete in time.
var ErrAwaitTimeout = customerror.NewFailedToError("await shutdown, timed out")

//////
// Definitions.
//////

// ShutdownPlan captures the immutable parameters of a shutdown at the
// moment it starts.
type ShutdownPlan struct {
	// Reason the shutdown was requested, e.g. a signal name.
	Reason string

	// GracePeriod given for drain before forced termination.
	GracePeriod time.Duration

	// PollInterval between drain checks of the connection registry.
	PollInterval time.Duration

	// StartedAt is when the plan was captured.
	StartedAt time.Time

	// ForceDeadline is `StartedAt` plus `GracePeriod`.
	ForceDeadline time.Time
}

func newShutdownPlan(reason string, gracePeriod, pollInterval time.Duration) ShutdownPlan {
	now := time.Now()

	return ShutdownPlan{
		Reason:        reason,
		GracePeriod:   gracePeriod,
		PollInterval:  pollInterval,
		StartedAt:     now,
		ForceDeadline: now.Add(gracePeriod),
	}
}

// ShutdownFuture completes when the drain cycle finishes, and the calling
// process may exit.
type ShutdownFuture struct {
	done   chan struct{}
	forced bool
	err    error
}

func newShutdownFuture() *ShutdownFuture {
	return &ShutdownFuture{done: make(chan struct{})}
}

// Await blocks until the shutdown completes, returning any shutdown error.
func (f *ShutdownFuture) Await() error {
	<-f.done

	return f.err
}

// AwaitWithTimeout blocks until the shutdown completes, or `timeout`
// elapses, in which case `ErrAwaitTimeout` is returned.
func (f *ShutdownFuture) AwaitWithTimeout(timeout time.Duration) error {
	select {
	case <-f.done:
		return f.err
	case <-time.After(timeout):
		return ErrAwaitTimeout
	}
}

// IsComplete checks whether the shutdown has finished, without blocking.
func (f *ShutdownFuture) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Forced indicates the grace period expired, and connections were severed
// instead of drained. Only meaningful once complete.
func (f *ShutdownFuture) Forced() bool {
	return f.forced
}

func (f *ShutdownFuture) complete(forced bool, err error) {
	f.forced = forced
	f.err = err

	close(f.done)
}

//////
// Coordinator.
//////

// Shutdown gracefully stops the server: new accept attempts are refused,
// idle connections are proactively closed, and in-flight connections are
// drained until the registry empties, or the grace period expires -
// whichever happens first. Past the grace period every remaining connection
// is forcibly severed.
//
// Idempotent: invoking Shutdown while a shutdown is already running returns
// the same pending future, and no second drain cycle starts. Invoking it on
// a server that isn't running returns an already-completed future.
func (s *Server) Shutdown(reason string) *ShutdownFuture {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()

	if s.shutdownFuture != nil {
		return s.shutdownFuture
	}

	future := newShutdownFuture()

	if !s.states.TryTransition(Running, Stopping) {
		// Not running: nothing to drain.
		future.complete(false, nil)

		return future
	}

	s.shutdownFuture = future

	close(s.shutdownStarted)

	plan := newShutdownPlan(reason, s.Timeout.GracePeriod, s.Timeout.DrainPollInterval)

	go s.drain(plan, future)

	return future
}

// drain runs the shutdown algorithm. It's the only goroutine allowed to
// iterate the registry while connection handlers keep mutating it.
func (s *Server) drain(plan ShutdownPlan, future *ShutdownFuture) {
	s.GetLogger().Tracelnf("got %s, gracefully shutting down", plan.Reason)
	s.GetLogger().Tracelnf("waiting %s for inflight connections to drain", plan.GracePeriod)

	// Refuse new sockets at the transport layer. No `503`s: the listener
	// simply stops accepting.
	s.server.SetKeepAlivesEnabled(false)

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.GetLogger().Debuglnf("failed to close listener: %v", err)
		}
	}

	if closed := s.registry.CloseIdle(); closed > 0 {
		s.GetLogger().Debuglnf("closed %d idle connection(s)", closed)
	}

	forced := s.awaitDrain(plan)

	if forced {
		closed, errs := s.registry.CloseAll()

		s.GetLogger().Tracelnf("grace period exceeded, severed %d connection(s)", closed)

		// Force-close failures are logged, but never block process exit.
		for _, err := range errs {
			s.GetLogger().Debuglnf("failed to sever connection: %v", err)
		}
	}

	// Releases any remaining server resources. The listener is already
	// closed, and the registry drained, so this never waits.
	if err := s.server.Close(); err != nil {
		s.GetLogger().Debuglnf("failed to close server: %v", err)
	}

	if !s.states.TryTransition(Stopping, Stopped) {
		s.GetLogger().Errorlnf("illegal transition %s -> %s", s.states.Current(), Stopped)
	}

	if size := s.registry.Size(); size != 0 {
		s.GetLogger().Errorlnf("registry not empty after drain: %d connection(s)", size)
	}

	future.complete(forced, nil)
}

// awaitDrain polls the registry until it empties, racing the force
// deadline. Returns `true` when the force deadline won.
func (s *Server) awaitDrain(plan ShutdownPlan) bool {
	if s.registry.Size() == 0 {
		return false
	}

	ticker := time.NewTicker(plan.PollInterval)
	defer ticker.Stop()

	force := time.NewTimer(time.Until(plan.ForceDeadline))
	defer force.Stop()

	for {
		select {
		case <-ticker.C:
			if s.registry.Size() == 0 {
				return false
			}
		case <-force.C:
			return true
		}
	}
}
