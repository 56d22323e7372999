// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package wicket

import "sync/atomic"

//////
// Const, and vars.
//////

// ServerState is the lifecycle phase of a server. Exactly one value at any
// instant.
type ServerState int32

const (
	// Stopped: terminal for the cycle. The registry is empty.
	Stopped ServerState = iota

	// Starting: listener bound, but not yet confirmed accepting.
	Starting

	// Running: listener active, admission logic live.
	Running

	// Stopping: listener no longer accepts; existing connections may still
	// be in flight.
	Stopping
)

// String implements `fmt.Stringer`.
func (s ServerState) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

//////
// Definition.
//////

// StateMachine guards which lifecycle operations are legal. Transitions are
// monotonic forward - Stopped, Starting, Running, Stopping - except
// Stopping which resets to Stopped.
//
// Reads, and transitions use atomic compare-and-swap semantics, so a
// connection handler checking "are we still accepting?" never races the
// shutdown goroutine flipping state.
type StateMachine struct {
	current atomic.Int32
}

//////
// Factory.
//////

// NewStateMachine returns a state machine at `Stopped`.
func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

//////
// StateMachine implementation.
//////

// Current returns the current state.
func (m *StateMachine) Current() ServerState {
	return ServerState(m.current.Load())
}

// TryTransition atomically moves `from` to `to`. It fails - without mutating
// state - when the pair isn't in the legal table, or when the current state
// isn't `from`.
func (m *StateMachine) TryTransition(from, to ServerState) bool {
	if !legalTransition(from, to) {
		return false
	}

	return m.current.CompareAndSwap(int32(from), int32(to))
}

func legalTransition(from, to ServerState) bool {
	switch from {
	case Stopped:
		return to == Starting
	case Starting:
		return to == Running
	case Running:
		return to == Stopping
	case Stopping:
		return to == Stopped
	default:
		return false
	}
}
