// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package wicket

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_legalCycle(t *testing.T) {
	m := NewStateMachine()

	require.Equal(t, Stopped, m.Current())

	assert.True(t, m.TryTransition(Stopped, Starting))
	assert.True(t, m.TryTransition(Starting, Running))
	assert.True(t, m.TryTransition(Running, Stopping))
	assert.True(t, m.TryTransition(Stopping, Stopped))

	// A full cycle resets to Stopped, not back to Starting.
	assert.Equal(t, Stopped, m.Current())
}

func TestStateMachine_illegalTransitions(t *testing.T) {
	m := NewStateMachine()

	tests := []struct {
		from ServerState
		to   ServerState
	}{
		{Stopped, Running},
		{Stopped, Stopping},
		{Starting, Stopped},
		{Running, Stopped},
		{Stopping, Running},
		{Stopping, Starting},
		{Running, Running},
	}

	for _, tt := range tests {
		assert.False(t, m.TryTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	// Failed attempts never mutate state.
	assert.Equal(t, Stopped, m.Current())

	// Legal pair, wrong current state.
	assert.False(t, m.TryTransition(Running, Stopping))
	assert.Equal(t, Stopped, m.Current())
}

// Exactly one of many concurrent shutdown attempts wins the
// Running -> Stopping transition.
func TestStateMachine_concurrentCAS(t *testing.T) {
	m := NewStateMachine()

	require.True(t, m.TryTransition(Stopped, Starting))
	require.True(t, m.TryTransition(Starting, Running))

	const attempts = 32

	var (
		wg   sync.WaitGroup
		wins int32
	)

	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results <- m.TryTransition(Running, Stopping)
		}()
	}

	wg.Wait()
	close(results)

	for won := range results {
		if won {
			wins++
		}
	}

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, Stopping, m.Current())
}

func TestServerState_string(t *testing.T) {
	assert.Equal(t, "Stopped", Stopped.String())
	assert.Equal(t, "Starting", Starting.String())
	assert.Equal(t, "Running", Running.String())
	assert.Equal(t, "Stopping", Stopping.String())
	assert.Equal(t, "Unknown", ServerState(42).String())
}
