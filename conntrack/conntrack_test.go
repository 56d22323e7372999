// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package conntrack

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipe(t *testing.T) net.Conn {
	t.Helper()

	client, server := net.Pipe()

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	return server
}

func TestRegistry_addRemove(t *testing.T) {
	r := NewRegistry()

	conn := newPipe(t)

	c := r.Add(conn)

	require.NotEmpty(t, c.ID)
	assert.Equal(t, 1, r.Size())

	r.Remove(conn)

	assert.Equal(t, 0, r.Size())

	// Late, or duplicate close events are safe no-ops.
	r.Remove(conn)

	assert.Equal(t, 0, r.Size())
}

func TestRegistry_concurrent(t *testing.T) {
	r := NewRegistry()

	const workers = 50

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			conn := newPipe(t)

			r.Add(conn)
			r.Remove(conn)
			r.Remove(conn)
		}()
	}

	wg.Wait()

	// Size equals the count of identities currently present: zero, never
	// negative.
	assert.Equal(t, 0, r.Size())
}

func TestRegistry_forEachSnapshot(t *testing.T) {
	r := NewRegistry()

	for i := 0; i < 3; i++ {
		r.Add(newPipe(t))
	}

	seen := 0

	// Mutating the registry from within the callback must be safe.
	r.ForEach(func(c *Connection) {
		seen++

		_, errs := r.CloseAll()

		assert.Empty(t, errs)
	})

	assert.Equal(t, 3, seen)
	assert.Equal(t, 0, r.Size())
}

func TestRegistry_closeIdle(t *testing.T) {
	r := NewRegistry()

	idle := newPipe(t)
	active := newPipe(t)

	hook := r.StateHook()

	hook(idle, http.StateNew)
	hook(idle, http.StateIdle)
	hook(active, http.StateNew)
	hook(active, http.StateActive)

	require.Equal(t, 2, r.Size())

	assert.Equal(t, 1, r.CloseIdle())

	// Closing severs the socket; deregistration still comes from the
	// transport layer's close event.
	hook(idle, http.StateClosed)

	assert.Equal(t, 1, r.Size())

	hook(active, http.StateClosed)

	assert.Equal(t, 0, r.Size())
}

type countingObserver struct {
	opened atomic.Int32
	closed atomic.Int32
}

func (o *countingObserver) OnOpen(c *Connection)  { o.opened.Add(1) }
func (o *countingObserver) OnClose(c *Connection) { o.closed.Add(1) }

func TestRegistry_observer(t *testing.T) {
	observer := &countingObserver{}

	r := NewRegistry(observer)

	conn := newPipe(t)

	r.Add(conn)
	r.Remove(conn)
	r.Remove(conn)

	assert.Equal(t, int32(1), observer.opened.Load())
	assert.Equal(t, int32(1), observer.closed.Load())
}
