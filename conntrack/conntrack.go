// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

// Package conntrack tracks the set of currently open transport connections.
// The registry is the single piece of mutable shared state between the
// per-connection handling goroutines, and the shutdown goroutine; all
// mutations go through `Add`/`Remove`.
package conntrack

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

//////
// Definitions.
//////

// Connection represents one open transport-layer link. Owned exclusively by
// the Registry for its lifetime.
type Connection struct {
	// ID is the opaque connection identity.
	ID string

	// RemoteAddr of the peer.
	RemoteAddr string

	// OpenedAt is when the transport layer reported the connection.
	OpenedAt time.Time

	conn net.Conn

	mu   sync.Mutex
	idle bool
}

// Idle indicates no request is currently in flight on the connection.
func (c *Connection) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.idle
}

func (c *Connection) setIdle(idle bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.idle = idle
}

// Close severs the underlying transport connection.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// Observer receives connection lifecycle events.
type Observer interface {
	// OnOpen is called after a connection is registered.
	OnOpen(c *Connection)

	// OnClose is called after a connection is deregistered.
	OnClose(c *Connection)
}

// Registry is the tracked set of open transport connections, keyed by
// identity. Its size always equals the number of currently-open sockets
// known to the process.
type Registry struct {
	mu          sync.Mutex
	connections map[net.Conn]*Connection
	observers   []Observer
}

//////
// Factory.
//////

// NewRegistry is the Registry factory.
func NewRegistry(observers ...Observer) *Registry {
	return &Registry{
		connections: map[net.Conn]*Connection{},
		observers:   observers,
	}
}

//////
// Registry implementation.
//////

// Add inserts a connection. Callers must not double-add the same transport
// connection.
func (r *Registry) Add(conn net.Conn) *Connection {
	c := &Connection{
		ID:         uuid.NewString(),
		RemoteAddr: conn.RemoteAddr().String(),
		OpenedAt:   time.Now(),
		conn:       conn,
		idle:       false,
	}

	r.mu.Lock()
	r.connections[conn] = c
	r.mu.Unlock()

	for _, o := range r.observers {
		o.OnOpen(c)
	}

	return c
}

// Remove deregisters a connection. No-op if absent, which makes late, or
// duplicate close events safe.
func (r *Registry) Remove(conn net.Conn) {
	r.mu.Lock()

	c, ok := r.connections[conn]
	if ok {
		delete(r.connections, conn)
	}

	r.mu.Unlock()

	if !ok {
		return
	}

	for _, o := range r.observers {
		o.OnClose(c)
	}
}

// Size returns the number of currently open connections.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.connections)
}

// ForEach calls `fn` for each tracked connection over a snapshot, so `fn`
// may safely call back into the registry.
func (r *Registry) ForEach(fn func(c *Connection)) {
	for _, c := range r.snapshot() {
		fn(c)
	}
}

// CloseIdle severs every connection with no in-flight request, returning
// how many were closed. Close errors are ignored: the transport layer
// reports closure regardless.
func (r *Registry) CloseIdle() int {
	closed := 0

	r.ForEach(func(c *Connection) {
		if c.Idle() {
			_ = c.Close()

			closed++
		}
	})

	return closed
}

// CloseAll forcibly severs, and deregisters every tracked connection,
// returning how many were closed, and any close errors.
func (r *Registry) CloseAll() (int, []error) {
	closed := 0

	var errs []error

	r.ForEach(func(c *Connection) {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}

		r.Remove(c.conn)

		closed++
	})

	return closed, errs
}

func (r *Registry) snapshot() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	connections := make([]*Connection, 0, len(r.connections))

	for _, c := range r.connections {
		connections = append(connections, c)
	}

	return connections
}

// StateHook adapts `http.Server.ConnState` events into registry mutations:
// `StateNew` registers, `StateClosed`/`StateHijacked` deregister, and
// `StateActive`/`StateIdle` track whether a request is in flight.
func (r *Registry) StateHook() func(conn net.Conn, state http.ConnState) {
	return func(conn net.Conn, state http.ConnState) {
		switch state {
		case http.StateNew:
			r.Add(conn)
		case http.StateActive:
			r.setIdle(conn, false)
		case http.StateIdle:
			r.setIdle(conn, true)
		case http.StateClosed, http.StateHijacked:
			r.Remove(conn)
		}
	}
}

func (r *Registry) setIdle(conn net.Conn, idle bool) {
	r.mu.Lock()
	c, ok := r.connections[conn]
	r.mu.Unlock()

	if ok {
		c.setIdle(idle)
	}
}
