// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package wicket

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_notRunning(t *testing.T) {
	server, err := NewBasic("test-server", "127.0.0.1:0")

	require.NoError(t, err)

	// Never started: nothing to drain, the future is already complete.
	future := server.Shutdown("test")

	assert.True(t, future.IsComplete())
	assert.False(t, future.Forced())
	assert.NoError(t, future.Await())
}

func TestShutdown_idempotent(t *testing.T) {
	server, port := setupTestServer(t)

	startServer(t, server)

	first := server.Shutdown("SIGINT")
	second := server.Shutdown("SIGINT")

	// The second request observes Stopping, and joins the pending drain
	// cycle instead of starting another one.
	assert.Same(t, first, second)

	require.NoError(t, first.Await())
	assert.Equal(t, Stopped, server.GetState())
	assert.Equal(t, 0, server.GetRegistry().Size())

	// Once stopped, the port no longer accepts.
	_, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 250*time.Millisecond)

	assert.Error(t, err)
}

// Scenario: three idle keep-alive connections, 2s grace period. Idle
// connections are proactively closed, so the drain completes in
// approximately the poll time, not the full grace period.
func TestShutdown_drainsIdleConnections(t *testing.T) {
	server, port := setupTestServer(t,
		WithGracePeriod(2*time.Second),
		WithDrainPollInterval(100*time.Millisecond),
	)

	startServer(t, server)

	for i := 0; i < 3; i++ {
		conn := dialAndKeepAlive(t, port)

		defer conn.Close()
	}

	waitRegistrySize(t, server, 3)

	started := time.Now()

	future := server.Shutdown("SIGTERM")

	require.NoError(t, future.Await())

	assert.Less(t, time.Since(started), 2*time.Second)
	assert.False(t, future.Forced())
	assert.Equal(t, 0, server.GetRegistry().Size())
	assert.Equal(t, Stopped, server.GetState())
}

// Scenario: a connection stuck in flight. The force timer wins the race,
// and the registry is forcibly emptied at (or just after) the deadline.
func TestShutdown_forcedAfterGracePeriod(t *testing.T) {
	slow := slowHandler(3 * time.Second)

	server, port := setupTestServer(t,
		WithGracePeriod(500*time.Millisecond),
		WithDrainPollInterval(50*time.Millisecond),
		WithPreLoadedHandlers(slow),
	)

	startServer(t, server)

	requestDone := make(chan struct{})

	go func() {
		defer close(requestDone)

		// Severed mid-flight once the grace period expires.
		//nolint:errcheck,noctx
		http.Get(fmt.Sprintf("http://127.0.0.1:%d/slow", port))
	}()

	waitRegistrySize(t, server, 1)

	started := time.Now()

	future := server.Shutdown("SIGTERM")

	assert.ErrorIs(t, future.AwaitWithTimeout(10*time.Millisecond), ErrAwaitTimeout)

	require.NoError(t, future.Await())

	elapsed := time.Since(started)

	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond)
	assert.Less(t, elapsed, 2500*time.Millisecond)
	assert.True(t, future.Forced())
	assert.Equal(t, 0, server.GetRegistry().Size())
	assert.Equal(t, Stopped, server.GetState())

	<-requestDone
}

//////
// Helpers.
//////

// dialAndKeepAlive opens a raw keep-alive connection, completes one request,
// and leaves the socket open, and idle.
func dialAndKeepAlive(t *testing.T, port int) net.Conn {
	t.Helper()

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))

	require.NoError(t, err)

	fmt.Fprintf(conn, "GET /liveness HTTP/1.1\r\nHost: 127.0.0.1\r\nConnection: keep-alive\r\n\r\n")

	reader := bufio.NewReader(conn)

	resp, err := http.ReadResponse(reader, nil)

	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return conn
}

func waitRegistrySize(t *testing.T, server IServer, size int) {
	t.Helper()

	for i := 0; i < 100; i++ {
		if server.GetRegistry().Size() == size {
			return
		}

		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("registry never reached size %d, got %d", size, server.GetRegistry().Size())
}
