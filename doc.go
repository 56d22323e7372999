// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

// Package wicket provides a minimal, localhost-bound HTTP server in which:
// - Requests pass an admission layer before any routing happens
// - Open transport connections are tracked (no leaks, no double-counting)
// - The lifecycle is an explicit state machine (Stopped, Starting, Running, Stopping)
// - Shutdown gracefully drains in-flight connections, bounded by a grace period
// - As built-in logger powered by Sypl
// - As telemetry powered by Open Telemetry
// - As built-in useful handlers such as liveness, and stop
// - As metrics powered by ExpVar.
package wicket
