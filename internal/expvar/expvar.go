// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package expvar

import (
	"expvar"
	"os"
	"runtime"
)

//////
// Const, and vars.
//////

const (
	// CommandLine metric name.
	CommandLine = "cmdline"

	// MemoryStats metric name.
	MemoryStats = "memstats"
)

// Var re-exports `expvar.Var`.
type Var = expvar.Var

// Func re-exports `expvar.Func`.
type Func = expvar.Func

//////
// Helpers.
//////

// Publish exports `v` under `name`. Unlike `expvar.Publish`, re-publishing
// an already-exported name is a safe no-op instead of a crash.
func Publish(name string, v Var) {
	if expvar.Get(name) == nil {
		expvar.Publish(name, v)
	}
}

// NewInt returns the `*expvar.Int` exported under `name`, creating it if
// needed.
func NewInt(name string) *expvar.Int {
	if v, ok := expvar.Get(name).(*expvar.Int); ok {
		return v
	}

	return expvar.NewInt(name)
}

// PublishCmdLine exports the process command line.
func PublishCmdLine() {
	Publish(CommandLine, Func(func() interface{} {
		return os.Args
	}))
}

// PublishMemStats exports Golang's memory allocator statistics.
func PublishMemStats() {
	Publish(MemoryStats, Func(func() interface{} {
		stats := new(runtime.MemStats)

		runtime.ReadMemStats(stats)

		return *stats
	}))
}
