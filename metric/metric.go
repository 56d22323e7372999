// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package metric

import (
	"github.com/wicketd/wicket/conntrack"
	"github.com/wicketd/wicket/internal/expvar"
	"github.com/wicketd/wicket/internal/validation"
)

//////
// Consts, and vars.
//////

const (
	// CommandLine metric.
	CommandLine = expvar.CommandLine

	// MemoryStats metric.
	MemoryStats = expvar.MemoryStats
)

//////
// Definition.
//////

// Metric definition.
type Metric struct {
	// Name of the metric.
	Name string `json:"name" validate:"required"`

	// Var is a valid ExpVar.
	Var expvar.Var `json:"var" validate:"required"`
}

//////
// Metrics.
//////

// Server information.
func Server(address, name string, pid int) expvar.Func {
	return func() interface{} {
		return struct {
			// Server address.
			Address string `json:"Address"`

			// Server name.
			Name string `json:"Name"`

			// Server PID.
			PID int `json:"PID"`
		}{
			address, name, pid,
		}
	}
}

// Connections gauges the number of currently open transport connections.
func Connections(registry *conntrack.Registry) expvar.Func {
	return func() interface{} {
		return registry.Size()
	}
}

//////
// Factory.
//////

// New is the Metric factory.
func New(name string, v expvar.Var) (*Metric, error) {
	m := &Metric{
		Name: name,
		Var:  v,
	}

	if err := validation.ValidateStruct(m); err != nil {
		return nil, err
	}

	return m, nil
}
