// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.
//
// It follows Rob Spike, and Dave Cheney design pattern for options.
//
// - Sensible defaults.
// - Highly configurable.
// - Allows anyone to easily implement their own options.
// - Can grow over time.
// - Self-documenting.
// - Safe for newcomers.
// - Never requires `nil` or an `empty` value to keep the compiler happy.
//
// SEE: https://commandcenter.blogspot.com/2014/01/self-referential-functions-and-design.html
// SEE: https://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis

package wicket

import (
	"time"

	"github.com/saucelabs/sypl/level"

	"github.com/wicketd/wicket/conntrack"
	handler "github.com/wicketd/wicket/handler"
	"github.com/wicketd/wicket/internal/expvar"
	"github.com/wicketd/wicket/telemetry"
)

// Option allows to define options for the Server.
type Option func(s *Server)

// WithTimeout sets the maximum duration for each individual timeouts.
func WithTimeout(read, request, write time.Duration) Option {
	return func(s *Server) {
		s.Timeout.ReadTimeout = read
		s.Timeout.RequestTimeout = request
		s.Timeout.WriteTimeout = write
	}
}

// WithGracePeriod sets the time window given for drain before forced
// termination.
func WithGracePeriod(gracePeriod time.Duration) Option {
	return func(s *Server) {
		s.Timeout.GracePeriod = gracePeriod
	}
}

// WithDrainPollInterval sets the interval between connection registry drain
// checks during shutdown.
func WithDrainPollInterval(interval time.Duration) Option {
	return func(s *Server) {
		s.Timeout.DrainPollInterval = interval
	}
}

// WithLoggingOptions sets fine-control logging options.
func WithLoggingOptions(consoleLevel, requestLevel, filepath string) Option {
	return func(s *Server) {
		s.Logging.ConsoleLevel = consoleLevel
		s.Logging.RequestLevel = requestLevel
		s.Logging.Filepath = filepath
	}
}

// WithoutLogging disables logging.
func WithoutLogging() Option {
	return func(s *Server) {
		s.Logging.ConsoleLevel = level.None.String()
		s.Logging.RequestLevel = level.None.String()
		s.Logging.Filepath = ""
	}
}

// WithTelemetry sets telemetry.
//
// NOTE: Use `telemetry.New` to bring your own telemetry.
// SEE: https://opentelemetry.io/vendors
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(s *Server) {
		s.telemetry = t
	}
}

// WithoutTelemetry disables telemetry.
func WithoutTelemetry() Option {
	return func(s *Server) {
		s.EnableTelemetry = false
	}
}

// WithoutMetrics disables metrics.
func WithoutMetrics() Option {
	return func(s *Server) {
		s.EnableMetrics = false
	}
}

// WithReadiness sets server readiness. Returning any non-nil error means server
// isn't ready.
func WithReadiness(readinessFunc handler.ReadinessFunc) Option {
	return func(s *Server) {
		s.preLoadedHandlers = append(s.preLoadedHandlers, handler.Readiness(readinessFunc))
	}
}

// WithPreLoadedHandlers adds handlers to the pre-loaded handlers.
//
// NOTE: Use `handler.New` to add handlers.
func WithPreLoadedHandlers(handlers ...handler.Handler) Option {
	return func(s *Server) {
		s.preLoadedHandlers = append(s.preLoadedHandlers, handlers...)
	}
}

// WithoutPreLoadedHandlers clears the pre-loaded handlers.
func WithoutPreLoadedHandlers() Option {
	return func(s *Server) {
		s.preLoadedHandlers = nil
	}
}

// WithObservers registers connection lifecycle observers.
func WithObservers(observers ...conntrack.Observer) Option {
	return func(s *Server) {
		s.observers = append(s.observers, observers...)
	}
}

// WithMetricsRaw allows to publishes metrics based on exp vars. It's useful for
// cases such as counters. It gives full control over what's being exposed.
func WithMetricsRaw(name string, metrics expvar.Var) Option {
	return func(s *Server) {
		expvar.Publish(name, metrics)
	}
}

// WithMetrics provides a quick way to publish static metric values.
func WithMetrics(name string, v interface{}) Option {
	return func(s *Server) {
		expvar.Publish(name, expvar.Func(func() interface{} {
			return v
		}))
	}
}
