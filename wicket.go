// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package wicket

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/saucelabs/customerror"
	"github.com/saucelabs/sypl"
	"github.com/saucelabs/sypl/level"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/wicketd/wicket/admission"
	"github.com/wicketd/wicket/conntrack"
	handler "github.com/wicketd/wicket/handler"
	"github.com/wicketd/wicket/internal/expvar"
	"github.com/wicketd/wicket/internal/logger"
	"github.com/wicketd/wicket/internal/middleware"
	"github.com/wicketd/wicket/internal/validation"
	"github.com/wicketd/wicket/metric"
	"github.com/wicketd/wicket/telemetry"
)

//////
// Const, and vars.
//////

const (
	defaultTimeout           = 35 * time.Second
	defaultRequestTimeout    = 30 * time.Second
	defaultGracePeriod       = 10 * time.Second
	defaultDrainPollInterval = 1 * time.Second
	frameworkName            = "wicket"
)

// ErrRequestTimeout indicates a request failed to finish, it timed out.
var ErrRequestTimeout = customerror.NewFailedToError(
	"finish request, timed out",
	customerror.WithStatusCode(http.StatusRequestTimeout),
)

//////
// Interfaces.
//////

// IServer defines what a server does.
type IServer interface {
	// GetLogger returns the server logger.
	GetLogger() sypl.ISypl

	// GetRegistry returns the connection registry.
	GetRegistry() *conntrack.Registry

	// GetRouter returns the server router.
	GetRouter() *mux.Router

	// GetState returns the current lifecycle state.
	GetState() ServerState

	GetTelemetry() telemetry.ITelemetry

	// Shutdown gracefully stops the server, see `ShutdownFuture`.
	Shutdown(reason string) *ShutdownFuture

	// Start the server. Blocks until shutdown completes.
	Start() error
}

//////
// Definitions.
//////

// Logging definition.
type Logging struct {
	// ConsoleLevel defines the level for the `Console` output.
	ConsoleLevel string `json:"console_level" validate:"required,gte=3,oneof=none fatal error info warn debug trace"`

	// RequestLevel defines the level for logging requests.
	RequestLevel string `json:"request_level" validate:"required,gte=3,oneof=none fatal error info warn debug trace"`

	// Filepath is the file path to optionally write logs.
	Filepath string `json:"filepath" validate:"omitempty,gte=3"`
}

// Timeout definition.
type Timeout struct {
	// ReadTimeout max duration for READING the entire request, including the
	// body, default: 35s.
	ReadTimeout time.Duration `json:"read_timeout"`

	// RequestTimeout max duration for a request before a `408` is written,
	// default: 30s.
	//
	// NOTE: It's automatically validated against other timeouts, and needs to
	// be smaller.
	RequestTimeout time.Duration `json:"request_timeout" validate:"ltfield=ReadTimeout"`

	// WriteTimeout max duration for WRITING the response, default: 35s.
	WriteTimeout time.Duration `json:"write_timeout"`

	// GracePeriod max duration to WAIT IN-FLIGHT CONNECTIONS on shutdown,
	// past which they're forcibly severed, default: 10s.
	GracePeriod time.Duration `json:"grace_period"`

	// DrainPollInterval between connection registry drain checks during
	// shutdown, default: 1s.
	DrainPollInterval time.Duration `json:"drain_poll_interval"`
}

// Server definition.
type Server struct {
	// Address is a TCP address to listen on, default: "127.0.0.1:8080".
	Address string `json:"address" validate:"tcp_addr"`

	// Name of the server.
	Name string `json:"name" validate:"required,gte=3"`

	// EnableMetrics controls whether metrics are enable, or not, default: true.
	EnableMetrics bool `json:"enable_metrics"`

	// EnableTelemetry controls whether telemetry are enable, or not,
	// default: true.
	EnableTelemetry bool `json:"enable_telemetry"`

	// Logging fine-control.
	*Logging `json:"logging" validate:"required"`

	// Timeouts fine-control.
	*Timeout `json:"timeout" validate:"required"`

	// Logger powered by Sypl.
	logger *sypl.Sypl `json:"-" validate:"required"`

	// Handlers added, and configured before the server starts.
	preLoadedHandlers []handler.Handler `json:"-"`

	// Observers receiving connection lifecycle events.
	observers []conntrack.Observer `json:"-"`

	// Registry of open transport connections.
	registry *conntrack.Registry `json:"-" validate:"required"`

	// Router powered by Gorilla Mux.
	router *mux.Router `json:"-" validate:"required"`

	// HTTP server powered by Golang's built-in http server.
	server http.Server `json:"-" validate:"required"`

	// Listener owned by `Start`; closed by the shutdown coordinator so new
	// accept attempts are refused, not queued.
	listener net.Listener `json:"-"`

	// Lifecycle state machine.
	states *StateMachine `json:"-" validate:"required"`

	// Telemetry powered by OpenTelemetry.
	telemetry telemetry.ITelemetry `json:"-"`

	// Shutdown coordination. `shutdownStarted` closes exactly once, when
	// the first shutdown request is admitted.
	shutdownMu      sync.Mutex
	shutdownFuture  *ShutdownFuture
	shutdownStarted chan struct{}
}

//////
// IServer implementation.
//////

// GetLogger returns the server logger.
func (s *Server) GetLogger() sypl.ISypl {
	return s.logger
}

// GetRegistry returns the connection registry.
func (s *Server) GetRegistry() *conntrack.Registry {
	return s.registry
}

// GetRouter returns the server router.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// GetState returns the current lifecycle state.
func (s *Server) GetState() ServerState {
	return s.states.Current()
}

// GetTelemetry returns telemetry.
func (s *Server) GetTelemetry() telemetry.ITelemetry {
	return s.telemetry
}

// Start the server. It blocks until shutdown completes - triggered by an OS
// signal (interrupt, terminate), a `Shutdown` call, or a recovered
// programming fault. A `nil` return means the drain cycle finished, forced
// or not, and the process may exit `0`. Bind failures are returned
// immediately, and should terminate the process with exit code `1`.
func (s *Server) Start() error {
	// One lifecycle cycle per instance: after a shutdown the trigger
	// channel is already closed, and re-binding would produce a listener
	// no coordinator could ever stop.
	select {
	case <-s.shutdownStarted:
		return customerror.NewFailedToError("start server, already shut down")
	default:
	}

	if !s.states.TryTransition(Stopped, Starting) {
		return customerror.NewFailedToError(
			fmt.Sprintf("start server, invalid state (%s)", s.states.Current()),
		)
	}

	// Instantiate the underlying HTTP server. The connection state hook
	// keeps the registry in sync with the transport layer.
	s.server = http.Server{
		Handler: s.admissionChain(),

		// Best practice setting timeouts. It avoid "slowloris" attacks.
		ReadTimeout:  s.Timeout.ReadTimeout,
		WriteTimeout: s.Timeout.WriteTimeout,

		ConnState: s.registry.StateHook(),
	}

	// Bind errors (e.g.: "port in use") are fatal at startup.
	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		return customerror.NewFailedToError(
			"bind "+s.Address,
			customerror.WithError(err),
		)
	}

	s.listener = listener

	serverErr := make(chan error, 1)

	// Non-blocking server start up.
	go func() {
		s.GetLogger().Debuglnf("server is about to start @ %s", s.Address)

		serverErr <- s.server.Serve(listener)
	}()

	s.states.TryTransition(Starting, Running)

	// Listen for "catchable" OS signals, forget SIGKILL...
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)

	defer signal.Stop(osSignals)

	// Block execution until a server error, or a shutdown trigger. Repeat
	// triggers while already stopping join the pending drain cycle.
	for {
		select {
		case err := <-serverErr:
			select {
			case <-s.shutdownStarted:
				// The coordinator closed the listener; `Serve` always
				// errors then. Wait the drain out.
				continue
			default:
				return err
			}
		case sig := <-osSignals:
			s.Shutdown(sig.String())
		case <-s.shutdownStarted:
			return s.shutdownFuture.Await()
		}
	}
}

//////
// Helpers.
//////

// admissionChain wraps the router: security headers first, then admission,
// then the per-request timeout, then panic recovery. Admission rejections
// never reach the router; panics write a `500`, and trigger one graceful
// shutdown cycle.
func (s *Server) admissionChain() http.Handler {
	var h http.Handler = s.router

	h = middleware.Recovery(s.GetLogger(), func(reason string) {
		s.Shutdown(reason)
	})(h)

	h = middleware.Timeout(s.Timeout.RequestTimeout, ErrRequestTimeout.Error())(h)

	h = middleware.Admission(s.GetLogger())(h)

	h = middleware.SecurityHeaders()(h)

	return h
}

// addHandler registers handlers against the router.
func addHandler(router *mux.Router, handlers ...handler.Handler) {
	for _, h := range handlers {
		router.HandleFunc(h.Path, h.Handler).Methods(h.Method)
	}
}

// publishServerMetrics publishes specific server's information.
func publishServerMetrics(s *Server) {
	expvar.Publish("server", metric.Server(s.Address, s.Name, os.Getpid()))

	expvar.Publish("connections", metric.Connections(s.registry))
}

//////
// Factory.
//////

// New is the web server factory. It returns a web server with observability:
// - Metrics: `cmdline`, `memstats`, `server`, and `connections`.
// - Telemetry: `stdout` exporter.
// - Logging: `error`, no file.
// - Pre-loaded handlers (OK, Hello, Liveness, and Stop).
func New(
	name, address string,
	opts ...Option,
) (IServer, error) {
	s := &Server{
		Address:         address,
		EnableMetrics:   true,
		EnableTelemetry: true,
		Logging: &Logging{
			ConsoleLevel: level.Error.String(),
			RequestLevel: level.Error.String(),
			Filepath:     "",
		},
		Name: name,
		Timeout: &Timeout{
			ReadTimeout:       defaultTimeout,
			RequestTimeout:    defaultRequestTimeout,
			WriteTimeout:      defaultTimeout,
			GracePeriod:       defaultGracePeriod,
			DrainPollInterval: defaultDrainPollInterval,
		},

		preLoadedHandlers: []handler.Handler{handler.OK(), handler.Hello(), handler.Liveness(), handler.Stop()},
		router:            mux.NewRouter(),
		states:            NewStateMachine(),
		shutdownStarted:   make(chan struct{}),
	}

	//////
	// Options processing.
	//////

	for _, opt := range opts {
		opt(s)
	}

	//////
	// Logging.
	//////

	s.logger = logger.Setup(
		frameworkName,
		s.Logging.ConsoleLevel,
		s.Logging.Filepath,
	).New(name)

	s.router.Use(middleware.Logger(s.logger, s.Logging.RequestLevel))

	//////
	// Connection registry.
	//////

	s.registry = conntrack.NewRegistry(s.observers...)

	//////
	// Routing.
	//////

	// A route matching the path, but not the method, still answers with the
	// admission whitelist - not the route-specific method set.
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", strings.Join(admission.AllowedMethods, ", "))

		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	//////
	// Telemetry.
	//////

	if s.EnableTelemetry {
		if s.GetTelemetry() == nil {
			defaultTelemetry, err := telemetry.NewDefault(name)
			if err != nil {
				return nil, err
			}

			s.telemetry = defaultTelemetry
		}

		s.GetRouter().Use(otelmux.Middleware(name))
	}

	//////
	// Validation.
	//////

	if err := validation.ValidateStruct(s); err != nil {
		return nil, err
	}

	//////
	// Load handlers.
	//////

	addHandler(s.GetRouter(), s.preLoadedHandlers...)

	//////
	// Server metrics.
	//////

	if s.EnableMetrics {
		// Publish Golang's metrics: cmdline, and memstats.
		expvar.PublishCmdLine()
		expvar.PublishMemStats()

		// Publish specific server's information.
		publishServerMetrics(s)

		// Gorilla Mux exp var route registration.
		addHandler(s.GetRouter(), handler.ExpVar())
	}

	return s, nil
}

// NewBasic returns a basic web server without observability:
// - Metrics
// - Telemetry
// - Logging
// - Pre-loaded handlers (OK, Hello, Liveness, and Stop).
func NewBasic(name, address string, opts ...Option) (IServer, error) {
	// Merge default options with new ones (`opts`).
	finalOpts := append([]Option{
		WithoutMetrics(),
		WithoutTelemetry(),
		WithoutLogging(),
	}, opts...)

	return New(name, address, finalOpts...)
}
