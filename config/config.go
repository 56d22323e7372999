// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

// Package config loads, and validates server configuration from the
// environment, and an optional `.env` file.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/saucelabs/customerror"

	"github.com/wicketd/wicket/internal/validation"
)

// Ports below this require elevated privilege to bind. Accepted, but
// flagged.
const privilegedPortCeiling = 1024

//////
// Definition.
//////

// Config definition.
type Config struct {
	// Hostname to bind. Loopback only: `127.0.0.1`, or `localhost`. Any
	// other interface is rejected here, not at the socket layer.
	Hostname string `env:"WICKET_HOSTNAME" envDefault:"127.0.0.1" json:"hostname" validate:"required,loopback"`

	// Port to bind, 1-65535.
	Port int `env:"WICKET_PORT" envDefault:"8080" json:"port" validate:"min=1,max=65535"`

	// ReadTimeout max duration for READING the entire request, including
	// the body, default: 35s.
	ReadTimeout time.Duration `env:"WICKET_READ_TIMEOUT" envDefault:"35s" json:"read_timeout"`

	// RequestTimeout max duration for a request before a `408` is written,
	// default: 30s.
	RequestTimeout time.Duration `env:"WICKET_REQUEST_TIMEOUT" envDefault:"30s" json:"request_timeout"`

	// WriteTimeout max duration for WRITING the response, default: 35s.
	WriteTimeout time.Duration `env:"WICKET_WRITE_TIMEOUT" envDefault:"35s" json:"write_timeout"`

	// GracePeriod max duration to WAIT IN-FLIGHT CONNECTIONS on shutdown
	// before they're forcibly severed, default: 10s.
	GracePeriod time.Duration `env:"WICKET_GRACE_PERIOD" envDefault:"10s" json:"grace_period"`

	// DrainPollInterval between registry drain checks during shutdown,
	// default: 1s.
	DrainPollInterval time.Duration `env:"WICKET_DRAIN_POLL_INTERVAL" envDefault:"1s" json:"drain_poll_interval"`

	// ConsoleLevel defines the level for the `Console` output.
	ConsoleLevel string `env:"WICKET_LOG_LEVEL" envDefault:"info" json:"console_level" validate:"required,oneof=none fatal error info warn debug trace"`

	// RequestLevel defines the level for logging requests.
	RequestLevel string `env:"WICKET_REQUEST_LOG_LEVEL" envDefault:"debug" json:"request_level" validate:"required,oneof=none fatal error info warn debug trace"`

	// Filepath is the file path to optionally write logs.
	Filepath string `env:"WICKET_LOG_FILEPATH" json:"filepath" validate:"omitempty,gte=3"`
}

//////
// Config implementation.
//////

// Address returns the TCP address to listen on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Hostname, strconv.Itoa(c.Port))
}

// Privileged indicates the configured port requires elevated privilege.
func (c *Config) Privileged() bool {
	return c.Port < privilegedPortCeiling
}

// Validate checks the configuration. Must be called again after mutating a
// loaded configuration, e.g. applying flag overrides - the loopback rule
// only holds for values that went through it.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c)
}

//////
// Factory.
//////

// Load reads configuration from an optional `.env` file, then the
// environment, and validates it.
func Load() (*Config, error) {
	// Missing `.env` isn't an error.
	//nolint:errcheck
	godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, customerror.NewFailedToError(
			"parse configuration from environment",
			customerror.WithError(err),
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
