// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

// wicket runs a minimal localhost-bound HTTP server with request admission,
// and graceful, time-bounded shutdown.
//
// Configuration comes from the environment (`WICKET_*` variables, or a
// `.env` file), optionally overridden by flags. Exits `0` on graceful
// completion - forced-drain included - and `1` if the listener fails to
// bind, e.g. port already in use.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wicketd/wicket"
	"github.com/wicketd/wicket/config"
)

const serverName = "wicket"

var (
	hostname string
	port     int
)

var rootCmd = &cobra.Command{
	Use:           "wicket",
	Short:         "Minimal localhost-bound HTTP server with request admission",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("hostname") {
			cfg.Hostname = hostname
		}

		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}

		// Flag overrides bypass Load's validation; re-check so a
		// non-loopback hostname is rejected here, not bound.
		if err := cfg.Validate(); err != nil {
			return err
		}

		server, err := wicket.New(serverName, cfg.Address(),
			wicket.WithTimeout(cfg.ReadTimeout, cfg.RequestTimeout, cfg.WriteTimeout),
			wicket.WithGracePeriod(cfg.GracePeriod),
			wicket.WithDrainPollInterval(cfg.DrainPollInterval),
			wicket.WithLoggingOptions(cfg.ConsoleLevel, cfg.RequestLevel, cfg.Filepath),
		)
		if err != nil {
			return err
		}

		if cfg.Privileged() {
			server.GetLogger().Warnlnf("port %d requires elevated privilege", cfg.Port)
		}

		// Blocks until shutdown completes; `nil` covers forced drains too.
		return server.Start()
	},
}

func init() {
	rootCmd.Flags().StringVar(&hostname, "hostname", "127.0.0.1", "hostname to bind (loopback only)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "port to bind")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		os.Exit(1)
	}
}
