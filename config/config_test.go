// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Hostname)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.GracePeriod)
	assert.Equal(t, 1*time.Second, cfg.DrainPollInterval)
	assert.False(t, cfg.Privileged())
}

func TestLoad_loopbackOnly(t *testing.T) {
	t.Setenv("WICKET_HOSTNAME", "localhost")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Hostname)

	// Binding to any other interface is rejected at configuration time.
	for _, hostname := range []string{"0.0.0.0", "192.168.0.10", "example.com"} {
		t.Setenv("WICKET_HOSTNAME", hostname)

		_, err := Load()

		assert.Error(t, err, "hostname %s should be rejected", hostname)
	}
}

// Overrides applied after `Load` (e.g. flags) must go through `Validate`
// again; non-loopback hostnames stay rejected.
func TestValidate_mutatedHostname(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Hostname = "0.0.0.0"

	assert.Error(t, cfg.Validate())
}

func TestLoad_portRange(t *testing.T) {
	t.Setenv("WICKET_PORT", "0")

	_, err := Load()

	assert.Error(t, err)

	t.Setenv("WICKET_PORT", "65536")

	_, err = Load()

	assert.Error(t, err)

	// Below 1024: accepted, but flagged as requiring elevated privilege.
	t.Setenv("WICKET_PORT", "80")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.Privileged())
}
