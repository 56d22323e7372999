// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package admission

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_methods(t *testing.T) {
	for _, method := range AllowedMethods {
		v := Validate(method, "/hello", http.Header{})

		assert.True(t, v.Admitted(), "method %s should be admitted", method)
	}

	for _, method := range []string{"TRACE", "CONNECT", "PROPFIND", "BREW"} {
		v := Validate(method, "/hello", http.Header{})

		require.False(t, v.Admitted(), "method %s should be rejected", method)
		assert.Equal(t, http.StatusMethodNotAllowed, v.StatusCode)
		assert.Equal(t, "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS", v.AllowHeader())
	}
}

func TestValidate_traversal(t *testing.T) {
	tests := []string{
		"/a/../b",
		"/..\\windows\\system32",
		"/%2e%2e%2fetc/passwd",
		"/%2E%2E%2Fetc/passwd",
		"/%252e%252e%252fetc/passwd",
		"/..%2fetc/passwd",
		"/..;/etc/passwd",
		"/%u002e%u002e%u002fetc/passwd",
	}

	for _, rawURL := range tests {
		v := Validate(http.MethodGet, rawURL, http.Header{})

		require.False(t, v.Admitted(), "url %s should be rejected", rawURL)
		assert.Equal(t, http.StatusBadRequest, v.StatusCode)
	}
}

func TestValidate_urlLength(t *testing.T) {
	v := Validate(http.MethodGet, "/"+strings.Repeat("a", MaxURLLength), http.Header{})

	require.False(t, v.Admitted())
	assert.Equal(t, http.StatusBadRequest, v.StatusCode)

	v = Validate(http.MethodGet, "/"+strings.Repeat("a", MaxURLLength-1), http.Header{})

	assert.True(t, v.Admitted())
}

func TestValidate_headers(t *testing.T) {
	injected := http.Header{}
	injected.Set("X-Payload", "<SCRIPT>alert(1)</SCRIPT>")

	v := Validate(http.MethodGet, "/hello", injected)

	require.False(t, v.Admitted())
	assert.Equal(t, http.StatusBadRequest, v.StatusCode)

	oversized := http.Header{}
	oversized.Set("X-Big", strings.Repeat("a", MaxHeaderSize))

	v = Validate(http.MethodGet, "/hello", oversized)

	require.False(t, v.Admitted())
	assert.Equal(t, http.StatusBadRequest, v.StatusCode)

	benign := http.Header{}
	benign.Set("Accept", "text/html")
	benign.Set("User-Agent", "curl/8.0")

	assert.True(t, Validate(http.MethodGet, "/hello", benign).Admitted())
}

// Method is checked before the URL, the URL before the headers.
func TestValidate_order(t *testing.T) {
	injected := http.Header{}
	injected.Set("X-Payload", "javascript:alert(1)")

	v := Validate("TRACE", "/a/../b", injected)

	assert.Equal(t, http.StatusMethodNotAllowed, v.StatusCode)

	v = Validate(http.MethodGet, "/a/../b", injected)

	assert.Equal(t, http.StatusBadRequest, v.StatusCode)
	assert.Equal(t, "url contains path traversal", v.Reason)
}
