// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package admission

import (
	"net/http"
	"strings"
)

//////
// Const, and vars.
//////

const (
	// MaxURLLength is the maximum accepted raw URL length, in bytes.
	MaxURLLength = 2048

	// MaxHeaderSize is the maximum accepted serialized header size, in bytes.
	MaxHeaderSize = 8192
)

// AllowedMethods is the fixed method whitelist. Anything else is rejected
// with `405`.
var AllowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodHead,
	http.MethodOptions,
}

// Traversal signatures matched - case-insensitively - as raw substrings
// against the URL. Matching is deliberately NOT canonicalization-based: it
// over-rejects benign encoded content, and under-rejects encodings not on
// the list. Defense-in-depth heuristic, not a complete path normalizer.
var traversalSignatures = []string{
	"../",
	"..\\",
	"..;/",
	"..%2f",
	"..%5c",
	"%2e%2e/",
	"%2e%2e\\",
	"%2e%2e%2f",
	"%2e%2e%5c",
	"%252e%252e%252f",
	"%252e%252e%255c",
	"%u002e%u002e%u002f",
	"%u002e%u002e%u005c",
}

// Markup/script injection signatures matched - case-insensitively - against
// the serialized headers.
var injectionSignatures = []string{
	"<script",
	"javascript:",
	"vbscript:",
	"onload=",
}

//////
// Definition.
//////

// Verdict is the result of validating a request: either admitted, or
// rejected with a terminal status code, and reason. Never both.
type Verdict struct {
	// StatusCode of the terminal response, `0` when admitted.
	StatusCode int

	// Reason for the rejection, empty when admitted.
	Reason string

	// Allow lists the accepted methods. Only set on `405` rejections, to be
	// written as the `Allow` response header.
	Allow []string
}

// Admitted indicates the request is safe to dispatch to the router.
func (v Verdict) Admitted() bool {
	return v.StatusCode == 0
}

// AllowHeader returns the `Allow` header value for `405` rejections.
func (v Verdict) AllowHeader() string {
	return strings.Join(v.Allow, ", ")
}

//////
// Helpers.
//////

func admit() Verdict {
	return Verdict{}
}

func reject(statusCode int, reason string) Verdict {
	return Verdict{StatusCode: statusCode, Reason: reason}
}

// Serialized size of all headers, as `Key: value\r\n`.
func headerSize(headers http.Header) int {
	size := 0

	for name, values := range headers {
		for _, value := range values {
			size += len(name) + len(": ") + len(value) + len("\r\n")
		}
	}

	return size
}

func containsAny(s string, signatures []string) bool {
	for _, signature := range signatures {
		if strings.Contains(s, signature) {
			return true
		}
	}

	return false
}

//////
// Validator.
//////

// Validate decides whether an inbound request is well-formed, and safe to
// dispatch. Pure: no side effects, suitable for testing in isolation from
// any socket.
//
// Checks run in a fixed order - method, URL, then headers - and the first
// failure short-circuits.
func Validate(method, rawURL string, headers http.Header) Verdict {
	// Method whitelist.
	allowed := false

	for _, m := range AllowedMethods {
		if method == m {
			allowed = true

			break
		}
	}

	if !allowed {
		v := reject(http.StatusMethodNotAllowed, "method not allowed")

		v.Allow = AllowedMethods

		return v
	}

	// URL bounds, and traversal signatures.
	if len(rawURL) > MaxURLLength {
		return reject(http.StatusBadRequest, "url exceeds maximum length")
	}

	if containsAny(strings.ToLower(rawURL), traversalSignatures) {
		return reject(http.StatusBadRequest, "url contains path traversal")
	}

	// Header bounds, and injection signatures.
	if headerSize(headers) > MaxHeaderSize {
		return reject(http.StatusBadRequest, "headers exceed maximum size")
	}

	for name, values := range headers {
		serialized := strings.ToLower(name + ": " + strings.Join(values, ","))

		if containsAny(serialized, injectionSignatures) {
			return reject(http.StatusBadRequest, "headers contain markup injection")
		}
	}

	return admit()
}
