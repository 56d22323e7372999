// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

// Package middleware provides the handler chain wrapping the router:
// security headers, admission, per-request timeout, panic recovery, and
// request logging. Admission rejections are written here, bypassing the
// router entirely.
package middleware

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/saucelabs/sypl"
	"github.com/saucelabs/sypl/level"

	"github.com/wicketd/wicket/admission"
)

//////
// Const, and vars.
//////

// Fixed security response headers attached to every response regardless of
// outcome.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Content-Security-Policy":   "default-src 'none'",
	"Referrer-Policy":           "no-referrer",
}

//////
// Middlewares.
//////

// SecurityHeaders attaches the fixed security headers before any other
// middleware gets a chance to write.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for name, value := range securityHeaders {
				w.Header().Set(name, value)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Admission validates the request method, raw URL, and headers. Rejections
// produce a terminal response - `405` carrying the `Allow` whitelist, or
// `400` - and never reach the router.
func Admission(l sypl.ISypl) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verdict := admission.Validate(r.Method, r.RequestURI, r.Header)

			if verdict.Admitted() {
				next.ServeHTTP(w, r)

				return
			}

			if verdict.StatusCode == http.StatusMethodNotAllowed {
				w.Header().Set("Allow", verdict.AllowHeader())
			}

			l.Debuglnf("request rejected (%d): %s %s, %s",
				verdict.StatusCode, r.Method, r.RequestURI, verdict.Reason)

			http.Error(w, verdict.Reason, verdict.StatusCode)
		})
	}
}

// Recovery contains programming faults: the panic is logged, a `500` is
// written, and `trigger` is invoked so the server runs one graceful
// shutdown cycle instead of swallowing the fault.
func Recovery(l sypl.ISypl, trigger func(reason string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}

				l.Errorlnf("recovered from panic: %v", p)

				http.Error(w,
					http.StatusText(http.StatusInternalServerError),
					http.StatusInternalServerError,
				)

				if trigger != nil {
					go trigger(fmt.Sprintf("panic: %v", p))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Logger logs every routed request through Sypl at `logLevel`.
func Logger(l sypl.ISypl, logLevel string) mux.MiddlewareFunc {
	requestLevel := level.MustFromString(logLevel)

	return func(next http.Handler) http.Handler {
		if requestLevel == level.None {
			return next
		}

		return handlers.CustomLoggingHandler(io.Discard, next,
			func(_ io.Writer, params handlers.LogFormatterParams) {
				l.Printlnf(requestLevel, "%s %s %d %dB",
					params.Request.Method,
					params.URL.RequestURI(),
					params.StatusCode,
					params.Size,
				)
			})
	}
}
