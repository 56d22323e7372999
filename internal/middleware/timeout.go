// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// Timeout bounds each request to `timeout`. Requests exceeding it receive a
// `408` with `message` as body - not the stdlib TimeoutHandler's `503`,
// which this server never produces.
//
// Modeled on `http.TimeoutHandler`: the inner handler runs against a
// buffered writer, and its output is discarded once the deadline fires.
func Timeout(timeout time.Duration, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			tw := &timeoutWriter{h: w.Header().Clone()}

			done := make(chan struct{})
			panicChan := make(chan interface{}, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicChan <- p
					}
				}()

				next.ServeHTTP(tw, r)

				close(done)
			}()

			select {
			case p := <-panicChan:
				panic(p)
			case <-done:
				tw.mu.Lock()
				defer tw.mu.Unlock()

				dst := w.Header()

				for name, values := range tw.h {
					dst[name] = values
				}

				if tw.code == 0 {
					tw.code = http.StatusOK
				}

				w.WriteHeader(tw.code)

				//nolint:errcheck
				w.Write(tw.buf.Bytes())
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()

				tw.timedOut = true

				w.WriteHeader(http.StatusRequestTimeout)

				//nolint:errcheck
				io.WriteString(w, message)
			}
		})
	}
}

// timeoutWriter buffers the inner handler's response so nothing is written
// to the wire after the deadline fired.
type timeoutWriter struct {
	h http.Header

	mu       sync.Mutex
	buf      bytes.Buffer
	code     int
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.h
}

func (tw *timeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}

	return tw.buf.Write(p)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut || tw.code != 0 {
		return
	}

	tw.code = code
}
