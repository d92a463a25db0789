// Copyright 2026 Arian Motamedi
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hosting

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
)

// Middleware wraps next with the full request lifecycle: a record is
// created and started before next runs, the response status is
// captured, and the record is disposed exactly once afterwards. A
// panicking handler is counted as failed, reported as an unhandled
// exception, and then re-panicked so the server's own recovery still
// sees it.
func (c *Coordinator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := c.CreateContext(r)
		c.StartRequest(rc)

		sw := &statusWriter{ResponseWriter: w}
		req := r.WithContext(rc.Context())

		defer func() {
			if rec := recover(); rec != nil {
				rc.SetStatus(http.StatusInternalServerError)
				c.DisposeContext(rc, fmt.Errorf("handler panic: %v", rec))
				panic(rec)
			}
			rc.SetStatus(sw.StatusCode())
			c.DisposeContext(rc, nil)
		}()

		next.ServeHTTP(sw, req)
	})
}

// statusWriter wraps http.ResponseWriter to capture response metadata.
// It preserves the optional interfaces commonly asserted by handlers.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.ResponseWriter.WriteHeader(code)
		sw.written = true
	}
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.written = true
		sw.statusCode = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.size += int64(n)
	return n, err
}

// StatusCode returns the recorded status, defaulting to 200 when the
// handler never wrote a header.
func (sw *statusWriter) StatusCode() int {
	if sw.statusCode == 0 {
		return http.StatusOK
	}
	return sw.statusCode
}

// Size returns the number of response body bytes written.
func (sw *statusWriter) Size() int64 {
	return sw.size
}

// Preserve http.Hijacker (for WebSockets, HTTP/2, etc.)
func (sw *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := sw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}

// Preserve http.Flusher (for streaming responses)
func (sw *statusWriter) Flush() {
	if flusher, ok := sw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Preserve http.Pusher (for HTTP/2 server push)
func (sw *statusWriter) Push(target string, opts *http.PushOptions) error {
	if pusher, ok := sw.ResponseWriter.(http.Pusher); ok {
		return pusher.Push(target, opts)
	}
	return fmt.Errorf("response writer does not support push")
}

// Preserve io.ReaderFrom (for io.Copy)
func (sw *statusWriter) ReadFrom(r io.Reader) (int64, error) {
	if rf, ok := sw.ResponseWriter.(io.ReaderFrom); ok {
		n, err := rf.ReadFrom(r)
		sw.size += n
		if !sw.written {
			sw.written = true
			if sw.statusCode == 0 {
				sw.statusCode = http.StatusOK
			}
		}
		return n, err
	}

	n, err := io.Copy(sw.ResponseWriter, r)
	sw.size += n
	if !sw.written {
		sw.written = true
		if sw.statusCode == 0 {
			sw.statusCode = http.StatusOK
		}
	}
	return n, err
}
