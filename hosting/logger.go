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
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// buildRequestLogger creates a request-scoped logger with HTTP metadata
// and trace correlation fields. Always returns a non-nil logger.
func buildRequestLogger(base *slog.Logger, rc *RequestContext) *slog.Logger {
	if base == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	path := ""
	if rc.req.URL != nil {
		path = rc.req.URL.Path
	}

	attrs := []any{
		"http.method", rc.req.Method,
		"http.target", path,
	}

	if reqID := rc.req.Header.Get("X-Request-ID"); reqID != "" {
		attrs = append(attrs, "request_id", reqID)
	}

	logger := base.With(attrs...)

	// Trace correlation when a span is active on the request context.
	if span := trace.SpanFromContext(rc.Context()); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		logger = logger.With(
			"trace_id", sc.TraceID().String(),
			"span_id", sc.SpanID().String(),
		)
	}

	return logger
}
