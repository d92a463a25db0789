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

// Package tracing provides per-request trace correlation for the
// hosting telemetry core, built on OpenTelemetry tracing.
//
// A [Propagator] extracts inbound trace context from request headers
// using a pluggable propagation format (W3C Trace Context by default)
// and starts a server-kind span named [SpanName] for the request. If
// extraction finds no parent, the span is a new root. When no tracing
// backend is active, [Propagator.StartRequest] returns a nil span — the
// absent handle — and every consumer is expected to tolerate it.
//
// The ambient "current span" is carried in the returned context.Context
// rather than any thread-local state; callers that keep the pre-request
// context restore the previous ambient span by construction when the
// request completes.
//
// # Basic Usage
//
//	prop, err := tracing.New(
//	    tracing.WithServiceName("my-api"),
//	    tracing.WithProvider(tracing.StdoutProvider),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer prop.Shutdown(context.Background())
//
//	ctx, span := prop.StartRequest(r.Context(), r.Header)
//	defer prop.FinishRequest(span, statusCode, nil)
//
// # Global State
//
// By default, this package does NOT set the global OpenTelemetry tracer
// provider. Use [WithGlobalTracerProvider] if you want global
// registration; this allows multiple configurations to coexist in the
// same process.
package tracing
