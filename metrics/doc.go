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

// Package metrics provides the request counter set for the hosting
// telemetry core, built on OpenTelemetry metrics.
//
// A [Recorder] owns four instruments:
//   - total-requests: monotonic counter of requests started
//   - current-requests: up-down counter of requests in flight
//   - failed-requests: monotonic counter of failed requests
//   - requests-per-second: rate derived from total-requests over a
//     configurable sampling interval (default 1s)
//
// The counters are additionally mirrored in process-local atomics so
// that [Recorder.Snapshot] can serve a pull-based read without going
// through an exporter.
//
// # Basic Usage
//
//	recorder := metrics.MustNew(
//	    metrics.WithPrometheus(":9090", "/metrics"),
//	    metrics.WithServiceName("my-service"),
//	)
//	_ = recorder.Start(ctx)
//	defer recorder.Shutdown(context.Background())
//
//	recorder.RequestStart(ctx)
//	// ... handle request ...
//	recorder.RequestStop(ctx)
//
// # Thread Safety
//
// RequestStart, RequestStop, RequestFailed, and Snapshot are safe for
// concurrent use from any goroutine and never return errors; a missing
// or detached exporter degrades them to counter updates only.
//
// # Providers
//
// Four providers are supported:
//   - [NoopProvider] (default): counters update, nothing is exported
//   - [PrometheusProvider]: exposes instruments via an HTTP endpoint
//   - [OTLPProvider]: pushes instruments to an OTLP collector
//   - [StdoutProvider]: prints instruments to stdout (development)
//
// By default this package does NOT set the global OpenTelemetry meter
// provider. Use [WithGlobalMeterProvider] if you want global
// registration; this allows multiple [Recorder] instances to coexist in
// the same process.
package metrics
