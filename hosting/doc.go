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

// Package hosting coordinates the request lifecycle across the three
// telemetry sinks: lifecycle events, request counters, and trace spans.
//
// A [Coordinator] creates one [RequestContext] per inbound request and
// drives it through Created → Started → Completed. Each sink is
// optional; an absent sink is a no-op, and no sink's absence affects the
// others.
//
//	coord := hosting.New(
//	    hosting.WithMetrics(recorder),
//	    hosting.WithEvents(channel),
//	    hosting.WithTracing(propagator),
//	)
//	_ = coord.Start(ctx)
//	defer coord.Shutdown(context.Background())
//
//	handler := coord.Middleware(mux)
//
// Or drive the lifecycle manually:
//
//	rc := coord.CreateContext(req)
//	coord.StartRequest(rc)
//	// ... execute the request ...
//	rc.SetStatus(statusCode)
//	coord.DisposeContext(rc, err)
//
// Requests run concurrently; each owns its RequestContext exclusively
// from CreateContext to DisposeContext. The only state shared between
// requests is the metrics counter set, which is atomic. Disposing the
// same context twice is a programmer error and panics.
//
// Panics raised by event listeners during emission are not contained by
// the coordinator; they propagate to the caller of the lifecycle method
// that triggered the emission.
package hosting
