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
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Lifecycle states of a RequestContext.
const (
	stateCreated int32 = iota
	stateStarted
	stateCompleted
)

// RequestContext is the per-request lifecycle record. Exactly one
// exists per request, owned exclusively by the coordinator from
// CreateContext to DisposeContext. Instances are pooled; after
// DisposeContext the record must not be used.
type RequestContext struct {
	req *http.Request

	// ctx is the ambient request context. When a tracing backend is
	// active it carries the span, so downstream spans started from it
	// nest correctly under the request span.
	ctx context.Context

	// prevCtx is the context that was ambient before the request span
	// started. Completion hands control back to it, restoring the
	// caller's ambient state.
	prevCtx context.Context

	// span is the correlation span handle, nil when no tracing backend
	// was active at creation time.
	span trace.Span

	startedAt  time.Time
	statusCode atomic.Int32 // set lazily when the response is finalized
	state      atomic.Int32
}

// Request returns the inbound request this record tracks.
func (rc *RequestContext) Request() *http.Request {
	return rc.req
}

// Context returns the ambient context for the request. When a tracing
// backend is active it carries the request span.
func (rc *RequestContext) Context() context.Context {
	return rc.ctx
}

// Activity returns the request's correlation span. This is the
// capability lookup for downstream consumers: it returns the identical
// span instance created at CreateContext time on every call, and nil —
// never an error — when no tracing backend was active.
func (rc *RequestContext) Activity() trace.Span {
	return rc.span
}

// StartedAt returns the time the record was created.
func (rc *RequestContext) StartedAt() time.Time {
	return rc.startedAt
}

// SetStatus records the response status code. Called when the response
// is finalized; the value classifies the request as failed when >= 500.
func (rc *RequestContext) SetStatus(code int) {
	rc.statusCode.Store(int32(code))
}

// Status returns the recorded response status code, defaulting to 200
// when none was set.
func (rc *RequestContext) Status() int {
	if code := rc.statusCode.Load(); code != 0 {
		return int(code)
	}
	return http.StatusOK
}

// reset clears the record for reuse from the pool.
func (rc *RequestContext) reset() {
	rc.req = nil
	rc.ctx = nil
	rc.prevCtx = nil
	rc.span = nil
	rc.startedAt = time.Time{}
	rc.statusCode.Store(0)
	rc.state.Store(stateCreated)
}
