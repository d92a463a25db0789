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
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arianmotamedi/aspnetcore/events"
	"github.com/arianmotamedi/aspnetcore/metrics"
	"github.com/arianmotamedi/aspnetcore/tracing"
)

// Coordinator orchestrates per-request lifecycle bookkeeping across the
// event channel, the counter set, and the trace propagator. Every sink
// is optional; a nil sink degrades its notifications to no-ops without
// affecting the others.
//
// The coordinator itself never fails from its own bookkeeping. Panics
// raised by subscribed event listeners propagate to the caller.
type Coordinator struct {
	metrics *metrics.Recorder
	events  *events.Channel
	tracing *tracing.Propagator
	logger  *slog.Logger
	pool    *contextPool
}

// Option defines functional options for Coordinator configuration.
type Option func(*Coordinator)

// WithMetrics attaches the request counter set.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Coordinator) {
		c.metrics = r
	}
}

// WithEvents attaches the lifecycle event channel.
func WithEvents(ch *events.Channel) Option {
	return func(c *Coordinator) {
		c.events = ch
	}
}

// WithTracing attaches the trace propagator.
func WithTracing(p *tracing.Propagator) Option {
	return func(c *Coordinator) {
		c.tracing = p
	}
}

// WithLogger sets the base logger used by [Coordinator.RequestLogger].
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// New creates a Coordinator with the given options. A coordinator with
// no sinks attached is valid; every lifecycle notification becomes a
// no-op.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		pool: newContextPool(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start signals host startup: the HostStart event is emitted and the
// metrics sampler and exporters are started.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.events != nil {
		c.events.HostStart()
	}
	if c.metrics != nil {
		if err := c.metrics.Start(ctx); err != nil {
			return fmt.Errorf("start metrics: %w", err)
		}
	}
	return nil
}

// Shutdown signals host shutdown: the HostStop event is emitted and the
// attached sinks are shut down, flushing pending telemetry.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if c.events != nil {
		c.events.HostStop()
	}

	var errs []error
	if c.metrics != nil {
		if err := c.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.tracing != nil {
		if err := c.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// CreateContext allocates (or reuses from the pool) the lifecycle
// record for an inbound request and wires the correlation span into it
// when a tracing backend is active. Counters and lifecycle events are
// untouched until [Coordinator.StartRequest].
func (c *Coordinator) CreateContext(r *http.Request) *RequestContext {
	rc := c.pool.Get()
	rc.req = r
	rc.startedAt = time.Now()

	base := r.Context()
	rc.prevCtx = base
	rc.ctx = base

	if c.tracing != nil && c.tracing.Active() {
		rc.ctx, rc.span = c.tracing.StartRequest(base, r.Header)
	}

	return rc
}

// StartRequest marks the request in flight: the RequestStart event and
// the total/current counters fire together. No ordering is promised
// between the two sinks for an external observer.
func (c *Coordinator) StartRequest(rc *RequestContext) {
	if !rc.state.CompareAndSwap(stateCreated, stateStarted) {
		panic("hosting: StartRequest called on a request that already started")
	}

	if c.events != nil && c.events.Enabled() {
		path := ""
		if rc.req.URL != nil {
			path = rc.req.URL.Path
		}
		c.events.RequestStart(rc.req.Method, path)
	}

	if c.metrics != nil {
		c.metrics.RequestStart(rc.ctx)
	}
}

// DisposeContext completes the request. A non-nil err or a recorded
// status >= 500 counts the request as failed, exactly once. The
// in-flight counter is always decremented, the RequestStop event always
// fires, the span (if present) is ended, and the record returns to the
// pool with the context that was ambient before the request restored.
//
// Calling DisposeContext twice on the same record is a programmer
// error and panics rather than being silently tolerated.
func (c *Coordinator) DisposeContext(rc *RequestContext, err error) {
	switch prev := rc.state.Swap(stateCompleted); prev {
	case stateStarted:
		// Expected path.
	case stateCompleted:
		panic("hosting: DisposeContext called twice on the same request")
	default:
		panic("hosting: DisposeContext called before StartRequest")
	}

	status := rc.Status()
	failed := err != nil || status >= http.StatusInternalServerError

	if c.metrics != nil {
		if failed {
			c.metrics.RequestFailed(rc.ctx)
		}
		c.metrics.RequestStop(rc.ctx)
	}

	if c.events != nil && c.events.Enabled() {
		if err != nil {
			c.events.UnhandledException()
		}
		c.events.RequestStop()
	}

	if c.tracing != nil {
		c.tracing.FinishRequest(rc.span, status, err)
	}

	c.pool.Put(rc)
}

// RequestLogger returns a request-scoped logger carrying HTTP metadata
// and trace correlation fields. Always non-nil; without a configured
// base logger it discards everything.
func (c *Coordinator) RequestLogger(rc *RequestContext) *slog.Logger {
	return buildRequestLogger(c.logger, rc)
}
