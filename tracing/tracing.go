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

package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanName is the fixed logical name of the per-request span.
const SpanName = "RequestIn"

// tracerScope is the stable instrumentation scope name the request
// spans are produced under.
const tracerScope = "github.com/arianmotamedi/aspnetcore/tracing"

const (
	// DefaultServiceName is the default service name used for tracing when none is provided.
	DefaultServiceName = "aspnetcore-host"

	// DefaultServiceVersion is the default service version when none is provided.
	DefaultServiceVersion = "1.0.0"
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., failed to export spans).
	EventError EventType = iota
	// EventWarning indicates a warning event (e.g., deprecated configuration).
	EventWarning
	// EventInfo indicates an informational event (e.g., tracing initialized).
	EventInfo
	// EventDebug indicates a debug event (e.g., detailed operation logs).
	EventDebug
)

// Event represents an internal operational event from the tracing package.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events from the tracing package.
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to the provided slog.Logger.
// This is the default implementation used by WithLogger.
//
// If logger is nil, returns a no-op handler that discards all events.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {} // no-op
	}
	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

// Provider represents the available tracing providers.
type Provider string

const (
	// NoopProvider produces no spans at all (default). StartRequest
	// returns a nil span handle while this provider is active.
	NoopProvider Provider = "noop"

	// StdoutProvider exports traces to stdout (development/testing).
	StdoutProvider Provider = "stdout"

	// OTLPProvider exports traces via OTLP gRPC protocol.
	OTLPProvider Provider = "otlp"

	// OTLPHTTPProvider exports traces via OTLP HTTP protocol.
	OTLPHTTPProvider Provider = "otlp-http"
)

// Propagator holds the per-request span lifecycle and trace-context
// propagation configuration. Immutable after creation via [New]; all
// methods are safe for concurrent use.
type Propagator struct {
	tracer         trace.Tracer
	propagator     propagation.TextMapPropagator
	tracerProvider trace.TracerProvider
	sdkProvider    *sdktrace.TracerProvider
	eventHandler   EventHandler

	serviceName    string
	serviceVersion string
	otlpEndpoint   string
	provider       Provider

	shutdownOnce sync.Once
	shutdownErr  error

	validationErrors []error

	otlpInsecure         bool
	enabled              bool
	customTracerProvider bool
	registerGlobal       bool
}

// New creates a new [Propagator] with the given options.
// Returns an error if the tracing provider fails to initialize.
// For a version that panics on error, use [MustNew].
//
// Default configuration:
//   - Service name: [DefaultServiceName]
//   - Provider: [NoopProvider] (no spans produced)
//   - Propagation: W3C Trace Context
func New(opts ...Option) (*Propagator, error) {
	p := newDefaultPropagator()

	for _, opt := range opts {
		opt(p)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := p.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return p, nil
}

// MustNew creates a new [Propagator] with the given options.
// It panics if the tracing provider fails to initialize.
func MustNew(opts ...Option) *Propagator {
	p, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize tracing: %v", err))
	}
	return p
}

// newDefaultPropagator creates a Propagator with default values.
func newDefaultPropagator() *Propagator {
	return &Propagator{
		enabled:        true,
		serviceName:    DefaultServiceName,
		serviceVersion: DefaultServiceVersion,
		propagator:     propagation.TraceContext{},
		provider:       NoopProvider,
	}
}

// validate checks that the configuration is valid.
func (p *Propagator) validate() error {
	if len(p.validationErrors) > 0 {
		var errMsgs []string
		for _, err := range p.validationErrors {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("validation errors: %s", strings.Join(errMsgs, "; "))
	}

	if p.serviceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}

	if p.serviceVersion == "" {
		return fmt.Errorf("service version cannot be empty")
	}

	switch p.provider {
	case NoopProvider, StdoutProvider:
		// No specific validation needed
	case OTLPProvider:
		if p.otlpEndpoint == "" {
			p.emitWarning("OTLP endpoint not specified, will use default", "default", "localhost:4317")
			p.otlpEndpoint = "localhost:4317"
		}
	case OTLPHTTPProvider:
		if p.otlpEndpoint == "" {
			p.emitWarning("OTLP endpoint not specified, will use default", "default", "http://localhost:4318")
			p.otlpEndpoint = "http://localhost:4318"
		}
	default:
		return fmt.Errorf("unsupported tracing provider: %s", p.provider)
	}

	return nil
}

// Active reports whether a tracing backend is subscribed, i.e. whether
// [Propagator.StartRequest] will produce real spans. With the default
// noop provider and no custom tracer this is false and span creation is
// a cheap no-op returning a nil handle.
func (p *Propagator) Active() bool {
	return p.enabled && p.tracer != nil
}

// IsEnabled returns true if tracing is enabled.
func (p *Propagator) IsEnabled() bool {
	return p.enabled
}

// ServiceName returns the service name.
func (p *Propagator) ServiceName() string {
	return p.serviceName
}

// ServiceVersion returns the service version.
func (p *Propagator) ServiceVersion() string {
	return p.serviceVersion
}

// GetProvider returns the current tracing provider.
func (p *Propagator) GetProvider() Provider {
	if !p.enabled {
		return ""
	}
	return p.provider
}

// GetPropagator returns the configured text map propagator.
func (p *Propagator) GetPropagator() propagation.TextMapPropagator {
	return p.propagator
}

// StartRequest begins the span for an inbound request. The parent trace
// context is extracted from headers using the configured propagation
// format; if extraction fails or finds nothing, the span is a new root.
//
// The returned context carries the span as the ambient current span for
// downstream code; spans started from it become children and do not
// replace the handle returned here. When no tracing backend is active,
// the original context and a nil span are returned, and callers must
// tolerate the nil handle throughout the request's lifetime.
func (p *Propagator) StartRequest(ctx context.Context, headers http.Header) (context.Context, trace.Span) {
	if !p.Active() {
		return ctx, nil
	}

	ctx = p.propagator.Extract(ctx, propagation.HeaderCarrier(headers))

	return p.tracer.Start(ctx, SpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("service.name", p.serviceName),
			attribute.String("service.version", p.serviceVersion),
		),
	)
}

// FinishRequest completes the request span. Safe to call with a nil
// span (the absent handle). The span status is derived from the
// outcome: an error or a status code >= 500 marks it failed. Ending the
// span is what releases it; the caller restores the previous ambient
// context by resuming on the context it held before StartRequest.
func (p *Propagator) FinishRequest(span trace.Span, statusCode int, err error) {
	if span == nil || !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int("http.status_code", statusCode))

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case statusCode >= http.StatusInternalServerError:
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
	default:
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// Inject writes the trace context from ctx into headers so it can
// propagate across service boundaries. No-op when tracing is inactive.
func (p *Propagator) Inject(ctx context.Context, headers http.Header) {
	if !p.enabled {
		return
	}
	p.propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}

// Shutdown gracefully shuts down the tracing system, flushing pending
// spans. Idempotent; concurrent calls wait for the same shutdown.
func (p *Propagator) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}

	p.shutdownOnce.Do(func() {
		// User-provided providers are managed by the user
		if p.sdkProvider != nil && !p.customTracerProvider {
			p.emitDebug("Shutting down tracer provider")
			if err := p.sdkProvider.Shutdown(ctx); err != nil {
				p.emitError("Error shutting down tracer provider", "error", err)
				p.shutdownErr = fmt.Errorf("tracer provider shutdown: %w", err)
				return
			}
		} else if p.customTracerProvider {
			p.emitDebug("Skipping shutdown of custom tracer provider (managed by user)")
		}
	})

	return p.shutdownErr
}

// emitError emits an error event if an event handler is configured.
func (p *Propagator) emitError(msg string, args ...any) {
	if p.eventHandler != nil {
		p.eventHandler(Event{Type: EventError, Message: msg, Args: args})
	}
}

// emitWarning emits a warning event if an event handler is configured.
func (p *Propagator) emitWarning(msg string, args ...any) {
	if p.eventHandler != nil {
		p.eventHandler(Event{Type: EventWarning, Message: msg, Args: args})
	}
}

// emitInfo emits an info event if an event handler is configured.
func (p *Propagator) emitInfo(msg string, args ...any) {
	if p.eventHandler != nil {
		p.eventHandler(Event{Type: EventInfo, Message: msg, Args: args})
	}
}

// emitDebug emits a debug event if an event handler is configured.
func (p *Propagator) emitDebug(msg string, args ...any) {
	if p.eventHandler != nil {
		p.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
	}
}

// TraceID returns the current trace ID from the active span in the context.
// Returns an empty string if no active span or span context is invalid.
func TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// SpanID returns the current span ID from the active span in the context.
// Returns an empty string if no active span or span context is invalid.
func SpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
