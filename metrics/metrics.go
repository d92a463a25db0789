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

package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	promclient "github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Instrument names published to attached collectors.
const (
	TotalRequestsName     = "total-requests"
	CurrentRequestsName   = "current-requests"
	FailedRequestsName    = "failed-requests"
	RequestsPerSecondName = "requests-per-second"
)

// DefaultSampleInterval is the default window over which the
// requests-per-second rate is derived.
const DefaultSampleInterval = time.Second

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., failed to export metrics).
	EventError EventType = iota
	// EventWarning indicates a warning event (e.g., deprecated configuration).
	EventWarning
	// EventInfo indicates an informational event (e.g., metrics server started).
	EventInfo
	// EventDebug indicates a debug event (e.g., detailed operation logs).
	EventDebug
)

// Event represents an internal operational event from the metrics package.
// Events are used to report errors, warnings, and informational messages
// about the metrics system's operation. They are unrelated to the
// request lifecycle events emitted by the events package.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events from the metrics package.
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

// Provider represents the available metrics providers.
type Provider string

const (
	// NoopProvider keeps counters in process without exporting (default).
	NoopProvider Provider = "noop"
	// PrometheusProvider uses the Prometheus exporter for metrics.
	PrometheusProvider Provider = "prometheus"
	// OTLPProvider uses the OTLP HTTP exporter for metrics.
	OTLPProvider Provider = "otlp"
	// StdoutProvider uses the stdout exporter for metrics (development/testing).
	StdoutProvider Provider = "stdout"
)

// CounterSnapshot is a point-in-time read of the counter set. Values
// from concurrent requests are individually atomic; the snapshot as a
// whole is eventually consistent, not a cross-counter transaction.
type CounterSnapshot struct {
	Total   int64   // requests started since creation
	Current int64   // requests currently in flight
	Failed  int64   // requests completed with failure
	Rate    float64 // requests per second over the last sample interval
}

// Recorder holds the request counter set and its export configuration.
// All methods are safe for concurrent use.
//
// By default, this package does NOT set the global OpenTelemetry meter
// provider. Use [WithGlobalMeterProvider] if you want global registration.
type Recorder struct {
	meter              metric.Meter
	meterProvider      metric.MeterProvider
	prometheusHandler  http.Handler
	prometheusRegistry *promclient.Registry // Custom Prometheus registry to avoid conflicts
	metricsServer      *http.Server
	eventHandler       EventHandler // Handler for internal operational events

	// Request lifecycle instruments
	totalRequests   metric.Int64Counter
	currentRequests metric.Int64UpDownCounter
	failedRequests  metric.Int64Counter
	requestRate     metric.Float64ObservableGauge

	// Atomic mirrors backing Snapshot and the rate derivation
	total   atomic.Int64
	current atomic.Int64
	failed  atomic.Int64

	// Derived rate, updated by the sampler; stored as float64 bits
	rateBits       atomic.Uint64
	sampleInterval time.Duration
	samplerStop    chan struct{}
	samplerDone    chan struct{}

	validationErrors []error // Collected during option application

	exportInterval time.Duration

	serviceName    string
	serviceVersion string
	otlpEndpoint   string // OTLP collector endpoint
	metricsPort    string
	metricsPath    string

	// Pre-computed common attributes
	serviceNameAttr    attribute.KeyValue
	serviceVersionAttr attribute.KeyValue

	serverMutex sync.Mutex // Protects metricsServer access

	provider            Provider
	providerSetCount    int         // Tracks how many times a provider option was called
	isShuttingDown      atomic.Bool // Prevents server restart during shutdown
	isStarted           atomic.Bool // Tracks if Start() has been called
	enabled             bool
	autoStartServer     bool
	strictPort          bool // If true, fail instead of finding alternative port
	customMeterProvider bool // If true, user provided their own meter provider
	registerGlobal      bool // If true, sets otel.SetMeterProvider()
}

// New creates a new [Recorder] with the given options.
// Returns an error if the metrics provider fails to initialize.
// For a version that panics on error, use [MustNew].
func New(opts ...Option) (*Recorder, error) {
	recorder := newDefaultRecorder()

	for _, opt := range opts {
		opt(recorder)
	}

	if err := recorder.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// A disabled recorder needs no provider; every method is a no-op.
	if !recorder.enabled {
		return recorder, nil
	}

	if err := recorder.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return recorder, nil
}

// MustNew creates a new [Recorder] with the given options.
// It panics if the metrics provider fails to initialize.
func MustNew(opts ...Option) *Recorder {
	recorder, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize metrics: %v", err))
	}

	return recorder
}

// newDefaultRecorder creates a new Recorder with default values.
func newDefaultRecorder() *Recorder {
	recorder := &Recorder{
		enabled:         true,
		serviceName:     "aspnetcore-host",
		serviceVersion:  "1.0.0",
		provider:        NoopProvider,
		exportInterval:  30 * time.Second,
		sampleInterval:  DefaultSampleInterval,
		metricsPort:     ":9090",
		metricsPath:     "/metrics",
		autoStartServer: true,
	}

	recorder.initCommonAttributes()

	return recorder
}

// initCommonAttributes pre-computes common attributes.
func (r *Recorder) initCommonAttributes() {
	r.serviceNameAttr = attribute.String("service.name", r.serviceName)
	r.serviceVersionAttr = attribute.String("service.version", r.serviceVersion)
}

// validate checks that the configuration is valid.
func (r *Recorder) validate() error {
	if len(r.validationErrors) > 0 {
		return fmt.Errorf("configuration errors: %v", r.validationErrors)
	}

	if r.providerSetCount > 1 {
		return fmt.Errorf("conflicting provider options: only one of WithPrometheus, WithOTLP, or WithStdout can be used")
	}

	if r.serviceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}

	if r.serviceVersion == "" {
		return fmt.Errorf("service version cannot be empty")
	}

	if r.sampleInterval <= 0 {
		return fmt.Errorf("sample interval must be positive, got %v", r.sampleInterval)
	}

	if r.exportInterval < time.Second {
		r.emitWarning("Export interval is very low, may cause high CPU usage", "interval", r.exportInterval)
	}

	switch r.provider {
	case NoopProvider:
		// No specific validation needed for noop
	case PrometheusProvider:
		if r.metricsPort == "" {
			return fmt.Errorf("metrics port cannot be empty for Prometheus provider")
		}
		if r.metricsPath == "" {
			return fmt.Errorf("metrics path cannot be empty for Prometheus provider")
		}
	case OTLPProvider:
		if r.otlpEndpoint == "" {
			r.emitWarning("OTLP endpoint not specified, will use default", "default", "http://localhost:4318")
			r.otlpEndpoint = "http://localhost:4318"
		}
	case StdoutProvider:
		// No specific validation needed for stdout
	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}

	return nil
}

// RequestStart records the start of a request: total-requests and
// current-requests are both incremented. Never fails; a detached or
// missing exporter degrades this to the atomic counter update.
func (r *Recorder) RequestStart(ctx context.Context) {
	if !r.enabled {
		return
	}

	r.total.Add(1)
	r.current.Add(1)

	attrs := metric.WithAttributes(r.serviceNameAttr, r.serviceVersionAttr)
	if r.totalRequests != nil {
		r.totalRequests.Add(ctx, 1, attrs)
	}
	if r.currentRequests != nil {
		r.currentRequests.Add(ctx, 1, attrs)
	}
}

// RequestStop records the completion of a request: current-requests is
// decremented. Total and failed counts are untouched.
func (r *Recorder) RequestStop(ctx context.Context) {
	if !r.enabled {
		return
	}

	r.current.Add(-1)

	if r.currentRequests != nil {
		r.currentRequests.Add(ctx, -1, metric.WithAttributes(r.serviceNameAttr, r.serviceVersionAttr))
	}
}

// RequestFailed records a request failure. Independent of start/stop;
// callers invoke it at most once per request, between RequestStart and
// RequestStop.
func (r *Recorder) RequestFailed(ctx context.Context) {
	if !r.enabled {
		return
	}

	r.failed.Add(1)

	if r.failedRequests != nil {
		r.failedRequests.Add(ctx, 1, metric.WithAttributes(r.serviceNameAttr, r.serviceVersionAttr))
	}
}

// Snapshot returns a pull-based read of the counter set. Each value is
// read atomically; no ordering is promised between counters updated by
// concurrent requests.
func (r *Recorder) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Total:   r.total.Load(),
		Current: r.current.Load(),
		Failed:  r.failed.Load(),
		Rate:    r.Rate(),
	}
}

// Start starts the background rate sampler and, for the Prometheus
// provider with auto-start enabled, the metrics HTTP server.
// This method is idempotent; calling it multiple times is safe.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.enabled {
		return nil
	}

	// Idempotent: only start once
	if !r.isStarted.CompareAndSwap(false, true) {
		return nil // Already started
	}

	r.startSampler()

	if r.autoStartServer && r.provider == PrometheusProvider {
		r.startMetricsServer(ctx)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics system, flushing any
// pending metrics. It stops the rate sampler, the metrics server (if
// running), and the meter provider. Idempotent.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if !r.enabled {
		return nil
	}

	if !r.isShuttingDown.CompareAndSwap(false, true) {
		return nil // Already shutting down or shut down
	}

	r.stopSampler()

	var errs []error

	if err := r.stopMetricsServer(ctx); err != nil {
		errs = append(errs, err)
	}

	// User-provided providers are managed by the user
	if r.customMeterProvider {
		r.emitDebug("Skipping flush and shutdown of custom meter provider (managed by user)")
	} else if err := r.shutdownSDKMeterProvider(ctx); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	return nil
}

// shutdownSDKMeterProvider flushes and shuts down the SDK meter provider.
// Returns an error only if shutdown fails; flush failures are logged as warnings.
func (r *Recorder) shutdownSDKMeterProvider(ctx context.Context) error {
	mp, ok := r.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}

	r.emitDebug("Flushing pending metrics")
	if err := mp.ForceFlush(ctx); err != nil {
		r.emitWarning("metrics flush warning", "error", err)
	}

	r.emitDebug("Shutting down meter provider")
	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}

	return nil
}

// ForceFlush immediately exports any pending metric data. For pull-based
// providers (Prometheus) this is typically a no-op since metrics are
// collected on scrape.
func (r *Recorder) ForceFlush(ctx context.Context) error {
	if !r.enabled {
		return nil
	}

	if r.isShuttingDown.Load() {
		return nil
	}

	if mp, ok := r.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.ForceFlush(ctx); err != nil {
			return fmt.Errorf("metrics force flush: %w", err)
		}
	}

	return nil
}

// Handler returns the Prometheus metrics [http.Handler].
// This is useful when you want to serve metrics manually or disable the
// auto-server using [WithServerDisabled].
// Returns an error if metrics are not enabled or if not using [PrometheusProvider].
func (r *Recorder) Handler() (http.Handler, error) {
	if !r.enabled {
		return nil, fmt.Errorf("metrics not enabled")
	}

	if r.provider != PrometheusProvider || r.prometheusHandler == nil {
		return nil, fmt.Errorf("handler only available with Prometheus provider, current provider: %s", r.provider)
	}

	return r.prometheusHandler, nil
}

// Provider returns the current metrics provider.
func (r *Recorder) Provider() Provider {
	if !r.enabled {
		return ""
	}

	return r.provider
}

// ServerAddress returns the address of the metrics server.
// Returns empty string if not using [PrometheusProvider] or server is disabled.
func (r *Recorder) ServerAddress() string {
	if !r.enabled || r.provider != PrometheusProvider || !r.autoStartServer {
		return ""
	}

	return r.metricsPort
}

// Path returns the path for the Prometheus metrics endpoint.
// Returns empty string if not using [PrometheusProvider].
func (r *Recorder) Path() string {
	if !r.enabled || r.provider != PrometheusProvider {
		return ""
	}

	return r.metricsPath
}

// IsEnabled returns true if metrics are enabled.
func (r *Recorder) IsEnabled() bool {
	return r.enabled
}

// ServiceName returns the service name.
func (r *Recorder) ServiceName() string {
	return r.serviceName
}

// ServiceVersion returns the service version.
func (r *Recorder) ServiceVersion() string {
	return r.serviceVersion
}

// emitError emits an error event if an event handler is configured.
func (r *Recorder) emitError(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventError, Message: msg, Args: args})
	}
}

// emitWarning emits a warning event if an event handler is configured.
func (r *Recorder) emitWarning(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventWarning, Message: msg, Args: args})
	}
}

// emitInfo emits an info event if an event handler is configured.
func (r *Recorder) emitInfo(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventInfo, Message: msg, Args: args})
	}
}

// emitDebug emits a debug event if an event handler is configured.
func (r *Recorder) emitDebug(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
	}
}
