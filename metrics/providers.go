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
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterScope = "github.com/arianmotamedi/aspnetcore/metrics"

// initializeProvider initializes the metrics provider based on configuration.
func (r *Recorder) initializeProvider() error {
	// If user provided a custom meter provider, skip built-in provider initialization
	if r.customMeterProvider {
		if r.meterProvider == nil {
			return fmt.Errorf("custom meter provider is nil")
		}
		r.emitDebug("Using custom user-provided meter provider")
		r.meter = r.meterProvider.Meter(meterScope)
		return r.initializeInstruments()
	}

	switch r.provider {
	case NoopProvider:
		return r.initNoopProvider()
	case PrometheusProvider:
		return r.initPrometheusProvider()
	case OTLPProvider:
		return r.initOTLPProvider()
	case StdoutProvider:
		return r.initStdoutProvider()
	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}
}

// initNoopProvider creates a meter provider with no reader attached.
// Instruments exist and accept updates but nothing is ever exported,
// which keeps Snapshot working with zero collector overhead.
func (r *Recorder) initNoopProvider() error {
	r.meterProvider = sdkmetric.NewMeterProvider()

	if r.registerGlobal {
		r.emitDebug("Setting global OpenTelemetry meter provider", "provider", "noop")
		otel.SetMeterProvider(r.meterProvider)
	}

	r.meter = r.meterProvider.Meter(meterScope)
	return r.initializeInstruments()
}

// initPrometheusProvider initializes the Prometheus metrics provider.
func (r *Recorder) initPrometheusProvider() error {
	// Custom registry to avoid conflicts with the global one
	r.prometheusRegistry = promclient.NewRegistry()

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(r.prometheusRegistry),
	)
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	r.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	r.prometheusHandler = promhttp.HandlerFor(
		r.prometheusRegistry,
		promhttp.HandlerOpts{},
	)

	if r.registerGlobal {
		r.emitDebug("Setting global OpenTelemetry meter provider", "provider", "prometheus")
		otel.SetMeterProvider(r.meterProvider)
	}

	r.meter = r.meterProvider.Meter(meterScope)
	return r.initializeInstruments()
}

// initOTLPProvider initializes the OTLP HTTP metrics provider.
func (r *Recorder) initOTLPProvider() error {
	opts := []otlpmetrichttp.Option{}

	if r.otlpEndpoint != "" {
		endpoint := r.otlpEndpoint
		isHTTP := false

		if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
			endpoint = trimmed
			isHTTP = true
		} else if trimmedHTTPS, trimmedOk := strings.CutPrefix(endpoint, "https://"); trimmedOk {
			endpoint = trimmedHTTPS
		}

		// Remove trailing path if present
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			endpoint = endpoint[:idx]
		}

		opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		if isHTTP {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(r.exportInterval),
	)

	r.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
	)

	if r.registerGlobal {
		r.emitDebug("Setting global OpenTelemetry meter provider", "provider", "otlp")
		otel.SetMeterProvider(r.meterProvider)
	}

	r.meter = r.meterProvider.Meter(meterScope)
	return r.initializeInstruments()
}

// initStdoutProvider initializes the stdout metrics provider.
func (r *Recorder) initStdoutProvider() error {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(r.exportInterval),
	)

	r.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
	)

	if r.registerGlobal {
		r.emitDebug("Setting global OpenTelemetry meter provider", "provider", "stdout")
		otel.SetMeterProvider(r.meterProvider)
	}

	r.meter = r.meterProvider.Meter(meterScope)
	return r.initializeInstruments()
}

// initializeInstruments creates the four request lifecycle instruments.
func (r *Recorder) initializeInstruments() error {
	var err error

	r.totalRequests, err = r.meter.Int64Counter(
		TotalRequestsName,
		metric.WithDescription("Total number of requests started"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create total-requests counter: %w", err)
	}

	r.currentRequests, err = r.meter.Int64UpDownCounter(
		CurrentRequestsName,
		metric.WithDescription("Number of requests currently in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create current-requests counter: %w", err)
	}

	r.failedRequests, err = r.meter.Int64Counter(
		FailedRequestsName,
		metric.WithDescription("Total number of failed requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create failed-requests counter: %w", err)
	}

	// Derived rate: the callback reads the sampler's latest value, so
	// pull-based collectors observe the same number the sampler pushed.
	r.requestRate, err = r.meter.Float64ObservableGauge(
		RequestsPerSecondName,
		metric.WithDescription("Requests per second over the last sample interval"),
		metric.WithUnit("{request}/s"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(r.Rate(), metric.WithAttributes(r.serviceNameAttr, r.serviceVersionAttr))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create requests-per-second gauge: %w", err)
	}

	return nil
}

// startMetricsServer starts a dedicated HTTP server for Prometheus metrics.
func (r *Recorder) startMetricsServer(ctx context.Context) {
	if r.prometheusHandler == nil {
		return
	}

	if r.isShuttingDown.Load() {
		r.emitDebug("Not starting metrics server: shutdown in progress")
		return
	}

	var actualPort string
	var err error

	if r.strictPort {
		// Strict mode: use exact port only
		listener, listenErr := net.Listen("tcp", r.metricsPort)
		if listenErr != nil {
			r.emitError("Failed to start metrics server on required port (strict mode)",
				"error", listenErr, "port", r.metricsPort)
			return
		}
		listener.Close() // Close immediately, we'll reopen in ListenAndServe
		actualPort = r.metricsPort
	} else {
		actualPort, err = findAvailablePort(r.metricsPort)
		if err != nil {
			r.emitError("Failed to find available port for metrics server",
				"error", err, "preferred_port", r.metricsPort)
			return
		}
	}

	r.metricsPort = actualPort

	mux := http.NewServeMux()
	mux.Handle(r.metricsPath, r.prometheusHandler)

	server := &http.Server{
		Addr:         actualPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	r.serverMutex.Lock()
	r.metricsServer = server
	r.serverMutex.Unlock()

	go func() {
		r.emitInfo("Metrics server starting", "address", actualPort, "path", r.metricsPath)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.serverMutex.Lock()
			r.metricsServer = nil
			r.serverMutex.Unlock()
			r.emitError("Metrics server error", "error", err)
		}
	}()
}

// stopMetricsServer stops the dedicated metrics server.
func (r *Recorder) stopMetricsServer(ctx context.Context) error {
	r.serverMutex.Lock()
	server := r.metricsServer
	r.metricsServer = nil // Clear first to avoid race conditions
	r.serverMutex.Unlock()

	if server != nil {
		r.emitDebug("Shutting down metrics server")
		if err := server.Shutdown(ctx); err != nil {
			r.emitError("Error shutting down metrics server", "error", err)
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
	}
	return nil
}

// findAvailablePort attempts to find an available port starting from the
// given port, trying the preferred one first and incrementing from there.
func findAvailablePort(preferredPort string) (string, error) {
	port := preferredPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	portStr := strings.TrimPrefix(port, ":")
	portNum, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("invalid port format: %s", preferredPort)
	}

	for i := 0; i < 100; i++ {
		testAddr := fmt.Sprintf(":%d", portNum+i)

		listener, err := net.Listen("tcp", testAddr)
		if err == nil {
			listener.Close()
			return testAddr, nil
		}
	}

	return "", fmt.Errorf("no available port found starting from %s", preferredPort)
}
