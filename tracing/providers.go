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
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// initializeProvider initializes the tracing provider based on configuration.
func (p *Propagator) initializeProvider() error {
	// If user provided a custom tracer provider, use it regardless of
	// the selected built-in provider.
	if p.customTracerProvider {
		p.emitDebug("Using custom user-provided tracer provider")
		if p.tracer == nil {
			p.tracer = p.tracerProvider.Tracer(tracerScope)
		}
		if p.registerGlobal {
			otel.SetTracerProvider(p.tracerProvider)
		}
		return nil
	}

	// A user-supplied tracer alone also counts as an active backend.
	if p.tracer != nil {
		return nil
	}

	switch p.provider {
	case NoopProvider:
		// No backend subscribed: leave the tracer nil so StartRequest
		// returns the absent handle instead of producing dead spans.
		return nil
	case StdoutProvider:
		return p.initStdoutProvider()
	case OTLPProvider:
		return p.initOTLPProvider()
	case OTLPHTTPProvider:
		return p.initOTLPHTTPProvider()
	default:
		return fmt.Errorf("unsupported tracing provider: %s", p.provider)
	}
}

// initStdoutProvider initializes the stdout trace exporter.
func (p *Propagator) initStdoutProvider() error {
	exporter, err := stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	p.installSDKProvider(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(createResource(p.serviceName, p.serviceVersion)),
	))

	p.emitInfo("Tracing initialized", "provider", "stdout", "service", p.serviceName)

	return nil
}

// initOTLPProvider initializes the OTLP gRPC trace exporter.
func (p *Propagator) initOTLPProvider() error {
	opts := []otlptracegrpc.Option{}

	if p.otlpEndpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(p.otlpEndpoint))
	}

	if p.otlpInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}

	p.installSDKProvider(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(createResource(p.serviceName, p.serviceVersion)),
	))

	p.emitInfo("Tracing initialized", "provider", "otlp", "endpoint", p.otlpEndpoint, "service", p.serviceName)

	return nil
}

// initOTLPHTTPProvider initializes the OTLP HTTP trace exporter.
func (p *Propagator) initOTLPHTTPProvider() error {
	opts := []otlptracehttp.Option{}

	if p.otlpEndpoint != "" {
		endpoint := p.otlpEndpoint
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

		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		if isHTTP {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}

	p.installSDKProvider(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(createResource(p.serviceName, p.serviceVersion)),
	))

	p.emitInfo("Tracing initialized", "provider", "otlp-http", "endpoint", p.otlpEndpoint, "service", p.serviceName)

	return nil
}

// installSDKProvider wires an SDK tracer provider in as the span source.
func (p *Propagator) installSDKProvider(tp *sdktrace.TracerProvider) {
	p.sdkProvider = tp
	p.tracerProvider = tp
	p.tracer = tp.Tracer(tracerScope)

	if p.registerGlobal {
		otel.SetTracerProvider(tp)
	}
}

// createResource creates an OpenTelemetry resource with service information.
func createResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}
