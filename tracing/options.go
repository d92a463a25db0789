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
	"log/slog"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option defines functional options for Propagator configuration.
// Options are applied during creation via [New].
type Option func(*Propagator)

// WithTracerProvider allows you to provide a custom OpenTelemetry TracerProvider.
// When using this option, the package will NOT set the global otel.SetTracerProvider()
// by default. Use [WithGlobalTracerProvider] if you want global registration.
//
// Note: When using WithTracerProvider, provider options (StdoutProvider,
// OTLPProvider, etc.) are ignored since you're managing the provider yourself.
func WithTracerProvider(provider *sdktrace.TracerProvider) Option {
	return func(p *Propagator) {
		p.sdkProvider = provider
		p.tracerProvider = provider
		p.customTracerProvider = true
		// Note: registerGlobal stays false unless explicitly set
	}
}

// WithGlobalTracerProvider registers the tracer provider as the global
// OpenTelemetry tracer provider via otel.SetTracerProvider().
// By default, tracer providers are not registered globally to allow multiple
// tracing configurations to coexist in the same process.
func WithGlobalTracerProvider() Option {
	return func(p *Propagator) {
		p.registerGlobal = true
	}
}

// WithServiceName sets the service name for tracing.
// This name appears in span attributes as 'service.name'.
func WithServiceName(name string) Option {
	return func(p *Propagator) {
		p.serviceName = name
	}
}

// WithServiceVersion sets the service version for tracing.
// This version appears in span attributes as 'service.version'.
func WithServiceVersion(version string) Option {
	return func(p *Propagator) {
		p.serviceVersion = version
	}
}

// WithProvider sets the tracing provider (exporter).
// Use with one of: [NoopProvider], [StdoutProvider], [OTLPProvider],
// [OTLPHTTPProvider].
func WithProvider(provider Provider) Option {
	return func(p *Propagator) {
		p.provider = provider
	}
}

// WithOTLPEndpoint sets the OTLP endpoint (e.g., "localhost:4317").
// Only used when provider is [OTLPProvider] or [OTLPHTTPProvider].
func WithOTLPEndpoint(endpoint string) Option {
	return func(p *Propagator) {
		p.otlpEndpoint = endpoint
	}
}

// WithOTLPInsecure enables insecure gRPC for OTLP.
// Default is false (uses TLS). Set to true for local development.
func WithOTLPInsecure(insecure bool) Option {
	return func(p *Propagator) {
		p.otlpInsecure = insecure
	}
}

// WithCustomTracer allows using a custom OpenTelemetry tracer.
// This is useful when you need specific tracer configuration or
// want to use a tracer from an existing OpenTelemetry setup.
func WithCustomTracer(tracer trace.Tracer) Option {
	return func(p *Propagator) {
		p.tracer = tracer
	}
}

// WithPropagator allows using a custom trace-context propagation format.
// The default is W3C Trace Context ([propagation.TraceContext]).
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(p *Propagator) {
		p.propagator = propagator
	}
}

// WithEventHandler sets a custom event handler for internal operational events.
func WithEventHandler(handler EventHandler) Option {
	return func(p *Propagator) {
		p.eventHandler = handler
	}
}

// WithLogger sets the logger for internal operational events using the
// default event handler.
func WithLogger(logger *slog.Logger) Option {
	return WithEventHandler(DefaultEventHandler(logger))
}
