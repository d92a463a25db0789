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
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

const sampleTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

// newRecordingPropagator wires a span recorder into a propagator so
// tests can inspect finished spans.
func newRecordingPropagator(t *testing.T, opts ...Option) (*Propagator, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})

	opts = append([]Option{WithTracerProvider(tp)}, opts...)
	return MustNew(opts...), recorder
}

func TestDefaultPropagatorIsInactive(t *testing.T) {
	t.Parallel()

	p := MustNew()
	assert.True(t, p.IsEnabled())
	assert.False(t, p.Active())

	// Without an active backend the span handle is absent, not noop.
	ctx, span := p.StartRequest(context.Background(), http.Header{})
	assert.NotNil(t, ctx)
	assert.Nil(t, span)

	// Finishing an absent span is a no-op.
	p.FinishRequest(span, http.StatusOK, nil)
}

func TestStartRequestCreatesServerSpan(t *testing.T) {
	t.Parallel()

	p, recorder := newRecordingPropagator(t)
	require.True(t, p.Active())

	ctx, span := p.StartRequest(context.Background(), http.Header{})
	require.NotNil(t, span)

	// The handle is the ambient span of the returned context.
	assert.Same(t, span, trace.SpanFromContext(ctx))

	p.FinishRequest(span, http.StatusOK, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, SpanName, ended[0].Name())
	assert.Equal(t, trace.SpanKindServer, ended[0].SpanKind())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
}

func TestStartRequestExtractsParent(t *testing.T) {
	t.Parallel()

	p, recorder := newRecordingPropagator(t)

	headers := http.Header{}
	headers.Set("traceparent", sampleTraceParent)

	_, span := p.StartRequest(context.Background(), headers)
	require.NotNil(t, span)
	p.FinishRequest(span, http.StatusOK, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	// The inbound trace continues: same trace id, remote parent span id.
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", ended[0].SpanContext().TraceID().String())
	parent := ended[0].Parent()
	assert.True(t, parent.IsRemote())
	assert.Equal(t, "00f067aa0ba902b7", parent.SpanID().String())
}

func TestStartRequestWithoutParentStartsNewTrace(t *testing.T) {
	t.Parallel()

	p, recorder := newRecordingPropagator(t)

	_, span := p.StartRequest(context.Background(), http.Header{})
	require.NotNil(t, span)
	p.FinishRequest(span, http.StatusOK, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.True(t, ended[0].SpanContext().TraceID().IsValid())
	assert.False(t, ended[0].Parent().IsValid())
}

func TestFinishRequestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		err        error
		wantCode   codes.Code
		wantEvents int
	}{
		{"success", http.StatusOK, nil, codes.Ok, 0},
		{"client error is not a failure", http.StatusNotFound, nil, codes.Ok, 0},
		{"server error", http.StatusInternalServerError, nil, codes.Error, 0},
		{"handler error", http.StatusOK, errors.New("boom"), codes.Error, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, recorder := newRecordingPropagator(t)

			_, span := p.StartRequest(context.Background(), http.Header{})
			require.NotNil(t, span)
			p.FinishRequest(span, tt.statusCode, tt.err)

			ended := recorder.Ended()
			require.Len(t, ended, 1)
			assert.Equal(t, tt.wantCode, ended[0].Status().Code)
			assert.Len(t, ended[0].Events(), tt.wantEvents, "errors are recorded as span events")
		})
	}
}

func TestInjectRoundTrip(t *testing.T) {
	t.Parallel()

	p, _ := newRecordingPropagator(t)

	ctx, span := p.StartRequest(context.Background(), http.Header{})
	require.NotNil(t, span)
	defer p.FinishRequest(span, http.StatusOK, nil)

	outbound := http.Header{}
	p.Inject(ctx, outbound)

	assert.NotEmpty(t, outbound.Get("traceparent"))
	assert.Contains(t, outbound.Get("traceparent"), span.SpanContext().TraceID().String())
}

func TestTraceAndSpanID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, TraceID(context.Background()))
	assert.Empty(t, SpanID(context.Background()))

	p, _ := newRecordingPropagator(t)
	ctx, span := p.StartRequest(context.Background(), http.Header{})
	require.NotNil(t, span)
	defer p.FinishRequest(span, http.StatusOK, nil)

	assert.Equal(t, span.SpanContext().TraceID().String(), TraceID(ctx))
	assert.Equal(t, span.SpanContext().SpanID().String(), SpanID(ctx))
}

func TestPropagatorConfig(t *testing.T) {
	t.Parallel()

	p := MustNew(
		WithServiceName("test-service"),
		WithServiceVersion("v2.0.0"),
	)

	assert.Equal(t, "test-service", p.ServiceName())
	assert.Equal(t, "v2.0.0", p.ServiceVersion())
	assert.Equal(t, NoopProvider, p.GetProvider())
	assert.NotNil(t, p.GetPropagator())
}

func TestShutdownIdempotent(t *testing.T) {
	t.Parallel()

	p, _ := newRecordingPropagator(t)
	ctx := context.Background()

	require.NoError(t, p.Shutdown(ctx))
	require.NoError(t, p.Shutdown(ctx))
}
