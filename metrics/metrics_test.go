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
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecorderDefaults(t *testing.T) {
	t.Parallel()

	recorder := MustNew()
	defer recorder.Shutdown(context.Background())

	assert.True(t, recorder.IsEnabled())
	assert.Equal(t, NoopProvider, recorder.Provider())
	assert.Equal(t, "aspnetcore-host", recorder.ServiceName())

	snap := recorder.Snapshot()
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.Current)
	assert.Zero(t, snap.Failed)
	assert.Zero(t, snap.Rate)
}

func TestRecorderConfig(t *testing.T) {
	t.Parallel()

	// The server is only bound on Start, so configuration alone is safe
	// to inspect without claiming the port.
	recorder := MustNew(
		WithPrometheus(":9193", "/metrics"),
		WithServiceName("test-service"),
		WithServiceVersion("v1.0.0"),
	)
	defer recorder.Shutdown(context.Background())

	assert.True(t, recorder.IsEnabled())
	assert.Equal(t, "test-service", recorder.ServiceName())
	assert.Equal(t, "v1.0.0", recorder.ServiceVersion())
	assert.Equal(t, ":9193", recorder.ServerAddress())
	assert.Equal(t, "/metrics", recorder.Path())
	assert.Equal(t, PrometheusProvider, recorder.Provider())
}

func TestConflictingProviderOptions(t *testing.T) {
	t.Parallel()

	_, err := New(
		WithPrometheus(":9194", "/metrics"),
		WithStdout(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting provider options")
}

func TestInvalidConfiguration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{"empty service name", []Option{WithServiceName("")}},
		{"empty service version", []Option{WithServiceVersion("")}},
		{"zero sample interval", []Option{WithSampleInterval(0)}},
		{"negative sample interval", []Option{WithSampleInterval(-time.Second)}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestDisabledRecorder(t *testing.T) {
	t.Parallel()

	recorder := MustNew(WithDisabled())
	assert.False(t, recorder.IsEnabled())

	ctx := context.Background()
	require.NoError(t, recorder.Start(ctx))

	recorder.RequestStart(ctx)
	recorder.RequestFailed(ctx)
	recorder.RequestStop(ctx)

	snap := recorder.Snapshot()
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.Current)
	assert.Zero(t, snap.Failed)

	require.NoError(t, recorder.Shutdown(ctx))
}

func TestRequestCounters(t *testing.T) {
	t.Parallel()

	recorder := MustNew()
	defer recorder.Shutdown(context.Background())

	ctx := context.Background()

	recorder.RequestStart(ctx)
	recorder.RequestStart(ctx)
	snap := recorder.Snapshot()
	assert.Equal(t, int64(2), snap.Total)
	assert.Equal(t, int64(2), snap.Current)
	assert.Equal(t, int64(0), snap.Failed)

	recorder.RequestFailed(ctx)
	recorder.RequestStop(ctx)
	snap = recorder.Snapshot()
	assert.Equal(t, int64(2), snap.Total)
	assert.Equal(t, int64(1), snap.Current)
	assert.Equal(t, int64(1), snap.Failed)

	recorder.RequestStop(ctx)
	snap = recorder.Snapshot()
	assert.Equal(t, int64(0), snap.Current)
	// Total and failed are monotonic.
	assert.Equal(t, int64(2), snap.Total)
	assert.Equal(t, int64(1), snap.Failed)
}

func TestConcurrentRequests(t *testing.T) {
	t.Parallel()

	recorder := MustNew()
	defer recorder.Shutdown(context.Background())

	ctx := context.Background()
	const goroutines = 16
	const perGoroutine = 100
	const failEvery = 5

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				recorder.RequestStart(ctx)
				if i%failEvery == 0 {
					recorder.RequestFailed(ctx)
				}
				recorder.RequestStop(ctx)
			}
		}()
	}
	wg.Wait()

	snap := recorder.Snapshot()
	assert.Equal(t, int64(goroutines*perGoroutine), snap.Total)
	assert.Equal(t, int64(0), snap.Current)
	assert.Equal(t, int64(goroutines*perGoroutine/failEvery), snap.Failed)
}

func TestInstrumentExport(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	recorder := MustNew(WithMeterProvider(provider))
	defer recorder.Shutdown(context.Background())

	ctx := context.Background()
	recorder.RequestStart(ctx)
	recorder.RequestStart(ctx)
	recorder.RequestStart(ctx)
	recorder.RequestFailed(ctx)
	recorder.RequestStop(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	gauges := map[string]float64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				sums[m.Name] = total
			case metricdata.Gauge[float64]:
				for _, dp := range data.DataPoints {
					gauges[m.Name] = dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(3), sums[TotalRequestsName])
	assert.Equal(t, int64(2), sums[CurrentRequestsName])
	assert.Equal(t, int64(1), sums[FailedRequestsName])
	assert.Contains(t, gauges, RequestsPerSecondName)
}

func TestPrometheusHandler(t *testing.T) {
	t.Parallel()

	recorder := MustNew(
		WithPrometheus(":9195", "/metrics"),
		WithServerDisabled(),
	)
	defer recorder.Shutdown(context.Background())

	ctx := context.Background()
	recorder.RequestStart(ctx)
	recorder.RequestStop(ctx)

	handler, err := recorder.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "total_requests")
	assert.Contains(t, body, "current_requests")
}

func TestHandlerRequiresPrometheus(t *testing.T) {
	t.Parallel()

	recorder := MustNew()
	defer recorder.Shutdown(context.Background())

	_, err := recorder.Handler()
	assert.Error(t, err)
}

func TestStartAndShutdownIdempotent(t *testing.T) {
	t.Parallel()

	recorder := MustNew()
	ctx := context.Background()

	require.NoError(t, recorder.Start(ctx))
	require.NoError(t, recorder.Start(ctx))

	require.NoError(t, recorder.Shutdown(ctx))
	require.NoError(t, recorder.Shutdown(ctx))
}
