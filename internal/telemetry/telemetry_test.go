package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/delegator/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(config.TelemetryConfig{Enabled: false}, "v1.0.0", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Nil(t, p.tp)
	assert.Nil(t, p.mp)
	assert.NotNil(t, p.TracerProvider())
	assert.NotPanics(t, func() { p.RecordRun(context.Background(), 3, time.Second, nil) })
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_NilLogger(t *testing.T) {
	p, err := Init(config.DefaultTelemetryConfig(), "", nil)
	require.NoError(t, err)
	assert.Nil(t, p.tp)
}

func TestInit_EnabledLeavesGlobalsAlone(t *testing.T) {
	globalTP := otel.GetTracerProvider()
	globalMP := otel.GetMeterProvider()

	cfg := config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "delegator-test",
		SampleRate:   1.0,
	}
	p, err := Init(cfg, "v1.2.3", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p.tp)
	require.NotNil(t, p.mp)

	assert.Same(t, p.tp, p.TracerProvider())
	assert.Equal(t, globalTP, otel.GetTracerProvider())
	assert.Equal(t, globalMP, otel.GetMeterProvider())

	// 没有 collector，只验证按期限返回
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NotPanics(t, func() { _ = p.Shutdown(ctx) })
}

func TestProviders_NilSafe(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.TracerProvider())
	assert.NotPanics(t, func() { p.RecordRun(context.Background(), 1, time.Second, nil) })
}

func TestProviders_RecordRun(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	p, err := newProviders(nil, mp)
	require.NoError(t, err)

	ctx := context.Background()
	p.RecordRun(ctx, 4, 2*time.Second, nil)
	p.RecordRun(ctx, 1, time.Second, errors.New("worker failed"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, InstrumentationName, rm.ScopeMetrics[0].Scope.Name)

	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	runs, ok := byName["delegator.runs"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, runs.DataPoints, 2)
	var total int64
	for _, dp := range runs.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	nodes, ok := byName["delegator.run.nodes"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, nodes.DataPoints, 1)
	assert.Equal(t, uint64(2), nodes.DataPoints[0].Count)
	assert.Equal(t, int64(5), nodes.DataPoints[0].Sum)

	assert.Contains(t, byName, "delegator.run.duration")
}

func TestTracer_UsesGivenProvider(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	_, span := Tracer(tp).Start(context.Background(), "delegator.node")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "delegator.node", ended[0].Name())
	assert.Equal(t, InstrumentationName, ended[0].InstrumentationScope().Name)
}

func TestTracer_FallsBackToGlobal(t *testing.T) {
	assert.NotNil(t, Tracer(nil))
}
