// =============================================================================
// 📡 调度运行的 OpenTelemetry 导出
// =============================================================================
// 每次 run 持有自己的 Providers：executor 通过 TracerProvider() 拿到 span
// 出口，运行结束后 RecordRun 记录一次运行指标。不修改 otel 全局 provider。
// =============================================================================

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/BaSui01/delegator/config"
)

// InstrumentationName is the tracer and meter name used for scheduler telemetry.
const InstrumentationName = "github.com/BaSui01/delegator"

// Providers 一次调度运行的 trace/metric 出口。禁用时字段为空，所有方法都是 no-op。
type Providers struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	runs     metric.Int64Counter
	duration metric.Float64Histogram
	nodes    metric.Int64Histogram
}

// Init builds OTLP exporters for one scheduler process. version is reported
// as service.version. With cfg.Enabled false nothing is dialed.
func Init(cfg config.TelemetryConfig, version string, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("telemetry disabled")
		return &Providers{}, nil
	}
	if version == "" {
		version = "dev"
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithProcessRuntimeName(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	spans, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	runMetrics, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = spans.Shutdown(ctx)
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	// 子 span 跟随 delegator.run 的采样决定，一棵执行树要么完整要么不采样
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spans),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(runMetrics)),
		sdkmetric.WithResource(res),
	)

	p, err := newProviders(tp, mp)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, err
	}

	logger.Info("telemetry initialized",
		zap.String("endpoint", cfg.OTLPEndpoint),
		zap.String("service_name", cfg.ServiceName),
		zap.Float64("sample_rate", cfg.SampleRate),
	)
	return p, nil
}

func newProviders(tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) (*Providers, error) {
	p := &Providers{tp: tp, mp: mp}
	if mp == nil {
		return p, nil
	}

	meter := mp.Meter(InstrumentationName)
	var err error
	if p.runs, err = meter.Int64Counter("delegator.runs",
		metric.WithDescription("Completed scheduler runs by status")); err != nil {
		return nil, fmt.Errorf("create runs counter: %w", err)
	}
	if p.duration, err = meter.Float64Histogram("delegator.run.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall time of a scheduler run")); err != nil {
		return nil, fmt.Errorf("create run duration histogram: %w", err)
	}
	if p.nodes, err = meter.Int64Histogram("delegator.run.nodes",
		metric.WithDescription("Task nodes in the executed tree")); err != nil {
		return nil, fmt.Errorf("create run nodes histogram: %w", err)
	}
	return p, nil
}

// TracerProvider returns the provider the executor should start spans on.
// Disabled telemetry yields a noop provider.
func (p *Providers) TracerProvider() trace.TracerProvider {
	if p == nil || p.tp == nil {
		return noop.NewTracerProvider()
	}
	return p.tp
}

// RecordRun records one finished run: its status, duration and tree size.
func (p *Providers) RecordRun(ctx context.Context, nodes int, d time.Duration, err error) {
	if p == nil || p.runs == nil {
		return
	}
	status := attribute.String("status", "success")
	if err != nil {
		status = attribute.String("status", "error")
	}
	p.runs.Add(ctx, 1, metric.WithAttributes(status))
	p.duration.Record(ctx, d.Seconds(), metric.WithAttributes(status))
	p.nodes.Record(ctx, int64(nodes))
}

// Shutdown flushes pending spans and run metrics. Safe on disabled or nil Providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Tracer returns the scheduler tracer from tp, or from the global provider
// when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(InstrumentationName)
}
