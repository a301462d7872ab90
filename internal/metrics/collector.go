// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 调度器指标收集器
// It satisfies the recorder interfaces of the worker registry, the
// execution engine and the plan generator.
type Collector struct {
	// Worker 调用指标
	workerCallsTotal    *prometheus.CounterVec
	workerCallDuration  *prometheus.HistogramVec
	permitsInUse        prometheus.Gauge
	permitWaitDuration  prometheus.Histogram
	nodeExecutionsTotal *prometheus.CounterVec
	summaryFallbacks    *prometheus.CounterVec

	// Worker 构建指标
	workerConstructionsTotal   *prometheus.CounterVec
	workerConstructionDuration *prometheus.HistogramVec

	// 计划与报告指标
	planGenerationsTotal *prometheus.CounterVec
	reportSavesTotal     *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollectorWith 创建注册到 reg 的指标收集器
func NewCollector(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}
	factory := promauto.With(reg)

	c.workerCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_calls_total",
			Help:      "Total number of worker calls",
		},
		[]string{"worker", "status"},
	)

	c.workerCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_call_duration_seconds",
			Help:      "Worker call duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	c.permitsInUse = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "permits_in_use",
			Help:      "Number of concurrency permits currently held by worker calls",
		},
	)

	c.permitWaitDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "permit_wait_duration_seconds",
			Help:      "Time spent waiting for a concurrency permit",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	c.nodeExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_executions_total",
			Help:      "Total number of completed task node executions",
		},
		[]string{"mode"},
	)

	c.summaryFallbacks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_fallbacks_total",
			Help:      "Total number of summaries that fell back to truncated output",
		},
		[]string{"reason"},
	)

	c.workerConstructionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_constructions_total",
			Help:      "Total number of worker construction attempts",
		},
		[]string{"worker", "kind", "status"},
	)

	c.workerConstructionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_construction_duration_seconds",
			Help:      "Worker construction and setup duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"worker"},
	)

	c.planGenerationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_generations_total",
			Help:      "Total number of plan generation attempts",
		},
		[]string{"status"},
	)

	c.reportSavesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_saves_total",
			Help:      "Total number of report persistence attempts",
		},
		[]string{"store", "status"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 执行引擎指标
// =============================================================================

// RecordWorkerCall 记录一次 worker 调用
func (c *Collector) RecordWorkerCall(worker string, duration time.Duration, err error) {
	c.workerCallsTotal.WithLabelValues(worker, status(err)).Inc()
	c.workerCallDuration.WithLabelValues(worker).Observe(duration.Seconds())
}

// PermitAcquired 记录获取许可及其等待时间
func (c *Collector) PermitAcquired(wait time.Duration) {
	c.permitsInUse.Inc()
	c.permitWaitDuration.Observe(wait.Seconds())
}

// PermitReleased 记录释放许可
func (c *Collector) PermitReleased() {
	c.permitsInUse.Dec()
}

// RecordNodeExecution 记录节点执行完成
func (c *Collector) RecordNodeExecution(mode string) {
	c.nodeExecutionsTotal.WithLabelValues(mode).Inc()
}

// RecordSummaryFallback 记录摘要回退
func (c *Collector) RecordSummaryFallback(reason string) {
	c.summaryFallbacks.WithLabelValues(reason).Inc()
}

// =============================================================================
// 🏭 注册表指标
// =============================================================================

// RecordWorkerConstruction 记录 worker 构建
func (c *Collector) RecordWorkerConstruction(worker, kind string, duration time.Duration, err error) {
	c.workerConstructionsTotal.WithLabelValues(worker, kind, status(err)).Inc()
	c.workerConstructionDuration.WithLabelValues(worker).Observe(duration.Seconds())
}

// =============================================================================
// 🗺️ 计划与报告指标
// =============================================================================

// RecordPlanGeneration 记录计划生成
func (c *Collector) RecordPlanGeneration(err error) {
	c.planGenerationsTotal.WithLabelValues(status(err)).Inc()
}

// RecordReportSave 记录报告持久化
func (c *Collector) RecordReportSave(store string, err error) {
	c.reportSavesTotal.WithLabelValues(store, status(err)).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
