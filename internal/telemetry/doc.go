// Package telemetry 为一次调度运行构建 OpenTelemetry 出口：
// 节点与 worker 调用的 span，以及运行次数、耗时与树规模的 OTLP 指标。
// 不修改 otel 全局 provider；禁用时返回 noop 实现，不连接任何外部服务。
package telemetry
