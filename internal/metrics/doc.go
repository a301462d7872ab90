
/*
包 metrics 提供基于 Prometheus 的调度器指标采集能力，覆盖
worker 调用、并发许可、worker 构建、计划生成与报告持久化。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标。Collector 使用
promauto.With 注册到调用方传入的 Registerer，进程内没有全局状态；
所有指标按 namespace 隔离。

# 核心类型

  - Collector：指标收集器，同时满足 workers.ConstructionRecorder、
    hierarchical.Recorder 与 planner.Recorder 接口。

# 主要能力

  - Worker 调用：调用总数（按 worker/status）与耗时。
  - 并发许可：当前持有的许可数 Gauge 与等待耗时 Histogram。
  - 摘要回退：按原因统计截断回退次数。
  - Worker 构建：构建尝试总数与耗时，按 worker/kind 分组。
  - 计划与报告：计划生成结果、报告持久化结果。
*/
package metrics
