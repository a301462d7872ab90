/*
Package types 提供调度器的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent/tasks、agent/workers、
agent/hierarchical、agent/planner 等上层模块提供统一的错误与上下文契约。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 Worker 标记与 Cause 链
  - ErrConfiguration  — 计划引用了未知的 worker 标识
  - ErrLoad           — worker 后端资源无法构建
  - ErrWorkerExecution — worker 执行失败
  - ErrPlanGeneration — planner 输出无法形成计划
  - ErrExtraction     — 文本中没有可解析的 JSON 对象
  - ErrInvalidPlan    — 计划文档字段缺失或类型错误
  - ErrStore          — 报告持久化失败

# 主要能力

  - Context 传播：WithRunID / WithNodeID
  - 错误工具链：AsError / IsErrorCode / GetErrorCode
*/
package types
