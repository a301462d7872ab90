// Package config 提供调度器的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（DELEGATOR_ 前缀）的顺序叠加，
// 覆盖执行引擎、计划生成、worker 注册表、报告存储、日志、遥测与指标。
package config
