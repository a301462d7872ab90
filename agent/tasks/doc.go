// Package tasks 定义层次化任务委派的被动数据模型。
//
// 包含任务树节点（Node）、节点执行结果（Result）、运行期共享的
// 上下文日志（ContextLog），以及 JSON/YAML 计划文档到任务树的解码。
package tasks
