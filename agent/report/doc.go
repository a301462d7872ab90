// Package report 把执行结果树与上下文日志序列化为报告。
//
// Build 是纯函数，不做任何 I/O；持久化由 agent/persistence 负责。
package report
