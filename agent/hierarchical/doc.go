// Package hierarchical 实现任务树的执行引擎。
//
// Executor 按节点的 sequential/parallel 模式递归遍历任务树，
// 每次 worker 调用都持有全局信号量的一个许可；节点完成后把摘要
// 追加到本次运行共享的上下文日志，后续节点的提示词携带最近 K 条。
package hierarchical
