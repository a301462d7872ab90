// Package planner 把自由文本目标转换为任务树。
//
// Generator 调用 planner worker，从回复中提取 JSON 计划并逐层构建
// tasks.Node；回复中没有 JSON 对象或计划超出深度限制时返回
// PLAN_GENERATION 错误，不做猜测。
package planner
