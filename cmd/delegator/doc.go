/*
Package main 提供 delegator 命令行程序入口。

# 子命令

  - run：按 --plan 读取计划，或由 planner worker 按 --objective 生成计划，
    执行任务树并保存报告；报告 JSON 输出到 stdout，进度输出到 stderr。
  - plan：只生成计划，以 YAML 或 JSON 输出，可直接作为 run --plan 的输入。
  - workers：列出已配置的 worker 及其角色。
  - reports list / show：读取已保存的报告。
  - version：构建信息（Version、BuildTime、GitCommit 通过 ldflags 注入）。

# 退出码

0 成功，1 运行失败（stderr 附带错误码），2 参数错误。
*/
package main
