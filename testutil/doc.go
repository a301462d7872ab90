/*
Package testutil 提供调度器测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertEventuallyTrue
  - 任务树构造: Leaf / Branch / Titles

# 子包

  - testutil/mocks: 可脚本化的 MockWorker 与共享调用日志 CallLog，
    记录每次调用的起止时间，用于验证执行顺序与并发上限
  - testutil/fixtures: 预置计划文档与 planner 输出样例

# 使用示例

	ctx := testutil.TestContext(t)
	log := mocks.NewCallLog()
	designer := mocks.NewMockWorker("designer").WithCallLog(log)
*/
package testutil
