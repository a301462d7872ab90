// =============================================================================
// 📦 测试数据工厂 - 计划文档
// =============================================================================
// 提供预定义的计划文档与 planner 输出样例
// =============================================================================
package fixtures

// ShipFeaturePlan 三个顺序子任务的计划文档
const ShipFeaturePlan = `{
  "title": "Ship feature X",
  "agent": "coordinator",
  "mode": "sequential",
  "children": [
    {"title": "Design", "agent": "designer"},
    {"title": "Build", "agent": "builder"},
    {"title": "Test", "agent": "tester"}
  ]
}`

// ShipFeaturePlanYAML 与 ShipFeaturePlan 等价的 YAML 文档
const ShipFeaturePlanYAML = `title: Ship feature X
agent: coordinator
mode: sequential
children:
  - title: Design
    agent: designer
  - title: Build
    agent: builder
  - title: Test
    agent: tester
`

// PlannerReplyFenced planner 以 ```json 代码块回复计划
const PlannerReplyFenced = "Here is the plan you asked for:\n\n```json\n" + ShipFeaturePlan + "\n```\n\nLet me know if it needs changes."

// PlannerReplyBare planner 在正文里直接给出 JSON 对象
const PlannerReplyBare = "Sure. " + ShipFeaturePlan + " That should cover it."

// PlannerReplyNoJSON planner 没有给出任何 JSON
const PlannerReplyNoJSON = "I think you should design it first, then build it, then test it."

// SummarizerReply 合法的摘要 worker 输出
const SummarizerReply = "```json\n" + `{"summary": "design finished", "key_points": ["api agreed"], "follow_ups": []}` + "\n```"
