package tasks

import "fmt"

// SummaryKey is the key every structured summary carries.
const SummaryKey = "summary"

// Summary 节点输出的结构化摘要，至少包含 summary 键
type Summary map[string]any

// Text returns the summary text, or "" when the key is absent.
func (s Summary) Text() string {
	v, ok := s[SummaryKey]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Result 节点执行结果
// Exactly one Result is produced per executed node. Children mirror the
// order of Node.Children regardless of completion order.
type Result struct {
	Node     *Node
	Output   string
	Summary  Summary
	Children []*Result
}

// Outputs returns the raw outputs of the direct children, in declared order.
func (r *Result) Outputs() []string {
	out := make([]string, len(r.Children))
	for i, child := range r.Children {
		out[i] = child.Output
	}
	return out
}

// Count returns the number of results in the tree.
func (r *Result) Count() int {
	total := 1
	for _, child := range r.Children {
		total += child.Count()
	}
	return total
}
