package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/delegator/agent/hierarchical"
	"github.com/BaSui01/delegator/agent/tasks"
)

// NodeReport 执行树中单个节点的报告
type NodeReport struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	AgentIdentity string         `json:"agentIdentity"`
	Mode          tasks.Mode     `json:"mode"`
	Summary       map[string]any `json:"summary"`
	Output        string         `json:"output"`
	Children      []NodeReport   `json:"children"`
}

// Report 一次运行的完整报告
type Report struct {
	RunID         string                  `json:"runId,omitempty"`
	Objective     string                  `json:"objective"`
	ExecutionTree NodeReport              `json:"executionTree"`
	ContextLog    []tasks.ContextLogEntry `json:"contextLog"`
	StartedAt     *time.Time              `json:"startedAt,omitempty"`
	FinishedAt    *time.Time              `json:"finishedAt,omitempty"`
}

// Build serializes a result tree and a context-log snapshot. It does no I/O.
func Build(root *tasks.Result, log []tasks.ContextLogEntry) *Report {
	entries := make([]tasks.ContextLogEntry, len(log))
	copy(entries, log)

	r := &Report{ContextLog: entries}
	if root != nil {
		r.ExecutionTree = buildNode(root)
		r.Objective = r.ExecutionTree.Title
	}
	return r
}

// FromExecution builds the report of a finished run, including its run ID
// and timing.
func FromExecution(exec *hierarchical.Execution) *Report {
	if exec == nil {
		return Build(nil, nil)
	}
	r := Build(exec.Root, exec.Log)
	r.RunID = exec.RunID
	if !exec.StartedAt.IsZero() {
		started, finished := exec.StartedAt, exec.FinishedAt
		r.StartedAt, r.FinishedAt = &started, &finished
	}
	return r
}

func buildNode(res *tasks.Result) NodeReport {
	n := NodeReport{
		Output:   res.Output,
		Summary:  map[string]any(res.Summary),
		Children: make([]NodeReport, 0, len(res.Children)),
	}
	if n.Summary == nil {
		n.Summary = map[string]any{tasks.SummaryKey: ""}
	}
	if res.Node != nil {
		n.ID = res.Node.ID
		n.Title = res.Node.Title
		n.AgentIdentity = res.Node.WorkerKey
		n.Mode = res.Node.Mode
	}
	for _, child := range res.Children {
		n.Children = append(n.Children, buildNode(child))
	}
	return n
}

// Count returns the number of nodes in the subtree.
func (n NodeReport) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Marshal encodes the report as indented JSON.
func (r *Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Unmarshal decodes a report previously produced by Marshal.
func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
