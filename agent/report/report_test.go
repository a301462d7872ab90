package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/delegator/agent/hierarchical"
	"github.com/BaSui01/delegator/agent/tasks"
	"github.com/BaSui01/delegator/testutil"
)

func sampleResult() (*tasks.Result, []tasks.ContextLogEntry) {
	design := tasks.NewNode("Design", "", "designer", "")
	build := tasks.NewNode("Build", "", "builder", "")
	root := tasks.NewNode("Ship feature X", "", "coordinator", tasks.ModeSequential, design, build)

	res := &tasks.Result{
		Node:    root,
		Output:  "Ship feature X done",
		Summary: tasks.Summary{"summary": "shipping"},
		Children: []*tasks.Result{
			{Node: design, Output: "Design done", Summary: tasks.Summary{"summary": "Design done", "key_points": []any{"api"}}},
			{Node: build, Output: "Build done", Summary: tasks.Summary{"summary": "Build done"}},
		},
	}
	log := []tasks.ContextLogEntry{
		{Path: "Ship feature X", Summary: "shipping"},
		{Path: "Ship feature X > Design", Summary: "Design done"},
		{Path: "Ship feature X > Build", Summary: "Build done"},
	}
	return res, log
}

func TestBuild(t *testing.T) {
	res, log := sampleResult()

	r := Build(res, log)

	assert.Equal(t, "Ship feature X", r.Objective)
	assert.Equal(t, res.Node.ID, r.ExecutionTree.ID)
	assert.Equal(t, "coordinator", r.ExecutionTree.AgentIdentity)
	assert.Equal(t, tasks.ModeSequential, r.ExecutionTree.Mode)
	require.Len(t, r.ExecutionTree.Children, 2)
	assert.Equal(t, "Design done", r.ExecutionTree.Children[0].Output)
	assert.Equal(t, "designer", r.ExecutionTree.Children[0].AgentIdentity)
	assert.Equal(t, []any{"api"}, r.ExecutionTree.Children[0].Summary["key_points"])
	assert.Empty(t, r.ExecutionTree.Children[1].Children)
	assert.Equal(t, 3, r.ExecutionTree.Count())
	assert.Equal(t, log, r.ContextLog)

	// 报告持有日志副本
	log[0].Summary = "changed"
	assert.Equal(t, "shipping", r.ContextLog[0].Summary)
}

func TestBuild_JSONShape(t *testing.T) {
	res, log := sampleResult()

	data, err := Build(res, log).Marshal()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "Ship feature X", doc["objective"])
	assert.NotContains(t, doc, "runId")
	assert.NotContains(t, doc, "startedAt")

	tree := doc["executionTree"].(map[string]any)
	for _, key := range []string{"id", "title", "agentIdentity", "mode", "summary", "output", "children"} {
		assert.Contains(t, tree, key)
	}
	leaf := tree["children"].([]any)[1].(map[string]any)
	assert.Equal(t, []any{}, leaf["children"])

	entries := doc["contextLog"].([]any)
	require.Len(t, entries, 3)
	assert.Equal(t, map[string]any{"path": "Ship feature X > Design", "summary": "Design done"}, entries[1])
	testutil.AssertJSONEqual(t, log, entries)
	testutil.AssertJSONEqual(t, map[string]any{"summary": "Design done", "key_points": []string{"api"}},
		tree["children"].([]any)[0].(map[string]any)["summary"])
}

func TestBuild_NilSummaryAndRoot(t *testing.T) {
	n := tasks.NewNode("Solo", "", "w", "")
	r := Build(&tasks.Result{Node: n, Output: "x"}, nil)
	assert.Equal(t, "", r.ExecutionTree.Summary["summary"])
	assert.NotNil(t, r.ContextLog)

	empty := Build(nil, nil)
	assert.Empty(t, empty.Objective)
}

func TestFromExecution(t *testing.T) {
	res, log := sampleResult()
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	exec := &hierarchical.Execution{
		RunID:      "run-1",
		Root:       res,
		Log:        log,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}

	r := FromExecution(exec)
	assert.Equal(t, "run-1", r.RunID)
	require.NotNil(t, r.StartedAt)
	assert.Equal(t, time.Second, r.FinishedAt.Sub(*r.StartedAt))

	data, err := r.Marshal()
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, r.RunID, back.RunID)
	assert.Equal(t, r.ExecutionTree.Count(), back.ExecutionTree.Count())
	assert.True(t, r.StartedAt.Equal(*back.StartedAt))

	_, err = Unmarshal([]byte("{"))
	assert.Error(t, err)

	assert.NotNil(t, FromExecution(nil))
}
