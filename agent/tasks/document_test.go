package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/delegator/types"
)

func TestParseDocument_JSON(t *testing.T) {
	doc := `{
		"title": "Ship feature X",
		"agent": "coordinator",
		"mode": "sequential",
		"children": [
			{"title": "Design", "agent": "designer"},
			{"title": "Build", "agent_key": "builder", "description": "write code"},
			{"title": "Test", "worker": "tester", "task": "run tests", "mode": "parallel"}
		]
	}`

	root, err := ParseDocument([]byte(doc), "coordinator")
	require.NoError(t, err)

	assert.Equal(t, "Ship feature X", root.Title)
	assert.Equal(t, "coordinator", root.WorkerKey)
	require.Len(t, root.Children, 3)
	assert.Equal(t, "designer", root.Children[0].WorkerKey)
	assert.Equal(t, "builder", root.Children[1].WorkerKey)
	assert.Equal(t, "write code", root.Children[1].Instruction)
	assert.Equal(t, "tester", root.Children[2].WorkerKey)
	assert.Equal(t, "run tests", root.Children[2].Instruction)
	assert.Equal(t, ModeParallel, root.Children[2].Mode)
}

func TestParseDocument_YAML(t *testing.T) {
	doc := `
title: Research
mode: parallel
children:
  - title: Sources
    agent: researcher
  - instruction: summarize findings
`
	root, err := ParseDocument([]byte(doc), "coord")
	require.NoError(t, err)

	assert.Equal(t, ModeParallel, root.Mode)
	assert.Equal(t, "coord", root.WorkerKey)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "researcher", root.Children[0].WorkerKey)
	assert.Equal(t, DefaultTitle, root.Children[1].Title)
	assert.Equal(t, "summarize findings", root.Children[1].Task())
}

func TestParseDocument_Defaults(t *testing.T) {
	root, err := ParseDocument([]byte(`{}`), "coordinator")
	require.NoError(t, err)

	assert.Equal(t, DefaultTitle, root.Title)
	assert.Equal(t, ModeSequential, root.Mode)
	assert.Equal(t, "coordinator", root.WorkerKey)
	assert.Empty(t, root.Children)
	assert.NotEmpty(t, root.ID)
}

func TestParseDocument_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", "  "},
		{"bad json", `{"title": `},
		{"array root", `[{"title": "x"}]`},
		{"scalar root", `just words`},
		{"title not string", `{"title": 5}`},
		{"agent not string", `{"agent": ["a"]}`},
		{"bad mode", `{"mode": "sideways"}`},
		{"children not list", `{"children": {"title": "x"}}`},
		{"child not object", `{"children": ["x"]}`},
		{"nested bad mode", `{"children": [{"children": [{"mode": 3}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.doc), "coordinator")
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrInvalidPlan), "got %v", err)
		})
	}
}

func TestNode_DocumentRoundTrip(t *testing.T) {
	root := NewNode("Ship", "ship it", "coordinator", ModeParallel,
		NewNode("Design", "", "designer", ""),
		NewNode("Build", "write code", "builder", ModeSequential,
			NewNode("Test", "", "tester", "")),
	)

	data, err := yaml.Marshal(root.Document())
	require.NoError(t, err)

	back, err := ParseDocument(data, "fallback")
	require.NoError(t, err)

	assert.Equal(t, "Ship", back.Title)
	assert.Equal(t, "ship it", back.Instruction)
	assert.Equal(t, ModeParallel, back.Mode)
	require.Len(t, back.Children, 2)
	assert.Equal(t, "designer", back.Children[0].WorkerKey)
	assert.Equal(t, "write code", back.Children[1].Instruction)
	assert.Equal(t, "tester", back.Children[1].Children[0].WorkerKey)
	assert.NotContains(t, root.Children[0].Document(), "children")
}
