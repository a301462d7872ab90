package hierarchical

import (
	"strings"

	"github.com/BaSui01/delegator/agent/tasks"
	"github.com/BaSui01/delegator/agent/workers"
)

// BuildPrompt renders the worker prompt for node. The output depends only on
// its arguments.
func BuildPrompt(node *tasks.Node, path string, recent []tasks.ContextLogEntry) string {
	var b strings.Builder

	b.WriteString("Path: ")
	b.WriteString(path)
	b.WriteByte('\n')
	b.WriteString(workers.TaskLinePrefix)
	b.WriteString(singleLine(node.Task()))
	b.WriteByte('\n')

	// 多行 instruction 完整附在任务行之后
	if task := node.Task(); strings.Contains(task, "\n") {
		b.WriteString("\nDetails:\n")
		b.WriteString(strings.TrimSpace(task))
		b.WriteByte('\n')
	}

	b.WriteString("\nRecent context:\n")
	if len(recent) == 0 {
		b.WriteString("(none)\n")
		return b.String()
	}
	for _, entry := range recent {
		b.WriteString("- ")
		b.WriteString(entry.Path)
		b.WriteString(": ")
		b.WriteString(singleLine(entry.Summary))
		b.WriteByte('\n')
	}
	return b.String()
}

// summaryInstruction asks the summarizer for strict JSON.
const summaryInstruction = `Summarize the completed work below for the teammates working on later steps.
Reply with one JSON object and nothing else, using exactly these keys:
{"summary": "<one or two sentences>", "key_points": ["<point>"], "follow_ups": ["<open item>"]}`

// buildSummaryPrompt renders the summarizer prompt for a node's output.
func buildSummaryPrompt(path, output string) string {
	var b strings.Builder
	b.WriteString(summaryInstruction)
	b.WriteString("\n\nStep: ")
	b.WriteString(path)
	b.WriteString("\nOutput:\n")
	b.WriteString(output)
	return b.String()
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
