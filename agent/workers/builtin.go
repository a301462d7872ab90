package workers

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Echo returns the task line of its prompt followed by " done". Prompts
// without a task line are echoed whole.
type Echo struct{}

// RunTask implements Worker.
func (Echo) RunTask(_ context.Context, prompt string) (string, error) {
	for _, line := range strings.Split(prompt, "\n") {
		if task, ok := strings.CutPrefix(line, TaskLinePrefix); ok {
			return strings.TrimSpace(task) + " done", nil
		}
	}
	return prompt, nil
}

// TaskLinePrefix marks the line of a prompt that carries the node's task.
const TaskLinePrefix = "Task: "

// Static always answers with the same text.
type Static struct {
	Text string
}

// RunTask implements Worker.
func (s Static) RunTask(context.Context, string) (string, error) {
	return s.Text, nil
}

// builtinFactories maps builtin names to constructors. Options come from the
// worker's configuration entry.
var builtinFactories = map[string]func(opts map[string]string) Worker{
	"echo": func(map[string]string) Worker { return Echo{} },
	"static": func(opts map[string]string) Worker {
		return Static{Text: opts["text"]}
	},
}

// Builtin returns a Locator for a named built-in worker.
func Builtin(name string, opts map[string]string) (Locator, error) {
	factory, ok := builtinFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown builtin worker %q (available: %s)",
			name, strings.Join(BuiltinNames(), ", "))
	}
	return builtinLocator{name: name, build: func() Worker { return factory(opts) }}, nil
}

// BuiltinNames lists the available built-in workers, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinFactories))
	for name := range builtinFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type builtinLocator struct {
	name  string
	build func() Worker
}

func (l builtinLocator) Locate(context.Context) (Worker, error) {
	return l.build(), nil
}

func (l builtinLocator) Kind() string { return "builtin:" + l.name }
