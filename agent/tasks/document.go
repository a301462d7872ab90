package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/delegator/types"
)

// DefaultTitle is used for plan entries that carry no title.
const DefaultTitle = "Task"

// Accepted key aliases in plan documents, in lookup priority order.
var (
	instructionKeys = []string{"instruction", "description", "task"}
	workerKeys      = []string{"agent", "agent_key", "worker"}
)

// ParseDocument decodes a JSON or YAML plan document into a task tree.
// Entries without a worker fall back to coordinator.
func ParseDocument(data []byte, coordinator string) (*Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, types.NewInvalidPlanError("plan document is empty")
	}

	var doc any
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, types.NewInvalidPlanError("plan document is not valid JSON").WithCause(err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return nil, types.NewInvalidPlanError("plan document is not valid YAML").WithCause(err)
		}
	}

	m, ok := doc.(map[string]any)
	if !ok {
		return nil, types.NewInvalidPlanError(fmt.Sprintf("plan document root must be an object, got %T", doc))
	}
	return FromMap(m, coordinator)
}

// FromMap builds a task tree from an untyped mapping such as decoded planner
// output. Missing keys take defaults (title "Task", mode sequential, worker
// coordinator); present keys of the wrong type fail with ErrInvalidPlan.
func FromMap(m map[string]any, coordinator string) (*Node, error) {
	return fromMap(m, coordinator, "$")
}

func fromMap(m map[string]any, coordinator, at string) (*Node, error) {
	title, err := optionalString(m, at, "title")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	instruction, err := firstString(m, at, instructionKeys)
	if err != nil {
		return nil, err
	}

	worker, err := firstString(m, at, workerKeys)
	if err != nil {
		return nil, err
	}
	worker = strings.TrimSpace(worker)
	if worker == "" {
		worker = coordinator
	}

	rawMode, err := optionalString(m, at, "mode")
	if err != nil {
		return nil, err
	}
	mode, err := ParseMode(rawMode)
	if err != nil {
		return nil, types.NewInvalidPlanError(fmt.Sprintf("%s.mode: %v", at, err))
	}

	var children []*Node
	if raw, ok := m["children"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, types.NewInvalidPlanError(fmt.Sprintf("%s.children must be a list, got %T", at, raw))
		}
		children = make([]*Node, 0, len(list))
		for i, item := range list {
			childAt := fmt.Sprintf("%s.children[%d]", at, i)
			cm, ok := item.(map[string]any)
			if !ok {
				return nil, types.NewInvalidPlanError(fmt.Sprintf("%s must be an object, got %T", childAt, item))
			}
			child, err := fromMap(cm, coordinator, childAt)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
	}

	return NewNode(title, instruction, worker, mode, children...), nil
}

func optionalString(m map[string]any, at, key string) (string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", types.NewInvalidPlanError(fmt.Sprintf("%s.%s must be a string, got %T", at, key, raw))
	}
	return s, nil
}

func firstString(m map[string]any, at string, keys []string) (string, error) {
	for _, key := range keys {
		s, err := optionalString(m, at, key)
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
	}
	return "", nil
}

// Document returns n as a plan-document mapping that ParseDocument and
// FromMap accept. Node IDs are not included.
func (n *Node) Document() map[string]any {
	doc := map[string]any{
		"title": n.Title,
		"agent": n.WorkerKey,
		"mode":  string(n.Mode),
	}
	if n.Instruction != "" {
		doc["instruction"] = n.Instruction
	}
	if len(n.Children) > 0 {
		children := make([]any, len(n.Children))
		for i, c := range n.Children {
			children[i] = c.Document()
		}
		doc["children"] = children
	}
	return doc
}
