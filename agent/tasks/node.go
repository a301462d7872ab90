package tasks

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Mode 子任务执行模式
type Mode string

const (
	// ModeSequential runs each child's full subtree before starting the next.
	ModeSequential Mode = "sequential"
	// ModeParallel fans out all children concurrently.
	ModeParallel Mode = "parallel"
)

// ParseMode normalizes a mode string. An empty string yields ModeSequential.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSequential:
		return ModeSequential, nil
	case ModeParallel:
		return ModeParallel, nil
	default:
		return "", fmt.Errorf("unknown execution mode %q", s)
	}
}

// Node 任务树节点
// Nodes are treated as read-only once execution of the root begins.
type Node struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Instruction string  `json:"instruction,omitempty"`
	WorkerKey   string  `json:"agent"`
	Mode        Mode    `json:"mode"`
	Children    []*Node `json:"children,omitempty"`
}

// NewNode creates a node with a fresh random ID. An empty mode defaults to
// ModeSequential.
func NewNode(title, instruction, workerKey string, mode Mode, children ...*Node) *Node {
	if mode == "" {
		mode = ModeSequential
	}
	return &Node{
		ID:          uuid.NewString(),
		Title:       title,
		Instruction: instruction,
		WorkerKey:   workerKey,
		Mode:        mode,
		Children:    children,
	}
}

// Task returns the text a worker should act on: the instruction, or the
// title when the instruction is blank.
func (n *Node) Task() string {
	if strings.TrimSpace(n.Instruction) != "" {
		return n.Instruction
	}
	return n.Title
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Walk visits the tree in pre-order. depth is 0 for the receiver.
// A non-nil error from fn stops the walk and is returned.
func (n *Node) Walk(fn func(node *Node, depth int) error) error {
	return n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) error, depth int) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := child.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Depth returns the number of levels in the tree; a lone leaf has depth 1.
func (n *Node) Depth() int {
	deepest := 0
	for _, child := range n.Children {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Count returns the number of nodes in the tree.
func (n *Node) Count() int {
	total := 1
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}

// WorkerKeys returns the distinct worker identities referenced by the tree,
// in first-seen pre-order.
func (n *Node) WorkerKeys() []string {
	seen := make(map[string]struct{})
	var keys []string
	_ = n.Walk(func(node *Node, _ int) error {
		if _, ok := seen[node.WorkerKey]; !ok {
			seen[node.WorkerKey] = struct{}{}
			keys = append(keys, node.WorkerKey)
		}
		return nil
	})
	return keys
}

// LineagePath joins ancestor titles and the current title into the path
// string used for prompts and context-log keys.
func LineagePath(lineage []string, title string) string {
	parts := make([]string, 0, len(lineage)+1)
	parts = append(parts, lineage...)
	parts = append(parts, title)
	return strings.Join(parts, " > ")
}
