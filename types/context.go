package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyRunID  contextKey = "run_id"
	keyNodeID contextKey = "node_id"
)

// WithRunID adds the execution run ID to context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, keyRunID, runID)
}

// RunID extracts the execution run ID from context.
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRunID).(string)
	return v, ok && v != ""
}

// WithNodeID adds the ID of the task node being executed to context.
// Workers may read it to correlate their own logs with the run.
func WithNodeID(ctx context.Context, nodeID string) context.Context {
	return context.WithValue(ctx, keyNodeID, nodeID)
}

// NodeID extracts the task node ID from context.
func NodeID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyNodeID).(string)
	return v, ok && v != ""
}
