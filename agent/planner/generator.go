package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/delegator/agent/structured"
	"github.com/BaSui01/delegator/agent/tasks"
	"github.com/BaSui01/delegator/agent/workers"
	"github.com/BaSui01/delegator/types"
)

// WorkerSource is the part of the worker registry the generator needs.
type WorkerSource interface {
	GetWorker(ctx context.Context, key string) (workers.Worker, error)
	Keys() []string
}

// Recorder observes plan generation outcomes.
type Recorder interface {
	RecordPlanGeneration(err error)
}

// Config 计划生成配置
type Config struct {
	// PlannerKey 负责拆解目标的 worker
	PlannerKey string
	// CoordinatorKey 未指定 worker 的节点使用的标识
	CoordinatorKey string
	// MaxDepth 计划树允许的最大层数，根节点为第 1 层
	MaxDepth int
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRecorder reports every generation attempt to rec.
func WithRecorder(rec Recorder) Option {
	return func(g *Generator) {
		g.recorder = rec
	}
}

// Generator turns a free-text objective into a task tree by asking the
// planner worker for a JSON plan.
type Generator struct {
	source   WorkerSource
	config   Config
	recorder Recorder
	logger   *zap.Logger
}

// NewGenerator creates a plan generator.
func NewGenerator(source WorkerSource, cfg Config, opts ...Option) *Generator {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}
	g := &Generator{
		source: source,
		config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("component", "planner"))
	return g
}

// Generate asks the planner for a plan and builds the tree. Output without a
// JSON object, or a plan that does not fit the depth limit, fails with a
// plan generation error; nothing is guessed.
func (g *Generator) Generate(ctx context.Context, objective string) (root *tasks.Node, err error) {
	defer func() {
		if g.recorder != nil {
			g.recorder.RecordPlanGeneration(err)
		}
	}()

	objective = strings.TrimSpace(objective)
	if objective == "" {
		return nil, types.NewPlanGenerationError("objective is empty")
	}

	planner, err := g.source.GetWorker(ctx, g.config.PlannerKey)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(objective, g.candidates(), g.config.MaxDepth)
	reply, err := planner.RunTask(ctx, prompt)
	if err != nil {
		return nil, types.NewWorkerExecutionError(g.config.PlannerKey, err)
	}

	data, ok := structured.ExtractJSON(reply)
	if !ok {
		g.logger.Warn("planner reply carried no JSON object",
			zap.String("planner", g.config.PlannerKey),
			zap.Int("reply_chars", len(reply)),
		)
		return nil, types.NewPlanGenerationError("planner reply contains no JSON object").
			WithCause(types.NewExtractionError("no JSON object found in planner reply"))
	}

	root, err = tasks.FromMap(data, g.config.CoordinatorKey)
	if err != nil {
		return nil, types.NewPlanGenerationError("planner reply is not a valid plan").WithCause(err)
	}

	if depth := root.Depth(); depth > g.config.MaxDepth {
		return nil, types.NewPlanGenerationError(
			fmt.Sprintf("plan depth %d exceeds limit %d", depth, g.config.MaxDepth))
	}

	// 根节点标题始终是目标本身
	if root.Title == tasks.DefaultTitle {
		root.Title = objective
	}

	g.logger.Info("plan generated",
		zap.String("objective", objective),
		zap.Int("nodes", root.Count()),
		zap.Int("depth", root.Depth()),
	)
	return root, nil
}

// candidates lists the identities a plan may assign, without the planner.
func (g *Generator) candidates() []string {
	keys := g.source.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != g.config.PlannerKey {
			out = append(out, k)
		}
	}
	return out
}

// BuildPrompt renders the planner prompt.
func BuildPrompt(objective string, workerKeys []string, maxDepth int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Objective: %s\n\n", objective)
	b.WriteString("Break the objective into a tree of tasks and assign each task to one of these workers:\n")
	for _, k := range workerKeys {
		fmt.Fprintf(&b, "- %s\n", k)
	}
	fmt.Fprintf(&b, "\nThe tree may be at most %d levels deep, counting the root.\n", maxDepth)
	b.WriteString(`Use "sequential" mode when children depend on each other and "parallel" when they do not.
Reply with one JSON object and nothing else:
{"title": "...", "instruction": "...", "agent": "<worker>", "mode": "sequential|parallel", "children": [ ... ]}`)
	return b.String()
}
