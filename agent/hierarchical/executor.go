package hierarchical

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/delegator/agent/tasks"
	"github.com/BaSui01/delegator/agent/workers"
	"github.com/BaSui01/delegator/internal/telemetry"
	"github.com/BaSui01/delegator/types"
)

// =============================================================================
// 🎯 配置
// =============================================================================

// Config 执行引擎配置
type Config struct {
	// Concurrency 全局 worker 调用许可数
	Concurrency int `json:"concurrency"`
	// ContextWindow 提示词携带的最近上下文条目数，0 表示不携带
	ContextWindow int `json:"context_window"`
	// SummarizerKey 摘要 worker 标识，为空时直接截断输出
	SummarizerKey string `json:"summarizer"`
	// SummaryMaxChars 截断摘要的最大字符数
	SummaryMaxChars int `json:"summary_max_chars"`
	// CancelSiblingsOnError 并行分支首个失败时取消其余兄弟分支
	CancelSiblingsOnError bool `json:"cancel_siblings_on_error"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Concurrency:           4,
		ContextWindow:         5,
		SummaryMaxChars:       280,
		CancelSiblingsOnError: true,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.ContextWindow < 0 {
		c.ContextWindow = 0
	}
	if c.SummaryMaxChars <= 0 {
		c.SummaryMaxChars = d.SummaryMaxChars
	}
	return c
}

// =============================================================================
// 🔌 依赖
// =============================================================================

// Registry resolves worker identities to ready instances.
type Registry interface {
	ResolveSpec(key string) (workers.Spec, error)
	GetWorker(ctx context.Context, key string) (workers.Worker, error)
}

// Recorder observes engine activity. internal/metrics.Collector satisfies it.
type Recorder interface {
	RecordWorkerCall(worker string, duration time.Duration, err error)
	PermitAcquired(wait time.Duration)
	PermitReleased()
	RecordNodeExecution(mode string)
	RecordSummaryFallback(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordWorkerCall(string, time.Duration, error) {}
func (nopRecorder) PermitAcquired(time.Duration)                  {}
func (nopRecorder) PermitReleased()                               {}
func (nopRecorder) RecordNodeExecution(string)                    {}
func (nopRecorder) RecordSummaryFallback(string)                  {}

// Observer is called after every context-log append. Parallel branches call
// it concurrently.
type Observer func(entry tasks.ContextLogEntry)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder reports engine activity to rec.
func WithRecorder(rec Recorder) Option {
	return func(e *Executor) {
		if rec != nil {
			e.recorder = rec
		}
	}
}

// WithObserver registers a progress hook.
func WithObserver(fn Observer) Option {
	return func(e *Executor) {
		e.observer = fn
	}
}

// WithTracerProvider uses tp instead of the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) {
		e.tracer = telemetry.Tracer(tp)
	}
}

// =============================================================================
// ⚙️ 执行引擎
// =============================================================================

// Executor walks a task tree and dispatches each node to its worker under a
// global bound on simultaneous worker calls.
type Executor struct {
	registry Registry
	config   Config
	recorder Recorder
	observer Observer
	tracer   trace.Tracer
	logger   *zap.Logger
}

// Execution is the outcome of one successful run.
type Execution struct {
	RunID      string
	Root       *tasks.Result
	Log        []tasks.ContextLogEntry
	StartedAt  time.Time
	FinishedAt time.Time
}

// run 单次执行共享的状态：许可信号量与上下文日志
type run struct {
	id  string
	sem *semaphore.Weighted
	log *tasks.ContextLog
}

// NewExecutor creates an engine bound to registry.
func NewExecutor(registry Registry, cfg Config, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		config:   cfg.normalized(),
		recorder: nopRecorder{},
		tracer:   telemetry.Tracer(nil),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "executor"))
	return e
}

// Config returns the effective configuration.
func (e *Executor) Config() Config {
	return e.config
}

// Preflight reports the first worker identity in the tree, or the configured
// summarizer, that the registry does not know. No worker is constructed.
func (e *Executor) Preflight(root *tasks.Node) error {
	if root == nil {
		return types.NewConfigurationError("", "task tree is empty")
	}
	for _, key := range root.WorkerKeys() {
		if _, err := e.registry.ResolveSpec(key); err != nil {
			return err
		}
	}
	if e.config.SummarizerKey != "" {
		if _, err := e.registry.ResolveSpec(e.config.SummarizerKey); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the whole tree. It returns either a complete execution or the
// first error observed; there is no partial result.
func (e *Executor) Execute(ctx context.Context, root *tasks.Node) (*Execution, error) {
	if root == nil {
		return nil, types.NewConfigurationError("", "task tree is empty")
	}

	runID, ok := types.RunID(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = types.WithRunID(ctx, runID)
	}

	r := &run{
		id:  runID,
		sem: semaphore.NewWeighted(int64(e.config.Concurrency)),
		log: tasks.NewContextLog(),
	}

	ctx, span := e.tracer.Start(ctx, "delegator.run", trace.WithAttributes(
		attribute.String("delegator.run_id", runID),
		attribute.String("delegator.objective", root.Title),
		attribute.Int("delegator.nodes", root.Count()),
	))
	defer span.End()

	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("execution started",
		zap.String("objective", root.Title),
		zap.Int("nodes", root.Count()),
		zap.Int("concurrency", e.config.Concurrency),
	)

	started := time.Now()
	result, err := e.executeNode(ctx, r, root, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("execution failed",
			zap.Duration("duration", time.Since(started)),
			zap.Int("log_entries", r.log.Len()),
			zap.Error(err),
		)
		return nil, err
	}

	finished := time.Now()
	logger.Info("execution completed",
		zap.Duration("duration", finished.Sub(started)),
		zap.Int("log_entries", r.log.Len()),
	)

	return &Execution{
		RunID:      runID,
		Root:       result,
		Log:        r.log.Snapshot(),
		StartedAt:  started,
		FinishedAt: finished,
	}, nil
}

// executeNode 执行单个节点及其子树
func (e *Executor) executeNode(ctx context.Context, r *run, node *tasks.Node, lineage []string) (*tasks.Result, error) {
	path := tasks.LineagePath(lineage, node.Title)

	ctx = types.WithNodeID(ctx, node.ID)
	ctx, span := e.tracer.Start(ctx, "delegator.node", trace.WithAttributes(
		attribute.String("delegator.node_id", node.ID),
		attribute.String("delegator.path", path),
		attribute.String("delegator.worker", node.WorkerKey),
		attribute.String("delegator.mode", string(node.Mode)),
	))
	defer span.End()

	result, err := e.runNode(ctx, r, node, lineage, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (e *Executor) runNode(ctx context.Context, r *run, node *tasks.Node, lineage []string, path string) (*tasks.Result, error) {
	// 1. 解析 worker，未知标识直接失败
	worker, err := e.registry.GetWorker(ctx, node.WorkerKey)
	if err != nil {
		return nil, err
	}

	// 2. 构建提示词
	prompt := BuildPrompt(node, path, r.log.Recent(e.config.ContextWindow))

	// 3-4. 持有许可调用 worker
	output, err := e.call(ctx, r, node.WorkerKey, worker, prompt)
	if err != nil {
		return nil, types.NewWorkerExecutionError(node.WorkerKey, err)
	}

	// 5. 摘要，失败不致命
	summary := e.summarize(ctx, r, node, path, output)

	// 6. 追加上下文日志
	entry := tasks.ContextLogEntry{Path: path, Summary: summary.Text()}
	r.log.Append(entry)
	if e.observer != nil {
		e.observer(entry)
	}
	e.recorder.RecordNodeExecution(string(node.Mode))

	e.logger.Debug("node completed",
		zap.String("run_id", r.id),
		zap.String("node_id", node.ID),
		zap.String("path", path),
		zap.String("worker", node.WorkerKey),
		zap.Int("children", len(node.Children)),
	)

	result := &tasks.Result{Node: node, Output: output, Summary: summary}

	// 7. 叶子节点
	if node.IsLeaf() {
		return result, nil
	}

	// 8. 子节点
	childLineage := make([]string, 0, len(lineage)+1)
	childLineage = append(childLineage, lineage...)
	childLineage = append(childLineage, node.Title)

	if node.Mode == tasks.ModeParallel {
		result.Children, err = e.runParallel(ctx, r, node.Children, childLineage)
	} else {
		result.Children, err = e.runSequential(ctx, r, node.Children, childLineage)
	}
	if err != nil {
		return nil, err
	}

	// 9. 组装
	return result, nil
}

// call invokes worker while holding one permit. The permit is released as
// soon as the call returns, never held across child recursion.
func (e *Executor) call(ctx context.Context, r *run, key string, worker workers.Worker, prompt string) (string, error) {
	waitStart := time.Now()
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire permit: %w", err)
	}
	e.recorder.PermitAcquired(time.Since(waitStart))

	ctx, span := e.tracer.Start(ctx, "delegator.worker", trace.WithAttributes(
		attribute.String("delegator.worker", key),
		attribute.Int("delegator.prompt_chars", len(prompt)),
	))

	start := time.Now()
	output, err := worker.RunTask(ctx, prompt)
	duration := time.Since(start)

	r.sem.Release(1)
	e.recorder.PermitReleased()
	e.recorder.RecordWorkerCall(key, duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return output, err
}

func (e *Executor) runSequential(ctx context.Context, r *run, children []*tasks.Node, lineage []string) ([]*tasks.Result, error) {
	results := make([]*tasks.Result, 0, len(children))
	for _, child := range children {
		res, err := e.executeNode(ctx, r, child, lineage)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// runParallel fans out every child and joins them by index, so the result
// order follows declaration order whatever the completion order.
func (e *Executor) runParallel(ctx context.Context, r *run, children []*tasks.Node, lineage []string) ([]*tasks.Result, error) {
	results := make([]*tasks.Result, len(children))

	if e.config.CancelSiblingsOnError {
		g, gctx := errgroup.WithContext(ctx)
		for i, child := range children {
			g.Go(func() error {
				res, err := e.executeNode(gctx, r, child, lineage)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	}

	// 不取消兄弟分支：全部跑完，按声明顺序返回第一个错误
	errs := make([]error, len(children))
	var wg sync.WaitGroup
	for i, child := range children {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = e.executeNode(ctx, r, child, lineage)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
