package workers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/delegator/types"
)

// ConstructionRecorder observes worker construction attempts.
type ConstructionRecorder interface {
	RecordWorkerConstruction(worker, kind string, duration time.Duration, err error)
}

// Registry 按标识解析 worker，并保证每个标识只构建一次
type Registry struct {
	mu        sync.RWMutex
	specs     map[string]Spec
	instances map[string]Worker

	// 每个标识一把构建锁，按需创建。容量为 1 的 channel 以便响应 ctx 取消。
	locks sync.Map // map[string]chan struct{}

	recorder ConstructionRecorder
	logger   *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithConstructionRecorder reports every construction attempt to rec.
func WithConstructionRecorder(rec ConstructionRecorder) RegistryOption {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		specs:     make(map[string]Spec),
		instances: make(map[string]Worker),
		logger:    logger.With(zap.String("component", "worker_registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a spec. Empty and duplicate keys are configuration errors.
func (r *Registry) Register(spec Spec) error {
	if spec.Key == "" {
		return types.NewConfigurationError("", "worker key is empty")
	}
	if spec.Locator == nil {
		return types.NewConfigurationError(spec.Key, fmt.Sprintf("worker %q has no locator", spec.Key))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Key]; exists {
		return types.NewConfigurationError(spec.Key, fmt.Sprintf("worker %q already registered", spec.Key))
	}
	r.specs[spec.Key] = spec

	r.logger.Debug("worker registered",
		zap.String("worker", spec.Key),
		zap.String("kind", spec.Locator.Kind()),
	)
	return nil
}

// ResolveSpec returns the spec for key, or a configuration error if the
// identity is unknown.
func (r *Registry) ResolveSpec(key string) (Spec, error) {
	r.mu.RLock()
	spec, ok := r.specs[key]
	r.mu.RUnlock()

	if !ok {
		return Spec{}, types.NewConfigurationError(key, fmt.Sprintf("unknown worker %q", key))
	}
	return spec, nil
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, err := r.ResolveSpec(key)
	return err == nil
}

// Keys returns the registered identities, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.specs))
	for k := range r.specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Specs returns the registered specs sorted by key.
func (r *Registry) Specs() []Spec {
	keys := r.Keys()

	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(keys))
	for _, k := range keys {
		specs = append(specs, r.specs[k])
	}
	return specs
}

// GetWorker returns the ready instance for key, constructing and setting it
// up on first use. Concurrent callers for the same key share one
// construction. A failed construction is not cached; the next call retries.
func (r *Registry) GetWorker(ctx context.Context, key string) (Worker, error) {
	// 1. 快路径
	if w, ok := r.cached(key); ok {
		return w, nil
	}

	spec, err := r.ResolveSpec(key)
	if err != nil {
		return nil, err
	}

	// 2. 按标识加锁，二次检查
	lock := r.lockFor(key)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-lock }()

	if w, ok := r.cached(key); ok {
		return w, nil
	}

	// 3. 构建 + Setup
	w, err := r.construct(ctx, spec)
	if err != nil {
		return nil, err
	}

	// 4. 缓存
	r.mu.Lock()
	r.instances[key] = w
	r.mu.Unlock()

	return w, nil
}

func (r *Registry) cached(key string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.instances[key]
	return w, ok
}

func (r *Registry) lockFor(key string) chan struct{} {
	if l, ok := r.locks.Load(key); ok {
		return l.(chan struct{})
	}
	l, _ := r.locks.LoadOrStore(key, make(chan struct{}, 1))
	return l.(chan struct{})
}

func (r *Registry) construct(ctx context.Context, spec Spec) (w Worker, err error) {
	start := time.Now()
	kind := spec.Locator.Kind()

	defer func() {
		duration := time.Since(start)
		if r.recorder != nil {
			r.recorder.RecordWorkerConstruction(spec.Key, kind, duration, err)
		}
		if err != nil {
			r.logger.Warn("worker construction failed",
				zap.String("worker", spec.Key),
				zap.String("kind", kind),
				zap.Error(err),
			)
			return
		}
		r.logger.Info("worker constructed",
			zap.String("worker", spec.Key),
			zap.String("name", spec.DisplayName()),
			zap.String("kind", kind),
			zap.Duration("duration", duration),
		)
	}()

	w, err = spec.Locator.Locate(ctx)
	if err == nil && w == nil {
		err = errors.New("locator returned a nil worker")
	}
	if err != nil {
		return nil, types.NewLoadError(spec.Key, err)
	}

	if s, ok := w.(Setupper); ok {
		if err = s.Setup(ctx); err != nil {
			return nil, types.NewLoadError(spec.Key, fmt.Errorf("setup: %w", err))
		}
	}
	return w, nil
}
