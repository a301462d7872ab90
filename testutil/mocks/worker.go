// MockWorker 的 worker 测试模拟实现。
//
// 支持固定响应、自定义响应函数、延迟与错误注入，
// 并把每次调用的起止时间写入共享的 CallLog。
package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/delegator/agent/workers"
)

// --- CallLog ---

// Call 记录单次 worker 调用
type Call struct {
	Worker string
	Prompt string
	Start  time.Time
	End    time.Time
	Err    error
}

// CallLog 在多个 MockWorker 之间共享，按调用开始顺序记录
type CallLog struct {
	mu    sync.Mutex
	calls []*Call
}

// NewCallLog 创建空的调用日志
func NewCallLog() *CallLog {
	return &CallLog{}
}

func (l *CallLog) begin(worker, prompt string) *Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := &Call{Worker: worker, Prompt: prompt, Start: time.Now()}
	l.calls = append(l.calls, c)
	return c
}

func (l *CallLog) finish(c *Call, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c.End = time.Now()
	c.Err = err
}

// Calls 返回调用记录的副本
func (l *CallLog) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Call, len(l.calls))
	for i, c := range l.calls {
		out[i] = *c
	}
	return out
}

// Workers 按调用开始顺序返回 worker 标识
func (l *CallLog) Workers() []string {
	calls := l.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Worker
	}
	return out
}

// MaxConcurrent 返回同一时刻进行中的调用数的最大值
func (l *CallLog) MaxConcurrent() int {
	calls := l.Calls()
	best := 0
	for _, a := range calls {
		n := 0
		for _, b := range calls {
			// b 在 a 开始时刻仍在运行
			if !b.Start.After(a.Start) && (b.End.IsZero() || b.End.After(a.Start)) {
				n++
			}
		}
		if n > best {
			best = n
		}
	}
	return best
}

// --- MockWorker ---

// MockWorker 是 workers.Worker 与 workers.Setupper 的模拟实现
type MockWorker struct {
	mu sync.Mutex

	key      string
	log      *CallLog
	response string
	respond  func(prompt string) (string, error)
	err      error
	delay    func() time.Duration
	setupErr error

	prompts    []string
	setupCount int
}

var (
	_ workers.Worker   = (*MockWorker)(nil)
	_ workers.Setupper = (*MockWorker)(nil)
)

// NewMockWorker 创建 MockWorker。默认响应为 "<任务行> done"。
func NewMockWorker(key string) *MockWorker {
	return &MockWorker{key: key}
}

// WithCallLog 设置共享调用日志
func (m *MockWorker) WithCallLog(log *CallLog) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = log
	return m
}

// WithResponse 设置固定响应内容
func (m *MockWorker) WithResponse(response string) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithRespond 设置自定义响应函数，优先于 WithResponse
func (m *MockWorker) WithRespond(fn func(prompt string) (string, error)) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respond = fn
	return m
}

// WithError 设置返回错误
func (m *MockWorker) WithError(err error) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithDelay 设置固定延迟
func (m *MockWorker) WithDelay(d time.Duration) *MockWorker {
	return m.WithDelayFunc(func() time.Duration { return d })
}

// WithDelayFunc 设置每次调用的延迟
func (m *MockWorker) WithDelayFunc(fn func() time.Duration) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = fn
	return m
}

// WithSetupError 设置 Setup 返回的错误
func (m *MockWorker) WithSetupError(err error) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setupErr = err
	return m
}

// Setup 实现 workers.Setupper
func (m *MockWorker) Setup(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setupCount++
	return m.setupErr
}

// RunTask 实现 workers.Worker
func (m *MockWorker) RunTask(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	log, delay := m.log, m.delay
	m.mu.Unlock()

	var call *Call
	if log != nil {
		call = log.begin(m.key, prompt)
	}

	out, err := m.run(ctx, prompt, delay)

	if call != nil {
		log.finish(call, err)
	}
	return out, err
}

func (m *MockWorker) run(ctx context.Context, prompt string, delay func() time.Duration) (string, error) {
	if delay != nil {
		if d := delay(); d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	m.mu.Lock()
	respond, response, err := m.respond, m.response, m.err
	m.mu.Unlock()

	switch {
	case err != nil:
		return "", err
	case respond != nil:
		return respond(prompt)
	case response != "":
		return response, nil
	default:
		return TaskLine(prompt) + " done", nil
	}
}

// SetupCount 返回 Setup 调用次数
func (m *MockWorker) SetupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setupCount
}

// CallCount 返回 RunTask 调用次数
func (m *MockWorker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts 返回收到的全部提示词
func (m *MockWorker) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// TaskLine 提取提示词中的任务行，没有任务行时返回整个提示词
func TaskLine(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if task, ok := strings.CutPrefix(line, workers.TaskLinePrefix); ok {
			return strings.TrimSpace(task)
		}
	}
	return prompt
}
