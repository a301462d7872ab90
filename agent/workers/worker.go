package workers

import "context"

// Worker turns an instruction prompt into output text.
type Worker interface {
	RunTask(ctx context.Context, prompt string) (string, error)
}

// Setupper is implemented by workers that need one-time initialization.
// The registry calls Setup exactly once per identity, before first use.
type Setupper interface {
	Setup(ctx context.Context) error
}

// Func adapts a plain function to the Worker interface.
type Func func(ctx context.Context, prompt string) (string, error)

// RunTask calls f.
func (f Func) RunTask(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Locator describes how to obtain a worker's behavior.
type Locator interface {
	// Locate constructs a new worker instance.
	Locate(ctx context.Context) (Worker, error)
	// Kind names the locator variant, for logs and listings.
	Kind() string
}

// Spec 注册表条目
type Spec struct {
	Key     string
	Name    string
	Locator Locator
}

// DisplayName returns Name, or Key when no name was given.
func (s Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Key
}
