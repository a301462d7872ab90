package workers

import (
	"context"
	"errors"
	"fmt"
	"plugin"
)

// FactoryLocator builds workers with an in-process constructor.
type FactoryLocator struct {
	New func(ctx context.Context) (Worker, error)
}

// Factory wraps a constructor as a Locator.
func Factory(fn func(ctx context.Context) (Worker, error)) FactoryLocator {
	return FactoryLocator{New: fn}
}

// Instance returns a Locator that always yields w.
func Instance(w Worker) FactoryLocator {
	return FactoryLocator{New: func(context.Context) (Worker, error) { return w, nil }}
}

// Locate calls the constructor.
func (l FactoryLocator) Locate(ctx context.Context) (Worker, error) {
	if l.New == nil {
		return nil, errors.New("factory locator has no constructor")
	}
	w, err := l.New(ctx)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errors.New("factory returned a nil worker")
	}
	return w, nil
}

// Kind implements Locator.
func (FactoryLocator) Kind() string { return "factory" }

// DefaultPluginSymbol is looked up when PluginLocator.Symbol is empty.
const DefaultPluginSymbol = "NewWorker"

// PluginLocator loads a worker from a Go plugin (.so) by path and symbol.
// The symbol must be a func() Worker, a func() (Worker, error), or a
// variable of type Worker.
type PluginLocator struct {
	Path   string
	Symbol string
}

// Locate opens the plugin and resolves the symbol.
func (l PluginLocator) Locate(_ context.Context) (Worker, error) {
	if l.Path == "" {
		return nil, errors.New("plugin path is empty")
	}
	symbol := l.Symbol
	if symbol == "" {
		symbol = DefaultPluginSymbol
	}

	p, err := plugin.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open plugin %s: %w", l.Path, err)
	}
	sym, err := p.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("lookup %s in %s: %w", symbol, l.Path, err)
	}
	return workerFromSymbol(sym, symbol)
}

// Kind implements Locator.
func (PluginLocator) Kind() string { return "plugin" }

func workerFromSymbol(sym any, name string) (Worker, error) {
	switch v := sym.(type) {
	case func() Worker:
		return v(), nil
	case func() (Worker, error):
		return v()
	case *Worker:
		return *v, nil
	case Worker:
		return v, nil
	default:
		return nil, fmt.Errorf("symbol %s has unsupported type %T", name, sym)
	}
}
