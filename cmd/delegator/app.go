package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/BaSui01/delegator/agent/hierarchical"
	"github.com/BaSui01/delegator/agent/workers"
	"github.com/BaSui01/delegator/config"
	"github.com/BaSui01/delegator/internal/metrics"
	"github.com/BaSui01/delegator/internal/tlsutil"
	"github.com/BaSui01/delegator/types"
)

// app 一次命令执行共享的依赖
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	metrics   *prometheus.Registry
	stdout    io.Writer
	stderr    io.Writer
}

// usageError marks errors caused by bad command-line input.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// parseFlags reports flag errors as usage errors. The flag set has already
// printed the details.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	return nil
}

func isUsage(err error) bool {
	var u usageError
	return errors.As(err, &u) || errors.Is(err, flag.ErrHelp)
}

// newMetricsRegistry 每次调用 runMain 创建一个 registry，命令的 Collector 注册在其上
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// loadConfig 加载并验证配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader().WithValidator(func(c *config.Config) error { return c.Validate() })
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "load config").WithCause(err)
	}
	return cfg, nil
}

func newApp(cfg *config.Config, reg *prometheus.Registry, stdout, stderr io.Writer) *app {
	logger := initLogger(cfg.Log)
	return &app{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(reg, cfg.Metrics.Namespace, logger),
		metrics:   reg,
		stdout:    stdout,
		stderr:    stderr,
	}
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// engineConfig 把调度配置映射为执行引擎配置
func engineConfig(s config.SchedulerConfig) hierarchical.Config {
	return hierarchical.Config{
		Concurrency:           s.Concurrency,
		ContextWindow:         s.ContextWindow,
		SummarizerKey:         s.Summarizer,
		SummaryMaxChars:       s.SummaryMaxChars,
		CancelSiblingsOnError: s.CancelSiblingsOnError,
	}
}

// =============================================================================
// 🔌 Worker 注册
// =============================================================================

// buildRegistry registers every configured worker. Nothing is constructed
// until a worker is first used.
func (a *app) buildRegistry() (*workers.Registry, error) {
	var opts []workers.RegistryOption
	if a.collector != nil {
		opts = append(opts, workers.WithConstructionRecorder(a.collector))
	}
	reg := workers.NewRegistry(a.logger, opts...)

	for _, wc := range a.cfg.Workers {
		loc, err := locatorFor(wc, a.logger)
		if err != nil {
			return nil, types.NewConfigurationError(wc.Key, fmt.Sprintf("worker %q: %v", wc.Key, err))
		}
		if err := reg.Register(workers.Spec{Key: wc.Key, Name: wc.Name, Locator: loc}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func locatorFor(wc config.WorkerConfig, logger *zap.Logger) (workers.Locator, error) {
	switch wc.Kind {
	case "builtin":
		name := wc.Builtin
		if name == "" {
			name = "echo"
		}
		return workers.Builtin(name, wc.Options)
	case "plugin":
		if wc.Path == "" {
			return nil, errors.New("plugin path is empty")
		}
		return workers.PluginLocator{Path: wc.Path, Symbol: wc.Symbol}, nil
	case "remote":
		tlsConfig, err := tlsutil.ClientConfig(tlsutil.ClientOptions{
			CAFile:             wc.CAFile,
			InsecureSkipVerify: wc.InsecureSkipVerify,
		})
		if err != nil {
			return nil, err
		}
		return workers.Remote(workers.RemoteConfig{
			BaseURL:        wc.BaseURL,
			Model:          wc.Model,
			APIKey:         wc.ResolvedAPIKey(),
			SystemPrompt:   wc.SystemPrompt,
			Timeout:        wc.Timeout,
			RateLimitRPS:   wc.RateLimitRPS,
			RateLimitBurst: wc.RateLimitBurst,
			TLS:            tlsConfig,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported kind %q", wc.Kind)
	}
}
