package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/delegator/agent/hierarchical"
	"github.com/BaSui01/delegator/agent/persistence"
	"github.com/BaSui01/delegator/agent/planner"
	"github.com/BaSui01/delegator/agent/report"
	"github.com/BaSui01/delegator/agent/tasks"
	"github.com/BaSui01/delegator/agent/workers"
	"github.com/BaSui01/delegator/internal/server"
	"github.com/BaSui01/delegator/internal/telemetry"
	"github.com/BaSui01/delegator/types"
)

// =============================================================================
// ▶️ run 命令
// =============================================================================

type runOptions struct {
	objective   string
	planPath    string
	metricsAddr string
	quiet       bool
}

func cmdRun(ctx context.Context, reg *prometheus.Registry, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	var opts runOptions
	fs.StringVar(&opts.objective, "objective", "", "Objective to plan and execute; ignored with --plan")
	fs.StringVar(&opts.planPath, "plan", "", "Plan document (JSON or YAML)")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	fs.BoolVar(&opts.quiet, "quiet", false, "Do not print the report")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if opts.objective == "" && fs.NArg() > 0 {
		opts.objective = strings.Join(fs.Args(), " ")
	}
	if opts.objective == "" && opts.planPath == "" {
		return usagef("run needs --objective or --plan")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	a := newApp(cfg, reg, stdout, stderr)
	defer a.close()

	// 保存失败时运行已经完成，报告仍然输出，错误随后返回
	rep, runErr := a.run(ctx, opts)
	if rep == nil {
		return runErr
	}
	if !opts.quiet {
		data, err := rep.Marshal()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(stdout, string(data)); err != nil {
			return err
		}
	}
	return runErr
}

// run 加载或生成计划，执行并保存报告。
// 报告保存失败时返回已完成运行的报告和该错误。
func (a *app) run(ctx context.Context, opts runOptions) (*report.Report, error) {
	providers, err := telemetry.Init(a.cfg.Telemetry, Version, a.logger)
	if err != nil {
		a.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	if providers != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := providers.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("telemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	metricsAddr := opts.metricsAddr
	if metricsAddr == "" {
		metricsAddr = a.cfg.Metrics.ListenAddr
	}
	if metricsAddr != "" {
		srvCfg := server.DefaultConfig()
		srvCfg.Addr = metricsAddr
		srv := server.NewManager(server.Handler(a.metrics), srvCfg, a.logger)
		if err := srv.Start(); err != nil {
			return nil, err
		}
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	reg, err := a.buildRegistry()
	if err != nil {
		return nil, err
	}

	root, err := a.resolvePlan(ctx, reg, opts)
	if err != nil {
		return nil, err
	}

	execOpts := append(a.executorOptions(), hierarchical.WithTracerProvider(providers.TracerProvider()))
	exec := hierarchical.NewExecutor(reg, engineConfig(a.cfg.Scheduler), execOpts...)
	if err := exec.Preflight(root); err != nil {
		return nil, err
	}

	a.logger.Info("executing plan",
		zap.String("objective", root.Title),
		zap.Int("nodes", root.Count()),
		zap.Int("depth", root.Depth()),
	)
	started := time.Now()
	execution, err := exec.Execute(ctx, root)
	providers.RecordRun(ctx, root.Count(), time.Since(started), err)
	if err != nil {
		return nil, err
	}

	rep := report.FromExecution(execution)

	if err := a.saveReport(ctx, rep); err != nil {
		a.logger.Error("failed to save report", zap.String("run_id", rep.RunID), zap.Error(err))
		return rep, err
	}
	fmt.Fprintf(a.stderr, "run %s finished: %d nodes, report saved to %s store\n",
		rep.RunID, rep.ExecutionTree.Count(), a.cfg.Output.Store)
	return rep, nil
}

func (a *app) executorOptions() []hierarchical.Option {
	var mu sync.Mutex
	opts := []hierarchical.Option{
		hierarchical.WithLogger(a.logger),
		hierarchical.WithObserver(func(e tasks.ContextLogEntry) {
			// 并行分支可能同时完成
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(a.stderr, "✓ %s: %s\n", e.Path, e.Summary)
		}),
	}
	if a.collector != nil {
		opts = append(opts, hierarchical.WithRecorder(a.collector))
	}
	return opts
}

// resolvePlan reads the plan file when given, otherwise asks the planner.
func (a *app) resolvePlan(ctx context.Context, reg *workers.Registry, opts runOptions) (*tasks.Node, error) {
	if opts.planPath != "" {
		data, err := os.ReadFile(opts.planPath)
		if err != nil {
			return nil, types.NewInvalidPlanError("read plan file").WithCause(err)
		}
		return tasks.ParseDocument(data, a.cfg.Planner.Coordinator)
	}
	return a.generator(reg).Generate(ctx, opts.objective)
}

func (a *app) generator(reg *workers.Registry) *planner.Generator {
	opts := []planner.Option{planner.WithLogger(a.logger)}
	if a.collector != nil {
		opts = append(opts, planner.WithRecorder(a.collector))
	}
	return planner.NewGenerator(reg, planner.Config{
		PlannerKey:     a.cfg.Planner.Worker,
		CoordinatorKey: a.cfg.Planner.Coordinator,
		MaxDepth:       a.cfg.Planner.MaxDepth,
	}, opts...)
}

func (a *app) saveReport(ctx context.Context, rep *report.Report) (err error) {
	if a.collector != nil {
		defer func() { a.collector.RecordReportSave(a.cfg.Output.Store, err) }()
	}

	store, err := persistence.NewReportStore(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Save(ctx, rep)
}

// =============================================================================
// 🗺️ plan 命令
// =============================================================================

func cmdPlan(ctx context.Context, reg *prometheus.Registry, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	objective := fs.String("objective", "", "Objective to plan")
	format := fs.String("format", "yaml", "Output format: yaml or json")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *objective == "" && fs.NArg() > 0 {
		*objective = strings.Join(fs.Args(), " ")
	}
	if *objective == "" {
		return usagef("plan needs --objective")
	}
	if *format != "yaml" && *format != "json" {
		return usagef("unknown format %q", *format)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	a := newApp(cfg, reg, stdout, stderr)
	defer a.close()

	workerReg, err := a.buildRegistry()
	if err != nil {
		return err
	}
	root, err := a.generator(workerReg).Generate(ctx, *objective)
	if err != nil {
		return err
	}

	var data []byte
	if *format == "json" {
		data, err = json.MarshalIndent(root.Document(), "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(root.Document())
	}
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}

// =============================================================================
// 👷 workers 命令
// =============================================================================

func cmdWorkers(reg *prometheus.Registry, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("workers", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	a := newApp(cfg, reg, stdout, stderr)
	defer a.close()

	workerReg, err := a.buildRegistry()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tKIND\tNAME\tROLE")
	for _, spec := range workerReg.Specs() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.Key, spec.Locator.Kind(), spec.DisplayName(), a.role(spec.Key))
	}
	return tw.Flush()
}

func (a *app) role(key string) string {
	var roles []string
	if key == a.cfg.Planner.Worker {
		roles = append(roles, "planner")
	}
	if key == a.cfg.Planner.Coordinator {
		roles = append(roles, "coordinator")
	}
	if key == a.cfg.Scheduler.Summarizer {
		roles = append(roles, "summarizer")
	}
	if len(roles) == 0 {
		return "-"
	}
	return strings.Join(roles, ",")
}

// =============================================================================
// 📄 reports 命令
// =============================================================================

func cmdReports(ctx context.Context, reg *prometheus.Registry, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("reports", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return usagef("reports needs a subcommand: list or show <run-id>")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	a := newApp(cfg, reg, stdout, stderr)
	defer a.close()

	store, err := persistence.NewReportStore(ctx, cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	switch rest[0] {
	case "list":
		list, err := store.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN ID\tSAVED\tNODES\tOBJECTIVE")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.RunID, s.SavedAt.Format(time.RFC3339), s.Nodes, s.Objective)
		}
		return tw.Flush()

	case "show":
		if len(rest) < 2 {
			return usagef("reports show needs a run id")
		}
		rep, err := store.Load(ctx, rest[1])
		if err != nil {
			return err
		}
		data, err := rep.Marshal()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(data))
		return err

	default:
		return usagef("unknown reports subcommand %q", rest[0])
	}
}
