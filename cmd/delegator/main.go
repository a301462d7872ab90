// =============================================================================
// delegator 主入口
// =============================================================================
// 层级任务委派调度器的命令行入口
//
// 使用方法:
//
//	delegator run --objective "Ship feature X"     # 生成计划并执行
//	delegator run --plan plan.yaml                 # 执行已有计划
//	delegator plan --objective "Ship feature X"    # 只生成计划
//	delegator workers                              # 列出已配置的 worker
//	delegator reports list                         # 列出已保存的报告
//	delegator reports show <run-id>                # 输出一份报告
//	delegator version                              # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/delegator/config"
	"github.com/BaSui01/delegator/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitUsage
	}

	reg := newMetricsRegistry()

	var err error
	switch args[0] {
	case "run":
		err = cmdRun(ctx, reg, args[1:], stdout, stderr)
	case "plan":
		err = cmdPlan(ctx, reg, args[1:], stdout, stderr)
	case "workers":
		err = cmdWorkers(reg, args[1:], stdout, stderr)
	case "reports":
		err = cmdReports(ctx, reg, args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
		return exitOK
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return exitUsage
	}

	if err != nil {
		if isUsage(err) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if code := types.GetErrorCode(err); code != "" {
			fmt.Fprintf(stderr, "  code: %s\n", code)
		}
		return exitError
	}
	return exitOK
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "delegator %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `delegator - hierarchical task delegation

Usage:
  delegator <command> [options]

Commands:
  run       Execute a plan (from --plan, or generated from --objective)
  plan      Generate a plan for an objective and print it
  workers   List configured workers
  reports   List or show saved run reports
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>         Path to configuration file (YAML)
  --objective <text>      Objective to plan and execute
  --plan <path>           JSON or YAML plan document to execute
  --metrics-addr <addr>   Serve Prometheus metrics during the run
  --quiet                 Do not print the report

Options for 'plan':
  --config <path>         Path to configuration file (YAML)
  --objective <text>      Objective to plan
  --format <yaml|json>    Output format (default yaml)

Examples:
  delegator run --config delegator.yaml --objective "Ship feature X"
  delegator plan --objective "Ship feature X" > plan.yaml
  delegator run --plan plan.yaml
  delegator reports show 3f1c...`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddCaller())
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
