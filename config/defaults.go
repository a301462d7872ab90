// =============================================================================
// 📦 Delegator 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Scheduler: DefaultSchedulerConfig(),
		Planner:   DefaultPlannerConfig(),
		Workers:   DefaultWorkers(),
		Output:    DefaultOutputConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultSchedulerConfig 返回默认执行引擎配置
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Concurrency:           4,
		ContextWindow:         5,
		SummaryMaxChars:       280,
		CancelSiblingsOnError: true,
	}
}

// DefaultPlannerConfig 返回默认计划生成配置
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Worker:      "planner",
		Coordinator: "coordinator",
		MaxDepth:    3,
	}
}

// DefaultWorkers 返回默认 worker 列表：一个回显型协调者
func DefaultWorkers() []WorkerConfig {
	return []WorkerConfig{
		{Key: "coordinator", Name: "Coordinator", Kind: "builtin", Builtin: "echo"},
	}
}

// DefaultOutputConfig 返回默认报告输出配置
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Store:     "file",
		Dir:       "reports",
		KeyPrefix: "delegator:",
		TTL:       0,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "delegator",
		Password:        "",
		Name:            "delegator.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "delegator",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:  "delegator",
		ListenAddr: "",
	}
}
