// =============================================================================
// 📦 Delegator 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("delegator.yaml").
//	    WithEnvPrefix("DELEGATOR").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是调度器的完整配置结构
type Config struct {
	// Scheduler 执行引擎配置
	Scheduler SchedulerConfig `yaml:"scheduler" env:"SCHEDULER"`

	// Planner 计划生成配置
	Planner PlannerConfig `yaml:"planner" env:"PLANNER"`

	// Workers worker 注册表条目（仅支持 YAML）
	Workers []WorkerConfig `yaml:"workers" env:"-"`

	// Output 报告输出配置
	Output OutputConfig `yaml:"output" env:"OUTPUT"`

	// Redis 报告存储（store=redis）
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 报告存储（store=sql）
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// SchedulerConfig 执行引擎配置
type SchedulerConfig struct {
	// 全局并发许可数 C
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
	// 提示词中携带的最近上下文条目数 K
	ContextWindow int `yaml:"context_window" env:"CONTEXT_WINDOW"`
	// 摘要 worker 标识（为空则使用截断回退）
	Summarizer string `yaml:"summarizer" env:"SUMMARIZER"`
	// 回退摘要的最大字符数
	SummaryMaxChars int `yaml:"summary_max_chars" env:"SUMMARY_MAX_CHARS"`
	// 并行分支首个失败时取消兄弟分支
	CancelSiblingsOnError bool `yaml:"cancel_siblings_on_error" env:"CANCEL_SIBLINGS_ON_ERROR"`
}

// PlannerConfig 计划生成配置
type PlannerConfig struct {
	// planner worker 标识
	Worker string `yaml:"worker" env:"WORKER"`
	// 未指定 worker 的节点默认使用的协调者标识
	Coordinator string `yaml:"coordinator" env:"COORDINATOR"`
	// 计划树最大深度
	MaxDepth int `yaml:"max_depth" env:"MAX_DEPTH"`
}

// WorkerConfig 单个 worker 的注册配置
type WorkerConfig struct {
	// 标识
	Key string `yaml:"key"`
	// 显示名称
	Name string `yaml:"name"`
	// 类型: builtin, plugin, remote
	Kind string `yaml:"kind"`

	// builtin: 内置 worker 名称与选项
	Builtin string            `yaml:"builtin"`
	Options map[string]string `yaml:"options"`

	// plugin: .so 路径与导出符号
	Path   string `yaml:"path"`
	Symbol string `yaml:"symbol"`

	// remote: OpenAI 兼容服务
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	APIKeyEnv      string        `yaml:"api_key_env"`
	SystemPrompt   string        `yaml:"system_prompt"`
	Timeout        time.Duration `yaml:"timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	// 私有 CA 证书与调试用跳过校验
	CAFile             string `yaml:"ca_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// ResolvedAPIKey returns APIKey, or the value of the APIKeyEnv variable
// when APIKey is empty.
func (w WorkerConfig) ResolvedAPIKey() string {
	if w.APIKey != "" {
		return w.APIKey
	}
	if w.APIKeyEnv != "" {
		return os.Getenv(w.APIKeyEnv)
	}
	return ""
}

// OutputConfig 报告输出配置
type OutputConfig struct {
	// 存储类型: file, memory, redis, sql
	Store string `yaml:"store" env:"STORE"`
	// file 存储目录
	Dir string `yaml:"dir" env:"DIR"`
	// redis 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// redis 报告过期时间（0 表示不过期）
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: sqlite, postgres, mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// /metrics 监听地址（为空则不启动）
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "DELEGATOR",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration 按 Go duration 语法解析
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 校验
// =============================================================================

var (
	validWorkerKinds = map[string]bool{"builtin": true, "plugin": true, "remote": true}
	validStores      = map[string]bool{"file": true, "memory": true, "redis": true, "sql": true}
	validDrivers     = map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
)

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Scheduler.Concurrency <= 0 {
		errs = append(errs, "scheduler.concurrency must be positive")
	}
	if c.Scheduler.ContextWindow < 0 {
		errs = append(errs, "scheduler.context_window must not be negative")
	}
	if c.Scheduler.SummaryMaxChars <= 0 {
		errs = append(errs, "scheduler.summary_max_chars must be positive")
	}
	if c.Planner.MaxDepth <= 0 {
		errs = append(errs, "planner.max_depth must be positive")
	}
	if c.Planner.Coordinator == "" {
		errs = append(errs, "planner.coordinator must be set")
	}

	seen := make(map[string]bool, len(c.Workers))
	for i, w := range c.Workers {
		switch {
		case w.Key == "":
			errs = append(errs, fmt.Sprintf("workers[%d].key is empty", i))
		case seen[w.Key]:
			errs = append(errs, fmt.Sprintf("workers[%d].key %q is duplicated", i, w.Key))
		}
		seen[w.Key] = true

		if !validWorkerKinds[w.Kind] {
			errs = append(errs, fmt.Sprintf("workers[%d].kind %q must be builtin, plugin or remote", i, w.Kind))
		}
	}

	if !validStores[c.Output.Store] {
		errs = append(errs, fmt.Sprintf("output.store %q is not supported", c.Output.Store))
	}
	if c.Output.Store == "sql" && !validDrivers[c.Database.Driver] {
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
