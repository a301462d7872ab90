// Package cache wraps the redis client used by the redis report store.
// This package is internal and should not be imported by external projects.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/delegator/config"
)

// =============================================================================
// 💾 Redis 管理器
// =============================================================================

// Manager Redis 连接管理器
type Manager struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// Config Redis 连接配置
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 默认过期时间，0 表示不过期
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 健康检查间隔，0 表示不检查
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// FromRedisConfig 由应用配置构造连接配置
func FromRedisConfig(rc config.RedisConfig, ttl time.Duration) Config {
	c := DefaultConfig()
	c.Addr = rc.Addr
	c.Password = rc.Password
	c.DB = rc.DB
	c.DefaultTTL = ttl
	if rc.PoolSize > 0 {
		c.PoolSize = rc.PoolSize
	}
	if rc.MinIdleConns > 0 {
		c.MinIdleConns = rc.MinIdleConns
	}
	return c
}

// ErrCacheMiss 键不存在
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss 判断是否为键不存在错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

var errClosed = errors.New("cache manager is closed")

// NewManager 创建管理器并测试连接
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	m := &Manager{
		redis:  client,
		config: cfg,
		logger: logger.With(zap.String("component", "cache")),
	}

	if cfg.HealthCheckInterval > 0 {
		go m.healthCheckLoop()
	}

	m.logger.Info("redis connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)
	return m, nil
}

// =============================================================================
// 🎯 键值操作
// =============================================================================

// Get 获取值
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", errClosed
	}

	val, err := m.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		m.logger.Error("redis get failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

// GetJSON 获取并解码 JSON 值
func (m *Manager) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

// SetJSONIndexed 写入 JSON 值并在同一事务中把 member 加入有序集合索引
// ttl 为 0 时使用 DefaultTTL；两者都为 0 时不过期
func (m *Manager) SetJSONIndexed(ctx context.Context, key string, value any, ttl time.Duration, index, member string, score float64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	_, err = m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, ttl)
		pipe.ZAdd(ctx, index, redis.Z{Score: score, Member: member})
		return nil
	})
	if err != nil {
		m.logger.Error("redis indexed set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis indexed set failed: %w", err)
	}
	return nil
}

// IndexMembers 按分数从高到低返回有序集合成员
func (m *Manager) IndexMembers(ctx context.Context, index string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}

	members, err := m.redis.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index range failed: %w", err)
	}
	return members, nil
}

// IndexRemove 从有序集合移除成员
func (m *Manager) IndexRemove(ctx context.Context, index string, members ...string) error {
	if len(members) == 0 {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}

	args := make([]any, len(members))
	for i, mem := range members {
		args[i] = mem
	}
	if err := m.redis.ZRem(ctx, index, args...).Err(); err != nil {
		return fmt.Errorf("redis index remove failed: %w", err)
	}
	return nil
}

// Delete 删除键
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}

	if err := m.redis.Del(ctx, keys...).Err(); err != nil {
		m.logger.Error("redis delete failed", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Ping 检查连接
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}
	return m.redis.Ping(ctx).Err()
}

// Close 关闭连接，可重复调用
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.logger.Debug("closing redis connection")
	return m.redis.Close()
}

// healthCheckLoop 定期 Ping，关闭后退出
func (m *Manager) healthCheckLoop() {
	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.RLock()
		closed := m.closed
		m.mu.RUnlock()
		if closed {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.Ping(ctx); err != nil {
			m.logger.Error("redis health check failed", zap.Error(err))
		}
		cancel()
	}
}
