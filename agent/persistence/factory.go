package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/delegator/config"
	"github.com/BaSui01/delegator/internal/cache"
	"github.com/BaSui01/delegator/internal/database"
)

// NewReportStore creates the ReportStore selected by cfg.Output.Store.
func NewReportStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ReportStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch StoreType(cfg.Output.Store) {
	case StoreTypeMemory:
		return NewMemoryReportStore(), nil

	case StoreTypeFile:
		return NewFileReportStore(cfg.Output.Dir)

	case StoreTypeRedis:
		m, err := cache.NewManager(cache.FromRedisConfig(cfg.Redis, cfg.Output.TTL), logger)
		if err != nil {
			return nil, storeError(StoreTypeRedis, "open", err)
		}
		return NewRedisReportStore(m, cfg.Output.KeyPrefix, cfg.Output.TTL, logger), nil

	case StoreTypeSQL:
		pool, err := database.Open(cfg.Database, logger)
		if err != nil {
			return nil, storeError(StoreTypeSQL, "open", err)
		}
		store, err := NewSQLReportStore(ctx, pool)
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported report store type: %s", cfg.Output.Store)
	}
}
