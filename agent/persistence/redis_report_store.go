package persistence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/delegator/agent/report"
	"github.com/BaSui01/delegator/internal/cache"
)

// redisEnvelope 报告与写入时间一起存放
type redisEnvelope struct {
	SavedAt time.Time      `json:"saved_at"`
	Report  *report.Report `json:"report"`
}

// RedisReportStore stores each report under <prefix>report:<run_id> and
// indexes run IDs in the sorted set <prefix>reports, scored by save time.
type RedisReportStore struct {
	cache  *cache.Manager
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisReportStore wraps an open cache manager. A zero ttl keeps reports
// until deleted.
func NewRedisReportStore(m *cache.Manager, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisReportStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisReportStore{
		cache:  m,
		prefix: keyPrefix,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "redis_report_store")),
	}
}

func (s *RedisReportStore) key(runID string) string { return s.prefix + "report:" + runID }
func (s *RedisReportStore) index() string         { return s.prefix + "reports" }

// Save implements ReportStore.
func (s *RedisReportStore) Save(ctx context.Context, r *report.Report) error {
	if err := prepare(r); err != nil {
		return storeError(StoreTypeRedis, "save", err)
	}
	now := time.Now()
	err := s.cache.SetJSONIndexed(ctx, s.key(r.RunID), redisEnvelope{SavedAt: now, Report: r}, s.ttl,
		s.index(), r.RunID, float64(now.UnixNano()))
	return storeError(StoreTypeRedis, "save", err)
}

// Load implements ReportStore.
func (s *RedisReportStore) Load(ctx context.Context, runID string) (*report.Report, error) {
	var env redisEnvelope
	if err := s.cache.GetJSON(ctx, s.key(runID), &env); err != nil {
		if cache.IsCacheMiss(err) {
			return nil, storeError(StoreTypeRedis, "load "+runID, ErrNotFound)
		}
		return nil, storeError(StoreTypeRedis, "load "+runID, err)
	}
	if env.Report == nil {
		return nil, storeError(StoreTypeRedis, "load "+runID, ErrNotFound)
	}
	return env.Report, nil
}

// List implements ReportStore. Index entries whose report has expired are
// pruned.
func (s *RedisReportStore) List(ctx context.Context) ([]ReportSummary, error) {
	ids, err := s.cache.IndexMembers(ctx, s.index())
	if err != nil {
		return nil, storeError(StoreTypeRedis, "list", err)
	}

	out := make([]ReportSummary, 0, len(ids))
	var expired []string
	for _, id := range ids {
		var env redisEnvelope
		if err := s.cache.GetJSON(ctx, s.key(id), &env); err != nil {
			if cache.IsCacheMiss(err) {
				expired = append(expired, id)
				continue
			}
			return nil, storeError(StoreTypeRedis, "list", err)
		}
		if env.Report == nil {
			continue
		}
		out = append(out, summarize(env.Report, env.SavedAt))
	}

	if len(expired) > 0 {
		if err := s.cache.IndexRemove(ctx, s.index(), expired...); err != nil {
			s.logger.Warn("failed to prune expired report index entries", zap.Error(err))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Close implements ReportStore.
func (s *RedisReportStore) Close() error {
	return s.cache.Close()
}
