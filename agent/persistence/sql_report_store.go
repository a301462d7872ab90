package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/delegator/agent/report"
	"github.com/BaSui01/delegator/internal/database"
)

// ReportRecord 报告表的一行
type ReportRecord struct {
	RunID     string `gorm:"primaryKey;size:64"`
	Objective string `gorm:"type:text"`
	Nodes     int
	Payload   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// TableName implements gorm's tabler.
func (ReportRecord) TableName() string { return "report_records" }

// SQLReportStore keeps one row per run.
type SQLReportStore struct {
	pool *database.PoolManager
}

// NewSQLReportStore migrates the report table and returns the store.
func NewSQLReportStore(ctx context.Context, pool *database.PoolManager) (*SQLReportStore, error) {
	db, err := pool.DB(ctx)
	if err != nil {
		return nil, storeError(StoreTypeSQL, "open", err)
	}
	if err := db.AutoMigrate(&ReportRecord{}); err != nil {
		return nil, storeError(StoreTypeSQL, "migrate", err)
	}
	return &SQLReportStore{pool: pool}, nil
}

// Save upserts the row for r.RunID.
func (s *SQLReportStore) Save(ctx context.Context, r *report.Report) error {
	if err := prepare(r); err != nil {
		return storeError(StoreTypeSQL, "save", err)
	}
	data, err := r.Marshal()
	if err != nil {
		return storeError(StoreTypeSQL, "save", err)
	}

	rec := ReportRecord{
		RunID:     r.RunID,
		Objective: r.Objective,
		Nodes:     r.ExecutionTree.Count(),
		Payload:   string(data),
	}
	err = s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"objective", "nodes", "payload", "updated_at"}),
		}).Create(&rec).Error
	})
	return storeError(StoreTypeSQL, "save", err)
}

// Load implements ReportStore.
func (s *SQLReportStore) Load(ctx context.Context, runID string) (*report.Report, error) {
	db, err := s.pool.DB(ctx)
	if err != nil {
		return nil, storeError(StoreTypeSQL, "load", err)
	}

	var rec ReportRecord
	err = db.Where("run_id = ?", runID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeError(StoreTypeSQL, "load "+runID, ErrNotFound)
	}
	if err != nil {
		return nil, storeError(StoreTypeSQL, "load "+runID, err)
	}

	r, err := report.Unmarshal([]byte(rec.Payload))
	return r, storeError(StoreTypeSQL, "load "+runID, err)
}

// List implements ReportStore.
func (s *SQLReportStore) List(ctx context.Context) ([]ReportSummary, error) {
	db, err := s.pool.DB(ctx)
	if err != nil {
		return nil, storeError(StoreTypeSQL, "list", err)
	}

	var recs []ReportRecord
	if err := db.Select("run_id", "objective", "nodes", "updated_at").
		Order("updated_at DESC").Order("run_id").
		Find(&recs).Error; err != nil {
		return nil, storeError(StoreTypeSQL, "list", err)
	}

	out := make([]ReportSummary, len(recs))
	for i, rec := range recs {
		out[i] = ReportSummary{RunID: rec.RunID, Objective: rec.Objective, Nodes: rec.Nodes, SavedAt: rec.UpdatedAt}
	}
	return out, nil
}

// Close implements ReportStore.
func (s *SQLReportStore) Close() error {
	return s.pool.Close()
}
