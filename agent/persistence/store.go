package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/delegator/agent/report"
	"github.com/BaSui01/delegator/types"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQL    StoreType = "sql"
)

// ReportSummary describes a stored report without its tree.
type ReportSummary struct {
	RunID     string    `json:"run_id"`
	Objective string    `json:"objective"`
	Nodes     int       `json:"nodes"`
	SavedAt   time.Time `json:"saved_at"`
}

// ReportStore persists run reports keyed by run ID.
type ReportStore interface {
	// Save stores r, replacing any report with the same run ID. An empty
	// RunID is filled with a new random ID before saving.
	Save(ctx context.Context, r *report.Report) error

	// Load returns the report for runID, or ErrNotFound.
	Load(ctx context.Context, runID string) (*report.Report, error)

	// List returns summaries of all stored reports, newest first.
	List(ctx context.Context) ([]ReportSummary, error)

	// Close releases resources. The store is unusable afterwards.
	Close() error
}

// prepare validates r and assigns a run ID when missing.
func prepare(r *report.Report) error {
	if r == nil {
		return ErrInvalidInput
	}
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	return nil
}

func summarize(r *report.Report, savedAt time.Time) ReportSummary {
	return ReportSummary{
		RunID:     r.RunID,
		Objective: r.Objective,
		Nodes:     r.ExecutionTree.Count(),
		SavedAt:   savedAt,
	}
}

// storeError tags err with the STORE code, keeping it matchable with errors.Is.
func storeError(backend StoreType, op string, err error) error {
	if err == nil {
		return nil
	}
	return types.NewError(types.ErrStore, fmt.Sprintf("%s store: %s", backend, op)).WithCause(err)
}
