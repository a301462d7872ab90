package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/delegator/agent/report"
)

type memoryEntry struct {
	data    []byte
	summary ReportSummary
}

// MemoryReportStore keeps reports in memory. Data is lost on restart.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports map[string]memoryEntry
	closed  bool
}

// NewMemoryReportStore creates an empty in-memory store.
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{reports: make(map[string]memoryEntry)}
}

// Save stores an encoded copy, so later changes to r are not visible.
func (s *MemoryReportStore) Save(_ context.Context, r *report.Report) error {
	if err := prepare(r); err != nil {
		return storeError(StoreTypeMemory, "save", err)
	}
	data, err := r.Marshal()
	if err != nil {
		return storeError(StoreTypeMemory, "save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeError(StoreTypeMemory, "save", ErrStoreClosed)
	}
	s.reports[r.RunID] = memoryEntry{data: data, summary: summarize(r, time.Now())}
	return nil
}

// Load implements ReportStore.
func (s *MemoryReportStore) Load(_ context.Context, runID string) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storeError(StoreTypeMemory, "load", ErrStoreClosed)
	}
	e, ok := s.reports[runID]
	if !ok {
		return nil, storeError(StoreTypeMemory, "load "+runID, ErrNotFound)
	}
	r, err := report.Unmarshal(e.data)
	return r, storeError(StoreTypeMemory, "load "+runID, err)
}

// List implements ReportStore.
func (s *MemoryReportStore) List(_ context.Context) ([]ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storeError(StoreTypeMemory, "list", ErrStoreClosed)
	}
	out := make([]ReportSummary, 0, len(s.reports))
	for _, e := range s.reports {
		out = append(out, e.summary)
	}
	sortNewestFirst(out)
	return out, nil
}

// Close implements ReportStore.
func (s *MemoryReportStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func sortNewestFirst(out []ReportSummary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].RunID < out[j].RunID
	})
}
