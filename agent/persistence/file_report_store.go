package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BaSui01/delegator/agent/report"
)

const reportExt = ".json"

// FileReportStore 每次运行一个 JSON 文件：<dir>/<run_id>.json
type FileReportStore struct {
	dir    string
	mu     sync.RWMutex
	closed bool
}

// NewFileReportStore creates dir if needed.
func NewFileReportStore(dir string) (*FileReportStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, storeError(StoreTypeFile, "open", fmt.Errorf("%w: directory is empty", ErrInvalidInput))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storeError(StoreTypeFile, "open", err)
	}
	return &FileReportStore{dir: dir}, nil
}

// Path returns the file a run's report is written to.
func (s *FileReportStore) Path(runID string) string {
	return filepath.Join(s.dir, runID+reportExt)
}

// Save writes the report atomically: temp file, then rename.
func (s *FileReportStore) Save(_ context.Context, r *report.Report) error {
	if err := prepare(r); err != nil {
		return storeError(StoreTypeFile, "save", err)
	}
	if err := validRunID(r.RunID); err != nil {
		return storeError(StoreTypeFile, "save", err)
	}
	data, err := r.Marshal()
	if err != nil {
		return storeError(StoreTypeFile, "save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeError(StoreTypeFile, "save", ErrStoreClosed)
	}

	path := s.Path(r.RunID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return storeError(StoreTypeFile, "save", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return storeError(StoreTypeFile, "save", err)
	}
	return nil
}

// Load implements ReportStore.
func (s *FileReportStore) Load(_ context.Context, runID string) (*report.Report, error) {
	if err := validRunID(runID); err != nil {
		return nil, storeError(StoreTypeFile, "load", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storeError(StoreTypeFile, "load", ErrStoreClosed)
	}

	data, err := os.ReadFile(s.Path(runID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storeError(StoreTypeFile, "load "+runID, ErrNotFound)
	}
	if err != nil {
		return nil, storeError(StoreTypeFile, "load "+runID, err)
	}
	r, err := report.Unmarshal(data)
	return r, storeError(StoreTypeFile, "load "+runID, err)
}

// List reads every report in the directory. SavedAt is the file's
// modification time.
func (s *FileReportStore) List(_ context.Context) ([]ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storeError(StoreTypeFile, "list", ErrStoreClosed)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, storeError(StoreTypeFile, "list", err)
	}

	out := make([]ReportSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), reportExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, storeError(StoreTypeFile, "list", err)
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, storeError(StoreTypeFile, "list", err)
		}
		r, err := report.Unmarshal(data)
		if err != nil {
			// 目录中的非报告 JSON 文件跳过
			continue
		}
		if r.RunID == "" {
			r.RunID = strings.TrimSuffix(entry.Name(), reportExt)
		}
		out = append(out, summarize(r, info.ModTime()))
	}
	sortNewestFirst(out)
	return out, nil
}

// Close implements ReportStore.
func (s *FileReportStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// validRunID rejects IDs that would escape the store directory.
func validRunID(runID string) error {
	if runID == "" || runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) {
		return fmt.Errorf("%w: run id %q", ErrInvalidInput, runID)
	}
	return nil
}
