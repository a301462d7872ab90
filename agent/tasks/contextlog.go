package tasks

import "sync"

// ContextLogEntry 上下文日志条目
type ContextLogEntry struct {
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

// ContextLog is an append-only log of condensed summaries scoped to one run.
// It is safe for concurrent use. Entries appended by concurrent branches
// appear in actual append order, which is not deterministic.
type ContextLog struct {
	mu      sync.RWMutex
	entries []ContextLogEntry
}

// NewContextLog creates an empty log.
func NewContextLog() *ContextLog {
	return &ContextLog{}
}

// Append adds an entry and returns the new log length.
func (l *ContextLog) Append(entry ContextLogEntry) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	return len(l.entries)
}

// Recent returns a copy of the last k entries, oldest first.
// k <= 0 returns nothing.
func (l *ContextLog) Recent(k int) []ContextLogEntry {
	if k <= 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	start := len(l.entries) - k
	if start < 0 {
		start = 0
	}
	out := make([]ContextLogEntry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Snapshot returns a copy of every entry.
func (l *ContextLog) Snapshot() []ContextLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ContextLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *ContextLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
