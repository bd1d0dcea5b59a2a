package server

import (
	"sync"
	"time"
)

// HistoryLog is the append-only record of chat messages for the room.
// Iteration order is insertion order; entries are immutable once appended.
// Timestamps are assigned at append time and never decrease, even if the
// wall clock steps backwards.
type HistoryLog struct {
	mu        sync.Mutex
	entries   []HistoryEntry
	lastStamp int64
}

// NewHistoryLog creates an empty history log.
func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

// Append records a message and returns the stamped entry. A limit > 0 bounds
// the log to the most recent limit entries; 0 means unbounded.
func (l *HistoryLog) Append(token, content string, limit int) HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	stamp := time.Now().UnixMilli()
	if stamp < l.lastStamp {
		stamp = l.lastStamp
	}
	l.lastStamp = stamp

	entry := HistoryEntry{Token: token, Time: stamp, Content: content}
	l.entries = append(l.entries, entry)

	if limit > 0 && len(l.entries) > limit {
		// Drop the oldest entries in place; the slice header keeps its
		// backing array so appends do not thrash the allocator.
		excess := len(l.entries) - limit
		l.entries = l.entries[:copy(l.entries, l.entries[excess:])]
	}

	return entry
}

// Snapshot returns a copy of the log in insertion order.
func (l *HistoryLog) Snapshot() []HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *HistoryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
