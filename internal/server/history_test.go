package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryPreservesInsertionOrder(t *testing.T) {
	l := NewHistoryLog()

	l.Append("tok", "a", 0)
	l.Append("tok", "b", 0)
	l.Append("tok", "c", 0)

	entries := l.Snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Content)
	assert.Equal(t, "b", entries[1].Content)
	assert.Equal(t, "c", entries[2].Content)

	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i].Time, entries[i-1].Time,
			"timestamps must be non-decreasing in insertion order")
	}
}

func TestHistoryStampsEntry(t *testing.T) {
	l := NewHistoryLog()

	entry := l.Append("tok-1", "hello", 0)
	assert.Equal(t, "tok-1", entry.Token)
	assert.Equal(t, "hello", entry.Content)
	assert.Positive(t, entry.Time)
}

func TestHistoryLimitDropsOldestFirst(t *testing.T) {
	l := NewHistoryLog()

	for _, content := range []string{"one", "two", "three", "four", "five"} {
		l.Append("tok", content, 3)
	}

	entries := l.Snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, "three", entries[0].Content)
	assert.Equal(t, "four", entries[1].Content)
	assert.Equal(t, "five", entries[2].Content)
}

func TestHistoryUnboundedWhenLimitZero(t *testing.T) {
	l := NewHistoryLog()

	for i := 0; i < 2000; i++ {
		l.Append("tok", "x", 0)
	}
	assert.Equal(t, 2000, l.Len())
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	l := NewHistoryLog()
	l.Append("tok", "original", 0)

	snapshot := l.Snapshot()
	snapshot[0].Content = "mutated"

	assert.Equal(t, "original", l.Snapshot()[0].Content)
}
