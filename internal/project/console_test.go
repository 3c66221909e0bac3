package project

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 1, 14, 30, 5, 0, time.UTC)
	}
}

func TestConsole_AppendOrder(t *testing.T) {
	c := NewConsoleWithClock(fixedClock())
	c.Info("first")
	c.Success("second")
	c.Error("third")

	entries := c.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, EntryInfo, entries[0].Type)
	assert.Equal(t, EntrySuccess, entries[1].Type)
	assert.Equal(t, EntryError, entries[2].Type)
}

func TestConsole_Text(t *testing.T) {
	c := NewConsoleWithClock(fixedClock())
	c.Info("Starting AI generation...")
	c.Errorf("Error: %s", "boom")

	assert.Equal(t,
		"[14:30:05] Starting AI generation...\n[14:30:05] Error: boom",
		c.Text())
}

func TestConsole_EntriesIsACopy(t *testing.T) {
	c := NewConsoleWithClock(fixedClock())
	c.Info("only")

	entries := c.Entries()
	entries[0].Message = "mutated"

	assert.Equal(t, "only", c.Entries()[0].Message)
}

func TestConsole_EmptyText(t *testing.T) {
	c := NewConsole()
	assert.Empty(t, c.Text())
	assert.Zero(t, c.Len())
}
