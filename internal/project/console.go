package project

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// EntryType classifies a build console line.
type EntryType string

const (
	EntryInfo    EntryType = "info"
	EntrySuccess EntryType = "success"
	EntryError   EntryType = "error"
)

// Entry is one build console line. Time is informational only; ordering is
// strictly append order.
type Entry struct {
	Time    string    `json:"time"`
	Message string    `json:"message"`
	Type    EntryType `json:"type"`
}

// Console is the append-only build log rendered live during generation.
// Entries are never edited or removed during a session.
type Console struct {
	mu      sync.Mutex
	entries []Entry
	clock   func() time.Time
}

// NewConsole creates an empty build console.
func NewConsole() *Console {
	return &Console{clock: time.Now}
}

// NewConsoleWithClock creates a console with an injectable clock for tests.
func NewConsoleWithClock(clock func() time.Time) *Console {
	return &Console{clock: clock}
}

func (c *Console) append(msg string, typ EntryType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Entry{
		Time:    c.clock().Format("15:04:05"),
		Message: msg,
		Type:    typ,
	})
}

// Info appends an informational line.
func (c *Console) Info(msg string) { c.append(msg, EntryInfo) }

// Infof appends a formatted informational line.
func (c *Console) Infof(format string, args ...any) {
	c.append(fmt.Sprintf(format, args...), EntryInfo)
}

// Success appends a success line.
func (c *Console) Success(msg string) { c.append(msg, EntrySuccess) }

// Successf appends a formatted success line.
func (c *Console) Successf(format string, args ...any) {
	c.append(fmt.Sprintf(format, args...), EntrySuccess)
}

// Error appends an error line.
func (c *Console) Error(msg string) { c.append(msg, EntryError) }

// Errorf appends a formatted error line.
func (c *Console) Errorf(format string, args ...any) {
	c.append(fmt.Sprintf(format, args...), EntryError)
}

// Entries returns a copy of all console lines in append order.
func (c *Console) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of console lines.
func (c *Console) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Text renders the console as the auto-fix payload: one "[time] message"
// line per entry, newline-joined.
func (c *Console) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]string, len(c.entries))
	for i, e := range c.entries {
		lines[i] = fmt.Sprintf("[%s] %s", e.Time, e.Message)
	}
	return strings.Join(lines, "\n")
}
