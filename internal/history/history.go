// Package history defines the recent-file history domain: one entry per
// source file, refreshed on every successful load.
package history

import (
	"fmt"
	"time"
)

// Entry is one recently loaded file.
type Entry struct {
	ID           int64
	Path         string
	Version      string
	AnalogCount  int
	DigitalCount int
	TextCount    int
	LoadedAt     time.Time
}

// SignalCount returns the total number of signals the catalog carried.
func (e Entry) SignalCount() int {
	return e.AnalogCount + e.DigitalCount + e.TextCount
}

// Store persists history entries.
type Store interface {
	// Record inserts or refreshes the entry for its path and sets the
	// entry ID.
	Record(entry *Entry) error

	// Recent returns entries newest first, at most limit (0 = all).
	Recent(limit int) ([]Entry, error)

	// Lookup returns the entry for path, or a *NotFoundError when the
	// path was never loaded.
	Lookup(path string) (Entry, error)

	// Prune deletes all but the newest keep entries.
	Prune(keep int) error
}

// NotFoundError reports a path with no history entry.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no history entry for %s", e.Path)
}
