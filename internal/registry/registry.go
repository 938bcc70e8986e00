// Package registry maintains the user's working set of signals chosen for
// export or inspection.
package registry

import (
	"sort"
	"sync"

	"ibakit/internal/catalog"
	"ibakit/internal/log"
)

// DefaultPalette is the fixed display color cycle, in assignment order.
// The colors match the classic analyzer palette: blue, red, green, orange,
// purple, teal, olive, magenta, navy, maroon.
var DefaultPalette = []string{
	"#0000FF",
	"#FF0000",
	"#008000",
	"#FFA500",
	"#800080",
	"#008080",
	"#808000",
	"#FF00FF",
	"#000080",
	"#800000",
}

// Entry is one row of the registry. The name is a denormalized copy so a
// row stays displayable after the catalog that produced it is replaced.
type Entry struct {
	SignalID string
	Name     string
	Enabled  bool
	Unit     string
	Color    string
}

// ChangeKind describes what a change notification refers to.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeUpdated ChangeKind = "updated"
	ChangeCleared ChangeKind = "cleared"
)

// Change carries enough information for a row-oriented view to refresh.
type Change struct {
	Kind  ChangeKind
	Entry Entry
}

// Registry is a mutex-serialized ordered collection of entries with dedup
// on signal ID and deterministic color cycling.
type Registry struct {
	mu         sync.Mutex
	entries    []Entry
	palette    []string
	colorIndex int
	onChange   func(Change)
}

// Option configures a Registry.
type Option func(*Registry)

// WithPalette overrides the default color palette. Empty palettes are
// ignored.
func WithPalette(palette []string) Option {
	return func(r *Registry) {
		if len(palette) > 0 {
			r.palette = palette
		}
	}
}

// WithObserver registers a callback invoked after every mutation. The
// callback runs outside the registry lock.
func WithObserver(fn func(Change)) Option {
	return func(r *Registry) {
		r.onChange = fn
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{palette: DefaultPalette}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add inserts an entry for the signal unless one with the same ID already
// exists; duplicates are a no-op, not an error, and do not advance the
// color cursor. Returns true when an entry was inserted.
func (r *Registry) Add(sig catalog.Signal) bool {
	r.mu.Lock()
	for _, e := range r.entries {
		if e.SignalID == sig.ID {
			r.mu.Unlock()
			log.Debug(log.CatRegistry, "duplicate add ignored", "id", sig.ID)
			return false
		}
	}

	entry := Entry{
		SignalID: sig.ID,
		Name:     sig.Name,
		Enabled:  true,
		Color:    r.palette[r.colorIndex%len(r.palette)],
	}
	r.colorIndex++
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	r.notify(Change{Kind: ChangeAdded, Entry: entry})
	return true
}

// Remove deletes the entry with the given signal ID if present. Removal
// does not renumber or recolor the remaining entries.
func (r *Registry) Remove(signalID string) {
	r.mu.Lock()
	removed, ok := r.removeLocked(signalID)
	r.mu.Unlock()

	if ok {
		r.notify(Change{Kind: ChangeRemoved, Entry: removed})
	}
}

// RemoveAt deletes entries by row position. Rows are applied in descending
// order so earlier removals do not invalidate later indices within the
// same call. Out-of-range rows are skipped.
func (r *Registry) RemoveAt(rows []int) {
	sorted := make([]int, len(rows))
	copy(sorted, rows)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	var removed []Entry
	r.mu.Lock()
	for _, row := range sorted {
		if row < 0 || row >= len(r.entries) {
			continue
		}
		removed = append(removed, r.entries[row])
		r.entries = append(r.entries[:row], r.entries[row+1:]...)
	}
	r.mu.Unlock()

	for _, e := range removed {
		r.notify(Change{Kind: ChangeRemoved, Entry: e})
	}
}

// Clear removes all entries and resets the color cursor to the first
// palette color.
func (r *Registry) Clear() {
	r.mu.Lock()
	hadEntries := len(r.entries) > 0
	r.entries = nil
	r.colorIndex = 0
	r.mu.Unlock()

	if hadEntries {
		r.notify(Change{Kind: ChangeCleared})
	}
}

// SetEnabled toggles the per-row inclusion flag. Unknown IDs are ignored.
func (r *Registry) SetEnabled(signalID string, enabled bool) {
	r.updateEntry(signalID, func(e *Entry) { e.Enabled = enabled })
}

// SetUnit sets the free-text unit annotation. Unknown IDs are ignored.
func (r *Registry) SetUnit(signalID, unit string) {
	r.updateEntry(signalID, func(e *Entry) { e.Unit = unit })
}

// SelectedExpressions returns the signal ID of every enabled entry, in
// insertion order.
func (r *Registry) SelectedExpressions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, e := range r.entries {
		if e.Enabled {
			out = append(out, e.SignalID)
		}
	}
	return out
}

// AllExpressions returns every entry's signal ID regardless of enabled
// state, in insertion order.
func (r *Registry) AllExpressions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.SignalID
	}
	return out
}

// Entries returns a copy of all entries in insertion order.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) removeLocked(signalID string) (Entry, bool) {
	for i, e := range r.entries {
		if e.SignalID == signalID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return e, true
		}
	}
	return Entry{}, false
}

func (r *Registry) updateEntry(signalID string, mutate func(*Entry)) {
	r.mu.Lock()
	var updated *Entry
	for i := range r.entries {
		if r.entries[i].SignalID == signalID {
			mutate(&r.entries[i])
			e := r.entries[i]
			updated = &e
			break
		}
	}
	r.mu.Unlock()

	if updated != nil {
		r.notify(Change{Kind: ChangeUpdated, Entry: *updated})
	}
}

func (r *Registry) notify(c Change) {
	if r.onChange != nil {
		r.onChange(c)
	}
}
