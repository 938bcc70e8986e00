// Package catalog defines the signal metadata model produced by one
// successful load of a recording file.
package catalog

import (
	"sort"
)

// Kind partitions signals by their sample type.
type Kind string

const (
	KindAnalog  Kind = "analog"
	KindDigital Kind = "digital"
	KindText    Kind = "text"
)

// Kinds lists all signal kinds in catalog enumeration order.
func Kinds() []Kind {
	return []Kind{KindAnalog, KindDigital, KindText}
}

// Signal is one addressable channel in a recording. Signals are immutable
// value records once produced by the loader.
type Signal struct {
	// ID is the stable identifier handed to export collaborators as the
	// expression. Unique within a catalog.
	ID string

	// Name is the human-readable label. Not guaranteed unique.
	Name string

	// Group is a free-form organizational label, possibly empty.
	Group string

	// Kind is fixed at load time.
	Kind Kind
}

// Catalog is the result of one successful load. It is never partially
// populated: the loader constructs it only after all three kind lists and
// the version have been read. Once published it is read-only and safe for
// concurrent readers.
type Catalog struct {
	Analog  []Signal
	Digital []Signal
	Text    []Signal

	// Version is the opaque version string reported by the source file.
	Version string

	// SourcePath is the path of the file that produced this catalog.
	SourcePath string
}

// ByKind returns the signal list for the given kind in decoder order.
func (c *Catalog) ByKind(k Kind) []Signal {
	switch k {
	case KindAnalog:
		return c.Analog
	case KindDigital:
		return c.Digital
	case KindText:
		return c.Text
	}
	return nil
}

// All returns the concatenation analog, digital, text, preserving the
// decoder's enumeration order within each kind.
func (c *Catalog) All() []Signal {
	all := make([]Signal, 0, len(c.Analog)+len(c.Digital)+len(c.Text))
	all = append(all, c.Analog...)
	all = append(all, c.Digital...)
	all = append(all, c.Text...)
	return all
}

// Len returns the total number of signals across all kinds.
func (c *Catalog) Len() int {
	return len(c.Analog) + len(c.Digital) + len(c.Text)
}

// Summary holds the per-kind counts shown in a file overview.
type Summary struct {
	Path    string
	Version string
	Analog  int
	Digital int
	Text    int
	Total   int
}

// Summarize returns the overview counts for this catalog.
func (c *Catalog) Summarize() Summary {
	return Summary{
		Path:    c.SourcePath,
		Version: c.Version,
		Analog:  len(c.Analog),
		Digital: len(c.Digital),
		Text:    len(c.Text),
		Total:   c.Len(),
	}
}

// Group holds the signals sharing one group label, for tree-style display.
type Group struct {
	Label   string
	Signals []Signal
}

// GroupedByKind returns the signals of one kind bucketed by group label,
// groups sorted by label (the empty label sorts first), signals within a
// group keeping decoder order.
func (c *Catalog) GroupedByKind(k Kind) []Group {
	signals := c.ByKind(k)
	if len(signals) == 0 {
		return nil
	}

	buckets := make(map[string][]Signal)
	for _, s := range signals {
		buckets[s.Group] = append(buckets[s.Group], s)
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	groups := make([]Group, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, Group{Label: label, Signals: buckets[label]})
	}
	return groups
}
