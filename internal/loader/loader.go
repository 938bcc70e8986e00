// Package loader builds a signal catalog from a .dat file through a
// fixed six-step pipeline. It is synchronous; the session runs it in a
// goroutine and owns cancellation and result delivery.
package loader

import (
	"fmt"

	"ibakit/internal/catalog"
	"ibakit/internal/decoder"
	"ibakit/internal/log"
)

// Milestone identifies one step of the load pipeline.
type Milestone int

const (
	MilestoneOpen Milestone = iota
	MilestoneAnalog
	MilestoneDigital
	MilestoneText
	MilestoneVersion
	MilestoneClose
)

// Label returns the user-facing status text for the milestone.
func (m Milestone) Label() string {
	switch m {
	case MilestoneOpen:
		return "Opening file..."
	case MilestoneAnalog:
		return "Reading analog signals..."
	case MilestoneDigital:
		return "Reading digital signals..."
	case MilestoneText:
		return "Reading text signals..."
	case MilestoneVersion:
		return "Reading version info..."
	case MilestoneClose:
		return "Closing file..."
	default:
		return "Working..."
	}
}

func (m Milestone) String() string {
	switch m {
	case MilestoneOpen:
		return "open"
	case MilestoneAnalog:
		return "analog"
	case MilestoneDigital:
		return "digital"
	case MilestoneText:
		return "text"
	case MilestoneVersion:
		return "version"
	case MilestoneClose:
		return "close"
	default:
		return "unknown"
	}
}

// Milestones returns all milestones in pipeline order.
func Milestones() []Milestone {
	return []Milestone{
		MilestoneOpen, MilestoneAnalog, MilestoneDigital,
		MilestoneText, MilestoneVersion, MilestoneClose,
	}
}

// ProgressFunc receives each milestone as the pipeline reaches it.
type ProgressFunc func(Milestone)

// Run loads the catalog at path using dec. Progress is reported in
// pipeline order; a nil progress is allowed. The handle is closed on
// every path once Open has succeeded. On failure the catalog is nil:
// there are no partial results.
func Run(dec decoder.Decoder, path string, progress ProgressFunc) (*catalog.Catalog, error) {
	report := func(m Milestone) {
		if progress != nil {
			progress(m)
		}
	}

	report(MilestoneOpen)
	handle, err := dec.Open(path)
	if err != nil {
		log.ErrorErr(log.CatLoader, "open failed", err, "path", path)
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			log.Warn(log.CatLoader, "close failed", "path", path, "error", cerr)
		}
	}()

	cat := &catalog.Catalog{SourcePath: path}

	steps := []struct {
		milestone Milestone
		kind      catalog.Kind
		dst       *[]catalog.Signal
	}{
		{MilestoneAnalog, catalog.KindAnalog, &cat.Analog},
		{MilestoneDigital, catalog.KindDigital, &cat.Digital},
		{MilestoneText, catalog.KindText, &cat.Text},
	}
	for _, step := range steps {
		report(step.milestone)
		signals, err := handle.Signals(step.kind)
		if err != nil {
			log.ErrorErr(log.CatLoader, "signal enumeration failed", err, "path", path, "kind", step.kind)
			return nil, fmt.Errorf("read %s signals: %w", step.kind, err)
		}
		*step.dst = signals
	}

	report(MilestoneVersion)
	version, err := handle.Version()
	if err != nil {
		log.ErrorErr(log.CatLoader, "version read failed", err, "path", path)
		return nil, fmt.Errorf("read version: %w", err)
	}
	cat.Version = version

	report(MilestoneClose)
	log.Info(log.CatLoader, "catalog loaded",
		"path", path, "version", version,
		"analog", len(cat.Analog), "digital", len(cat.Digital), "text", len(cat.Text))
	return cat, nil
}
