// Package fixture implements a YAML-backed decoder. It stands in for
// the vendor decoder in the CLI and in tests: a fixture file declares
// the signal catalog, the PDA version, sample data and embedded media.
package fixture

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ibakit/internal/catalog"
	"ibakit/internal/decoder"
	"ibakit/internal/log"
)

// Decoder opens fixture files. The zero value is usable.
type Decoder struct{}

var _ decoder.Decoder = (*Decoder)(nil)

// New returns a fixture decoder.
func New() *Decoder { return &Decoder{} }

type fixtureSignal struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Group string `yaml:"group"`
}

type fixtureFile struct {
	Version string              `yaml:"version"`
	Analog  []fixtureSignal     `yaml:"analog"`
	Digital []fixtureSignal     `yaml:"digital"`
	Text    []fixtureSignal     `yaml:"text"`
	Media   []string            `yaml:"media"`
	Data    map[string][]string `yaml:"data"`
}

// Open parses the fixture at path and returns a handle over it.
func (d *Decoder) Open(path string) (decoder.Handle, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the caller
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}

	log.Debug(log.CatLoader, "fixture opened",
		"path", path,
		"analog", len(f.Analog), "digital", len(f.Digital), "text", len(f.Text))

	return &handle{file: f}, nil
}

type handle struct {
	file   fixtureFile
	closed bool
}

var _ decoder.Handle = (*handle)(nil)
var _ decoder.Exporter = (*handle)(nil)

func (h *handle) Signals(kind catalog.Kind) ([]catalog.Signal, error) {
	if h.closed {
		return nil, fmt.Errorf("handle is closed")
	}

	var raw []fixtureSignal
	var channel int
	switch kind {
	case catalog.KindAnalog:
		raw, channel = h.file.Analog, 0
	case catalog.KindDigital:
		raw, channel = h.file.Digital, 1
	case catalog.KindText:
		raw, channel = h.file.Text, 2
	default:
		return nil, fmt.Errorf("unknown signal kind %q", kind)
	}

	signals := make([]catalog.Signal, 0, len(raw))
	for i, fs := range raw {
		id := fs.ID
		if id == "" {
			id = fmt.Sprintf("[%d:%d]", channel, i)
		}
		signals = append(signals, catalog.Signal{
			ID:    id,
			Name:  fs.Name,
			Group: fs.Group,
			Kind:  kind,
		})
	}
	return signals, nil
}

func (h *handle) Version() (string, error) {
	if h.closed {
		return "", fmt.Errorf("handle is closed")
	}
	return h.file.Version, nil
}

func (h *handle) Close() error {
	h.closed = true
	return nil
}

// ExportCSV writes one column per expression, rows padded to the longest
// declared data series.
func (h *handle) ExportCSV(path string, expressions []string) error {
	if h.closed {
		return fmt.Errorf("handle is closed")
	}

	rows := 0
	for _, expr := range expressions {
		if n := len(h.file.Data[expr]); n > rows {
			rows = n
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // G304: export destination comes from the caller
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(expressions); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for r := 0; r < rows; r++ {
		cells := make([]string, len(expressions))
		for c, expr := range expressions {
			series := h.file.Data[expr]
			if r < len(series) {
				cells[c] = series[r]
			}
		}
		if err := w.Write(cells); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	log.Info(log.CatExport, "csv export written", "path", path, "columns", len(expressions), "rows", rows)
	return nil
}

// ExportParquet is not implemented by the fixture decoder.
func (h *handle) ExportParquet(path string, expressions []string) error {
	return fmt.Errorf("parquet: %w", decoder.ErrUnsupported)
}

// ExportVideo writes a manifest of the declared embedded media.
func (h *handle) ExportVideo(path string) error {
	if h.closed {
		return fmt.Errorf("handle is closed")
	}
	if len(h.file.Media) == 0 {
		return decoder.ErrNoMedia
	}

	manifest := strings.Join(h.file.Media, "\n") + "\n"
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil { //nolint:gosec // G306: export output
		return fmt.Errorf("write media manifest: %w", err)
	}

	log.Info(log.CatExport, "media exported", "path", path, "clips", len(h.file.Media))
	return nil
}
