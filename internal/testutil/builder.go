// Package testutil provides test fixtures for catalogs and decoders.
package testutil

import (
	"fmt"

	"ibakit/internal/catalog"
	"ibakit/internal/decoder"
)

// CatalogBuilder accumulates signals and produces a catalog or a mock
// decoder serving it. IDs are assigned in decoder convention:
// [channel:index] with channel 0=analog, 1=digital, 2=text.
type CatalogBuilder struct {
	path    string
	version string
	analog  []catalog.Signal
	digital []catalog.Signal
	text    []catalog.Signal
	media   []string
}

// NewCatalog creates a builder with defaults.
func NewCatalog() *CatalogBuilder {
	return &CatalogBuilder{
		path:    "/data/plant.dat",
		version: "7.0.0",
	}
}

// WithPath sets the source path.
func (b *CatalogBuilder) WithPath(path string) *CatalogBuilder {
	b.path = path
	return b
}

// WithVersion sets the PDA version string.
func (b *CatalogBuilder) WithVersion(version string) *CatalogBuilder {
	b.version = version
	return b
}

// WithAnalog appends an analog signal.
func (b *CatalogBuilder) WithAnalog(name, group string) *CatalogBuilder {
	b.analog = append(b.analog, catalog.Signal{
		ID:    fmt.Sprintf("[0:%d]", len(b.analog)),
		Name:  name,
		Group: group,
		Kind:  catalog.KindAnalog,
	})
	return b
}

// WithDigital appends a digital signal.
func (b *CatalogBuilder) WithDigital(name, group string) *CatalogBuilder {
	b.digital = append(b.digital, catalog.Signal{
		ID:    fmt.Sprintf("[1:%d]", len(b.digital)),
		Name:  name,
		Group: group,
		Kind:  catalog.KindDigital,
	})
	return b
}

// WithText appends a text signal.
func (b *CatalogBuilder) WithText(name, group string) *CatalogBuilder {
	b.text = append(b.text, catalog.Signal{
		ID:    fmt.Sprintf("[2:%d]", len(b.text)),
		Name:  name,
		Group: group,
		Kind:  catalog.KindText,
	})
	return b
}

// WithMedia declares embedded media clips on the mock decoder.
func (b *CatalogBuilder) WithMedia(names ...string) *CatalogBuilder {
	b.media = append(b.media, names...)
	return b
}

// Build returns the accumulated catalog.
func (b *CatalogBuilder) Build() *catalog.Catalog {
	return &catalog.Catalog{
		Analog:     append([]catalog.Signal(nil), b.analog...),
		Digital:    append([]catalog.Signal(nil), b.digital...),
		Text:       append([]catalog.Signal(nil), b.text...),
		Version:    b.version,
		SourcePath: b.path,
	}
}

// Decoder returns a mock decoder that serves the accumulated catalog
// for any path.
func (b *CatalogBuilder) Decoder() *decoder.Mock {
	return &decoder.Mock{
		Analog:  append([]catalog.Signal(nil), b.analog...),
		Digital: append([]catalog.Signal(nil), b.digital...),
		Text:    append([]catalog.Signal(nil), b.text...),
		Ver:     b.version,
		Media:   append([]string(nil), b.media...),
	}
}
