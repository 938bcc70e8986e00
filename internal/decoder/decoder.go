// Package decoder defines the boundary to .dat file decoders. The core
// only depends on these interfaces; concrete decoders (the vendor COM
// bridge, the YAML fixture decoder) live behind them.
package decoder

import (
	"errors"

	"ibakit/internal/catalog"
)

// ErrNoMedia reports that a file carries no embedded media, as opposed
// to a general export failure. Callers branch on it with errors.Is.
var ErrNoMedia = errors.New("file contains no embedded media")

// ErrUnsupported reports that a decoder does not implement the
// requested export format.
var ErrUnsupported = errors.New("export format not supported by decoder")

// Decoder opens .dat files and hands back per-file handles.
type Decoder interface {
	Open(path string) (Handle, error)
}

// Handle is an open .dat file. Handles are not safe for concurrent use;
// the session opens a fresh handle per operation.
type Handle interface {
	// Signals enumerates the signals of one kind in decoder order.
	Signals(kind catalog.Kind) ([]catalog.Signal, error)

	// Version returns the PDA version string recorded in the file.
	Version() (string, error)

	Close() error
}

// Exporter is implemented by handles that can materialize signal data.
// The session type-asserts handles against it before exporting.
type Exporter interface {
	// ExportCSV writes the named expressions as CSV to path.
	ExportCSV(path string, expressions []string) error

	// ExportParquet writes the named expressions as Parquet to path.
	ExportParquet(path string, expressions []string) error

	// ExportVideo extracts embedded media to path. Returns ErrNoMedia
	// when the file has none.
	ExportVideo(path string) error
}
