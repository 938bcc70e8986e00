package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ibakit/internal/catalog"
	"ibakit/internal/decoder"
	"ibakit/internal/registry"
)

// sessionSelector is the slice of the session that signal selection needs.
type sessionSelector interface {
	Catalog() *catalog.Catalog
	Registry() *registry.Registry
	Search(ctx context.Context, pattern string) []catalog.Signal
}

var (
	exportFormat  string
	exportOut     string
	exportSignals []string
	exportAll     bool
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export signal data or media from a recording file",
	Long: `Export signal data or media from a recording file.

The csv and parquet formats export the signals selected with --signal
(patterns, same matching rules as search) or --all. The video format
extracts embedded media and needs no selection.

Examples:
  # Export two signals to CSV
  ibakit export plant.yaml --format csv --out data.csv --signal Motor_Speed --signal 'Oil*'

  # Export every signal to parquet
  ibakit export plant.yaml --format parquet --out data.parquet --all

  # Extract embedded media
  ibakit export plant.yaml --format video --out clip.avi`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "export format: csv, parquet, or video")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "destination path (required)")
	exportCmd.Flags().StringArrayVarP(&exportSignals, "signal", "s", nil, "signal name pattern to export (can be repeated)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every signal in the catalog")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cleanupLog, err := initLogging()
	if err != nil {
		return err
	}
	defer cleanupLog()

	s, cleanup, err := newSession()
	if err != nil {
		return err
	}
	defer cleanup()

	cat, err := loadCatalog(s, args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()

	if exportFormat != "video" {
		if err := selectSignals(ctx, s); err != nil {
			return err
		}
	}

	switch exportFormat {
	case "csv":
		err = s.ExportCSV(ctx, exportOut)
	case "parquet":
		err = s.ExportParquet(ctx, exportOut)
	case "video":
		err = s.ExportVideo(ctx, exportOut)
	default:
		return fmt.Errorf("unknown format %q (want csv, parquet, or video)", exportFormat)
	}

	switch {
	case errors.Is(err, decoder.ErrNoMedia):
		return fmt.Errorf("%s contains no embedded media", cat.SourcePath)
	case errors.Is(err, decoder.ErrUnsupported):
		return fmt.Errorf("the %s decoder does not support %s export", cfg.Decoder, exportFormat)
	case err != nil:
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", exportFormat, exportOut)
	return nil
}

// selectSignals fills the session registry from the --signal patterns,
// or from the whole catalog with --all.
func selectSignals(ctx context.Context, s sessionSelector) error {
	if exportAll {
		for _, sig := range s.Catalog().All() {
			s.Registry().Add(sig)
		}
		return nil
	}
	if len(exportSignals) == 0 {
		return errors.New("nothing to export: pass --signal or --all")
	}
	for _, pattern := range exportSignals {
		hits := s.Search(ctx, pattern)
		if len(hits) == 0 {
			return fmt.Errorf("no signals match %q", pattern)
		}
		for _, sig := range hits {
			s.Registry().Add(sig)
		}
	}
	return nil
}
