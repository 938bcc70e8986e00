package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ibakit/internal/history"
	"ibakit/internal/infrastructure/sqlite"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [file]",
	Short: "List recently loaded recording files",
	Long: `List recently loaded recording files, newest first.

Every successful load records the file path, version, and per-kind
signal counts in the history database. With a file argument, shows
only that file's entry.

Examples:
  # List the last loads
  ibakit history

  # Only the five most recent
  ibakit history --limit 5

  # One file's entry
  ibakit history plant.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "maximum entries to list (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.History.DBPath == "" {
		return errors.New("no history database configured")
	}

	db, err := sqlite.NewDB(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer db.Close()

	store := db.HistoryStore()

	var entries []history.Entry
	if len(args) == 1 {
		entry, lookupErr := store.Lookup(args[0])
		var notFound *history.NotFoundError
		if errors.As(lookupErr, &notFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s has never been loaded\n", args[0])
			return nil
		}
		if lookupErr != nil {
			return fmt.Errorf("reading history: %w", lookupErr)
		}
		entries = []history.Entry{entry}
	} else {
		entries, err = store.Recent(historyLimit)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no files loaded yet")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LOADED\tFILE\tVERSION\tSIGNALS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			e.LoadedAt.Local().Format(time.DateTime), e.Path, e.Version, e.SignalCount())
	}
	return w.Flush()
}
