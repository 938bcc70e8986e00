package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <file> <pattern>",
	Short: "Search a recording file's signals by name",
	Long: `Search a recording file's signals by name.

Patterns containing * or ? are matched as globs against the full name,
case sensitively. Any other pattern is compiled as a case-insensitive
regular expression and matched anywhere in the name; if it is not
valid regex syntax, it degrades to a case-insensitive substring match.
Exactly one strategy runs per query. Results keep catalog order:
analog, then digital, then text.

Examples:
  # Case-insensitive substring match
  ibakit search plant.yaml speed

  # Regular expression, matched anywhere in the name
  ibakit search plant.yaml '^Motor_'

  # Glob match against the full name
  ibakit search plant.yaml 'Motor_*'`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	if _, err := loadCatalog(s, args[0]); err != nil {
		return err
	}

	hits := s.Search(context.Background(), args[1])
	if len(hits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no signals matched")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tGROUP\tID")
	for _, sig := range hits {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sig.Name, sig.Kind, sig.Group, sig.ID)
	}
	return w.Flush()
}
