package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ibakit/internal/catalog"
)

var inspectTree bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Load a recording file and print its signal catalog",
	Long: `Load a recording file and print its signal catalog.

By default prints the per-kind signal counts and the file version.
Use --tree to print every signal grouped by kind and group label.

Examples:
  # Print the catalog summary
  ibakit inspect plant.yaml

  # Print the full signal tree
  ibakit inspect plant.yaml --tree`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectTree, "tree", false, "print signals grouped by kind and group")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
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

	if inspectTree {
		printTree(cmd.OutOrStdout(), cat)
		return nil
	}
	printSummary(cmd.OutOrStdout(), cat.Summarize())
	return nil
}

func printSummary(out io.Writer, sum catalog.Summary) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "File:\t%s\n", sum.Path)
	fmt.Fprintf(w, "Version:\t%s\n", sum.Version)
	fmt.Fprintf(w, "Analog:\t%d\n", sum.Analog)
	fmt.Fprintf(w, "Digital:\t%d\n", sum.Digital)
	fmt.Fprintf(w, "Text:\t%d\n", sum.Text)
	fmt.Fprintf(w, "Total:\t%d\n", sum.Total)
	_ = w.Flush()
}

func printTree(out io.Writer, cat *catalog.Catalog) {
	for _, kind := range catalog.Kinds() {
		groups := cat.GroupedByKind(kind)
		if len(groups) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s\n", kind)
		for _, group := range groups {
			label := group.Label
			if label == "" {
				label = "(ungrouped)"
			}
			fmt.Fprintf(out, "  %s\n", label)
			for _, sig := range group.Signals {
				fmt.Fprintf(out, "    %s\t[%s]\n", sig.Name, sig.ID)
			}
		}
	}
}
