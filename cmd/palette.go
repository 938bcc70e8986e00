package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ibakit/internal/config"
	"ibakit/internal/registry"
)

var paletteCmd = &cobra.Command{
	Use:   "palette [color...]",
	Short: "Show or override the signal definition color palette",
	Long: `Show or override the signal definition color palette.

Without arguments, prints the palette new signal definitions cycle
through. With hex color arguments, validates them and persists the
override to the config file; comments in other sections survive the
save.

Examples:
  # Print the effective palette
  ibakit palette

  # Persist a three-color override
  ibakit palette "#0000FF" "#FF0000" "#008000"`,
	RunE: runPalette,
}

func init() {
	rootCmd.AddCommand(paletteCmd)
}

func runPalette(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		printPalette(cmd.OutOrStdout(), effectivePalette(cfg.Registry.Palette))
		return nil
	}

	path := configFilePath()
	if err := config.SavePalette(path, args); err != nil {
		return fmt.Errorf("saving palette: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "palette saved to %s\n", path)
	return nil
}

// effectivePalette returns the configured override, or the built-in
// cycle when none is set.
func effectivePalette(override []string) []string {
	if len(override) > 0 {
		return override
	}
	return registry.DefaultPalette
}

func printPalette(out io.Writer, palette []string) {
	for _, color := range palette {
		fmt.Fprintln(out, color)
	}
}

// configFilePath is where palette overrides are persisted: the loaded
// config file, or the local default when none was found.
func configFilePath() string {
	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}
	return ".ibakit/config.yaml"
}
