package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"stitch/internal/patch"
	"stitch/internal/version"
)

var rootCmd = &cobra.Command{
	Use:               "stitch",
	Short:             "Structural patcher for source files",
	Long:              `Stitch applies declarative patch plans to source files: locate a region by rule, splice text in, verify the result holds on a rerun.`,
	PersistentPreRunE: setupColor,
}

// main registers subcommands and persistent flags, then executes the root
// command. Failures map to the documented exit codes.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes patch failures from environment failures:
// 1 when a patch could not be applied cleanly, 2 for everything else
// (I/O, locks, malformed plans).
func exitCode(err error) int {
	switch {
	case errors.Is(err, patch.ErrNotFound),
		errors.Is(err, patch.ErrAmbiguous),
		errors.Is(err, patch.ErrGuardMismatch),
		errors.Is(err, patch.ErrNotIdempotent):
		return 1
	}
	return 2
}

func setupColor(cmd *cobra.Command, _ []string) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch strings.TrimSpace(strings.ToLower(mode)) {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
