// Package cli provides the metarcsv command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// previewRows is how many rows are echoed after each file is written.
const previewRows = 3

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "metarcsv",
		Short: "Convert METAR report pages into CSV rows",
		Long: `metarcsv filters captured METAR report pages down to the record lines of a
station and writes one CSV row per record.

Rows have no header and are encoded as UTF-8 with a byte-order mark. Files are
named <yymmdd_HHMM>_<STATION>.csv.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	logger := func(cmd *cobra.Command) *slog.Logger {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		return newLogger(cmd.ErrOrStderr(), level)
	}

	rootCmd.AddCommand(newParseCommand(logger))
	rootCmd.AddCommand(newRunCommand(logger))
	rootCmd.AddCommand(newValidateCommand())

	return rootCmd
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
