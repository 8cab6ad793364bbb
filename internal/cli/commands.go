package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/metar-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/metar-etl/internal/config"
	"github.com/couchcryptid/metar-etl/internal/domain"
)

type loggerFunc func(cmd *cobra.Command) *slog.Logger

func newParseCommand(logger loggerFunc) *cobra.Command {
	var station, outDir string

	cmd := &cobra.Command{
		Use:   "parse [page-file]",
		Short: "Parse one page of report text for a station",
		Long: `Parse one captured page of report text for a station and write its rows
to a CSV file. Reads standard input when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			station = strings.ToUpper(strings.TrimSpace(station))
			if station == "" {
				return errors.New("--station is required")
			}

			text, err := readPage(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			_, err = processSite(cmd.OutOrStdout(), logger(cmd), station, text, outDir)
			return err
		},
	}
	cmd.Flags().StringVarP(&station, "station", "s", "", "station code to keep (e.g. RCKU)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "directory for CSV output")

	return cmd
}

func newRunCommand(logger loggerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "run <sites-file>",
		Short: "Process every site listed in a sites file",
		Long: `Process every site listed in a YAML sites file. A site that fails is
reported and the remaining sites are still processed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sites, err := config.LoadSites(args[0])
			if err != nil {
				return err
			}
			return runSites(cmd.OutOrStdout(), logger(cmd), sites)
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <sites-file>",
		Short: "Validate a sites file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sites, err := config.LoadSites(args[0])
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Sites file valid: %d site(s), output to %s\n", len(sites.Sites), sites.OutputDir)
			for _, site := range sites.Sites {
				status := "ok"
				if _, err := os.Stat(site.Input); err != nil {
					status = "missing input"
				}
				_, _ = fmt.Fprintf(out, "  %s  %s (%s)\n", site.Station, site.Input, status)
			}
			return nil
		},
	}
}

func runSites(out io.Writer, logger *slog.Logger, sites *config.Sites) error {
	var failed []string
	for _, site := range sites.Sites {
		data, err := os.ReadFile(site.Input) // #nosec G304 -- paths come from the sites file
		if err != nil {
			logger.Error("site failed", "station", site.Station, "error", err)
			failed = append(failed, site.Station)
			continue
		}
		if _, err := processSite(out, logger, site.Station, string(data), sites.OutputDir); err != nil {
			logger.Error("site failed", "station", site.Station, "error", err)
			failed = append(failed, site.Station)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d site(s) failed: %s", len(failed), len(sites.Sites), strings.Join(failed, ", "))
	}
	return nil
}

// processSite parses one page, writes its CSV file and prints a short preview.
// Returns the written path, or "" when the page produced no rows.
func processSite(out io.Writer, logger *slog.Logger, station, text, outDir string) (string, error) {
	result := domain.ParsePage(text, station)
	logger.Info("page scanned",
		"station", station,
		"lines_scanned", result.LinesScanned,
		"lines_accepted", result.LinesAccepted,
		"rows", len(result.Rows),
	)

	if result.Empty() {
		logger.Warn("no valid rows found", "station", station)
		return "", nil
	}

	path, err := csvfile.WriteStationFile(outDir, station, result.Rows)
	if err != nil {
		return "", err
	}

	_, _ = fmt.Fprintf(out, "%s: %d row(s) written to %s\n", station, len(result.Rows), path)
	for _, row := range result.Rows[:min(previewRows, len(result.Rows))] {
		_, _ = fmt.Fprintf(out, "  %s\n", strings.Join(row, " | "))
	}
	return path, nil
}

func readPage(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0]) // #nosec G304 -- user-provided path is expected
	if err != nil {
		return "", fmt.Errorf("reading page file: %w", err)
	}
	return string(data), nil
}
