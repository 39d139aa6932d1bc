// Command seriesctl aligns series files offline, the same way the dashboard
// does, and writes the frame as JSON, CSV or XLSX.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"petrodash/internal/config"
	"petrodash/internal/dataprocessing"
	"petrodash/internal/exporter"
	"petrodash/internal/series"
	"petrodash/internal/validation"
)

type alignOptions struct {
	exclude           []string
	includeAggregates bool
	window            int
	anchor            string
	format            string
	output            string
	sheet             string
	verbose           bool
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "seriesctl",
		Short:        "Align year-keyed date series offline",
		SilenceUsage: true,
		Version:      config.AppVersion,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newAlignCommand(stdout, stderr))
	return root
}

func newAlignCommand(stdout, stderr io.Writer) *cobra.Command {
	var opts alignOptions

	cmd := &cobra.Command{
		Use:   "align <file.json|file.xlsx>",
		Short: "Align a series file and write the frame",
		Long: `Reads series as {"2024": {"1/5": 1.2}} JSON or a workbook with a date column
and one column per series, aligns them on a shared axis and computes the
min/max envelope. Aggregate series such as 5YEARAVG stay out of the envelope
unless --include-aggregates is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			return runAlign(args[0], opts, stdout, logger)
		},
	}

	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "series names kept out of the envelope")
	cmd.Flags().BoolVar(&opts.includeAggregates, "include-aggregates", false, "let NYEARAVG series contribute to the envelope")
	cmd.Flags().IntVar(&opts.window, "window", 0, "keep only the N most recent positions (0 keeps all)")
	cmd.Flags().StringVar(&opts.anchor, "anchor", "", "series whose latest observation ends the window (default: latest year)")
	cmd.Flags().StringVar(&opts.format, "format", "json", "output format: json, csv or xlsx")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "workbook sheet to read (default: first sheet with data)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log dropped entries and progress")
	return cmd
}

func runAlign(path string, opts alignOptions, stdout io.Writer, logger *slog.Logger) error {
	switch opts.format {
	case "json", "csv", "xlsx":
	default:
		return fmt.Errorf("unsupported format %q", opts.format)
	}
	if opts.window < 0 {
		return fmt.Errorf("--window must not be negative")
	}

	raw, err := readSeries(path, opts.sheet, logger)
	if err != nil {
		return err
	}

	parsed, failures := series.FromRaw(raw, logger)
	if len(failures) > 0 {
		logger.Warn("dropped malformed entries", slog.Int("count", len(failures)))
	}

	exclude := series.ExcludeNames(opts.exclude...)
	if !opts.includeAggregates {
		exclude = series.AggregateExclusion().WithNames(opts.exclude...)
	}
	frame := series.Align(parsed, exclude)

	if opts.window > 0 {
		anchor := opts.anchor
		if anchor == "" {
			if year, ok := series.LatestYear(parsed); ok {
				anchor = fmt.Sprint(year)
			}
		}
		frame = frame.Recent(anchor, opts.window)
	}

	var buf bytes.Buffer
	switch opts.format {
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(frame)
	case "csv":
		err = exporter.NewCSVWriter("").WriteFrameCSV(&buf, frame)
	case "xlsx":
		err = exporter.WriteXLSX(&buf, frame, "")
	}
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", opts.format, err)
	}

	if opts.output == "" {
		_, err = stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.output, err)
	}
	logger.Info("frame written",
		slog.String("output", opts.output),
		slog.Int("positions", len(frame.Axis)),
		slog.Int("series", len(frame.Series)))
	return nil
}

func readSeries(path, sheet string, logger *slog.Logger) (series.Raw, error) {
	kind, err := validation.NewFileValidator(logger).SeriesFileKind(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if kind == "xlsx" {
		return dataprocessing.ParseSeriesSheet(data, sheet, logger)
	}

	var body series.RawJSON
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	raw, dropped := body.Numeric()
	if dropped > 0 {
		logger.Warn("dropped non-numeric values",
			slog.String("file", path),
			slog.Int("count", dropped))
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s holds no series", path)
	}
	return raw, nil
}
