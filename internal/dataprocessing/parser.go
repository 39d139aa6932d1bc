package dataprocessing

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"petrodash/internal/series"
)

// ErrNoSeriesSheet is returned when no sheet carries a Date header row
var ErrNoSeriesSheet = errors.New("no sheet with a Date header row")

// headerScanRows bounds how far down a sheet the header row may appear
const headerScanRows = 10

// SheetSummary describes one worksheet of an ingested workbook
type SheetSummary struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns int      `json:"columns"`
	Header  []string `json:"header,omitempty"`
}

// Summarize lists the sheets of a workbook with their dimensions
func Summarize(data []byte) ([]SheetSummary, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var out []SheetSummary
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		summary := SheetSummary{Name: name, Rows: len(rows)}
		for _, row := range rows {
			summary.Columns = max(summary.Columns, len(row))
		}
		if len(rows) > 0 {
			summary.Header = rows[0]
		}
		out = append(out, summary)
	}
	return out, nil
}

// ParseSeriesSheet extracts series from sheet, or from the first sheet with a
// Date header when sheet is empty. Unreadable cells are logged and skipped.
func ParseSeriesSheet(data []byte, sheet string, logger *slog.Logger) (series.Raw, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	candidates := f.GetSheetList()
	if sheet != "" {
		candidates = []string{sheet}
	}

	for _, name := range candidates {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		headerRow := findHeader(rows)
		if headerRow < 0 {
			continue
		}
		logger.Debug("found series sheet",
			slog.String("sheet_name", name),
			slog.Int("header_row", headerRow),
			slog.Int("total_rows", len(rows)))
		return parseRows(rows[headerRow], rows[headerRow+1:], logger), nil
	}

	if sheet != "" {
		return nil, fmt.Errorf("sheet %q: %w", sheet, ErrNoSeriesSheet)
	}
	return nil, ErrNoSeriesSheet
}

func findHeader(rows [][]string) int {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if len(rows[i]) > 1 && strings.EqualFold(strings.TrimSpace(rows[i][0]), "date") {
			return i
		}
	}
	return -1
}

func parseRows(header []string, rows [][]string, logger *slog.Logger) series.Raw {
	// column index -> series name, envelope columns skipped
	columns := make(map[int]string)
	for j := 1; j < len(header); j++ {
		name := strings.TrimSpace(header[j])
		lower := strings.ToLower(name)
		if name == "" || lower == "low" || lower == "high" {
			continue
		}
		columns[j] = name
	}

	raw := make(series.Raw, len(columns))
	for _, name := range columns {
		raw[name] = make(map[string]float64)
	}

	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		key, err := normalizeDate(row[0])
		if err != nil {
			logger.Warn("skipping row with unreadable date",
				slog.Int("row", i+2),
				slog.String("value", row[0]))
			continue
		}
		for j, name := range columns {
			if j >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[j])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
			if err != nil {
				logger.Warn("skipping non-numeric cell",
					slog.String("series", name),
					slog.String("date", key),
					slog.String("value", cell))
				continue
			}
			raw[name][key] = v
		}
	}
	return raw
}

// normalizeDate accepts "M/D" keys as well as full dates, which Excel tends
// to produce when a user retypes the column
func normalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if k, err := series.ParseDateKey(s); err == nil {
		return k.String(), nil
	}
	for _, layout := range []string{"2006-01-02", "01-02-06", "1/2/2006", "1/2/06"} {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		k, err := series.NewDateKey(t.Month(), t.Day())
		if err != nil {
			return "", err
		}
		return k.String(), nil
	}
	return "", fmt.Errorf("%w: %q", series.ErrMalformedDate, s)
}
