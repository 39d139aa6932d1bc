package services

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"strings"

	apierrors "petrodash/internal/errors"
	"petrodash/internal/exporter"
)

// Export formats
const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
)

var exportContentTypes = map[string]string{
	ExportCSV:  "text/csv; charset=utf-8",
	ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Export is a downloadable rendition of a view
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export renders the whole aligned frame of a view as CSV or XLSX
func (s *DashboardService) Export(ctx context.Context, userID, view string, filters map[string]string, format string) (*Export, error) {
	contentType, ok := exportContentTypes[format]
	if !ok {
		return nil, apierrors.UnsupportedFormat(format)
	}

	spec, resolved, frame, err := s.Frame(ctx, userID, view, filters)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case ExportCSV:
		err = exporter.NewCSVWriter("").WriteFrameCSV(&buf, frame)
	case ExportXLSX:
		err = exporter.WriteXLSX(&buf, frame, spec.Title)
	}
	if err != nil {
		return nil, apierrors.NewWithDetails(http.StatusInternalServerError, "EXPORT_FAILED", "failed to render export", err.Error())
	}

	return &Export{
		Filename:    exportFilename(spec.Name, resolved, format),
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}

// exportFilename joins the view name and the filter values in key order,
// e.g. futures-spreads_ULSD_M1-M2.csv
func exportFilename(view string, filters map[string]string, ext string) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{view}
	for _, k := range keys {
		parts = append(parts, strings.ReplaceAll(filters[k], " ", "-"))
	}
	return strings.Join(parts, "_") + "." + ext
}
