package exporter

import (
	"io"

	"petrodash/internal/series"
)

// Table is a frame flattened into columns, oldest date first
type Table struct {
	Headers []string
	Dates   []series.DateKey
	Columns [][]*float64 // one per header after Date
}

// FrameTable lays a frame out as Date, one column per series, then Low and High
func FrameTable(frame series.Frame) Table {
	t := Table{
		Headers: make([]string, 0, len(frame.Series)+3),
		Dates:   frame.Axis,
		Columns: make([][]*float64, 0, len(frame.Series)+2),
	}
	t.Headers = append(t.Headers, "Date")
	for _, s := range frame.Series {
		t.Headers = append(t.Headers, s.Name)
		t.Columns = append(t.Columns, s.Values)
	}

	low := make([]*float64, len(frame.Axis))
	high := make([]*float64, len(frame.Axis))
	for i := range frame.Axis {
		if i < len(frame.Envelope) {
			low[i], high[i] = frame.Envelope[i].Min, frame.Envelope[i].Max
		}
	}
	t.Headers = append(t.Headers, "Low", "High")
	t.Columns = append(t.Columns, low, high)
	return t
}

// Records renders every row as text
func (t Table) Records() [][]string {
	records := make([][]string, len(t.Dates))
	for i, d := range t.Dates {
		record := make([]string, 0, len(t.Headers))
		record = append(record, d.String())
		for _, col := range t.Columns {
			record = append(record, formatValue(col[i]))
		}
		records[i] = record
	}
	return records
}

// WriteFrameCSV is the one-call CSV rendition of a frame
func (c *CSVWriter) WriteFrameCSV(w io.Writer, frame series.Frame) error {
	t := FrameTable(frame)
	return c.Write(w, WriteOptions{Headers: t.Headers, Records: t.Records(), BOMPrefix: true})
}
