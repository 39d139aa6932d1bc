// Package exporter renders aligned frames as downloadable files.
//
// CSVWriter writes delimited text with an optional UTF-8 BOM so Excel picks
// the right encoding. WriteXLSX produces a single-sheet workbook with numeric
// cells, a frozen header row and the min/max envelope as trailing columns.
//
// Both formats share the same column layout, see FrameTable:
//
//	Date, <series...>, Low, High
//
// Example usage:
//
//	table := exporter.FrameTable(frame)
//	err := exporter.NewCSVWriter(dataDir).Write(w, exporter.WriteOptions{
//		Headers:   table.Headers,
//		Records:   table.Records(),
//		BOMPrefix: true,
//	})
package exporter
