package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"petrodash/internal/series"
)

// maxSheetName is Excel's limit on worksheet names
const maxSheetName = 31

// WriteXLSX writes frame as a single-sheet workbook. Absent values are left
// blank so charts built in Excel show gaps instead of zeros.
func WriteXLSX(w io.Writer, frame series.Frame, sheet string) error {
	if sheet == "" {
		sheet = "Data"
	}
	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	t := FrameTable(frame)
	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, d := range t.Dates {
		row := make([]interface{}, 0, len(t.Headers))
		row = append(row, d.String())
		for _, col := range t.Columns {
			if col[i] == nil {
				row = append(row, nil)
				continue
			}
			row = append(row, *col[i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, bold); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	return f.Write(w)
}
