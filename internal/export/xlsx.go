package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxSheet    = "Contacts"
	xlsxColWidth = 28.0
)

// WriteXLSX serializes rows into a single-sheet workbook with a bold
// shaded header and fixed column widths. A non-empty watermark adds an
// italic footer row merged across all columns.
func WriteXLSX(w io.Writer, rows []Row, cols []Column, watermark string) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", xlsxSheet)

	lastCol, err := excelize.ColumnNumberToName(len(cols))
	if err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	if err := f.SetColWidth(xlsxSheet, "A", lastCol, xlsxColWidth); err != nil {
		return fmt.Errorf("set column widths: %w", err)
	}

	for i, c := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(xlsxSheet, cell, c.Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for ri, row := range rows {
		for ci, c := range cols {
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(xlsxSheet, cell, c.Value(row)); err != nil {
				return fmt.Errorf("write cell: %w", err)
			}
		}
	}

	if watermark != "" {
		footerRow := len(rows) + 3
		start, err := excelize.CoordinatesToCellName(1, footerRow)
		if err != nil {
			return fmt.Errorf("footer cell: %w", err)
		}
		end, err := excelize.CoordinatesToCellName(len(cols), footerRow)
		if err != nil {
			return fmt.Errorf("footer cell: %w", err)
		}
		if err := f.MergeCell(xlsxSheet, start, end); err != nil {
			return fmt.Errorf("merge footer: %w", err)
		}
		if err := f.SetCellValue(xlsxSheet, start, watermark); err != nil {
			return fmt.Errorf("write footer: %w", err)
		}
		footerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true}})
		if err != nil {
			return fmt.Errorf("footer style: %w", err)
		}
		if err := f.SetCellStyle(xlsxSheet, start, end, footerStyle); err != nil {
			return fmt.Errorf("apply footer style: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
