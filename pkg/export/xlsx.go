package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet that holds the table in XLSX output.
const SheetName = "Table"

// WriteXLSX writes rows into a single worksheet, one spreadsheet row per
// table row. All values are stored as text.
func WriteXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for r, row := range rows {
		for c, text := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(SheetName, cell, text); err != nil {
				return fmt.Errorf("set %s: %w", cell, err)
			}
		}
	}
	_, err := f.WriteTo(w)
	return err
}
