package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"quoteflow/internal/domain"
)

// SheetName is the worksheet holding the line items.
const SheetName = "Line Items"

// numericColumns are written as numbers so spreadsheet formulas work on them.
var numericColumns = map[int]bool{0: true, 9: true, 10: true, 11: true, 12: true}

// WriteXLSX writes ext as a single-sheet workbook.
func WriteXLSX(out io.Writer, ext *domain.CanonicalExtraction) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return eris.Wrap(err, "xlsx: rename sheet")
	}

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return eris.Wrapf(err, "xlsx: header %s", h)
		}
	}

	for r, row := range Rows(ext) {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(SheetName, cell, cellValue(c, v)); err != nil {
				return eris.Wrapf(err, "xlsx: cell %s", cell)
			}
		}
	}

	_ = f.SetColWidth(SheetName, "B", "B", 28) // supplier
	_ = f.SetColWidth(SheetName, "G", "G", 22) // part number
	_ = f.SetColWidth(SheetName, "H", "H", 48) // description
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.WriteTo(out); err != nil {
		return eris.Wrap(err, "xlsx: write")
	}
	return nil
}

func cellValue(col int, v string) any {
	if !numericColumns[col] || v == "" {
		return v
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}
