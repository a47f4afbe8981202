package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Список"

func renderXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	set := func(cell string, value any) {
		if err == nil {
			err = f.SetCellValue(sheetName, cell, value)
		}
	}
	set("A1", doc.Facility)
	set("A2", doc.Title)
	set("A3", "Место")
	set("B3", doc.Place)
	set("A4", "Вахта")
	set("B4", doc.Watch)

	const headerRow = 6
	for i, title := range columnTitles {
		cell, cerr := excelize.CoordinatesToCellName(i+1, headerRow)
		if cerr != nil {
			return cerr
		}
		set(cell, title)
	}
	for i, row := range doc.Rows {
		line := headerRow + 1 + i
		set(fmt.Sprintf("A%d", line), row.Number)
		set(fmt.Sprintf("B%d", line), row.FullName)
		set(fmt.Sprintf("C%d", line), row.Position)
		set(fmt.Sprintf("D%d", line), seniorMark(row.Senior))
	}
	if err != nil {
		return fmt.Errorf("failed to fill sheet: %w", err)
	}

	if err := f.SetCellStyle(sheetName, "A1", "A2", bold); err != nil {
		return fmt.Errorf("failed to style title: %w", err)
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("D%d", headerRow), bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	for col, width := range map[string]float64{"A": 8, "B": 40, "C": 35, "D": 10} {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
