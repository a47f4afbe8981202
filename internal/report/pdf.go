package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "report"

var pdfColumnWidths = []float64{12, 80, 70, 25}

func (r *Renderer) renderPDF(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)

	family := "Helvetica"
	translate := func(s string) string { return s }
	if r.pdfFont != "" {
		pdf.AddUTF8Font(fontFamily, "", r.pdfFont)
		family = fontFamily
	} else {
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to load pdf font: %w", err)
	}

	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()

	pdf.SetFont(family, "", 14)
	pdf.CellFormat(0, 8, translate(doc.Facility), "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 12)
	pdf.CellFormat(0, 7, translate(doc.Title), "", 1, "L", false, 0, "")
	if doc.Place != "" {
		pdf.CellFormat(0, 6, translate("Место: "+doc.Place), "", 1, "L", false, 0, "")
	}
	if doc.Watch != "" {
		pdf.CellFormat(0, 6, translate("Вахта: "+doc.Watch), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont(family, "", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, title := range columnTitles {
		pdf.CellFormat(pdfColumnWidths[i], 7, translate(title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	for _, row := range doc.Rows {
		cells := []string{strconv.Itoa(row.Number), row.FullName, row.Position, seniorMark(row.Senior)}
		for i, cell := range cells {
			align := "L"
			if i == 0 || i == 3 {
				align = "C"
			}
			pdf.CellFormat(pdfColumnWidths[i], 6, translate(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont(family, "", 8)
	pdf.CellFormat(0, 5, translate(fmt.Sprintf("Всего: %d. Сформировано %s", len(doc.Rows), doc.Printed.Format("02.01.2006 15:04"))), "", 1, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
