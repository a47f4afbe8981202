// Package report renders the live entries of a movement list as printable
// PDF and XLSX documents.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rpattn/movementcontrol/internal/movement"
)

// Format is a supported export format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// Row is one printed entry.
type Row struct {
	Number   int
	FullName string
	Initials string
	Position string
	Senior   bool
}

// Document is the format-independent content of a report.
type Document struct {
	Facility string
	Title    string
	Place    string
	Watch    string
	Printed  time.Time
	Rows     []Row
}

// NewDocument lays out an exported list, rendering times in loc.
func NewDocument(export movement.ListExport, loc *time.Location, printed time.Time) Document {
	if loc == nil {
		loc = time.UTC
	}
	doc := Document{
		Facility: export.Facility.Name,
		Title:    export.List.Title(loc),
		Place:    export.List.Place,
		Watch:    export.List.Watch,
		Printed:  printed.In(loc),
		Rows:     make([]Row, 0, len(export.Entries)),
	}
	for i, entry := range export.Entries {
		doc.Rows = append(doc.Rows, Row{
			Number:   i + 1,
			FullName: entry.Employee.FullName(),
			Initials: entry.Employee.Initials(),
			Position: entry.Employee.Position,
			Senior:   entry.Employee.IsSenior,
		})
	}
	return doc
}

// FileName returns "<facility-slug>-<scheduled-date>.<ext>" with the date taken in loc.
func FileName(slug string, scheduled time.Time, loc *time.Location, format Format) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%s-%s.%s", strings.ToLower(slug), scheduled.In(loc).Format("2006-01-02"), format)
}

// Renderer writes documents in every supported format.
type Renderer struct {
	pdfFont string
}

// NewRenderer returns a renderer. fontPath names a UTF-8 TrueType font used
// for PDF output; when empty the PDF falls back to the core Helvetica font,
// which cannot show Cyrillic.
func NewRenderer(fontPath string) *Renderer {
	return &Renderer{pdfFont: fontPath}
}

// Render writes doc to w in format.
func (r *Renderer) Render(w io.Writer, doc Document, format Format) error {
	switch format {
	case FormatPDF:
		return r.renderPDF(w, doc)
	case FormatXLSX:
		return renderXLSX(w, doc)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

var columnTitles = []string{"№", "ФИО", "Должность", "Старший"}

func seniorMark(senior bool) string {
	if senior {
		return "да"
	}
	return ""
}
