package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	lineHeight        = 5.0
	cellPadding       = 1.0
	landscapeColumns  = 6
	headerFillR       = 241
	headerFillG       = 245
	headerFillB       = 249
	defaultBodyFont   = 9.0
	defaultHeaderFont = 10.0
)

// PDFExporter renders datasets into a bordered table, wrapping long cells.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays the dataset out one row per line group. Wide datasets switch
// to landscape.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation := "P"
	if len(data.Headers) >= landscapeColumns {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(data.Title), "", 1, "C", false, 0, "")
	}
	if data.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, data.Subtitle, "", 1, "C", false, 0, "")
	}
	if data.Title != "" || data.Subtitle != "" {
		pdf.Ln(4)
	}

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(data.Headers))

	drawHeader := func() {
		pdf.SetFont("Arial", "B", defaultHeaderFont)
		pdf.SetFillColor(headerFillR, headerFillG, headerFillB)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 8, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", defaultBodyFont)
	}
	drawHeader()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		cells := make([][]string, len(data.Headers))
		lines := 1
		for i, header := range data.Headers {
			cells[i] = splitCell(pdf, row[header], colWidth-2*cellPadding)
			if len(cells[i]) > lines {
				lines = len(cells[i])
			}
		}
		rowHeight := float64(lines)*lineHeight + cellPadding

		if pdf.GetY()+rowHeight > pageHeight-bottom {
			pdf.AddPage()
			drawHeader()
		}

		x, y := pdf.GetXY()
		for i := range data.Headers {
			pdf.Rect(x+float64(i)*colWidth, y, colWidth, rowHeight, "D")
			pdf.SetXY(x+float64(i)*colWidth+cellPadding, y+cellPadding/2)
			pdf.MultiCell(colWidth-2*cellPadding, lineHeight, strings.Join(cells[i], "\n"), "", "L", false)
		}
		pdf.SetXY(x, y+rowHeight)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func splitCell(pdf *gofpdf.Fpdf, value string, width float64) []string {
	if value == "" {
		return []string{""}
	}
	var out []string
	for _, paragraph := range strings.Split(value, "\n") {
		for _, line := range pdf.SplitLines([]byte(paragraph), width) {
			out = append(out, string(line))
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}
