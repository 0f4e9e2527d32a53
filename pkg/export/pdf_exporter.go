package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMarginSide     = 15.0
	pdfMarginVertical = 20.0
	pdfPageWidth      = 210.0
)

// PDFExporter renders reports into a paginated A4 document.
type PDFExporter struct {
	systemName string
}

// NewPDFExporter constructs a PDF exporter; systemName appears in the running header.
func NewPDFExporter(systemName string) *PDFExporter {
	if systemName == "" {
		systemName = "School Management System"
	}
	return &PDFExporter{systemName: systemName}
}

// Render creates a PDF document with metadata, summary grid and data table.
func (e *PDFExporter) Render(report Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(pdfMarginSide, pdfMarginVertical, pdfMarginSide)
	pdf.SetAutoPageBreak(true, pdfMarginVertical)
	pdf.AliasNbPages("")

	title := report.Metadata.Title
	generated := report.Metadata.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}

	pdf.SetHeaderFunc(func() {
		pdf.SetY(8)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s - %s", e.systemName, title)), "B", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetY(pdfMarginVertical)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Generated %s | Page %d of {nb}", generated.Format("Jan 2, 2006"), pdf.PageNo())), "T", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 9)
	meta := [][2]string{
		{"Report Type", FormatHeader(report.Metadata.ReportType)},
		{"Generated At", generated.Format("Jan 2, 2006 15:04 MST")},
		{"Total Records", fmt.Sprintf("%d", report.Metadata.TotalRecords)},
	}
	if report.Metadata.DateRange != nil {
		meta = append(meta, [2]string{"Date Range", report.Metadata.DateRange.String()})
	}
	for _, pair := range meta {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(40, 6, tr(pair[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, tr(pair[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if len(report.Summary.Aggregations) > 0 {
		e.writeSummary(pdf, tr, report.Summary.Aggregations)
	}

	if len(report.Data) > 0 {
		e.writeTable(pdf, tr, report)
	} else {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 8, "No data available for this report.", "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) writeSummary(pdf *gofpdf.Fpdf, tr func(string) string, aggregations Row) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")

	// two key/value pairs per grid line
	usable := pdfPageWidth - 2*pdfMarginSide
	keyWidth := usable * 0.3
	valueWidth := usable*0.5 - keyWidth
	pdf.SetFillColor(221, 235, 247)
	for i, cell := range aggregations {
		header := FormatHeader(cell.Key)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(keyWidth, 7, tr(fitText(pdf, header, keyWidth)), "1", 0, "L", true, 0, "")
		pdf.SetFont("Arial", "", 9)
		lineEnd := 0
		if i%2 == 1 || i == len(aggregations)-1 {
			lineEnd = 1
		}
		pdf.CellFormat(valueWidth, 7, tr(fitText(pdf, FormatValue(cell.Key, cell.Value), valueWidth)), "1", lineEnd, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (e *PDFExporter) writeTable(pdf *gofpdf.Fpdf, tr func(string) string, report Report) {
	columns := report.Columns()
	colWidth := (pdfPageWidth - 2*pdfMarginSide) / float64(len(columns))

	writeHeader := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(221, 235, 247)
		for _, column := range columns {
			pdf.CellFormat(colWidth, 8, tr(fitText(pdf, FormatHeader(column), colWidth)), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Data", "", 1, "L", false, 0, "")
	writeHeader()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range report.Data {
		if pdf.GetY()+7 > pageHeight-pdfMarginVertical {
			pdf.AddPage()
			writeHeader()
		}
		for _, column := range columns {
			value, _ := row.Get(column)
			pdf.CellFormat(colWidth, 7, tr(fitText(pdf, FormatValue(column, value), colWidth)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// fitText truncates text so it fits within width at the current font.
func fitText(pdf *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
