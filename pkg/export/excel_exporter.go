package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	maxColumnWidth  = 50.0
	minColumnWidth  = 10.0
	chartsSheetName = "Charts"
	headerFillColor = "#DDEBF7"
)

// ExcelExporter renders reports into an xlsx workbook.
type ExcelExporter struct{}

// NewExcelExporter constructs an Excel exporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

type sheetWriter struct {
	file   *excelize.File
	sheet  string
	row    int
	widths map[int]int
	style  int
}

// Render builds the workbook and returns its bytes.
func (e *ExcelExporter) Render(report Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := SheetName(report.Metadata.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	w := &sheetWriter{file: f, sheet: sheet, row: 1, widths: map[int]int{}, style: style}

	generated := report.Metadata.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	if err := w.write(true, report.Metadata.Title); err != nil {
		return nil, err
	}
	meta := [][]interface{}{
		{"Report Type", FormatHeader(report.Metadata.ReportType)},
		{"Generated At", generated.Format(time.RFC3339)},
		{"Total Records", report.Metadata.TotalRecords},
	}
	if report.Metadata.DateRange != nil {
		meta = append(meta, []interface{}{"Date Range", report.Metadata.DateRange.String()})
	}
	for _, pair := range meta {
		if err := w.write(true, pair...); err != nil {
			return nil, err
		}
	}
	w.blank()

	if len(report.Summary.Aggregations) > 0 {
		if err := w.write(true, "SUMMARY"); err != nil {
			return nil, err
		}
		for _, cell := range report.Summary.Aggregations {
			if err := w.write(false, FormatHeader(cell.Key), FormatValue(cell.Key, cell.Value)); err != nil {
				return nil, err
			}
		}
		w.blank()
	}

	if err := w.write(true, "DATA"); err != nil {
		return nil, err
	}
	columns := report.Columns()
	if len(columns) > 0 {
		headers := make([]interface{}, len(columns))
		for i, column := range columns {
			headers[i] = FormatHeader(column)
		}
		if err := w.write(true, headers...); err != nil {
			return nil, err
		}
		for _, row := range report.Data {
			values := make([]interface{}, len(columns))
			for i, column := range columns {
				value, _ := row.Get(column)
				values[i] = FormatValue(column, value)
			}
			if err := w.write(false, values...); err != nil {
				return nil, err
			}
		}
	}
	if err := w.applyWidths(); err != nil {
		return nil, err
	}

	if err := writeChartsSheet(f, report.Charts); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *sheetWriter) write(styled bool, values ...interface{}) error {
	start, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return fmt.Errorf("resolve cell: %w", err)
	}
	if err := w.file.SetSheetRow(w.sheet, start, &values); err != nil {
		return fmt.Errorf("write row %d: %w", w.row, err)
	}
	for i, value := range values {
		if width := len(fmt.Sprint(value)); width > w.widths[i+1] {
			w.widths[i+1] = width
		}
	}
	if styled {
		end, err := excelize.CoordinatesToCellName(len(values), w.row)
		if err != nil {
			return fmt.Errorf("resolve cell: %w", err)
		}
		if err := w.file.SetCellStyle(w.sheet, start, end, w.style); err != nil {
			return fmt.Errorf("style row %d: %w", w.row, err)
		}
	}
	w.row++
	return nil
}

func (w *sheetWriter) blank() {
	w.row++
}

func (w *sheetWriter) applyWidths() error {
	for col, chars := range w.widths {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return fmt.Errorf("resolve column: %w", err)
		}
		width := float64(chars + 2)
		if width < minColumnWidth {
			width = minColumnWidth
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := w.file.SetColWidth(w.sheet, name, name, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	return nil
}

func writeChartsSheet(f *excelize.File, charts []ChartSpec) error {
	if _, err := f.NewSheet(chartsSheetName); err != nil {
		return fmt.Errorf("create charts sheet: %w", err)
	}
	row := 1
	for _, chart := range charts {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(chartsSheetName, cell, &[]interface{}{chart.Title, chart.Type}); err != nil {
			return fmt.Errorf("write chart title: %w", err)
		}
		row++
		for i, label := range chart.Labels {
			var value interface{}
			if i < len(chart.Values) {
				value = chart.Values[i]
			}
			cell, _ = excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(chartsSheetName, cell, &[]interface{}{label, value}); err != nil {
				return fmt.Errorf("write chart data: %w", err)
			}
			row++
		}
		row++
	}
	return nil
}

// SheetName derives a valid worksheet name: at most 31 chars, no reserved characters,
// no leading or trailing apostrophe and never the name of the charts sheet.
func SheetName(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return ' '
		}
		return r
	}, title)
	cleaned = trimSheetName(cleaned)
	if cleaned == "" {
		cleaned = "Report"
	}
	runes := []rune(cleaned)
	if len(runes) > 31 {
		runes = runes[:31]
	}
	name := trimSheetName(string(runes))
	if strings.EqualFold(name, chartsSheetName) {
		name += " Report"
	}
	return name
}

func trimSheetName(name string) string {
	for {
		trimmed := strings.Trim(strings.TrimSpace(name), "'")
		if trimmed == name {
			return name
		}
		name = trimmed
	}
}
