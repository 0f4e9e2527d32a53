package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"time"
)

// ErrNoData is returned when a renderer requires at least one data row.
var ErrNoData = errors.New("no data available for export")

// CSVExporter renders reports into CSV bytes with a commented preamble.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the report.
func (e *CSVExporter) Render(report Report) ([]byte, error) {
	if len(report.Data) == 0 {
		return nil, ErrNoData
	}
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "# %s\n", report.Metadata.Title)
	fmt.Fprintf(buf, "# Generated At: %s\n", report.Metadata.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(buf, "# Report Type: %s\n", report.Metadata.ReportType)
	fmt.Fprintf(buf, "# Total Records: %d\n", report.Metadata.TotalRecords)
	buf.WriteString("\n")

	headers := report.Columns()
	writer := csv.NewWriter(buf)
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range report.Data {
		record := make([]string, len(headers))
		for i, header := range headers {
			value, _ := row.Get(header)
			record[i] = FormatValue(header, value)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
