package export

import "encoding/json"

// JSONExporter renders the whole report as indented JSON.
type JSONExporter struct{}

// NewJSONExporter constructs a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Render encodes the report; rows keep their column order.
func (e *JSONExporter) Render(report Report) ([]byte, error) {
	if report.Data == nil {
		report.Data = []Row{}
	}
	return json.MarshalIndent(report, "", "  ")
}
