package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var emailTemplate = template.Must(template.New("report_email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2 style="color: #1f4e79;">{{.Title}}</h2>
  {{if .Message}}<p>{{.Message}}</p>{{end}}
  <table style="border-collapse: collapse;">
    <tr><td style="padding: 4px 12px 4px 0;"><strong>Report Type</strong></td><td>{{.ReportType}}</td></tr>
    <tr><td style="padding: 4px 12px 4px 0;"><strong>Generated At</strong></td><td>{{.GeneratedAt}}</td></tr>
    {{if .DateRange}}<tr><td style="padding: 4px 12px 4px 0;"><strong>Date Range</strong></td><td>{{.DateRange}}</td></tr>{{end}}
    <tr><td style="padding: 4px 12px 4px 0;"><strong>Total Records</strong></td><td>{{.TotalRecords}}</td></tr>
    <tr><td style="padding: 4px 12px 4px 0;"><strong>Attachment</strong></td><td>{{.FileName}}</td></tr>
  </table>
  {{if .Summary}}
  <h3>Summary</h3>
  <table style="border-collapse: collapse;">
    {{range .Summary}}<tr><td style="border: 1px solid #ccc; padding: 4px 8px; background: #ddebf7;">{{.Label}}</td><td style="border: 1px solid #ccc; padding: 4px 8px;">{{.Value}}</td></tr>
    {{end}}
  </table>
  {{end}}
  <p style="font-size: 12px; color: #777;">This message was sent by {{.SystemName}}.</p>
</body>
</html>`))

type emailSummaryItem struct {
	Label string
	Value string
}

type emailView struct {
	Title        string
	Message      string
	ReportType   string
	GeneratedAt  string
	DateRange    string
	TotalRecords int
	FileName     string
	Summary      []emailSummaryItem
	SystemName   string
}

// RenderEmailHTML renders the HTML body that accompanies an emailed report.
func RenderEmailHTML(report Report, fileName, message, systemName string) (string, error) {
	generated := report.Metadata.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	view := emailView{
		Title:        report.Metadata.Title,
		Message:      message,
		ReportType:   FormatHeader(report.Metadata.ReportType),
		GeneratedAt:  generated.Format("Jan 2, 2006 15:04 MST"),
		DateRange:    report.Metadata.DateRange.String(),
		TotalRecords: report.Metadata.TotalRecords,
		FileName:     fileName,
		SystemName:   systemName,
	}
	for _, cell := range report.Summary.Aggregations {
		view.Summary = append(view.Summary, emailSummaryItem{
			Label: FormatHeader(cell.Key),
			Value: FormatValue(cell.Key, cell.Value),
		})
	}
	buf := &bytes.Buffer{}
	if err := emailTemplate.Execute(buf, view); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}
