package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
	"github.com/noah-isme/sma-report-scheduler/internal/repository"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/export"
)

const paramDateLayout = "2006-01-02"

type reportDataSource interface {
	Supports(reportType models.ReportType) bool
	Fetch(ctx context.Context, reportType models.ReportType, filter repository.ReportDataFilter) ([]export.Row, error)
}

// ReportGenerator turns a report type and its parameters into an in-memory report.
type ReportGenerator struct {
	data reportDataSource
	now  func() time.Time
}

// NewReportGenerator constructs the generator.
func NewReportGenerator(data reportDataSource) *ReportGenerator {
	return &ReportGenerator{data: data, now: time.Now}
}

// Generate runs the aggregate query for reportType and assembles metadata, summary and charts.
// Custom reports name their underlying type in parameters.source.
func (g *ReportGenerator) Generate(ctx context.Context, reportType models.ReportType, params models.ReportParameters) (*export.Report, error) {
	source := reportType
	if reportType == models.ReportTypeCustom {
		source = models.ReportType(params.String("source"))
		if source == "" || source == models.ReportTypeCustom || !g.data.Supports(source) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custom reports require parameters.source naming a built-in report type")
		}
	} else if !g.data.Supports(source) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report type %q", reportType))
	}

	now := g.now().UTC()
	start, end, err := parseDateRange(params, now)
	if err != nil {
		return nil, err
	}

	rows, err := g.data.Fetch(ctx, source, repository.ReportDataFilter{
		StartDate: start,
		EndDate:   end,
		TermID:    params.String("termId"),
		ClassID:   params.String("classId"),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report data")
	}

	title := params.String("title")
	if title == "" {
		title = export.FormatHeader(string(reportType)) + " Report"
	}

	return &export.Report{
		Metadata: export.Metadata{
			Title:        title,
			ReportType:   string(reportType),
			GeneratedAt:  now,
			DateRange:    &export.DateRange{StartDate: start.Format(paramDateLayout), EndDate: end.Format(paramDateLayout)},
			TotalRecords: len(rows),
		},
		Summary: export.Summary{Aggregations: summarize(rows)},
		Data:    rows,
		Charts:  chartsFor(rows),
	}, nil
}

// parseDateRange reads startDate/endDate; the default is the 30 days ending today.
func parseDateRange(params models.ReportParameters, now time.Time) (time.Time, time.Time, error) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -30)

	if raw := params.String("endDate"); raw != "" {
		parsed, err := time.Parse(paramDateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "endDate must be YYYY-MM-DD")
		}
		end = parsed
		start = end.AddDate(0, 0, -30)
	}
	if raw := params.String("startDate"); raw != "" {
		parsed, err := time.Parse(paramDateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
		}
		start = parsed
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "startDate must not be after endDate")
	}
	return start, end, nil
}

// summarize totals every numeric column; rates and scores are averaged instead.
func summarize(rows []export.Row) export.Row {
	summary := export.Row{{Key: "totalRecords", Value: len(rows)}}
	if len(rows) == 0 {
		return summary
	}
	for _, key := range rows[0].Keys() {
		var total float64
		var count int
		for _, row := range rows {
			value, _ := row.Get(key)
			if f, ok := numeric(value); ok {
				total += f
				count++
			}
		}
		if count == 0 {
			continue
		}
		if averaged(key) {
			name := key
			if !strings.HasPrefix(key, "average_") {
				name = "average_" + key
			}
			summary = append(summary, export.Cell{Key: name, Value: total / float64(count)})
			continue
		}
		summary = append(summary, export.Cell{Key: "total_" + key, Value: total})
	}
	return summary
}

func averaged(key string) bool {
	return strings.Contains(key, "percentage") || strings.Contains(key, "average") || strings.Contains(key, "score")
}

// chartsFor plots the first numeric column against the first text column.
func chartsFor(rows []export.Row) []export.ChartSpec {
	if len(rows) == 0 {
		return nil
	}
	var labelKey, valueKey string
	for _, cell := range rows[0] {
		if _, ok := cell.Value.(string); ok && labelKey == "" {
			labelKey = cell.Key
		}
		if _, ok := numeric(cell.Value); ok && valueKey == "" {
			valueKey = cell.Key
		}
	}
	if labelKey == "" || valueKey == "" {
		return nil
	}
	chart := export.ChartSpec{Type: "bar", Title: fmt.Sprintf("%s by %s", export.FormatHeader(valueKey), export.FormatHeader(labelKey))}
	for _, row := range rows {
		label, _ := row.Get(labelKey)
		value, _ := row.Get(valueKey)
		f, _ := numeric(value)
		chart.Labels = append(chart.Labels, fmt.Sprint(label))
		chart.Values = append(chart.Values, f)
	}
	return []export.ChartSpec{chart}
}

func numeric(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
