package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType enumerates the report categories that can be generated and scheduled.
type ReportType string

const (
	ReportTypeAttendance       ReportType = "attendance"
	ReportTypeAcademic         ReportType = "academic"
	ReportTypeFinancial        ReportType = "financial"
	ReportTypeEnrollment       ReportType = "enrollment"
	ReportTypeTeacherWorkload  ReportType = "teacher_workload"
	ReportTypeClassPerformance ReportType = "class_performance"
	ReportTypeFeeCollection    ReportType = "fee_collection"
	ReportTypeStudentProgress  ReportType = "student_progress"
	ReportTypeCustom           ReportType = "custom"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatCSV   ReportFormat = "csv"
	ReportFormatPDF   ReportFormat = "pdf"
	ReportFormatExcel ReportFormat = "excel"
)

// ReportFrequency is the human cadence of a scheduled report.
type ReportFrequency string

const (
	FrequencyDaily     ReportFrequency = "daily"
	FrequencyWeekly    ReportFrequency = "weekly"
	FrequencyMonthly   ReportFrequency = "monthly"
	FrequencyQuarterly ReportFrequency = "quarterly"
	FrequencySemester  ReportFrequency = "semester"
	FrequencyAnnual    ReportFrequency = "annual"
	FrequencyCustom    ReportFrequency = "custom"
)

// ScheduledReport is a persisted definition of a recurring report.
type ScheduledReport struct {
	ID          int64            `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Description *string          `db:"description" json:"description,omitempty"`
	ReportType  ReportType       `db:"report_type" json:"reportType"`
	Parameters  ReportParameters `db:"parameters" json:"parameters"`
	Frequency   ReportFrequency  `db:"frequency" json:"frequency"`
	Format      ReportFormat     `db:"format" json:"format"`
	Recipients  Recipients       `db:"recipients" json:"recipients"`
	IsActive    bool             `db:"is_active" json:"isActive"`
	NextRunDate *time.Time       `db:"next_run_date" json:"nextRunDate,omitempty"`
	LastRunDate *time.Time       `db:"last_run_date" json:"lastRunDate,omitempty"`
	CreatedBy   string           `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updatedAt"`
}

// ScheduledReportFilter narrows scheduled report listings.
type ScheduledReportFilter struct {
	CreatedBy  *string
	ReportType *ReportType
	Frequency  *ReportFrequency
	IsActive   *bool
	Page       int
	PageSize   int
}

// ReportParameters is an opaque key/value map passed through to report generation, stored as JSONB.
type ReportParameters map[string]interface{}

// String returns the parameter as a string when present.
func (p ReportParameters) String(key string) string {
	if p == nil {
		return ""
	}
	raw, ok := p[key]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

// Value marshals parameters to JSON for persistence.
func (p ReportParameters) Value() (driver.Value, error) {
	if p == nil {
		p = ReportParameters{}
	}
	data, err := json.Marshal(map[string]interface{}(p))
	if err != nil {
		return nil, fmt.Errorf("marshal report parameters: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the parameters map.
func (p *ReportParameters) Scan(value interface{}) error {
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan report parameters: %w", err)
	}
	if len(data) == 0 {
		*p = ReportParameters{}
		return nil
	}
	decoded := map[string]interface{}{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("unmarshal report parameters: %w", err)
	}
	*p = decoded
	return nil
}

// Recipients is the ordered list of e-mail addresses, stored as JSONB.
type Recipients []string

// Value marshals recipients to JSON for persistence.
func (r Recipients) Value() (driver.Value, error) {
	if r == nil {
		r = Recipients{}
	}
	data, err := json.Marshal([]string(r))
	if err != nil {
		return nil, fmt.Errorf("marshal recipients: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the recipients list.
func (r *Recipients) Scan(value interface{}) error {
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan recipients: %w", err)
	}
	if len(data) == 0 {
		*r = Recipients{}
		return nil
	}
	var decoded []string
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("unmarshal recipients: %w", err)
	}
	*r = decoded
	return nil
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}
