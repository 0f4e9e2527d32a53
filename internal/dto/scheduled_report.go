package dto

import (
	"time"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
)

// CreateScheduledReportRequest captures POST /scheduled-reports payload.
type CreateScheduledReportRequest struct {
	Name        string                  `json:"name" validate:"required,max=200"`
	Description *string                 `json:"description" validate:"omitempty,max=1000"`
	ReportType  models.ReportType       `json:"reportType" validate:"required,oneof=attendance academic financial enrollment teacher_workload class_performance fee_collection student_progress custom"`
	Parameters  models.ReportParameters `json:"parameters"`
	Frequency   models.ReportFrequency  `json:"frequency" validate:"required,oneof=daily weekly monthly quarterly semester annual custom"`
	Format      models.ReportFormat     `json:"format" validate:"required,oneof=json csv pdf excel"`
	Recipients  []string                `json:"recipients" validate:"required,min=1,dive,required,email"`
	IsActive    *bool                   `json:"isActive"`
}

// UpdateScheduledReportRequest captures PUT /scheduled-reports/:id payload. Absent fields are left unchanged.
type UpdateScheduledReportRequest struct {
	Name        *string                  `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string                  `json:"description" validate:"omitempty,max=1000"`
	ReportType  *models.ReportType       `json:"reportType" validate:"omitempty,oneof=attendance academic financial enrollment teacher_workload class_performance fee_collection student_progress custom"`
	Parameters  *models.ReportParameters `json:"parameters"`
	Frequency   *models.ReportFrequency  `json:"frequency" validate:"omitempty,oneof=daily weekly monthly quarterly semester annual custom"`
	Format      *models.ReportFormat     `json:"format" validate:"omitempty,oneof=json csv pdf excel"`
	Recipients  *[]string                `json:"recipients" validate:"omitempty,min=1,dive,required,email"`
	IsActive    *bool                    `json:"isActive"`
}

// ScheduledReportFilter captures list query parameters.
type ScheduledReportFilter struct {
	ReportType *models.ReportType      `form:"reportType"`
	Frequency  *models.ReportFrequency `form:"frequency"`
	IsActive   *bool                   `form:"isActive"`
	Page       int                     `form:"page"`
	PageSize   int                     `form:"pageSize"`
}

// ScheduledReportResponse is the API representation of a definition.
type ScheduledReportResponse struct {
	ID          int64                   `json:"id"`
	Name        string                  `json:"name"`
	Description *string                 `json:"description,omitempty"`
	ReportType  models.ReportType       `json:"reportType"`
	Parameters  models.ReportParameters `json:"parameters"`
	Frequency   models.ReportFrequency  `json:"frequency"`
	Format      models.ReportFormat     `json:"format"`
	Recipients  []string                `json:"recipients"`
	IsActive    bool                    `json:"isActive"`
	NextRunDate *time.Time              `json:"nextRunDate,omitempty"`
	LastRunDate *time.Time              `json:"lastRunDate,omitempty"`
	CreatedBy   string                  `json:"createdBy"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// NewScheduledReportResponse maps a stored definition to its API shape.
func NewScheduledReportResponse(report models.ScheduledReport) ScheduledReportResponse {
	recipients := []string(report.Recipients)
	if recipients == nil {
		recipients = []string{}
	}
	params := report.Parameters
	if params == nil {
		params = models.ReportParameters{}
	}
	return ScheduledReportResponse{
		ID:          report.ID,
		Name:        report.Name,
		Description: report.Description,
		ReportType:  report.ReportType,
		Parameters:  params,
		Frequency:   report.Frequency,
		Format:      report.Format,
		Recipients:  recipients,
		IsActive:    report.IsActive,
		NextRunDate: report.NextRunDate,
		LastRunDate: report.LastRunDate,
		CreatedBy:   report.CreatedBy,
		CreatedAt:   report.CreatedAt,
		UpdatedAt:   report.UpdatedAt,
	}
}
