package dto

import "github.com/noah-isme/sma-report-scheduler/internal/models"

// ExportReportRequest captures POST /reports/export payload.
type ExportReportRequest struct {
	ReportType models.ReportType       `json:"reportType" validate:"required,oneof=attendance academic financial enrollment teacher_workload class_performance fee_collection student_progress custom"`
	Parameters models.ReportParameters `json:"parameters"`
	Format     models.ReportFormat     `json:"format" validate:"required,oneof=json csv pdf excel"`
}

// EmailReportRequest captures POST /reports/email payload.
type EmailReportRequest struct {
	ExportReportRequest
	Recipients []string `json:"recipients" validate:"required,min=1,dive,required,email"`
	Message    string   `json:"message" validate:"omitempty,max=2000"`
}
