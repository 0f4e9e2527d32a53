package models

import "time"

// ReportHistoryStatus captures the state of a single report execution.
type ReportHistoryStatus string

const (
	ReportStatusPending    ReportHistoryStatus = "pending"
	ReportStatusGenerating ReportHistoryStatus = "generating"
	ReportStatusCompleted  ReportHistoryStatus = "completed"
	ReportStatusFailed     ReportHistoryStatus = "failed"
)

// FailureStage identifies which pipeline step failed.
type FailureStage string

const (
	FailureStageGenerate FailureStage = "generate"
	FailureStageExport   FailureStage = "export"
	FailureStageEmail    FailureStage = "email"
)

// GeneratedBySystem marks history rows written by scheduled runs.
const GeneratedBySystem = "system"

// ReportHistory is one execution attempt, manual or scheduled.
type ReportHistory struct {
	ID                string              `db:"id" json:"id"`
	ScheduledReportID *int64              `db:"scheduled_report_id" json:"scheduledReportId,omitempty"`
	ReportType        ReportType          `db:"report_type" json:"reportType"`
	Title             string              `db:"title" json:"title"`
	Parameters        ReportParameters    `db:"parameters" json:"parameters"`
	Format            ReportFormat        `db:"format" json:"format"`
	Status            ReportHistoryStatus `db:"status" json:"status"`
	FileName          *string             `db:"file_name" json:"fileName,omitempty"`
	FileSize          *int64              `db:"file_size" json:"fileSize,omitempty"`
	DownloadURL       *string             `db:"download_url" json:"downloadUrl,omitempty"`
	GeneratedBy       string              `db:"generated_by" json:"generatedBy"`
	GeneratedAt       time.Time           `db:"generated_at" json:"generatedAt"`
	ExpiresAt         *time.Time          `db:"expires_at" json:"expiresAt,omitempty"`
	Error             *string             `db:"error" json:"error,omitempty"`
	FailureStage      *FailureStage       `db:"failure_stage" json:"failureStage,omitempty"`
}
