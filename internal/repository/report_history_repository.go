package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
)

const reportHistoryColumns = `id, scheduled_report_id, report_type, title, parameters, format, status, file_name, file_size, download_url, generated_by, generated_at, expires_at, error, failure_stage`

// ReportHistoryRepository stores one row per report execution attempt.
type ReportHistoryRepository struct {
	db *sqlx.DB
}

// NewReportHistoryRepository constructs the repository.
func NewReportHistoryRepository(db *sqlx.DB) *ReportHistoryRepository {
	return &ReportHistoryRepository{db: db}
}

// Create inserts a history row with generated defaults.
func (r *ReportHistoryRepository) Create(ctx context.Context, entry *models.ReportHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.GeneratedAt.IsZero() {
		entry.GeneratedAt = time.Now().UTC()
	}
	if entry.Parameters == nil {
		entry.Parameters = models.ReportParameters{}
	}
	const query = `INSERT INTO report_history (` + reportHistoryColumns + `)
VALUES (:id, :scheduled_report_id, :report_type, :title, :parameters, :format, :status, :file_name, :file_size, :download_url, :generated_by, :generated_at, :expires_at, :error, :failure_stage)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create report history: %w", err)
	}
	return nil
}

// ListByScheduledReport returns the most recent executions of a definition.
func (r *ReportHistoryRepository) ListByScheduledReport(ctx context.Context, scheduledReportID int64, limit int) ([]models.ReportHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT ` + reportHistoryColumns + `
FROM report_history WHERE scheduled_report_id = $1 ORDER BY generated_at DESC LIMIT $2`
	var entries []models.ReportHistory
	if err := r.db.SelectContext(ctx, &entries, query, scheduledReportID, limit); err != nil {
		return nil, fmt.Errorf("list report history: %w", err)
	}
	return entries, nil
}

// FindByFileName returns the history row describing a stored artifact.
func (r *ReportHistoryRepository) FindByFileName(ctx context.Context, fileName string) (*models.ReportHistory, error) {
	const query = `SELECT ` + reportHistoryColumns + `
FROM report_history WHERE file_name = $1 ORDER BY generated_at DESC LIMIT 1`
	var entry models.ReportHistory
	if err := r.db.GetContext(ctx, &entry, query, fileName); err != nil {
		return nil, fmt.Errorf("find report history by file: %w", err)
	}
	return &entry, nil
}
