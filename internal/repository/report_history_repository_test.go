package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
)

func TestReportHistoryRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewReportHistoryRepository(db)

	scheduledID := int64(5)
	stage := models.FailureStageEmail
	message := "smtp: connection refused"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_history (id, scheduled_report_id, report_type")).
		WithArgs(sqlmock.AnyArg(), scheduledID, "attendance", "Weekly attendance", sqlmock.AnyArg(), "csv", "failed", nil, nil, nil, models.GeneratedBySystem, sqlmock.AnyArg(), nil, message, "email").
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.ReportHistory{
		ScheduledReportID: &scheduledID,
		ReportType:        models.ReportTypeAttendance,
		Title:             "Weekly attendance",
		Format:            models.ReportFormatCSV,
		Status:            models.ReportStatusFailed,
		GeneratedBy:       models.GeneratedBySystem,
		Error:             &message,
		FailureStage:      &stage,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.NotNil(t, entry.Parameters)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportHistoryRepositoryListByScheduledReport(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewReportHistoryRepository(db)

	columns := []string{"id", "scheduled_report_id", "report_type", "title", "parameters", "format", "status", "file_name", "file_size", "download_url", "generated_by", "generated_at", "expires_at", "error", "failure_stage"}
	rows := sqlmock.NewRows(columns).
		AddRow("h-1", int64(5), "attendance", "Weekly attendance", []byte(`{}`), "csv", "completed", "attendance_report_x.csv", int64(120), "/api/v1/reports/download/attendance_report_x.csv", "system", time.Now(), nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_history WHERE scheduled_report_id = $1 ORDER BY generated_at DESC LIMIT $2")).
		WithArgs(int64(5), 20).
		WillReturnRows(rows)

	entries, err := repo.ListByScheduledReport(context.Background(), 5, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.ReportStatusCompleted, entries[0].Status)
	require.Nil(t, entries[0].FailureStage)
	require.NoError(t, mock.ExpectationsWereMet())
}
