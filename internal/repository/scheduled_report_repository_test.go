package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var scheduledReportRowColumns = []string{"id", "name", "description", "report_type", "parameters", "frequency", "format", "recipients", "is_active", "next_run_date", "last_run_date", "created_by", "created_at", "updated_at"}

func scheduledReportRow(rows *sqlmock.Rows, id int64, owner string) *sqlmock.Rows {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	next := time.Date(2024, 3, 18, 8, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "Weekly attendance", nil, "attendance", []byte(`{"classId":"c-1"}`), "weekly", "csv", []byte(`["a@x.com"]`), true, next, nil, owner, now, now)
}

func TestScheduledReportRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduledReportRepository(db)

	next := time.Date(2024, 3, 18, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scheduled_reports (name, description, report_type, parameters, frequency, format, recipients, is_active, next_run_date, created_by, created_at, updated_at)")).
		WithArgs("Weekly attendance", nil, "attendance", sqlmock.AnyArg(), "weekly", "csv", sqlmock.AnyArg(), true, next, "user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	report := &models.ScheduledReport{
		Name:        "Weekly attendance",
		ReportType:  models.ReportTypeAttendance,
		Parameters:  models.ReportParameters{"classId": "c-1"},
		Frequency:   models.FrequencyWeekly,
		Format:      models.ReportFormatCSV,
		Recipients:  models.Recipients{"a@x.com"},
		IsActive:    true,
		NextRunDate: &next,
		CreatedBy:   "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), report))
	require.Equal(t, int64(42), report.ID)
	require.False(t, report.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledReportRepositoryGetByIDScopesOwner(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduledReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_reports WHERE id = $1 AND created_by = $2")).
		WithArgs(int64(7), "user-1").
		WillReturnRows(scheduledReportRow(sqlmock.NewRows(scheduledReportRowColumns), 7, "user-1"))

	owner := "user-1"
	report, err := repo.GetByID(context.Background(), 7, &owner)
	require.NoError(t, err)
	require.Equal(t, int64(7), report.ID)
	require.Equal(t, "c-1", report.Parameters.String("classId"))
	require.Equal(t, models.Recipients{"a@x.com"}, report.Recipients)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_reports WHERE id = $1 AND created_by = $2")).
		WithArgs(int64(8), "user-1").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), 8, &owner)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledReportRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduledReportRepository(db)

	owner := "user-1"
	active := true
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM scheduled_reports WHERE created_by = $1 AND is_active = $2")).
		WithArgs(owner, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_reports WHERE created_by = $1 AND is_active = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4")).
		WithArgs(owner, true, 2, 2).
		WillReturnRows(scheduledReportRow(sqlmock.NewRows(scheduledReportRowColumns), 1, owner))

	reports, total, err := repo.List(context.Background(), models.ScheduledReportFilter{CreatedBy: &owner, IsActive: &active, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, reports, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledReportRepositoryUpdateBuildsSetClause(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduledReportRepository(db)

	name := "Renamed"
	active := false
	owner := "user-1"
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE scheduled_reports SET name = $1, is_active = $2, updated_at = $3 WHERE id = $4 AND created_by = $5 RETURNING id")).
		WithArgs(name, false, sqlmock.AnyArg(), int64(7), owner).
		WillReturnRows(scheduledReportRow(sqlmock.NewRows(scheduledReportRowColumns), 7, owner))

	report, err := repo.Update(context.Background(), 7, &owner, UpdateScheduledReportParams{Name: &name, IsActive: &active})
	require.NoError(t, err)
	require.Equal(t, int64(7), report.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledReportRepositoryDeleteReportsMissingRows(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduledReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scheduled_reports WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 9, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledReportRepositoryUpdateRunDates(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduledReportRepository(db)

	last := time.Date(2024, 3, 18, 8, 0, 0, 0, time.UTC)
	next := time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_reports SET last_run_date = $1, next_run_date = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(last, next, sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateRunDates(context.Background(), 3, last, next))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScheduledReportParamsEmpty(t *testing.T) {
	require.True(t, UpdateScheduledReportParams{}.Empty())
	active := true
	require.False(t, UpdateScheduledReportParams{IsActive: &active}.Empty())
}
