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

func TestReportDataRepositoryFetchKeepsColumnOrder(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewReportDataRepository(db)

	filter := ReportDataFilter{
		StartDate: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC),
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM daily_attendance da")).
		WithArgs("2024-03-11", "2024-03-17", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"class_name", "total_records", "attendance_percentage"}).
			AddRow("X-A", int64(40), []byte("92.50")).
			AddRow("X-B", int64(38), []byte("n/a")))

	rows, err := repo.Fetch(context.Background(), models.ReportTypeAttendance, filter)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, []string{"class_name", "total_records", "attendance_percentage"}, rows[0].Keys())

	value, ok := rows[0].Get("attendance_percentage")
	require.True(t, ok)
	require.Equal(t, 92.5, value)
	value, _ = rows[1].Get("attendance_percentage")
	require.Equal(t, "n/a", value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportDataRepositoryRejectsCustomType(t *testing.T) {
	repo := NewReportDataRepository(nil)
	require.False(t, repo.Supports(models.ReportTypeCustom))
	require.True(t, repo.Supports(models.ReportTypeFeeCollection))

	_, err := repo.Fetch(context.Background(), models.ReportTypeCustom, ReportDataFilter{})
	require.Error(t, err)
}
