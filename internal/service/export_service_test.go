package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/export"
	"github.com/noah-isme/sma-report-scheduler/pkg/mailer"
	"github.com/noah-isme/sma-report-scheduler/pkg/storage"
)

type mailerStub struct {
	sent []mailer.Message
	err  error
}

func (m *mailerStub) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func sampleReport() export.Report {
	return export.Report{
		Metadata: export.Metadata{
			Title:        "Attendance Report",
			ReportType:   string(models.ReportTypeAttendance),
			GeneratedAt:  time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
			DateRange:    &export.DateRange{StartDate: "2024-03-08", EndDate: "2024-03-14"},
			TotalRecords: 2,
		},
		Summary: export.Summary{Aggregations: export.Row{{Key: "totalRecords", Value: 2}}},
		Data: []export.Row{
			{{Key: "className", Value: "X-A"}, {Key: "attendance_percentage", Value: 92.5}},
			{{Key: "className", Value: "X-B"}, {Key: "attendance_percentage", Value: 88.25}},
		},
	}
}

func newExportServiceForTest(t *testing.T, mail reportMailer) (*ReportExportService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewReportExportService(store, mail, ExportConfig{APIPrefix: "/api/v1", SystemName: "SMA ADP", ResultTTL: time.Hour}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }
	return svc, dir
}

func TestReportExportServiceExportCSV(t *testing.T) {
	svc, dir := newExportServiceForTest(t, nil)

	result, err := svc.Export(context.Background(), sampleReport(), models.ReportFormatCSV)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "attendance_report_2024-03-15T10-30-00-000Z.csv", result.FileName)
	assert.Equal(t, "/api/v1/reports/download/"+result.FileName, result.DownloadURL)
	assert.Equal(t, "text/csv", result.MimeType)
	assert.Equal(t, filepath.Join(dir, result.FileName), result.FilePath)
	assert.True(t, time.Date(2024, 3, 15, 11, 30, 0, 0, time.UTC).Equal(result.ExpiresAt))

	info, err := os.Stat(result.FilePath)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), result.FileSize)
}

func TestReportExportServiceExportFormats(t *testing.T) {
	svc, _ := newExportServiceForTest(t, nil)

	for format, ext := range map[models.ReportFormat]string{
		models.ReportFormatJSON:  ".json",
		models.ReportFormatPDF:   ".pdf",
		models.ReportFormatExcel: ".xlsx",
	} {
		result, err := svc.Export(context.Background(), sampleReport(), format)
		require.NoError(t, err, format)
		assert.Equal(t, ext, filepath.Ext(result.FileName))
		assert.Positive(t, result.FileSize)
	}
}

func TestReportExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t, nil)
	_, err := svc.Export(context.Background(), sampleReport(), models.ReportFormat("docx"))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestReportExportServiceEmptyReport(t *testing.T) {
	svc, _ := newExportServiceForTest(t, nil)
	report := sampleReport()
	report.Data = nil

	_, err := svc.Export(context.Background(), report, models.ReportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrExportFailure.Code))
	assert.ErrorIs(t, err, export.ErrNoData)
}

func TestReportExportServiceSameInstantKeepsBothArtifacts(t *testing.T) {
	svc, dir := newExportServiceForTest(t, nil)
	first := sampleReport()
	second := sampleReport()
	second.Data = second.Data[:1]

	a, err := svc.Export(context.Background(), first, models.ReportFormatCSV)
	require.NoError(t, err)
	b, err := svc.Export(context.Background(), second, models.ReportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "attendance_report_2024-03-15T10-30-00-000Z.csv", a.FileName)
	assert.Equal(t, "attendance_report_2024-03-15T10-30-00-000Z-1.csv", b.FileName)
	assert.Equal(t, "/api/v1/reports/download/"+b.FileName, b.DownloadURL)
	assert.Equal(t, filepath.Join(dir, b.FileName), b.FilePath)

	infoA, err := os.Stat(a.FilePath)
	require.NoError(t, err)
	assert.Equal(t, a.FileSize, infoA.Size())
	infoB, err := os.Stat(b.FilePath)
	require.NoError(t, err)
	assert.Equal(t, b.FileSize, infoB.Size())
	assert.NotEqual(t, a.FileSize, b.FileSize)
}

func TestReportExportServiceEmailReport(t *testing.T) {
	mail := &mailerStub{}
	svc, _ := newExportServiceForTest(t, mail)
	report := sampleReport()

	result, err := svc.Export(context.Background(), report, models.ReportFormatCSV)
	require.NoError(t, err)
	require.NoError(t, svc.EmailReport(context.Background(), result, []string{"a@x.com", "b@x.com"}, report, "Weekly summary"))

	require.Len(t, mail.sent, 1)
	msg := mail.sent[0]
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, msg.To)
	assert.Equal(t, "SMA ADP - Attendance Report", msg.Subject)
	assert.Contains(t, msg.HTML, "Weekly summary")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, result.FileName, msg.Attachments[0].Filename)
	assert.Equal(t, result.FilePath, msg.Attachments[0].Path)
}

func TestReportExportServiceEmailFailure(t *testing.T) {
	mail := &mailerStub{err: errors.New("535 auth failed")}
	svc, _ := newExportServiceForTest(t, mail)
	report := sampleReport()
	result, err := svc.Export(context.Background(), report, models.ReportFormatCSV)
	require.NoError(t, err)

	err = svc.EmailReport(context.Background(), result, []string{"a@x.com"}, report, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrEmailDelivery.Code))

	err = svc.EmailReport(context.Background(), result, nil, report, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestReportExportServiceOpen(t *testing.T) {
	svc, _ := newExportServiceForTest(t, nil)
	result, err := svc.Export(context.Background(), sampleReport(), models.ReportFormatCSV)
	require.NoError(t, err)

	file, mime, err := svc.Open(result.FileName)
	require.NoError(t, err)
	file.Close()
	assert.Equal(t, "text/csv", mime)

	_, _, err = svc.Open("../etc/passwd")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, _, err = svc.Open("missing_report.csv")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestReportExportServiceCleanup(t *testing.T) {
	svc, dir := newExportServiceForTest(t, nil)
	result, err := svc.Export(context.Background(), sampleReport(), models.ReportFormatCSV)
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, result.FileName), past, past))

	deleted, err := svc.Cleanup(0)
	require.NoError(t, err)
	assert.Equal(t, []string{result.FileName}, deleted)
}

func TestExportFileNameAndMimeType(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 6000000, time.UTC)
	assert.Equal(t, "financial_report_2024-01-02T03-04-05-006Z.xlsx", ExportFileName("financial", models.ReportFormatExcel, at))
	assert.Equal(t, "report_report_2024-01-02T03-04-05-006Z.csv", ExportFileName("", models.ReportFormatCSV, at))
	assert.Equal(t, "application/pdf", MimeType("x.PDF"))
	assert.Equal(t, "application/octet-stream", MimeType("x.bin"))
}
