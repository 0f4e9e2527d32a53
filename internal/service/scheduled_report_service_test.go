package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-report-scheduler/internal/dto"
	"github.com/noah-isme/sma-report-scheduler/internal/models"
	"github.com/noah-isme/sma-report-scheduler/internal/repository"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/export"
	"github.com/noah-isme/sma-report-scheduler/pkg/jobs"
	"github.com/noah-isme/sma-report-scheduler/pkg/scheduler"
)

type scheduledRepoStub struct {
	mu       sync.Mutex
	reports  map[int64]*models.ScheduledReport
	nextID   int64
	runDates map[int64][2]time.Time
}

func newScheduledRepoStub() *scheduledRepoStub {
	return &scheduledRepoStub{reports: map[int64]*models.ScheduledReport{}, runDates: map[int64][2]time.Time{}}
}

func (s *scheduledRepoStub) visible(id int64, owner *string) (*models.ScheduledReport, bool) {
	report, ok := s.reports[id]
	if !ok || (owner != nil && report.CreatedBy != *owner) {
		return nil, false
	}
	return report, true
}

func (s *scheduledRepoStub) Create(ctx context.Context, report *models.ScheduledReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	report.ID = s.nextID
	clone := *report
	s.reports[report.ID] = &clone
	return nil
}

func (s *scheduledRepoStub) GetByID(ctx context.Context, id int64, owner *string) (*models.ScheduledReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.visible(id, owner)
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *report
	return &clone, nil
}

func (s *scheduledRepoStub) List(ctx context.Context, filter models.ScheduledReportFilter) ([]models.ScheduledReport, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduledReport
	for id := int64(1); id <= s.nextID; id++ {
		if report, ok := s.visible(id, filter.CreatedBy); ok {
			out = append(out, *report)
		}
	}
	return out, len(out), nil
}

func (s *scheduledRepoStub) ListActive(ctx context.Context) ([]models.ScheduledReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduledReport
	for id := int64(1); id <= s.nextID; id++ {
		if report, ok := s.reports[id]; ok && report.IsActive {
			out = append(out, *report)
		}
	}
	return out, nil
}

func (s *scheduledRepoStub) Update(ctx context.Context, id int64, owner *string, params repository.UpdateScheduledReportParams) (*models.ScheduledReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.visible(id, owner)
	if !ok {
		return nil, sql.ErrNoRows
	}
	if params.Name != nil {
		report.Name = *params.Name
	}
	if params.Frequency != nil {
		report.Frequency = *params.Frequency
	}
	if params.Format != nil {
		report.Format = *params.Format
	}
	if params.IsActive != nil {
		report.IsActive = *params.IsActive
	}
	if params.NextRunDate != nil {
		next := *params.NextRunDate
		report.NextRunDate = &next
	}
	clone := *report
	return &clone, nil
}

func (s *scheduledRepoStub) UpdateRunDates(ctx context.Context, id int64, lastRun, nextRun time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runDates[id] = [2]time.Time{lastRun, nextRun}
	return nil
}

func (s *scheduledRepoStub) Delete(ctx context.Context, id int64, owner *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visible(id, owner); !ok {
		return sql.ErrNoRows
	}
	delete(s.reports, id)
	return nil
}

type historyRepoStub struct {
	mu      sync.Mutex
	entries []models.ReportHistory
	err     error
}

func (h *historyRepoStub) Create(ctx context.Context, entry *models.ReportHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.entries = append(h.entries, *entry)
	return nil
}

func (h *historyRepoStub) ListByScheduledReport(ctx context.Context, scheduledReportID int64, limit int) ([]models.ReportHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.ReportHistory
	for _, entry := range h.entries {
		if entry.ScheduledReportID != nil && *entry.ScheduledReportID == scheduledReportID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type generatorStub struct {
	params models.ReportParameters
	err    error
}

func (g *generatorStub) Generate(ctx context.Context, reportType models.ReportType, params models.ReportParameters) (*export.Report, error) {
	g.params = params
	if g.err != nil {
		return nil, g.err
	}
	return &export.Report{
		Metadata: export.Metadata{Title: "Attendance Report", ReportType: string(reportType), TotalRecords: 1},
		Data:     []export.Row{{{Key: "className", Value: "X-A"}}},
	}, nil
}

type exporterStub struct {
	formats    []models.ReportFormat
	recipients []string
	exportErr  error
	emailErr   error
}

func (e *exporterStub) Export(ctx context.Context, report export.Report, format models.ReportFormat) (*ExportResult, error) {
	e.formats = append(e.formats, format)
	if e.exportErr != nil {
		return nil, e.exportErr
	}
	return &ExportResult{
		Success:     true,
		FileName:    ExportFileName(report.Metadata.ReportType, format, time.Now()),
		FileSize:    42,
		DownloadURL: "/api/v1/reports/download/x",
		Format:      format,
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func (e *exporterStub) EmailReport(ctx context.Context, result *ExportResult, recipients []string, report export.Report, message string) error {
	e.recipients = recipients
	return e.emailErr
}

type scheduledFixture struct {
	svc       *ScheduledReportService
	repo      *scheduledRepoStub
	history   *historyRepoStub
	generator *generatorStub
	exporter  *exporterStub
	registry  *scheduler.Registry
}

func newScheduledFixture(t *testing.T) *scheduledFixture {
	t.Helper()
	f := &scheduledFixture{
		repo:      newScheduledRepoStub(),
		history:   &historyRepoStub{},
		generator: &generatorStub{},
		exporter:  &exporterStub{},
		registry:  scheduler.NewRegistry(time.UTC, zap.NewNop()),
	}
	f.svc = NewScheduledReportService(f.repo, f.history, f.generator, f.exporter, f.registry, nil, nil, ScheduledReportConfig{Location: time.UTC, Workers: 1}, zap.NewNop())
	f.svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }
	return f
}

func weeklyCSVRequest() dto.CreateScheduledReportRequest {
	return dto.CreateScheduledReportRequest{
		Name:       "Weekly attendance",
		ReportType: models.ReportTypeAttendance,
		Frequency:  models.FrequencyWeekly,
		Format:     models.ReportFormatCSV,
		Recipients: []string{"a@x.com", "b@x.com"},
	}
}

func TestCalculateNextRunDate(t *testing.T) {
	from := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	cases := []struct {
		freq models.ReportFrequency
		from time.Time
		want time.Time
	}{
		{models.FrequencyDaily, from, time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC)},
		{models.FrequencyWeekly, from, time.Date(2024, 3, 18, 8, 0, 0, 0, time.UTC)},
		{models.FrequencyWeekly, time.Date(2024, 3, 18, 7, 0, 0, 0, time.UTC), time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)},
		{models.FrequencyMonthly, from, time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)},
		{models.FrequencyMonthly, time.Date(2024, 12, 20, 9, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)},
		{models.FrequencyQuarterly, from, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)},
		{models.FrequencySemester, from, time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)},
		{models.FrequencyAnnual, from, time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := CalculateNextRunDate(tc.freq, tc.from, time.UTC)
		assert.True(t, tc.want.Equal(got), "%s from %s: got %s", tc.freq, tc.from, got)
		assert.Equal(t, got, CalculateNextRunDate(tc.freq, tc.from, time.UTC))
	}
}

func TestCalculateNextRunDateUsesLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	from := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)
	got := CalculateNextRunDate(models.FrequencyDaily, from, wib)
	assert.True(t, time.Date(2024, 3, 17, 8, 0, 0, 0, wib).Equal(got))
}

func TestCronExpression(t *testing.T) {
	expected := map[models.ReportFrequency]string{
		models.FrequencyDaily:     "0 8 * * *",
		models.FrequencyWeekly:    "0 8 * * 1",
		models.FrequencyMonthly:   "0 8 1 * *",
		models.FrequencyQuarterly: "0 8 1 */3 *",
		models.FrequencySemester:  "0 8 1 1,7 *",
		models.FrequencyAnnual:    "0 8 1 1 *",
	}
	for freq, want := range expected {
		got, err := CronExpression(freq)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := CronExpression(models.FrequencyCustom)
	assert.ErrorIs(t, err, ErrNoTrigger)
}

func TestScheduledReportCreateRegistersTrigger(t *testing.T) {
	f := newScheduledFixture(t)

	resp, err := f.svc.Create(context.Background(), weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
	assert.Equal(t, "teacher-1", resp.CreatedBy)
	require.NotNil(t, resp.NextRunDate)
	assert.True(t, time.Date(2024, 3, 18, 8, 0, 0, 0, time.UTC).Equal(*resp.NextRunDate))

	_, ok := f.registry.Lookup(resp.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, f.registry.Len())
}

func TestScheduledReportCreateValidation(t *testing.T) {
	f := newScheduledFixture(t)

	req := weeklyCSVRequest()
	req.Recipients = []string{"not-an-email"}
	_, err := f.svc.Create(context.Background(), req, "teacher-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	req = weeklyCSVRequest()
	req.ReportType = models.ReportTypeCustom
	_, err = f.svc.Create(context.Background(), req, "teacher-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Equal(t, 0, f.registry.Len())
}

func TestScheduledReportCustomFrequencyHasNoTrigger(t *testing.T) {
	f := newScheduledFixture(t)

	req := weeklyCSVRequest()
	req.Frequency = models.FrequencyCustom
	resp, err := f.svc.Create(context.Background(), req, "teacher-1")
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
	assert.Equal(t, 0, f.registry.Len())
}

func TestScheduledReportOwnershipIsolation(t *testing.T) {
	f := newScheduledFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, created.ID, "teacher-2", models.RoleTeacher)
	assert.ErrorIs(t, err, appErrors.ErrNotFoundOrForbidden)

	name := "hijack"
	_, err = f.svc.Update(ctx, created.ID, dto.UpdateScheduledReportRequest{Name: &name}, "teacher-2", models.RoleTeacher)
	assert.ErrorIs(t, err, appErrors.ErrNotFoundOrForbidden)

	err = f.svc.Delete(ctx, created.ID, "teacher-2", models.RoleTeacher)
	assert.ErrorIs(t, err, appErrors.ErrNotFoundOrForbidden)

	_, err = f.svc.Execute(ctx, created.ID, "teacher-2", models.RoleTeacher)
	assert.ErrorIs(t, err, appErrors.ErrNotFoundOrForbidden)

	items, page, err := f.svc.List(ctx, dto.ScheduledReportFilter{}, "teacher-2", models.RoleTeacher)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, page.TotalCount)

	items, _, err = f.svc.List(ctx, dto.ScheduledReportFilter{}, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	got, err := f.svc.Get(ctx, created.ID, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Weekly attendance", got.Name)
}

func TestScheduledReportUpdateWithoutFields(t *testing.T) {
	f := newScheduledFixture(t)
	created, err := f.svc.Create(context.Background(), weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), created.ID, dto.UpdateScheduledReportRequest{}, "teacher-1", models.RoleTeacher)
	assert.ErrorIs(t, err, appErrors.ErrNoFieldsToUpdate)
}

func TestScheduledReportUpdateReconcilesTrigger(t *testing.T) {
	f := newScheduledFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)

	monthly := models.FrequencyMonthly
	updated, err := f.svc.Update(ctx, created.ID, dto.UpdateScheduledReportRequest{Frequency: &monthly}, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NotNil(t, updated.NextRunDate)
	assert.True(t, time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC).Equal(*updated.NextRunDate))
	assert.Equal(t, 1, f.registry.Len())

	inactive := false
	_, err = f.svc.Update(ctx, created.ID, dto.UpdateScheduledReportRequest{IsActive: &inactive}, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, 0, f.registry.Len())

	active := true
	_, err = f.svc.Update(ctx, created.ID, dto.UpdateScheduledReportRequest{IsActive: &active}, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, 1, f.registry.Len())

	require.NoError(t, f.svc.Delete(ctx, created.ID, "teacher-1", models.RoleTeacher))
	assert.Equal(t, 0, f.registry.Len())
}

func TestScheduledReportExecuteWeeklyCSV(t *testing.T) {
	f := newScheduledFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)

	result, err := f.svc.Execute(ctx, created.ID, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatCSV, result.Format)
	assert.Contains(t, result.FileName, ".csv")

	assert.Equal(t, "2024-03-08", f.generator.params.String("startDate"))
	assert.Equal(t, "2024-03-14", f.generator.params.String("endDate"))
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, f.exporter.recipients)

	history, err := f.svc.History(ctx, created.ID, "teacher-1", models.RoleTeacher, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ReportStatusCompleted, history[0].Status)
	assert.Equal(t, "teacher-1", history[0].GeneratedBy)
	require.NotNil(t, history[0].FileName)
	assert.Equal(t, result.FileName, *history[0].FileName)

	dates, ok := f.repo.runDates[created.ID]
	require.True(t, ok)
	assert.True(t, time.Date(2024, 3, 18, 8, 0, 0, 0, time.UTC).Equal(dates[1]))
}

func TestScheduledReportExecuteKeepsExplicitDates(t *testing.T) {
	f := newScheduledFixture(t)
	req := weeklyCSVRequest()
	req.Parameters = models.ReportParameters{"startDate": "2024-01-01", "endDate": "2024-01-31"}
	created, err := f.svc.Create(context.Background(), req, "teacher-1")
	require.NoError(t, err)

	_, err = f.svc.Execute(context.Background(), created.ID, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", f.generator.params.String("startDate"))
	assert.Equal(t, "2024-01-31", f.generator.params.String("endDate"))
}

func TestScheduledReportPipelineFailureRecordsStage(t *testing.T) {
	f := newScheduledFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)

	f.exporter.emailErr = errors.New("smtp down")
	_, err = f.svc.Execute(ctx, created.ID, "teacher-1", models.RoleTeacher)
	require.Error(t, err)

	require.Len(t, f.history.entries, 1)
	entry := f.history.entries[0]
	assert.Equal(t, models.ReportStatusFailed, entry.Status)
	require.NotNil(t, entry.FailureStage)
	assert.Equal(t, models.FailureStageEmail, *entry.FailureStage)
	require.NotNil(t, entry.Error)
	assert.Contains(t, *entry.Error, "smtp down")
	assert.NotNil(t, entry.FileName)

	_, touched := f.repo.runDates[created.ID]
	assert.False(t, touched)

	f.exporter.emailErr = nil
	f.generator.err = errors.New("query failed")
	_, err = f.svc.Execute(ctx, created.ID, "teacher-1", models.RoleTeacher)
	require.Error(t, err)
	require.Len(t, f.history.entries, 2)
	assert.Equal(t, models.FailureStageGenerate, *f.history.entries[1].FailureStage)
	assert.Nil(t, f.history.entries[1].FileName)
}

func TestScheduledReportHistoryWriteFailureDoesNotFailRun(t *testing.T) {
	f := newScheduledFixture(t)
	metrics := NewMetricsService()
	f.svc.metrics = metrics
	f.svc.recorder = NewHistoryRecorder(f.history, metrics, zap.NewNop())
	created, err := f.svc.Create(context.Background(), weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)

	f.history.err = errors.New("history table locked")
	result, err := f.svc.Execute(context.Background(), created.ID, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.NotEmpty(t, result.FileName)
	_, touched := f.repo.runDates[created.ID]
	assert.True(t, touched)
}

func TestScheduledReportScheduledRunUnschedulesDeleted(t *testing.T) {
	f := newScheduledFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)
	require.Equal(t, 1, f.registry.Len())

	f.repo.mu.Lock()
	delete(f.repo.reports, created.ID)
	f.repo.mu.Unlock()

	f.svc.runScheduled(ctx, created.ID)
	assert.Equal(t, 0, f.registry.Len())
	assert.Empty(t, f.history.entries)
}

func TestScheduledReportScheduledRunRecordsSystemHistory(t *testing.T) {
	f := newScheduledFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.handleJob(ctx, jobFor(created.ID)))
	require.Len(t, f.history.entries, 1)
	assert.Equal(t, models.GeneratedBySystem, f.history.entries[0].GeneratedBy)
	assert.Equal(t, models.ReportStatusCompleted, f.history.entries[0].Status)
}

func TestScheduledReportStartRegistersActive(t *testing.T) {
	f := newScheduledFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)
	inactive := false
	req := weeklyCSVRequest()
	req.IsActive = &inactive
	_, err = f.svc.Create(ctx, req, "teacher-1")
	require.NoError(t, err)

	fresh := NewScheduledReportService(f.repo, f.history, f.generator, f.exporter, scheduler.NewRegistry(time.UTC, nil), nil, nil, ScheduledReportConfig{}, nil)
	require.NoError(t, fresh.Start(ctx))
	defer fresh.Stop()
	assert.Equal(t, 1, fresh.registry.Len())
}

func jobFor(id int64) jobs.Job {
	return jobs.Job{ID: strconv.FormatInt(id, 10), Type: scheduledReportJobType, Payload: id}
}

func TestScheduledReportFailedTickKeepsTrigger(t *testing.T) {
	f := newScheduledFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)

	f.generator.err = errors.New("generation exploded")
	f.svc.runScheduled(ctx, created.ID)
	require.Len(t, f.history.entries, 1)
	assert.Equal(t, models.ReportStatusFailed, f.history.entries[0].Status)
	require.NotNil(t, f.history.entries[0].Error)
	_, ok := f.registry.Lookup(created.ID)
	assert.True(t, ok)

	f.generator.err = nil
	_, err = f.svc.Execute(ctx, created.ID, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusCompleted, f.history.entries[1].Status)
}

func TestScheduledReportRegistrationLogsNextFire(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newScheduledFixture(t)
	f.svc.logger = zap.New(core)

	_, err := f.svc.Create(context.Background(), weeklyCSVRequest(), "teacher-1")
	require.NoError(t, err)

	entries := logs.FilterMessage("scheduled report trigger registered").All()
	require.Len(t, entries, 1)
	next, ok := entries[0].ContextMap()["next_fire"].(time.Time)
	require.True(t, ok)
	assert.True(t, next.Equal(time.Date(2024, 3, 18, 8, 0, 0, 0, time.UTC)), next.String())
}

func TestScheduledReportTickFailureLogLevel(t *testing.T) {
	cases := []struct {
		name     string
		setup    func(f *scheduledFixture)
		message  string
		severity zapcore.Level
	}{
		{
			name: "empty period",
			setup: func(f *scheduledFixture) {
				f.exporter.exportErr = appErrors.Wrap(export.ErrNoData, appErrors.ErrExportFailure.Code, appErrors.ErrExportFailure.Status, appErrors.ErrExportFailure.Message)
			},
			message:  "scheduled report period has no data",
			severity: zapcore.InfoLevel,
		},
		{
			name:     "delivery failure",
			setup:    func(f *scheduledFixture) { f.exporter.emailErr = appErrors.Clone(appErrors.ErrEmailDelivery, "") },
			message:  "scheduled report run failed",
			severity: zapcore.WarnLevel,
		},
		{
			name:     "internal failure",
			setup:    func(f *scheduledFixture) { f.generator.err = errors.New("connection reset") },
			message:  "scheduled report run failed",
			severity: zapcore.ErrorLevel,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newScheduledFixture(t)
			ctx := context.Background()
			created, err := f.svc.Create(ctx, weeklyCSVRequest(), "teacher-1")
			require.NoError(t, err)

			core, logs := observer.New(zapcore.InfoLevel)
			f.svc.logger = zap.New(core)
			tc.setup(f)
			f.svc.runScheduled(ctx, created.ID)

			entries := logs.FilterMessage(tc.message).All()
			require.Len(t, entries, 1)
			assert.Equal(t, tc.severity, entries[0].Level)
			require.Len(t, f.history.entries, 1)
			assert.Equal(t, models.ReportStatusFailed, f.history.entries[0].Status)
		})
	}
}
