package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-scheduler/internal/dto"
	"github.com/noah-isme/sma-report-scheduler/internal/models"
	"github.com/noah-isme/sma-report-scheduler/internal/repository"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/export"
	"github.com/noah-isme/sma-report-scheduler/pkg/jobs"
	"github.com/noah-isme/sma-report-scheduler/pkg/scheduler"
)

const scheduledReportJobType = "scheduled_report"

// ErrNoTrigger is returned for frequencies that never fire on their own.
var ErrNoTrigger = errors.New("frequency has no recurring trigger")

type scheduledReportRepository interface {
	Create(ctx context.Context, report *models.ScheduledReport) error
	GetByID(ctx context.Context, id int64, owner *string) (*models.ScheduledReport, error)
	List(ctx context.Context, filter models.ScheduledReportFilter) ([]models.ScheduledReport, int, error)
	ListActive(ctx context.Context) ([]models.ScheduledReport, error)
	Update(ctx context.Context, id int64, owner *string, params repository.UpdateScheduledReportParams) (*models.ScheduledReport, error)
	UpdateRunDates(ctx context.Context, id int64, lastRun, nextRun time.Time) error
	Delete(ctx context.Context, id int64, owner *string) error
}

type reportHistoryRepository interface {
	Create(ctx context.Context, entry *models.ReportHistory) error
	ListByScheduledReport(ctx context.Context, scheduledReportID int64, limit int) ([]models.ReportHistory, error)
}

type reportGenerator interface {
	Generate(ctx context.Context, reportType models.ReportType, params models.ReportParameters) (*export.Report, error)
}

type reportExporter interface {
	Export(ctx context.Context, report export.Report, format models.ReportFormat) (*ExportResult, error)
	EmailReport(ctx context.Context, result *ExportResult, recipients []string, report export.Report, message string) error
}

type triggerRegistry interface {
	Register(key int64, spec string, fn func()) (scheduler.Handle, error)
	Deregister(h scheduler.Handle) bool
	Lookup(key int64) (scheduler.Handle, bool)
	Next(h scheduler.Handle, from time.Time) time.Time
	Len() int
	Start()
	Stop() context.Context
}

// ScheduledReportConfig tunes the scheduler.
type ScheduledReportConfig struct {
	Location *time.Location
	Workers  int
}

// ScheduledReportService manages scheduled report definitions and runs them on their triggers.
type ScheduledReportService struct {
	repo      scheduledReportRepository
	history   reportHistoryRepository
	recorder  *HistoryRecorder
	generator reportGenerator
	exporter  reportExporter
	registry  triggerRegistry
	queue     *jobs.Queue
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewScheduledReportService constructs the service. Ticks are executed on an internal worker queue.
func NewScheduledReportService(
	repo scheduledReportRepository,
	history reportHistoryRepository,
	generator reportGenerator,
	exporter reportExporter,
	registry triggerRegistry,
	validate *validator.Validate,
	metrics *MetricsService,
	cfg ScheduledReportConfig,
	logger *zap.Logger,
) *ScheduledReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	svc := &ScheduledReportService{
		repo:      repo,
		history:   history,
		recorder:  NewHistoryRecorder(history, metrics, logger),
		generator: generator,
		exporter:  exporter,
		registry:  registry,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		loc:       cfg.Location,
		now:       time.Now,
		locks:     make(map[int64]*sync.Mutex),
	}
	svc.queue = jobs.NewQueue("scheduled-reports", svc.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: 64,
		Logger:     logger,
	})
	return svc
}

// Start registers a trigger for every active definition and begins firing them.
// Definitions whose frequency cannot be scheduled are logged and skipped.
func (s *ScheduledReportService) Start(ctx context.Context) error {
	s.queue.Start(ctx)

	reports, err := s.repo.ListActive(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled reports")
	}
	for _, report := range reports {
		if err := s.schedule(report); err != nil {
			s.logger.Warn("scheduled report not registered", zap.Int64("scheduled_report_id", report.ID), zap.String("frequency", string(report.Frequency)), zap.Error(err))
		}
	}
	s.registry.Start()
	s.metrics.SetActiveTriggers(s.registry.Len())
	s.logger.Info("scheduled report triggers started", zap.Int("count", s.registry.Len()))
	return nil
}

// Stop halts the triggers and waits for queued runs to drain.
func (s *ScheduledReportService) Stop() {
	<-s.registry.Stop().Done()
	s.queue.Stop()
}

// Create validates and stores a definition, registering its trigger when active.
func (s *ScheduledReportService) Create(ctx context.Context, req dto.CreateScheduledReportRequest, actorID string) (*dto.ScheduledReportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := validateCustomSource(req.ReportType, req.Parameters); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	params := req.Parameters
	if params == nil {
		params = models.ReportParameters{}
	}
	next := CalculateNextRunDate(req.Frequency, s.now(), s.loc)
	report := models.ScheduledReport{
		Name:        req.Name,
		Description: req.Description,
		ReportType:  req.ReportType,
		Parameters:  params,
		Frequency:   req.Frequency,
		Format:      req.Format,
		Recipients:  models.Recipients(req.Recipients),
		IsActive:    active,
		NextRunDate: &next,
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, &report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create scheduled report")
	}

	s.reconcileTrigger(report)
	resp := dto.NewScheduledReportResponse(report)
	return &resp, nil
}

// List returns definitions visible to the actor. Non-admins only see their own.
func (s *ScheduledReportService) List(ctx context.Context, filter dto.ScheduledReportFilter, actorID string, role models.UserRole) ([]dto.ScheduledReportResponse, *models.Pagination, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	reports, total, err := s.repo.List(ctx, models.ScheduledReportFilter{
		CreatedBy:  ownerScope(actorID, role),
		ReportType: filter.ReportType,
		Frequency:  filter.Frequency,
		IsActive:   filter.IsActive,
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scheduled reports")
	}
	items := make([]dto.ScheduledReportResponse, 0, len(reports))
	for _, report := range reports {
		items = append(items, dto.NewScheduledReportResponse(report))
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one definition when visible to the actor.
func (s *ScheduledReportService) Get(ctx context.Context, id int64, actorID string, role models.UserRole) (*dto.ScheduledReportResponse, error) {
	report, err := s.load(ctx, id, actorID, role)
	if err != nil {
		return nil, err
	}
	resp := dto.NewScheduledReportResponse(*report)
	return &resp, nil
}

// Update applies a partial update and keeps the trigger registry in step with the stored row.
func (s *ScheduledReportService) Update(ctx context.Context, id int64, req dto.UpdateScheduledReportRequest, actorID string, role models.UserRole) (*dto.ScheduledReportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	params := repository.UpdateScheduledReportParams{
		Name:        req.Name,
		Description: req.Description,
		ReportType:  req.ReportType,
		Parameters:  req.Parameters,
		Frequency:   req.Frequency,
		Format:      req.Format,
		IsActive:    req.IsActive,
	}
	if req.Recipients != nil {
		recipients := models.Recipients(*req.Recipients)
		params.Recipients = &recipients
	}
	if params.Empty() {
		return nil, appErrors.ErrNoFieldsToUpdate
	}

	current, err := s.load(ctx, id, actorID, role)
	if err != nil {
		return nil, err
	}
	reportType, reportParams := current.ReportType, current.Parameters
	if req.ReportType != nil {
		reportType = *req.ReportType
	}
	if req.Parameters != nil {
		reportParams = *req.Parameters
	}
	if err := validateCustomSource(reportType, reportParams); err != nil {
		return nil, err
	}
	if req.Frequency != nil && *req.Frequency != current.Frequency {
		next := CalculateNextRunDate(*req.Frequency, s.now(), s.loc)
		params.NextRunDate = &next
	}

	updated, err := s.repo.Update(ctx, id, ownerScope(actorID, role), params)
	if err != nil {
		return nil, s.notFoundOr(err, "failed to update scheduled report")
	}

	s.reconcileTrigger(*updated)
	resp := dto.NewScheduledReportResponse(*updated)
	return &resp, nil
}

// Delete removes a definition and its trigger.
func (s *ScheduledReportService) Delete(ctx context.Context, id int64, actorID string, role models.UserRole) error {
	if err := s.repo.Delete(ctx, id, ownerScope(actorID, role)); err != nil {
		return s.notFoundOr(err, "failed to delete scheduled report")
	}
	s.unschedule(id)
	return nil
}

// Execute runs a definition immediately through the same pipeline as scheduled ticks.
func (s *ScheduledReportService) Execute(ctx context.Context, id int64, actorID string, role models.UserRole) (*ExportResult, error) {
	report, err := s.load(ctx, id, actorID, role)
	if err != nil {
		return nil, err
	}
	return s.runPipeline(ctx, *report, TriggerManual, actorID)
}

// History lists the most recent executions of a definition.
func (s *ScheduledReportService) History(ctx context.Context, id int64, actorID string, role models.UserRole, limit int) ([]models.ReportHistory, error) {
	if _, err := s.load(ctx, id, actorID, role); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByScheduledReport(ctx, id, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report history")
	}
	if entries == nil {
		entries = []models.ReportHistory{}
	}
	return entries, nil
}

func (s *ScheduledReportService) load(ctx context.Context, id int64, actorID string, role models.UserRole) (*models.ScheduledReport, error) {
	report, err := s.repo.GetByID(ctx, id, ownerScope(actorID, role))
	if err != nil {
		return nil, s.notFoundOr(err, "failed to load scheduled report")
	}
	return report, nil
}

func (s *ScheduledReportService) notFoundOr(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFoundOrForbidden
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// ownerScope restricts non-admin actors to their own definitions.
func ownerScope(actorID string, role models.UserRole) *string {
	if role.IsAdmin() {
		return nil
	}
	return &actorID
}

func validateCustomSource(reportType models.ReportType, params models.ReportParameters) error {
	if reportType != models.ReportTypeCustom {
		return nil
	}
	source := models.ReportType(params.String("source"))
	if source == "" || source == models.ReportTypeCustom {
		return appErrors.Clone(appErrors.ErrValidation, "custom reports require parameters.source naming a built-in report type")
	}
	return nil
}

func (s *ScheduledReportService) reconcileTrigger(report models.ScheduledReport) {
	if !report.IsActive {
		s.unschedule(report.ID)
		return
	}
	if err := s.schedule(report); err != nil {
		if errors.Is(err, ErrNoTrigger) {
			s.logger.Info("scheduled report has no recurring trigger", zap.Int64("scheduled_report_id", report.ID), zap.String("frequency", string(report.Frequency)))
			return
		}
		s.logger.Warn("failed to register scheduled report trigger", zap.Int64("scheduled_report_id", report.ID), zap.Error(err))
	}
}

func (s *ScheduledReportService) schedule(report models.ScheduledReport) error {
	spec, err := CronExpression(report.Frequency)
	if err != nil {
		s.unschedule(report.ID)
		return err
	}
	id := report.ID
	handle, err := s.registry.Register(id, spec, func() { s.enqueue(id) })
	if err != nil {
		return err
	}
	s.metrics.SetActiveTriggers(s.registry.Len())
	s.logger.Debug("scheduled report trigger registered",
		zap.Int64("scheduled_report_id", id),
		zap.String("cron", spec),
		zap.Time("next_fire", s.registry.Next(handle, s.now())),
	)
	return nil
}

func (s *ScheduledReportService) unschedule(id int64) {
	if h, ok := s.registry.Lookup(id); ok {
		s.registry.Deregister(h)
		s.metrics.SetActiveTriggers(s.registry.Len())
	}
}

func (s *ScheduledReportService) enqueue(id int64) {
	job := jobs.Job{ID: strconv.FormatInt(id, 10), Type: scheduledReportJobType, Payload: id}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.logger.Error("scheduled report tick dropped", zap.Int64("scheduled_report_id", id), zap.Int("pending", s.queue.Pending()), zap.Error(err))
	}
}

func (s *ScheduledReportService) handleJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(int64)
	if !ok {
		parsed, err := strconv.ParseInt(job.ID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid scheduled report job %q: %w", job.ID, err)
		}
		id = parsed
	}
	s.runScheduled(ctx, id)
	return nil
}

// runScheduled is the tick path. It never returns an error; failures end up in history and logs.
func (s *ScheduledReportService) runScheduled(ctx context.Context, id int64) {
	report, err := s.repo.GetByID(ctx, id, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.unschedule(id)
			return
		}
		s.logger.Error("scheduled report lookup failed", zap.Int64("scheduled_report_id", id), zap.Error(err))
		return
	}
	if !report.IsActive {
		s.unschedule(id)
		return
	}
	if _, err := s.runPipeline(ctx, *report, TriggerSchedule, models.GeneratedBySystem); err != nil {
		switch {
		case errors.Is(err, export.ErrNoData):
			s.logger.Info("scheduled report period has no data", zap.Int64("scheduled_report_id", id))
		case appErrors.HasCode(err, appErrors.ErrInternal.Code):
			s.logger.Error("scheduled report run failed", zap.Int64("scheduled_report_id", id), zap.Error(err))
		default:
			s.logger.Warn("scheduled report run failed", zap.Int64("scheduled_report_id", id), zap.Error(err))
		}
	}
}

// runPipeline generates, exports, emails and records one run. Runs of the same definition are serialised.
func (s *ScheduledReportService) runPipeline(ctx context.Context, report models.ScheduledReport, trigger, generatedBy string) (*ExportResult, error) {
	lock := s.lockFor(report.ID)
	lock.Lock()
	defer lock.Unlock()

	started := s.now()
	params := withDefaultRange(report.Parameters, report.Frequency, started.In(s.loc))
	entry := &models.ReportHistory{
		ScheduledReportID: &report.ID,
		ReportType:        report.ReportType,
		Title:             report.Name,
		Parameters:        params,
		Format:            report.Format,
		GeneratedBy:       generatedBy,
	}

	generated, err := s.generator.Generate(ctx, report.ReportType, params)
	if err != nil {
		return nil, s.fail(ctx, entry, trigger, models.FailureStageGenerate, err)
	}
	entry.Title = generated.Metadata.Title

	result, err := s.exporter.Export(ctx, *generated, report.Format)
	if err != nil {
		return nil, s.fail(ctx, entry, trigger, models.FailureStageExport, err)
	}
	attachArtifact(entry, result)

	message := fmt.Sprintf("Attached is the %s delivery of the scheduled report %s.", report.Frequency, report.Name)
	if err := s.exporter.EmailReport(ctx, result, report.Recipients, *generated, message); err != nil {
		return nil, s.fail(ctx, entry, trigger, models.FailureStageEmail, err)
	}

	entry.Status = models.ReportStatusCompleted
	s.recorder.Record(ctx, entry)

	finished := s.now()
	next := CalculateNextRunDate(report.Frequency, finished, s.loc)
	if err := s.repo.UpdateRunDates(ctx, report.ID, finished, next); err != nil {
		s.logger.Error("failed to update scheduled report run dates", zap.Int64("scheduled_report_id", report.ID), zap.Error(err))
	}
	s.metrics.RecordReportRun(trigger, true)
	s.logger.Info("scheduled report delivered",
		zap.Int64("scheduled_report_id", report.ID),
		zap.String("trigger", trigger),
		zap.String("file", result.FileName),
		zap.Int("recipients", len(report.Recipients)),
		zap.Duration("duration", finished.Sub(started)),
	)
	return result, nil
}

func (s *ScheduledReportService) fail(ctx context.Context, entry *models.ReportHistory, trigger string, stage models.FailureStage, cause error) error {
	message := cause.Error()
	entry.Status = models.ReportStatusFailed
	entry.Error = &message
	entry.FailureStage = &stage
	s.recorder.Record(ctx, entry)
	s.metrics.RecordReportRun(trigger, false)
	return cause
}

func (s *ScheduledReportService) lockFor(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func attachArtifact(entry *models.ReportHistory, result *ExportResult) {
	fileName := result.FileName
	size := result.FileSize
	url := result.DownloadURL
	expires := result.ExpiresAt
	entry.FileName = &fileName
	entry.FileSize = &size
	entry.DownloadURL = &url
	entry.ExpiresAt = &expires
}

// withDefaultRange fills startDate/endDate with the period that just closed when neither is set.
func withDefaultRange(params models.ReportParameters, freq models.ReportFrequency, now time.Time) models.ReportParameters {
	out := make(models.ReportParameters, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	if out.String("startDate") != "" || out.String("endDate") != "" {
		return out
	}
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	var start time.Time
	switch freq {
	case models.FrequencyDaily:
		start = end
	case models.FrequencyWeekly:
		start = end.AddDate(0, 0, -6)
	case models.FrequencyMonthly:
		start = end.AddDate(0, -1, 1)
	case models.FrequencyQuarterly:
		start = end.AddDate(0, -3, 1)
	case models.FrequencySemester:
		start = end.AddDate(0, -6, 1)
	case models.FrequencyAnnual:
		start = end.AddDate(-1, 0, 1)
	default:
		start = end.AddDate(0, 0, -29)
	}
	out["startDate"] = start.Format(paramDateLayout)
	out["endDate"] = end.Format(paramDateLayout)
	return out
}

// CronExpression maps a frequency to its five-field cron spec. Every trigger fires at 08:00.
func CronExpression(freq models.ReportFrequency) (string, error) {
	switch freq {
	case models.FrequencyDaily:
		return "0 8 * * *", nil
	case models.FrequencyWeekly:
		return "0 8 * * 1", nil
	case models.FrequencyMonthly:
		return "0 8 1 * *", nil
	case models.FrequencyQuarterly:
		return "0 8 1 */3 *", nil
	case models.FrequencySemester:
		return "0 8 1 1,7 *", nil
	case models.FrequencyAnnual:
		return "0 8 1 1 *", nil
	default:
		return "", ErrNoTrigger
	}
}

// CalculateNextRunDate returns the next 08:00 run after from in loc. Weekly runs land on the
// following Monday, longer periods on the first day of the target month.
func CalculateNextRunDate(freq models.ReportFrequency, from time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := from.In(loc)
	at8 := func(year int, month time.Month, day int) time.Time {
		return time.Date(year, month, day, 8, 0, 0, 0, loc)
	}

	switch freq {
	case models.FrequencyWeekly:
		days := (int(time.Monday) - int(t.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		d := t.AddDate(0, 0, days)
		return at8(d.Year(), d.Month(), d.Day())
	case models.FrequencyMonthly:
		return at8(t.Year(), t.Month()+1, 1)
	case models.FrequencyQuarterly:
		return at8(t.Year(), t.Month()+3, 1)
	case models.FrequencySemester:
		return at8(t.Year(), t.Month()+6, 1)
	case models.FrequencyAnnual:
		return at8(t.Year()+1, time.January, 1)
	default:
		d := t.AddDate(0, 0, 1)
		return at8(d.Year(), d.Month(), d.Day())
	}
}
