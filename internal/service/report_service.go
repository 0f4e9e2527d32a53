package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-scheduler/internal/dto"
	"github.com/noah-isme/sma-report-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/export"
)

type fileExporter interface {
	reportExporter
	Open(fileName string) (*os.File, string, error)
}

type artifactLookup interface {
	FindByFileName(ctx context.Context, fileName string) (*models.ReportHistory, error)
}

type scheduledOwnerLookup interface {
	GetByID(ctx context.Context, id int64, owner *string) (*models.ScheduledReport, error)
}

// ReportService runs on-demand exports and serves stored artifacts.
type ReportService struct {
	generator reportGenerator
	exporter  fileExporter
	recorder  *HistoryRecorder
	artifacts artifactLookup
	scheduled scheduledOwnerLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File     *os.File
	Filename string
	MimeType string
}

// NewReportService constructs the report service.
func NewReportService(generator reportGenerator, exporter fileExporter, recorder *HistoryRecorder, artifacts artifactLookup, scheduled scheduledOwnerLookup, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{
		generator: generator,
		exporter:  exporter,
		recorder:  recorder,
		artifacts: artifacts,
		scheduled: scheduled,
		validator: validate,
		logger:    logger,
	}
}

// Export generates and stores a report for the actor.
func (s *ReportService) Export(ctx context.Context, req dto.ExportReportRequest, actorID string) (*ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	return s.render(ctx, req, actorID, nil)
}

// Email generates, stores and mails a report in one step.
func (s *ReportService) Email(ctx context.Context, req dto.EmailReportRequest, actorID string) (*ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	deliver := func(ctx context.Context, result *ExportResult, report export.Report) error {
		return s.exporter.EmailReport(ctx, result, req.Recipients, report, req.Message)
	}
	return s.render(ctx, req.ExportReportRequest, actorID, deliver)
}

// ResolveDownload opens a stored artifact. Non-admins may only fetch their own exports or the
// output of scheduled reports they own.
func (s *ReportService) ResolveDownload(ctx context.Context, fileName, actorID string, role models.UserRole) (*ReportDownload, error) {
	if !role.IsAdmin() {
		if err := s.authorizeDownload(ctx, fileName, actorID); err != nil {
			return nil, err
		}
	}
	file, mime, err := s.exporter.Open(fileName)
	if err != nil {
		return nil, err
	}
	return &ReportDownload{File: file, Filename: fileName, MimeType: mime}, nil
}

func (s *ReportService) authorizeDownload(ctx context.Context, fileName, actorID string) error {
	entry, err := s.artifacts.FindByFileName(ctx, fileName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "report file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve report file")
	}
	if entry.GeneratedBy == actorID {
		return nil
	}
	if entry.ScheduledReportID != nil && s.scheduled != nil {
		if _, err := s.scheduled.GetByID(ctx, *entry.ScheduledReportID, &actorID); err == nil {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "report file not found")
}

type deliverFunc func(ctx context.Context, result *ExportResult, report export.Report) error

func (s *ReportService) render(ctx context.Context, req dto.ExportReportRequest, actorID string, deliver deliverFunc) (*ExportResult, error) {
	params := req.Parameters
	if params == nil {
		params = models.ReportParameters{}
	}
	entry := &models.ReportHistory{
		ReportType:  req.ReportType,
		Title:       string(req.ReportType),
		Parameters:  params,
		Format:      req.Format,
		GeneratedBy: actorID,
		GeneratedAt: time.Now().UTC(),
	}

	report, err := s.generator.Generate(ctx, req.ReportType, params)
	if err != nil {
		s.failed(ctx, entry, models.FailureStageGenerate, err)
		return nil, err
	}
	entry.Title = report.Metadata.Title

	result, err := s.exporter.Export(ctx, *report, req.Format)
	if err != nil {
		s.failed(ctx, entry, models.FailureStageExport, err)
		return nil, err
	}
	attachArtifact(entry, result)

	if deliver != nil {
		if err := deliver(ctx, result, *report); err != nil {
			s.failed(ctx, entry, models.FailureStageEmail, err)
			return nil, err
		}
	}

	entry.Status = models.ReportStatusCompleted
	s.recorder.Record(ctx, entry)
	s.logger.Info("report exported", zap.String("report_type", string(req.ReportType)), zap.String("format", string(req.Format)), zap.String("file", result.FileName), zap.String("actor", actorID))
	return result, nil
}

func (s *ReportService) failed(ctx context.Context, entry *models.ReportHistory, stage models.FailureStage, cause error) {
	message := cause.Error()
	entry.Status = models.ReportStatusFailed
	entry.Error = &message
	entry.FailureStage = &stage
	s.recorder.Record(ctx, entry)
}
