package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/export"
	"github.com/noah-isme/sma-report-scheduler/pkg/mailer"
	"github.com/noah-isme/sma-report-scheduler/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type reportRenderer interface {
	Render(report export.Report) ([]byte, error)
}

type reportMailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

var formatExtensions = map[models.ReportFormat]string{
	models.ReportFormatJSON:  "json",
	models.ReportFormatCSV:   "csv",
	models.ReportFormatPDF:   "pdf",
	models.ReportFormatExcel: "xlsx",
}

var extensionMimeTypes = map[string]string{
	"json": "application/json",
	"csv":  "text/csv",
	"pdf":  "application/pdf",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	SystemName      string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportResult describes a rendered artifact on disk.
type ExportResult struct {
	Success     bool                `json:"success"`
	FileName    string              `json:"fileName"`
	FilePath    string              `json:"-"`
	FileSize    int64               `json:"fileSize"`
	DownloadURL string              `json:"downloadUrl"`
	MimeType    string              `json:"mimeType"`
	Format      models.ReportFormat `json:"format"`
	ExpiresAt   time.Time           `json:"expiresAt"`
}

// ReportExportService renders reports to files and delivers them by e-mail.
type ReportExportService struct {
	storage   fileStorage
	renderers map[models.ReportFormat]reportRenderer
	mailer    reportMailer
	cfg       ExportConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportExportService wires the built-in renderers for every supported format.
func NewReportExportService(store fileStorage, mail reportMailer, cfg ExportConfig, logger *zap.Logger) *ReportExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 7 * 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if cfg.SystemName == "" {
		cfg.SystemName = "School Management System"
	}
	return &ReportExportService{
		storage: store,
		renderers: map[models.ReportFormat]reportRenderer{
			models.ReportFormatJSON:  export.NewJSONExporter(),
			models.ReportFormatCSV:   export.NewCSVExporter(),
			models.ReportFormatPDF:   export.NewPDFExporter(cfg.SystemName),
			models.ReportFormatExcel: export.NewExcelExporter(),
		},
		mailer: mail,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Export renders report in format and stores the artifact.
func (s *ReportExportService) Export(ctx context.Context, report export.Report, format models.ReportFormat) (*ExportResult, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := renderer.Render(report)
	if err != nil {
		s.logger.Warn("report render failed", zap.String("format", string(format)), zap.String("report_type", report.Metadata.ReportType), zap.Error(err))
		return nil, exportFailure(err)
	}

	now := s.now().UTC()
	fileName, path, err := s.storage.Save(ExportFileName(report.Metadata.ReportType, format, now), payload)
	if err != nil {
		return nil, exportFailure(err)
	}

	return &ExportResult{
		Success:     true,
		FileName:    fileName,
		FilePath:    path,
		FileSize:    int64(len(payload)),
		DownloadURL: s.DownloadURL(fileName),
		MimeType:    MimeType(fileName),
		Format:      format,
		ExpiresAt:   now.Add(s.cfg.ResultTTL),
	}, nil
}

// EmailReport sends one message to all recipients with the artifact attached.
func (s *ReportExportService) EmailReport(ctx context.Context, result *ExportResult, recipients []string, report export.Report, message string) error {
	if result == nil || result.FileName == "" {
		return appErrors.Clone(appErrors.ErrValidation, "export result is required")
	}
	if len(recipients) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one recipient is required")
	}
	if s.mailer == nil {
		return appErrors.Wrap(errors.New("mailer not configured"), appErrors.ErrEmailDelivery.Code, appErrors.ErrEmailDelivery.Status, appErrors.ErrEmailDelivery.Message)
	}

	body, err := export.RenderEmailHTML(report, result.FileName, message, s.cfg.SystemName)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrEmailDelivery.Code, appErrors.ErrEmailDelivery.Status, appErrors.ErrEmailDelivery.Message)
	}

	msg := mailer.Message{
		To:          recipients,
		Subject:     fmt.Sprintf("%s - %s", s.cfg.SystemName, report.Metadata.Title),
		HTML:        body,
		Attachments: []mailer.Attachment{{Filename: result.FileName, Path: result.FilePath}},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("report email failed", zap.String("file", result.FileName), zap.Int("recipients", len(recipients)), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrEmailDelivery.Code, appErrors.ErrEmailDelivery.Status, appErrors.ErrEmailDelivery.Message)
	}
	s.logger.Info("report emailed", zap.String("file", result.FileName), zap.Int("recipients", len(recipients)))
	return nil
}

// Open returns a handle to a stored artifact together with its MIME type.
func (s *ReportExportService) Open(fileName string) (*os.File, string, error) {
	file, err := s.storage.Open(fileName)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidName):
			return nil, "", appErrors.Clone(appErrors.ErrValidation, "invalid file name")
		case errors.Is(err, fs.ErrNotExist):
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report file not found")
		default:
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
		}
	}
	return file, MimeType(fileName), nil
}

// DownloadURL builds the public download path for a stored artifact.
func (s *ReportExportService) DownloadURL(fileName string) string {
	return fmt.Sprintf("%s/reports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), fileName)
}

// Cleanup removes files older than ttl (defaults to the configured ResultTTL when ttl <= 0).
func (s *ReportExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.Cleanup(0)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(deleted) > 0 {
					s.logger.Info("export cleanup removed files", zap.Int("count", len(deleted)))
				}
			}
		}
	}()
}

// ExportFileName builds "{type}_report_{ISO timestamp}.{ext}" with ':' and '.' replaced by '-'.
func ExportFileName(reportType string, format models.ReportFormat, at time.Time) string {
	if reportType == "" {
		reportType = "report"
	}
	stamp := at.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	ext, ok := formatExtensions[format]
	if !ok {
		ext = string(format)
	}
	return fmt.Sprintf("%s_report_%s.%s", reportType, stamp, ext)
}

// MimeType maps an artifact file name to its content type.
func MimeType(fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if mime, ok := extensionMimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

func exportFailure(err error) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrExportFailure.Code, appErrors.ErrExportFailure.Status, appErrors.ErrExportFailure.Message)
}
