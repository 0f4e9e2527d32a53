package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
)

type historyWriter interface {
	Create(ctx context.Context, entry *models.ReportHistory) error
}

// HistoryRecorder writes execution history on a best-effort basis: failures are logged and
// counted, never returned.
type HistoryRecorder struct {
	repo    historyWriter
	metrics *MetricsService
	logger  *zap.Logger
}

// NewHistoryRecorder constructs the recorder.
func NewHistoryRecorder(repo historyWriter, metrics *MetricsService, logger *zap.Logger) *HistoryRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryRecorder{repo: repo, metrics: metrics, logger: logger}
}

// Record persists entry.
func (r *HistoryRecorder) Record(ctx context.Context, entry *models.ReportHistory) {
	if r == nil || r.repo == nil || entry == nil {
		return
	}
	if err := r.repo.Create(ctx, entry); err != nil {
		r.metrics.RecordHistoryWriteFailure()
		fields := []zap.Field{
			zap.String("status", string(entry.Status)),
			zap.String("report_type", string(entry.ReportType)),
			zap.Error(err),
		}
		if entry.ScheduledReportID != nil {
			fields = append(fields, zap.Int64("scheduled_report_id", *entry.ScheduledReportID))
		}
		r.logger.Error("failed to record report history", fields...)
	}
}
