package service

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordReportRun(TriggerSchedule, true)
	m.RecordReportRun(TriggerSchedule, false)
	m.RecordReportRun(TriggerManual, false)
	m.RecordHistoryWriteFailure()
	m.RecordRateLimitDecision("denied")
	m.RecordCacheOperation(true, 0)
	m.RecordCacheOperation(false, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reportRuns.WithLabelValues("completed", TriggerSchedule)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reportRuns.WithLabelValues("failed", TriggerManual)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historyWriteFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitDecisions.WithLabelValues("denied")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.cacheHitRatio))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "report_history_write_failures_total 1")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordReportRun(TriggerManual, true)
	m.RecordHistoryWriteFailure()
	m.SetActiveTriggers(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
