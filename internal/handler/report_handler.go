package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-scheduler/internal/dto"
	"github.com/noah-isme/sma-report-scheduler/internal/models"
	"github.com/noah-isme/sma-report-scheduler/internal/service"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/response"
)

type reportService interface {
	Export(ctx context.Context, req dto.ExportReportRequest, actorID string) (*service.ExportResult, error)
	Email(ctx context.Context, req dto.EmailReportRequest, actorID string) (*service.ExportResult, error)
	ResolveDownload(ctx context.Context, fileName, actorID string, role models.UserRole) (*service.ReportDownload, error)
}

// ReportHandler exposes on-demand export endpoints.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Export godoc
// @Summary Generate and store a report
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ExportReportRequest true "Export payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/export [post]
func (h *ReportHandler) Export(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.ExportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	result, err := h.reports.Export(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Email godoc
// @Summary Generate a report and e-mail it
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.EmailReportRequest true "Email payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /reports/email [post]
func (h *ReportHandler) Email(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.EmailReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid email payload"))
		return
	}
	result, err := h.reports.Email(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"sent": true, "recipients": len(req.Recipients), "export": result}, nil)
}

// Download godoc
// @Summary Download a stored report
// @Tags Reports
// @Produce octet-stream
// @Param fileName path string true "Report file name"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /reports/download/{fileName} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	download, err := h.reports.ResolveDownload(c.Request.Context(), c.Param("fileName"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report file"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.MimeType, download.File, nil)
}
