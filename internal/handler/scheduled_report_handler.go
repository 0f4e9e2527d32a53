package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-scheduler/internal/dto"
	"github.com/noah-isme/sma-report-scheduler/internal/models"
	"github.com/noah-isme/sma-report-scheduler/internal/service"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/response"
)

type scheduledReportService interface {
	Create(ctx context.Context, req dto.CreateScheduledReportRequest, actorID string) (*dto.ScheduledReportResponse, error)
	List(ctx context.Context, filter dto.ScheduledReportFilter, actorID string, role models.UserRole) ([]dto.ScheduledReportResponse, *models.Pagination, error)
	Get(ctx context.Context, id int64, actorID string, role models.UserRole) (*dto.ScheduledReportResponse, error)
	Update(ctx context.Context, id int64, req dto.UpdateScheduledReportRequest, actorID string, role models.UserRole) (*dto.ScheduledReportResponse, error)
	Delete(ctx context.Context, id int64, actorID string, role models.UserRole) error
	Execute(ctx context.Context, id int64, actorID string, role models.UserRole) (*service.ExportResult, error)
	History(ctx context.Context, id int64, actorID string, role models.UserRole, limit int) ([]models.ReportHistory, error)
}

// ScheduledReportHandler exposes scheduled report management endpoints.
type ScheduledReportHandler struct {
	service scheduledReportService
}

// NewScheduledReportHandler builds the handler.
func NewScheduledReportHandler(service scheduledReportService) *ScheduledReportHandler {
	return &ScheduledReportHandler{service: service}
}

// Create godoc
// @Summary Create a scheduled report
// @Tags Scheduled Reports
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduledReportRequest true "Scheduled report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scheduled-reports [post]
func (h *ScheduledReportHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateScheduledReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scheduled report payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// List godoc
// @Summary List scheduled reports
// @Tags Scheduled Reports
// @Produce json
// @Param reportType query string false "Report type"
// @Param frequency query string false "Frequency"
// @Param isActive query bool false "Active flag"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /scheduled-reports [get]
func (h *ScheduledReportHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var filter dto.ScheduledReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a scheduled report
// @Tags Scheduled Reports
// @Produce json
// @Param id path int true "Scheduled report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scheduled-reports/{id} [get]
func (h *ScheduledReportHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	item, err := h.service.Get(c.Request.Context(), id, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Update godoc
// @Summary Update a scheduled report
// @Tags Scheduled Reports
// @Accept json
// @Produce json
// @Param id path int true "Scheduled report ID"
// @Param payload body dto.UpdateScheduledReportRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scheduled-reports/{id} [put]
func (h *ScheduledReportHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req dto.UpdateScheduledReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scheduled report payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), id, req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete a scheduled report
// @Tags Scheduled Reports
// @Param id path int true "Scheduled report ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /scheduled-reports/{id} [delete]
func (h *ScheduledReportHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Execute godoc
// @Summary Run a scheduled report now
// @Tags Scheduled Reports
// @Produce json
// @Param id path int true "Scheduled report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scheduled-reports/{id}/execute [post]
func (h *ScheduledReportHandler) Execute(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	result, err := h.service.Execute(c.Request.Context(), id, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary List executions of a scheduled report
// @Tags Scheduled Reports
// @Produce json
// @Param id path int true "Scheduled report ID"
// @Param limit query int false "Maximum rows (default 20, max 100)"
// @Success 200 {object} response.Envelope
// @Router /scheduled-reports/{id}/history [get]
func (h *ScheduledReportHandler) History(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be an integer"))
			return
		}
		limit = parsed
	}
	items, err := h.service.History(c.Request.Context(), id, claims.UserID, claims.Role, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
