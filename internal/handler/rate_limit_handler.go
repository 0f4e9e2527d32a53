package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-scheduler/internal/dto"
	"github.com/noah-isme/sma-report-scheduler/internal/middleware"
	"github.com/noah-isme/sma-report-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/response"
)

type rateLimitAdmin interface {
	Stats(ctx context.Context, timeframe models.RateLimitTimeframe) (*models.RateLimitStats, error)
	DetectSuspicious(ctx context.Context) ([]models.SuspiciousPattern, error)
	Block(ctx context.Context, req dto.BlockIdentifierRequest) (*models.RateLimitEntry, error)
	Unblock(ctx context.Context, req dto.UnblockIdentifierRequest) (int64, error)
}

// RateLimitHandler exposes rate limit administration.
type RateLimitHandler struct {
	service rateLimitAdmin
}

// NewRateLimitHandler builds the handler.
func NewRateLimitHandler(service rateLimitAdmin) *RateLimitHandler {
	return &RateLimitHandler{service: service}
}

// Stats godoc
// @Summary Rate limit statistics
// @Tags Rate Limits
// @Produce json
// @Param timeframe query string false "hour, day or week"
// @Success 200 {object} response.Envelope
// @Router /rate-limits/stats [get]
func (h *RateLimitHandler) Stats(c *gin.Context) {
	timeframe := models.RateLimitTimeframe(c.DefaultQuery("timeframe", string(models.TimeframeHour)))
	stats, err := h.service.Stats(c.Request.Context(), timeframe)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "timeframe", timeframe)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Suspicious godoc
// @Summary Suspicious activity patterns
// @Tags Rate Limits
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rate-limits/suspicious [get]
func (h *RateLimitHandler) Suspicious(c *gin.Context) {
	patterns, err := h.service.DetectSuspicious(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patterns, nil)
}

// Block godoc
// @Summary Block an identifier
// @Tags Rate Limits
// @Accept json
// @Produce json
// @Param payload body dto.BlockIdentifierRequest true "Block payload"
// @Success 200 {object} response.Envelope
// @Router /rate-limits/block [post]
func (h *RateLimitHandler) Block(c *gin.Context) {
	var req dto.BlockIdentifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid block payload"))
		return
	}
	entry, err := h.service.Block(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Unblock godoc
// @Summary Unblock an identifier
// @Tags Rate Limits
// @Accept json
// @Produce json
// @Param payload body dto.UnblockIdentifierRequest true "Unblock payload"
// @Success 200 {object} response.Envelope
// @Router /rate-limits/unblock [post]
func (h *RateLimitHandler) Unblock(c *gin.Context) {
	var req dto.UnblockIdentifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid unblock payload"))
		return
	}
	affected, err := h.service.Unblock(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"unblocked": affected}, nil)
}
