package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-scheduler/internal/middleware"
	"github.com/noah-isme/sma-report-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes 401 and returns nil when the request carries no token claims.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}
