package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
	"github.com/noah-isme/sma-report-scheduler/pkg/response"
)

type rateLimiter interface {
	Check(ctx context.Context, identifier, endpoint string) (*models.RateLimitDecision, error)
}

// RateLimit gates requests through the tracker. Tracker failures let the request through.
func RateLimit(limiter rateLimiter, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		identifier := c.ClientIP()
		if claims, ok := CurrentClaims(c); ok {
			identifier = claims.UserID
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		endpoint := c.Request.Method + " " + route

		decision, err := limiter.Check(c.Request.Context(), identifier, endpoint)
		if err != nil {
			logger.Warn("rate limit check failed, allowing request",
				zap.String("identifier", identifier),
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if decision.Limit != models.Unlimited {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetTime.Unix(), 10))
		}
		if decision.Allowed {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(decision.RetryAfter))
		logger.Info("request rate limited", zap.String("identifier", identifier), zap.String("endpoint", endpoint), zap.Int("retry_after", decision.RetryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Envelope{
			Error: appErrors.ErrRateLimited,
			Meta: map[string]interface{}{
				"retryAfter": decision.RetryAfter,
				"limit":      decision.Limit,
				"windowMs":   decision.WindowMs,
				"timestamp":  time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
}
