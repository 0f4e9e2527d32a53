package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-scheduler/internal/dto"
	"github.com/noah-isme/sma-report-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
)

const (
	manualBlockCount = 999999

	rateLimitOutcomeAllowed   = "allowed"
	rateLimitOutcomeDenied    = "denied"
	rateLimitOutcomeBlocked   = "blocked"
	rateLimitOutcomeUnlimited = "unlimited"
)

type rateLimitRepository interface {
	Hit(ctx context.Context, identifier, endpoint string, window time.Duration, now time.Time) (*models.RateLimitEntry, error)
	Block(ctx context.Context, identifier, endpoint string, until time.Time, reason string, minCount int, now time.Time) (*models.RateLimitEntry, error)
	Unblock(ctx context.Context, identifier, endpoint string, now time.Time) (int64, error)
	EndpointStats(ctx context.Context, since time.Time) ([]models.EndpointRateStats, error)
	TopOffenders(ctx context.Context, since time.Time, minRequests, limit int) ([]models.RateLimitOffender, error)
	CurrentlyBlocked(ctx context.Context, now time.Time) ([]models.RateLimitEntry, error)
	HighVolume(ctx context.Context, since time.Time, threshold int) ([]models.SuspiciousIdentifier, error)
	EndpointScanning(ctx context.Context, since time.Time, threshold int) ([]models.SuspiciousIdentifier, error)
	RepeatedOffenders(ctx context.Context, since time.Time, threshold int) ([]models.SuspiciousIdentifier, error)
	DeleteWindowsEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type statsCache interface {
	Remember(ctx context.Context, key string, ttl time.Duration, dest interface{}, load func(ctx context.Context) error) error
	Invalidate(ctx context.Context, pattern string) error
}

// RateLimitConfig tunes the tracker.
type RateLimitConfig struct {
	Retention       time.Duration
	CleanupInterval time.Duration
	StatsCacheTTL   time.Duration
}

// RateLimitService decides allow/deny per (identifier, endpoint) and exposes admin tooling.
type RateLimitService struct {
	repo      rateLimitRepository
	rules     *RuleSet
	cache     statsCache
	metrics   *MetricsService
	validator *validator.Validate
	cfg       RateLimitConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewRateLimitService constructs the tracker.
func NewRateLimitService(repo rateLimitRepository, rules *RuleSet, cache statsCache, metrics *MetricsService, validate *validator.Validate, cfg RateLimitConfig, logger *zap.Logger) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = 30 * time.Second
	}
	return &RateLimitService{
		repo:      repo,
		rules:     rules,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Check consumes one unit of quota and returns the decision. A denial is not an error.
func (s *RateLimitService) Check(ctx context.Context, identifier, endpoint string) (*models.RateLimitDecision, error) {
	now := s.now()
	rule, ok := s.rules.Resolve(endpoint)
	if !ok {
		s.metrics.RecordRateLimitDecision(rateLimitOutcomeUnlimited)
		return &models.RateLimitDecision{Allowed: true, Limit: models.Unlimited, Remaining: models.Unlimited, ResetTime: now}, nil
	}

	start := time.Now()
	entry, err := s.repo.Hit(ctx, identifier, endpoint, rule.Window, now)
	s.metrics.ObserveDBQuery("rate_limit_hit", time.Since(start))
	if err != nil {
		return nil, err
	}

	decision := &models.RateLimitDecision{
		Limit:     rule.MaxRequests,
		ResetTime: entry.WindowEnd,
		WindowMs:  rule.Window.Milliseconds(),
	}
	if entry.IsBlocked && entry.WindowEnd.After(now) {
		decision.RetryAfter = retryAfterSeconds(entry.WindowEnd.Sub(now))
		s.metrics.RecordRateLimitDecision(rateLimitOutcomeBlocked)
		return decision, nil
	}

	decision.Remaining = rule.MaxRequests - entry.RequestCount
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	decision.Allowed = entry.RequestCount <= rule.MaxRequests
	if decision.Allowed {
		s.metrics.RecordRateLimitDecision(rateLimitOutcomeAllowed)
		return decision, nil
	}

	decision.RetryAfter = retryAfterSeconds(entry.WindowEnd.Sub(now))
	if rule.BlockDuration > 0 {
		until := now.Add(rule.BlockDuration)
		if _, err := s.repo.Block(ctx, identifier, endpoint, until, "rate limit exceeded", entry.RequestCount, now); err != nil {
			s.logger.Warn("failed to block identifier", zap.String("identifier", identifier), zap.String("endpoint", endpoint), zap.Error(err))
		} else {
			decision.ResetTime = until
			decision.RetryAfter = retryAfterSeconds(rule.BlockDuration)
			s.logger.Info("identifier blocked", zap.String("identifier", identifier), zap.String("endpoint", endpoint), zap.Duration("duration", rule.BlockDuration))
		}
	}
	s.metrics.RecordRateLimitDecision(rateLimitOutcomeDenied)
	return decision, nil
}

// Block forces a block on identifier for endpoint.
func (s *RateLimitService) Block(ctx context.Context, req dto.BlockIdentifierRequest) (*models.RateLimitEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	reason := req.Reason
	if reason == "" {
		reason = "manually blocked"
	}
	now := s.now()
	until := now.Add(time.Duration(req.DurationMs) * time.Millisecond)
	entry, err := s.repo.Block(ctx, req.Identifier, req.Endpoint, until, reason, manualBlockCount, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to block identifier")
	}
	s.invalidateStats(ctx)
	s.logger.Info("identifier manually blocked", zap.String("identifier", req.Identifier), zap.String("endpoint", req.Endpoint), zap.Time("until", until))
	return entry, nil
}

// Unblock clears blocks for identifier. Unblocking an identifier that is not blocked is a no-op.
func (s *RateLimitService) Unblock(ctx context.Context, req dto.UnblockIdentifierRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	affected, err := s.repo.Unblock(ctx, req.Identifier, req.Endpoint, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unblock identifier")
	}
	s.invalidateStats(ctx)
	s.logger.Info("identifier unblocked", zap.String("identifier", req.Identifier), zap.String("endpoint", req.Endpoint), zap.Int64("entries", affected))
	return affected, nil
}

// Stats aggregates tracker state over the timeframe. Results are cached briefly.
func (s *RateLimitService) Stats(ctx context.Context, timeframe models.RateLimitTimeframe) (*models.RateLimitStats, error) {
	switch timeframe {
	case models.TimeframeHour, models.TimeframeDay, models.TimeframeWeek:
	case "":
		timeframe = models.TimeframeHour
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "timeframe must be one of hour, day, week")
	}

	var stats models.RateLimitStats
	load := func(ctx context.Context) error {
		loaded, err := s.loadStats(ctx, timeframe)
		if err != nil {
			return err
		}
		stats = *loaded
		return nil
	}
	key := fmt.Sprintf("rate_limit:stats:%s", timeframe)
	var err error
	if s.cache != nil {
		err = s.cache.Remember(ctx, key, s.cfg.StatsCacheTTL, &stats, load)
	} else {
		err = load(ctx)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rate limit statistics")
	}
	return &stats, nil
}

func (s *RateLimitService) loadStats(ctx context.Context, timeframe models.RateLimitTimeframe) (*models.RateLimitStats, error) {
	now := s.now()
	since := now.Add(-timeframe.Duration())

	endpoints, err := s.repo.EndpointStats(ctx, since)
	if err != nil {
		return nil, err
	}
	offenders, err := s.repo.TopOffenders(ctx, since, 100, 20)
	if err != nil {
		return nil, err
	}
	blocked, err := s.repo.CurrentlyBlocked(ctx, now)
	if err != nil {
		return nil, err
	}
	return &models.RateLimitStats{
		Timeframe:        timeframe,
		Endpoints:        endpoints,
		TopOffenders:     offenders,
		CurrentlyBlocked: blocked,
		GeneratedAt:      now,
	}, nil
}

// DetectSuspicious runs the advisory heuristics. Only heuristics with matches are returned.
func (s *RateLimitService) DetectSuspicious(ctx context.Context) ([]models.SuspiciousPattern, error) {
	now := s.now()
	checks := []struct {
		kind        models.SuspiciousPatternType
		description string
		severity    string
		query       func(ctx context.Context, since time.Time, threshold int) ([]models.SuspiciousIdentifier, error)
		lookback    time.Duration
		threshold   int
	}{
		{models.PatternHighVolume, "More than 500 requests in the last hour", "high", s.repo.HighVolume, time.Hour, 500},
		{models.PatternEndpointScanning, "More than 20 distinct endpoints in the last 30 minutes", "medium", s.repo.EndpointScanning, 30 * time.Minute, 20},
		{models.PatternRepeatedOffender, "Blocked more than 3 times in the last 24 hours", "high", s.repo.RepeatedOffenders, 24 * time.Hour, 3},
	}

	patterns := make([]models.SuspiciousPattern, 0, len(checks))
	for _, check := range checks {
		matches, err := check.query(ctx, now.Add(-check.lookback), check.threshold)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detect suspicious activity")
		}
		if len(matches) == 0 {
			continue
		}
		patterns = append(patterns, models.SuspiciousPattern{
			Type:        check.kind,
			Description: check.description,
			Severity:    check.severity,
			Identifiers: matches,
		})
	}
	return patterns, nil
}

// Cleanup deletes entries whose window ended before the retention cutoff.
func (s *RateLimitService) Cleanup(ctx context.Context) (int64, error) {
	return s.repo.DeleteWindowsEndedBefore(ctx, s.now().Add(-s.cfg.Retention))
}

// StartCleanup boots a goroutine that purges stale entries periodically.
func (s *RateLimitService) StartCleanup(ctx context.Context) {
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
				deleted, err := s.Cleanup(ctx)
				if err != nil {
					s.logger.Warn("rate limit cleanup failed", zap.Error(err))
					continue
				}
				if deleted > 0 {
					s.logger.Info("rate limit cleanup removed entries", zap.Int64("count", deleted))
				}
			}
		}
	}()
}

func (s *RateLimitService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "rate_limit:stats:*"); err != nil {
		s.logger.Debug("rate limit stats invalidation failed", zap.Error(err))
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
