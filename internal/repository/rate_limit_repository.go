package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
)

const rateLimitColumns = `identifier, endpoint, request_count, window_start, window_end, is_blocked, block_count, last_request, block_reason`

// RateLimitRepository persists request windows per (identifier, endpoint).
type RateLimitRepository struct {
	db *sqlx.DB
}

// NewRateLimitRepository constructs the repository.
func NewRateLimitRepository(db *sqlx.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Hit records one request in a single statement. Expired windows restart at one, live blocked
// entries keep their count and every other entry is incremented.
func (r *RateLimitRepository) Hit(ctx context.Context, identifier, endpoint string, window time.Duration, now time.Time) (*models.RateLimitEntry, error) {
	const query = `INSERT INTO rate_limit_entries AS e (identifier, endpoint, request_count, window_start, window_end, is_blocked, block_count, last_request)
VALUES ($1, $2, 1, $3, $4, FALSE, 0, $3)
ON CONFLICT (identifier, endpoint) DO UPDATE SET
    request_count = CASE WHEN e.window_end <= $3 THEN 1 WHEN e.is_blocked THEN e.request_count ELSE e.request_count + 1 END,
    window_start = CASE WHEN e.window_end <= $3 THEN $3 ELSE e.window_start END,
    window_end = CASE WHEN e.window_end <= $3 THEN $4 ELSE e.window_end END,
    is_blocked = CASE WHEN e.window_end <= $3 THEN FALSE ELSE e.is_blocked END,
    block_reason = CASE WHEN e.window_end <= $3 THEN NULL ELSE e.block_reason END,
    last_request = $3
RETURNING ` + rateLimitColumns
	var entry models.RateLimitEntry
	if err := r.db.GetContext(ctx, &entry, query, identifier, endpoint, now, now.Add(window)); err != nil {
		return nil, fmt.Errorf("record rate limit hit: %w", err)
	}
	return &entry, nil
}

// Block marks the entry blocked until the given time, creating it when absent, and records the
// block event used by the repeated-offender check. The stored count never decreases; pass a floor via minCount.
func (r *RateLimitRepository) Block(ctx context.Context, identifier, endpoint string, until time.Time, reason string, minCount int, now time.Time) (*models.RateLimitEntry, error) {
	const query = `WITH blocked AS (
    INSERT INTO rate_limit_entries AS e (identifier, endpoint, request_count, window_start, window_end, is_blocked, block_count, last_request, block_reason)
    VALUES ($1, $2, $3, $4, $5, TRUE, 1, $4, $6)
    ON CONFLICT (identifier, endpoint) DO UPDATE SET
        request_count = GREATEST(e.request_count, EXCLUDED.request_count),
        window_end = EXCLUDED.window_end,
        is_blocked = TRUE,
        block_count = e.block_count + 1,
        block_reason = EXCLUDED.block_reason
    RETURNING ` + rateLimitColumns + `
), logged AS (
    INSERT INTO rate_limit_block_events (identifier, endpoint, blocked_at)
    SELECT identifier, endpoint, $4 FROM blocked
)
SELECT ` + rateLimitColumns + ` FROM blocked`
	var entry models.RateLimitEntry
	if err := r.db.GetContext(ctx, &entry, query, identifier, endpoint, minCount, now, until, reason); err != nil {
		return nil, fmt.Errorf("block rate limit entry: %w", err)
	}
	return &entry, nil
}

// Unblock clears the block and resets the window. An empty endpoint applies to every endpoint of the identifier.
func (r *RateLimitRepository) Unblock(ctx context.Context, identifier, endpoint string, now time.Time) (int64, error) {
	query := `UPDATE rate_limit_entries SET is_blocked = FALSE, request_count = 0, window_start = $1, window_end = $1, block_reason = NULL WHERE identifier = $2`
	args := []interface{}{now, identifier}
	if endpoint != "" {
		query += " AND endpoint = $3"
		args = append(args, endpoint)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("unblock rate limit entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unblock rate limit rows: %w", err)
	}
	return affected, nil
}

// EndpointStats aggregates activity per endpoint since the given time.
func (r *RateLimitRepository) EndpointStats(ctx context.Context, since time.Time) ([]models.EndpointRateStats, error) {
	const query = `SELECT endpoint,
    COALESCE(SUM(request_count), 0) AS total_requests,
    COUNT(*) FILTER (WHERE is_blocked) AS blocked_count,
    COUNT(DISTINCT identifier) AS unique_identifiers
FROM rate_limit_entries
WHERE last_request >= $1
GROUP BY endpoint
ORDER BY total_requests DESC`
	stats := make([]models.EndpointRateStats, 0)
	if err := r.db.SelectContext(ctx, &stats, query, since); err != nil {
		return nil, fmt.Errorf("rate limit endpoint stats: %w", err)
	}
	return stats, nil
}

// TopOffenders lists identifiers whose cumulative requests exceed minRequests.
func (r *RateLimitRepository) TopOffenders(ctx context.Context, since time.Time, minRequests, limit int) ([]models.RateLimitOffender, error) {
	const query = `SELECT identifier,
    SUM(request_count) AS total_requests,
    COUNT(DISTINCT endpoint) AS endpoints
FROM rate_limit_entries
WHERE last_request >= $1
GROUP BY identifier
HAVING SUM(request_count) > $2
ORDER BY total_requests DESC
LIMIT $3`
	offenders := make([]models.RateLimitOffender, 0)
	if err := r.db.SelectContext(ctx, &offenders, query, since, minRequests, limit); err != nil {
		return nil, fmt.Errorf("rate limit top offenders: %w", err)
	}
	return offenders, nil
}

// CurrentlyBlocked returns entries whose block is still in force.
func (r *RateLimitRepository) CurrentlyBlocked(ctx context.Context, now time.Time) ([]models.RateLimitEntry, error) {
	const query = `SELECT ` + rateLimitColumns + `
FROM rate_limit_entries WHERE is_blocked = TRUE AND window_end > $1 ORDER BY window_end DESC`
	entries := make([]models.RateLimitEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, now); err != nil {
		return nil, fmt.Errorf("rate limit currently blocked: %w", err)
	}
	return entries, nil
}

// HighVolume lists identifiers with more than threshold requests across all endpoints.
func (r *RateLimitRepository) HighVolume(ctx context.Context, since time.Time, threshold int) ([]models.SuspiciousIdentifier, error) {
	const query = `SELECT identifier, SUM(request_count) AS count
FROM rate_limit_entries
WHERE last_request >= $1
GROUP BY identifier
HAVING SUM(request_count) > $2
ORDER BY count DESC`
	return r.suspicious(ctx, "high volume", query, since, threshold)
}

// EndpointScanning lists identifiers that touched more than threshold distinct endpoints.
func (r *RateLimitRepository) EndpointScanning(ctx context.Context, since time.Time, threshold int) ([]models.SuspiciousIdentifier, error) {
	const query = `SELECT identifier, COUNT(DISTINCT endpoint) AS count
FROM rate_limit_entries
WHERE last_request >= $1
GROUP BY identifier
HAVING COUNT(DISTINCT endpoint) > $2
ORDER BY count DESC`
	return r.suspicious(ctx, "endpoint scanning", query, since, threshold)
}

// RepeatedOffenders lists identifiers blocked more than threshold times since the given time.
// Only block events inside the lookback count; the lifetime block_count on the entry does not.
func (r *RateLimitRepository) RepeatedOffenders(ctx context.Context, since time.Time, threshold int) ([]models.SuspiciousIdentifier, error) {
	const query = `SELECT identifier, COUNT(*) AS count
FROM rate_limit_block_events
WHERE blocked_at >= $1
GROUP BY identifier
HAVING COUNT(*) > $2
ORDER BY count DESC`
	return r.suspicious(ctx, "repeated offenders", query, since, threshold)
}

func (r *RateLimitRepository) suspicious(ctx context.Context, label, query string, since time.Time, threshold int) ([]models.SuspiciousIdentifier, error) {
	matches := make([]models.SuspiciousIdentifier, 0)
	if err := r.db.SelectContext(ctx, &matches, query, since, threshold); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", label, err)
	}
	return matches, nil
}

// DeleteWindowsEndedBefore removes stale entries and block events and reports how many entries were deleted.
func (r *RateLimitRepository) DeleteWindowsEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rate_limit_entries WHERE window_end < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup rate limit entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup rate limit rows: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rate_limit_block_events WHERE blocked_at < $1`, cutoff); err != nil {
		return affected, fmt.Errorf("cleanup rate limit block events: %w", err)
	}
	return affected, nil
}
