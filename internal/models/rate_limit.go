package models

import "time"

// RateLimitEntry tracks requests for one (identifier, endpoint) pair.
type RateLimitEntry struct {
	Identifier   string    `db:"identifier" json:"identifier"`
	Endpoint     string    `db:"endpoint" json:"endpoint"`
	RequestCount int       `db:"request_count" json:"requestCount"`
	WindowStart  time.Time `db:"window_start" json:"windowStart"`
	WindowEnd    time.Time `db:"window_end" json:"windowEnd"`
	IsBlocked    bool      `db:"is_blocked" json:"isBlocked"`
	BlockCount   int       `db:"block_count" json:"blockCount"`
	LastRequest  time.Time `db:"last_request" json:"lastRequest"`
	BlockReason  *string   `db:"block_reason" json:"blockReason,omitempty"`
}

// RateLimitRule is static throttling configuration for an endpoint or pattern.
type RateLimitRule struct {
	Endpoint      string        `json:"endpoint"`
	Window        time.Duration `json:"-"`
	MaxRequests   int           `json:"maxRequests"`
	BlockDuration time.Duration `json:"-"`
}

// RateLimitDecision is the outcome of a rate-limit check. A denial is a value, not an error.
type RateLimitDecision struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetTime  time.Time `json:"resetTime"`
	RetryAfter int       `json:"retryAfter,omitempty"`
	WindowMs   int64     `json:"windowMs"`
}

// Unlimited marks a decision with no applicable quota.
const Unlimited = -1

// RateLimitTimeframe selects the lookback window for statistics.
type RateLimitTimeframe string

const (
	TimeframeHour RateLimitTimeframe = "hour"
	TimeframeDay  RateLimitTimeframe = "day"
	TimeframeWeek RateLimitTimeframe = "week"
)

// Duration returns the lookback for the timeframe, defaulting to one hour.
func (t RateLimitTimeframe) Duration() time.Duration {
	switch t {
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// EndpointRateStats aggregates traffic for one endpoint.
type EndpointRateStats struct {
	Endpoint          string `db:"endpoint" json:"endpoint"`
	TotalRequests     int64  `db:"total_requests" json:"totalRequests"`
	BlockedCount      int64  `db:"blocked_count" json:"blockedCount"`
	UniqueIdentifiers int64  `db:"unique_identifiers" json:"uniqueIdentifiers"`
}

// RateLimitOffender is an identifier with high request volume.
type RateLimitOffender struct {
	Identifier    string `db:"identifier" json:"identifier"`
	TotalRequests int64  `db:"total_requests" json:"totalRequests"`
	Endpoints     int64  `db:"endpoints" json:"endpoints"`
}

// RateLimitStats summarises tracker state over a timeframe.
type RateLimitStats struct {
	Timeframe        RateLimitTimeframe  `json:"timeframe"`
	Endpoints        []EndpointRateStats `json:"endpoints"`
	TopOffenders     []RateLimitOffender `json:"topOffenders"`
	CurrentlyBlocked []RateLimitEntry    `json:"currentlyBlocked"`
	GeneratedAt      time.Time           `json:"generatedAt"`
}

// SuspiciousPatternType labels the heuristic that produced a pattern.
type SuspiciousPatternType string

const (
	PatternHighVolume       SuspiciousPatternType = "high_volume"
	PatternEndpointScanning SuspiciousPatternType = "endpoint_scanning"
	PatternRepeatedOffender SuspiciousPatternType = "repeated_offender"
)

// SuspiciousIdentifier is one matching identifier with the metric that triggered it.
type SuspiciousIdentifier struct {
	Identifier string `db:"identifier" json:"identifier"`
	Count      int64  `db:"count" json:"count"`
}

// SuspiciousPattern groups identifiers flagged by one heuristic.
type SuspiciousPattern struct {
	Type        SuspiciousPatternType  `json:"type"`
	Description string                 `json:"description"`
	Severity    string                 `json:"severity"`
	Identifiers []SuspiciousIdentifier `json:"identifiers"`
}
