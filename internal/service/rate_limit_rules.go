package service

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
)

// RuleSet resolves an endpoint key ("METHOD /path") to exactly one throttling rule.
type RuleSet struct {
	exact    map[string]models.RateLimitRule
	patterns []models.RateLimitRule
	fallback *models.RateLimitRule
}

// DefaultRateLimitRules returns the built-in rules for the report and admin endpoints mounted under apiPrefix.
func DefaultRateLimitRules(apiPrefix string) []models.RateLimitRule {
	prefix := strings.TrimRight(apiPrefix, "/")
	return []models.RateLimitRule{
		{Endpoint: "POST " + prefix + "/reports/export", Window: time.Minute, MaxRequests: 10},
		{Endpoint: "POST " + prefix + "/reports/email", Window: time.Hour, MaxRequests: 20},
		{Endpoint: "POST " + prefix + "/scheduled-reports/*/execute", Window: time.Minute, MaxRequests: 5},
		{Endpoint: "POST " + prefix + "/rate-limits/*", Window: time.Minute, MaxRequests: 30},
	}
}

// NewRuleSet builds a rule set. A nil fallback leaves unmatched endpoints unlimited.
func NewRuleSet(rules []models.RateLimitRule, fallback *models.RateLimitRule) *RuleSet {
	rs := &RuleSet{exact: make(map[string]models.RateLimitRule), fallback: fallback}
	for _, rule := range rules {
		if strings.ContainsAny(rule.Endpoint, "*?[") {
			rs.patterns = append(rs.patterns, rule)
			continue
		}
		rs.exact[rule.Endpoint] = rule
	}
	return rs
}

// ParseRateLimitRules parses "METHOD /path=windowMs:max[:blockMs]" entries separated by commas.
func ParseRateLimitRules(raw string) ([]models.RateLimitRule, error) {
	var rules []models.RateLimitRule
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		idx := strings.LastIndex(item, "=")
		if idx <= 0 {
			return nil, fmt.Errorf("rate limit rule %q: missing '='", item)
		}
		endpoint := strings.TrimSpace(item[:idx])
		parts := strings.Split(item[idx+1:], ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("rate limit rule %q: expected windowMs:max[:blockMs]", item)
		}
		values := make([]int64, len(parts))
		for i, part := range parts {
			v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("rate limit rule %q: invalid number %q", item, part)
			}
			values[i] = v
		}
		if values[0] == 0 || values[1] == 0 {
			return nil, fmt.Errorf("rate limit rule %q: window and max must be positive", item)
		}
		rule := models.RateLimitRule{
			Endpoint:    endpoint,
			Window:      time.Duration(values[0]) * time.Millisecond,
			MaxRequests: int(values[1]),
		}
		if len(values) == 3 {
			rule.BlockDuration = time.Duration(values[2]) * time.Millisecond
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Resolve returns the exact rule, then the first matching pattern, then the fallback.
func (r *RuleSet) Resolve(endpoint string) (models.RateLimitRule, bool) {
	if r == nil {
		return models.RateLimitRule{}, false
	}
	if rule, ok := r.exact[endpoint]; ok {
		return rule, true
	}
	for _, rule := range r.patterns {
		if matched, err := path.Match(rule.Endpoint, endpoint); err == nil && matched {
			return rule, true
		}
		if strings.HasSuffix(rule.Endpoint, "*") && strings.HasPrefix(endpoint, strings.TrimSuffix(rule.Endpoint, "*")) {
			return rule, true
		}
	}
	if r.fallback != nil {
		return *r.fallback, true
	}
	return models.RateLimitRule{}, false
}
