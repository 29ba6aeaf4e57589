// Package freshness decides whether indexed data for a domain is recent
// enough to serve, or whether a tool should refetch from the upstream API
// and re-index. The oracle is advisory and never fails a request: any
// lookup or parse problem reports "stale" and lets the caller refetch.
package freshness

import (
	"context"
	"time"

	"github.com/gridmind/gridmind/core"
)

// Oracle answers freshness questions against a document index.
type Oracle struct {
	index  core.DocumentIndex
	logger core.Logger
}

// NewOracle creates an oracle over the given index.
func NewOracle(index core.DocumentIndex, logger core.Logger) *Oracle {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Oracle{index: index, logger: logger}
}

// Check reports whether the most relevant indexed record for the filter is
// younger than ttl, and the parsed index timestamp when one exists.
//
// Every failure mode maps to (false, nil): no matching record, a record
// without an indexed_at stamp, an unparseable stamp, or an index lookup
// error. Freshness checks gate a refetch decision and must never escalate
// into a request failure.
func (o *Oracle) Check(ctx context.Context, domain, filterKey, filterValue string, ttl time.Duration) (bool, *time.Time) {
	records, err := o.index.Query(ctx, domain, filterKey, filterValue, 1)
	if err != nil {
		o.logger.Warn("Freshness lookup failed, treating as stale", map[string]interface{}{
			"operation": "freshness_check",
			"domain":    domain,
			"filter":    filterKey + "=" + filterValue,
			"error":     err.Error(),
		})
		return false, nil
	}
	if len(records) == 0 {
		return false, nil
	}

	raw, ok := records[0].Metadata["indexed_at"].(string)
	if !ok || raw == "" {
		return false, nil
	}

	indexedAt, err := parseTimestamp(raw)
	if err != nil {
		o.logger.Warn("Unparseable indexed_at, treating as stale", map[string]interface{}{
			"operation":  "freshness_check",
			"domain":     domain,
			"indexed_at": raw,
			"error":      err.Error(),
		})
		return false, nil
	}

	age := time.Now().UTC().Sub(indexedAt)
	fresh := age < ttl

	o.logger.Debug("Freshness check", map[string]interface{}{
		"operation": "freshness_check",
		"domain":    domain,
		"filter":    filterKey + "=" + filterValue,
		"age":       age.String(),
		"ttl":       ttl.String(),
		"fresh":     fresh,
	})
	return fresh, &indexedAt
}

// parseTimestamp accepts RFC 3339 and the naive variant without a zone
// suffix; zoneless stamps are taken as UTC. The result is always UTC.
func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
