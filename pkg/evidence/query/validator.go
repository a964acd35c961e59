package query

import (
	"fmt"

	"jobboard-hq/custodian/pkg/evidence"
	"jobboard-hq/custodian/pkg/retention"
)

const (
	// DefaultLimit is the number of records returned when Limit is zero.
	DefaultLimit = 100

	// MaxLimit is the maximum number of records in a single query.
	MaxLimit = 10000
)

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

var validOutcomes = map[string]bool{
	string(retention.OutcomeDeleted):       true,
	string(retention.OutcomeAnonymized):    true,
	string(retention.OutcomeSkipped):       true,
	string(retention.OutcomeAlreadyAbsent): true,
	string(retention.OutcomePreviewed):     true,
	string(retention.OutcomeWarned):        true,
	string(retention.OutcomeAlreadyWarned): true,
	string(retention.OutcomeViolation):     true,
	string(retention.OutcomeFailed):        true,
}

// Validate returns a *evidence.QueryError for the first invalid parameter.
func Validate(q *evidence.Query) error {
	if q.Limit < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return evidence.NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}
	if q.Outcome != "" && !validOutcomes[q.Outcome] {
		return evidence.NewQueryError(q, fmt.Errorf("unknown outcome: %s", q.Outcome))
	}
	return nil
}

// ApplyDefaults sets Limit and SortOrder when they are empty.
func ApplyDefaults(q *evidence.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
