package leave

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Day quantities carry one fractional digit (half-day granularity).
func RoundDays(days float64) float64 {
	return math.Round(days*10) / 10
}

// CalculateDays returns the inclusive whole-day count between start and end.
func CalculateDays(start, end time.Time) (float64, error) {
	if end.Before(start) {
		return 0, errors.New("end date before start date")
	}
	return end.Sub(start).Hours()/24 + 1, nil
}

// CalculateRequestDays applies the half-day adjustment: a half-day request
// always subtracts exactly 0.5 regardless of which boundary is marked.
func CalculateRequestDays(start, end time.Time, isHalfDay bool) (float64, error) {
	days, err := CalculateDays(start, end)
	if err != nil {
		return 0, err
	}
	if isHalfDay {
		days -= 0.5
	}
	if days <= 0 {
		return 0, errors.New("invalid date range")
	}
	return RoundDays(days), nil
}

// Overlaps reports whether two inclusive date ranges intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// Recompute keeps the ledger invariant: remaining = total - used + carried.
func Recompute(totalDays, usedDays, carriedOverDays float64) float64 {
	return RoundDays(totalDays - usedDays + carriedOverDays)
}

// DefaultCarryOverCap is the policy fallback used at initialization and
// rollover when no override applies.
func DefaultCarryOverCap(typeName string) float64 {
	if strings.Contains(strings.ToLower(typeName), "annual") {
		return 5
	}
	return 0
}

// NameClass normalizes a leave-type name to the policy override classes.
func NameClass(typeName string) string {
	lower := strings.ToLower(typeName)
	switch {
	case strings.Contains(lower, "annual"):
		return "annual"
	case strings.Contains(lower, "sick"):
		return "sick"
	case strings.Contains(lower, "personal"):
		return "personal"
	default:
		return ""
	}
}
