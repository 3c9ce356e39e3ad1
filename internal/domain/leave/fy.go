package leave

import (
	"fmt"
	"time"
)

// Financial years run April 1 through March 31. A year label Y covers
// Apr 1 of Y to Mar 31 of Y+1.

func CurrentFinancialYear(now time.Time) int {
	if now.Month() < time.April {
		return now.Year() - 1
	}
	return now.Year()
}

// ResolveFinancialYear returns requested when non-zero, otherwise the
// financial year containing now.
func ResolveFinancialYear(requested int, now time.Time) int {
	if requested != 0 {
		return requested
	}
	return CurrentFinancialYear(now)
}

func FinancialYearStart(year int) time.Time {
	return time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC)
}

func FinancialYearEnd(year int) time.Time {
	return time.Date(year+1, time.March, 31, 0, 0, 0, 0, time.UTC)
}

func FinancialYearLabel(year int) string {
	return fmt.Sprintf("%d-%d", year, year+1)
}
