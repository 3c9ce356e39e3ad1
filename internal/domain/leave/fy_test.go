package leave

import (
	"testing"
	"time"
)

func TestCurrentFinancialYear(t *testing.T) {
	cases := []struct {
		now  time.Time
		want int
	}{
		{date(2025, 1, 15), 2024},
		{date(2025, 3, 31), 2024},
		{date(2025, 4, 1), 2025},
		{date(2025, 12, 31), 2025},
	}
	for _, tc := range cases {
		if got := CurrentFinancialYear(tc.now); got != tc.want {
			t.Fatalf("CurrentFinancialYear(%s): expected %d, got %d", tc.now.Format("2006-01-02"), tc.want, got)
		}
	}
}

func TestResolveFinancialYear(t *testing.T) {
	now := date(2025, 6, 1)
	if got := ResolveFinancialYear(0, now); got != 2025 {
		t.Fatalf("expected 2025, got %d", got)
	}
	if got := ResolveFinancialYear(2023, now); got != 2023 {
		t.Fatalf("expected 2023, got %d", got)
	}
}

func TestFinancialYearSpan(t *testing.T) {
	start := FinancialYearStart(2025)
	end := FinancialYearEnd(2025)
	if start != date(2025, 4, 1) {
		t.Fatalf("expected 2025-04-01, got %s", start)
	}
	if end != date(2026, 3, 31) {
		t.Fatalf("expected 2026-03-31, got %s", end)
	}
	if FinancialYearLabel(2025) != "2025-2026" {
		t.Fatalf("unexpected label %s", FinancialYearLabel(2025))
	}
}
