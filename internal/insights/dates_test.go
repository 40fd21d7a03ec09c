package insights

import (
	"testing"
	"time"
)

func TestDaysInRangeInclusive(t *testing.T) {
	days := daysInRange(day(2026, 1, 14), day(2026, 1, 16))
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if !days[0].Equal(day(2026, 1, 14)) || !days[2].Equal(day(2026, 1, 16)) {
		t.Fatalf("unexpected bounds %v", days)
	}
}

func TestDaysInRangeSingleDay(t *testing.T) {
	days := daysInRange(day(2026, 1, 15), day(2026, 1, 15))
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
}

func TestDaysInRangeTruncatesClockTime(t *testing.T) {
	from := time.Date(2026, 1, 14, 23, 59, 0, 0, time.UTC)
	to := time.Date(2026, 1, 15, 0, 1, 0, 0, time.UTC)
	days := daysInRange(from, to)
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if !days[0].Equal(day(2026, 1, 14)) {
		t.Fatalf("expected midnight start, got %v", days[0])
	}
}

func TestDaysInRangeInvertedIsNil(t *testing.T) {
	if days := daysInRange(day(2026, 1, 16), day(2026, 1, 14)); days != nil {
		t.Fatalf("expected nil for inverted range, got %v", days)
	}
}

func TestDateKeyIsUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	late := time.Date(2026, 1, 14, 22, 0, 0, 0, est)
	if got := dateKey(late); got != "2026-01-15" {
		t.Fatalf("expected UTC day key, got %s", got)
	}
}
