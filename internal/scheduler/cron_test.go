package scheduler

import (
	"testing"
	"time"
)

func TestNextCronMatchWildcardEveryMinute(t *testing.T) {
	from := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	got, err := nextCronMatch("* * * * *", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := from.Add(time.Minute)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNextCronMatchSpecificHourAndMinute(t *testing.T) {
	from := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	got, err := nextCronMatch("30 14 * * *", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 1, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNextCronMatchRollsToNextDayWhenTimePassed(t *testing.T) {
	from := time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC)
	got, err := nextCronMatch("30 14 * * *", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 2, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNextCronMatchCommaListOfValues(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := nextCronMatch("0 6,18 * * *", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNextCronMatchDayOfWeekFilter(t *testing.T) {
	// 2026-01-01 is a Thursday (weekday 4). Ask for Mondays (1) at 09:00.
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := nextCronMatch("0 9 * * 1", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Weekday() != time.Monday {
		t.Fatalf("expected next match to land on Monday, got %v", got.Weekday())
	}
	if got.Hour() != 9 || got.Minute() != 0 {
		t.Fatalf("expected 09:00, got %02d:%02d", got.Hour(), got.Minute())
	}
}

func TestParseCronExprRejectsWrongFieldCount(t *testing.T) {
	if _, err := parseCronExpr("* * * *"); err == nil {
		t.Fatalf("expected error for 4-field expression")
	}
}

func TestParseCronExprRejectsOutOfRangeValue(t *testing.T) {
	if _, err := parseCronExpr("60 * * * *"); err == nil {
		t.Fatalf("expected error for out-of-range minute")
	}
}
