package rules

import (
	"testing"
	"time"
)

func TestDayKeyUsesTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Minsk")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	utc := time.Date(2026, 2, 8, 21, 30, 0, 0, time.UTC)
	got := DayKey(utc, loc)
	want := "2026-02-09"
	if got != want {
		t.Fatalf("unexpected day key: got %s want %s", got, want)
	}
}

func TestDayKeyDefaultsToUTC(t *testing.T) {
	utc := time.Date(2026, 2, 8, 23, 59, 59, 0, time.UTC)
	got := DayKey(utc, nil)
	want := "2026-02-08"
	if got != want {
		t.Fatalf("unexpected day key: got %s want %s", got, want)
	}
}

func TestNextResetAtUsesTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Minsk")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	now := time.Date(2026, 2, 8, 21, 30, 0, 0, time.UTC) // 00:30 local, Feb 9
	got := NextResetAt(now, loc)
	want := time.Date(2026, 2, 9, 21, 0, 0, 0, time.UTC) // midnight local Feb 10
	if !got.Equal(want) {
		t.Fatalf("unexpected reset_at: got %s want %s", got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}

func TestResetForDayRestoresBaselineOnNewDay(t *testing.T) {
	q := SuperLikeQuota{Remaining: 0, LastResetDate: "2026-10-18"}

	got, reset := q.ResetForDay("2026-10-19", FreeSuperLikesPerDay)
	if !reset {
		t.Fatalf("expected reset on new day")
	}
	if got.Remaining != FreeSuperLikesPerDay || got.LastResetDate != "2026-10-19" {
		t.Fatalf("unexpected quota after reset: %+v", got)
	}
}

func TestResetForDayKeepsSameDayState(t *testing.T) {
	q := SuperLikeQuota{Remaining: 0, LastResetDate: "2026-10-19"}

	got, reset := q.ResetForDay("2026-10-19", FreeSuperLikesPerDay)
	if reset {
		t.Fatalf("unexpected reset within the same day")
	}
	if got.Remaining != 0 {
		t.Fatalf("remaining changed within the same day: %d", got.Remaining)
	}
}

func TestResetForDaySkipsPremium(t *testing.T) {
	q := Premium(SuperLikeQuota{Remaining: 0, LastResetDate: "2026-01-01"})

	got, reset := q.ResetForDay("2026-10-19", FreeSuperLikesPerDay)
	if reset {
		t.Fatalf("premium quota must bypass reset")
	}
	if got.Remaining != PremiumSuperLikeSentinel {
		t.Fatalf("unexpected premium remaining: %d", got.Remaining)
	}
}

func TestConsumeNeverGoesNegative(t *testing.T) {
	q := SuperLikeQuota{Remaining: 1}

	q, ok := q.Consume()
	if !ok || q.Remaining != 0 {
		t.Fatalf("first consume: ok=%v remaining=%d", ok, q.Remaining)
	}

	q, ok = q.Consume()
	if ok {
		t.Fatalf("second consume must be rejected")
	}
	if q.Remaining != 0 {
		t.Fatalf("remaining went below zero: %d", q.Remaining)
	}
}

func TestConsumePremiumDoesNotDecrement(t *testing.T) {
	q := Premium(SuperLikeQuota{})

	for i := 0; i < 3; i++ {
		var ok bool
		q, ok = q.Consume()
		if !ok {
			t.Fatalf("premium consume #%d rejected", i+1)
		}
	}
	if q.Remaining != PremiumSuperLikeSentinel {
		t.Fatalf("premium remaining changed: %d", q.Remaining)
	}
}

func TestResolveLocationFallsBack(t *testing.T) {
	loc, name := ResolveLocation("Not/AZone", "Europe/Minsk")
	if name != "Europe/Minsk" || loc.String() != "Europe/Minsk" {
		t.Fatalf("unexpected fallback zone: %s", name)
	}

	loc, name = ResolveLocation("", "")
	if name != "UTC" || loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", name)
	}
}
