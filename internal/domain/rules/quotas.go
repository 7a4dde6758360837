package rules

import (
	"strings"
	"time"
)

const (
	FreeSuperLikesPerDay     = 1
	PremiumSuperLikeSentinel = 999
)

// SuperLikeQuota is the per-user allowance held on the user row.
type SuperLikeQuota struct {
	IsPremium     bool
	Remaining     int
	LastResetDate string
}

// ResetForDay restores the free baseline when the stored reset date is not
// dayKey. Premium quotas are never reset. The second return reports whether
// a reset happened.
func (q SuperLikeQuota) ResetForDay(dayKey string, baseline int) (SuperLikeQuota, bool) {
	if q.IsPremium {
		return q, false
	}
	if q.LastResetDate == dayKey {
		return q, false
	}
	if baseline < 0 {
		baseline = 0
	}
	q.Remaining = baseline
	q.LastResetDate = dayKey
	return q, true
}

func (q SuperLikeQuota) CanSuperLike() bool {
	return q.IsPremium || q.Remaining > 0
}

// Consume takes one super-like. Premium quotas are left untouched.
func (q SuperLikeQuota) Consume() (SuperLikeQuota, bool) {
	if q.IsPremium {
		return q, true
	}
	if q.Remaining <= 0 {
		q.Remaining = 0
		return q, false
	}
	q.Remaining--
	return q, true
}

func Premium(q SuperLikeQuota) SuperLikeQuota {
	q.IsPremium = true
	q.Remaining = PremiumSuperLikeSentinel
	return q
}

func DayKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}

func NextResetAt(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return next.UTC()
}

// ResolveLocation picks the first loadable zone of explicit, fallback, UTC.
func ResolveLocation(explicit, fallback string) (*time.Location, string) {
	for _, candidate := range []string{explicit, fallback} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		loc, err := time.LoadLocation(candidate)
		if err == nil {
			return loc, candidate
		}
	}
	return time.UTC, "UTC"
}
