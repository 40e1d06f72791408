package models

import "time"

// DeriveEventStatus computes an event's status from its date relative to now,
// comparing calendar days in now's location. Cancelled is sticky.
func DeriveEventStatus(date time.Time, current EventStatus, now time.Time) EventStatus {
	if current == StatusCancelled {
		return StatusCancelled
	}
	start, next := DayBounds(now)
	switch {
	case !date.Before(next):
		return StatusUpcoming
	case !date.Before(start):
		return StatusOngoing
	default:
		return StatusCompleted
	}
}

// DayBounds returns the start of now's day and the start of the following day.
func DayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

func NoticeExpiredAt(expiry *time.Time, now time.Time) bool {
	return expiry != nil && !expiry.After(now)
}

// NoticeActiveAt folds expiry into the stored active flag.
func NoticeActiveAt(isActive bool, expiry *time.Time, now time.Time) bool {
	return isActive && !NoticeExpiredAt(expiry, now)
}

// NoticeVisibleAt is the public visibility rule: active, published and unexpired.
func NoticeVisibleAt(isActive bool, publish time.Time, expiry *time.Time, now time.Time) bool {
	return NoticeActiveAt(isActive, expiry, now) && !publish.After(now)
}
