package availability

import (
	"fmt"
	"time"
)

// Restriction codes returned when a date is rejected before slot math runs.
const (
	RestrictionSameDay    = "same_day_disabled"
	RestrictionPastDate   = "past_date"
	RestrictionWeekend    = "weekend_disabled"
	RestrictionMaxAdvance = "max_advance_days"
)

// CheckDate evaluates date-level restrictions in policy order and returns the
// first code that trips along with its user-facing message. An empty code
// means slot generation may proceed.
func CheckDate(now, date time.Time, settings Settings) (string, string) {
	today := midnight(now)
	day := midnight(date)
	isToday := day.Equal(today)

	if settings.DisableSameDayBooking && isToday {
		return RestrictionSameDay, "Same-day booking is not available. Please choose a later date."
	}

	if day.Before(today) {
		return RestrictionPastDate, "Past dates cannot be selected."
	}

	if settings.DisableWeekendBooking {
		weekday := day.Weekday()
		if weekday == time.Sunday || weekday == time.Saturday {
			if settings.ShowCallMessage {
				return RestrictionWeekend, callPrompt
			}
			return RestrictionWeekend, "Weekend booking is not available. Please choose a weekday."
		}
	}

	maxAdvanceDays := settings.MaxAdvanceDays
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = DefaultSettings().MaxAdvanceDays
	}
	if daysBetween(today, day) > maxAdvanceDays {
		if settings.ShowCallMessage {
			return RestrictionMaxAdvance, callPrompt
		}
		return RestrictionMaxAdvance, fmt.Sprintf("Bookings can be made up to %d days in advance.", maxAdvanceDays)
	}

	return "", ""
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b. Both arguments must already be
// local midnights; rounding absorbs DST-shortened or -lengthened days.
func daysBetween(a, b time.Time) int {
	hours := b.Sub(a).Hours()
	if hours >= 0 {
		return int(hours/24 + 0.5)
	}
	return -int(-hours/24 + 0.5)
}
