package availability

import (
	"testing"
	"time"
)

// tuesday returns a fixed reference clock: Tuesday 2026-03-10 10:00 local.
func tuesday() time.Time {
	return time.Date(2026, time.March, 10, 10, 0, 0, 0, time.Local)
}

func TestCheckDatePastDate(t *testing.T) {
	now := tuesday()
	code, _ := CheckDate(now, now.AddDate(0, 0, -1), DefaultSettings())
	if code != RestrictionPastDate {
		t.Fatalf("code = %q, want %q", code, RestrictionPastDate)
	}
}

func TestCheckDateSameDayDisabled(t *testing.T) {
	now := tuesday()
	settings := DefaultSettings()
	settings.DisableSameDayBooking = true

	code, _ := CheckDate(now, now, settings)
	if code != RestrictionSameDay {
		t.Fatalf("code = %q, want %q", code, RestrictionSameDay)
	}

	// Same-day check outranks the past-date check for today itself.
	settings.DisableSameDayBooking = false
	code, _ = CheckDate(now, now, settings)
	if code != "" {
		t.Fatalf("today without restriction: code = %q", code)
	}
}

func TestCheckDateWeekendDisabled(t *testing.T) {
	now := tuesday()
	settings := DefaultSettings()
	settings.DisableWeekendBooking = true

	saturday := now.AddDate(0, 0, 4)
	if saturday.Weekday() != time.Saturday {
		t.Fatalf("fixture drift: %v", saturday.Weekday())
	}
	code, message := CheckDate(now, saturday, settings)
	if code != RestrictionWeekend {
		t.Fatalf("code = %q, want %q", code, RestrictionWeekend)
	}
	if message != callPrompt {
		t.Fatalf("message = %q, want call prompt", message)
	}

	sunday := now.AddDate(0, 0, 5)
	code, _ = CheckDate(now, sunday, settings)
	if code != RestrictionWeekend {
		t.Fatalf("sunday code = %q, want %q", code, RestrictionWeekend)
	}

	settings.ShowCallMessage = false
	_, message = CheckDate(now, saturday, settings)
	if message == callPrompt {
		t.Fatal("expected explicit weekend message when call prompt disabled")
	}
}

func TestCheckDateMaxAdvanceDays(t *testing.T) {
	now := tuesday()
	settings := DefaultSettings()
	settings.MaxAdvanceDays = 14

	code, _ := CheckDate(now, now.AddDate(0, 0, 14), settings)
	if code != "" {
		t.Fatalf("14 days out should pass, got %q", code)
	}

	code, _ = CheckDate(now, now.AddDate(0, 0, 15), settings)
	if code != RestrictionMaxAdvance {
		t.Fatalf("code = %q, want %q", code, RestrictionMaxAdvance)
	}
}

func TestCheckDateOrder(t *testing.T) {
	// A past Saturday must report past_date, not weekend_disabled.
	now := tuesday()
	settings := DefaultSettings()
	settings.DisableWeekendBooking = true

	pastSaturday := now.AddDate(0, 0, -3)
	if pastSaturday.Weekday() != time.Saturday {
		t.Fatalf("fixture drift: %v", pastSaturday.Weekday())
	}
	code, _ := CheckDate(now, pastSaturday, settings)
	if code != RestrictionPastDate {
		t.Fatalf("code = %q, want %q", code, RestrictionPastDate)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.Local)
	if d := daysBetween(a, a.AddDate(0, 0, 15)); d != 15 {
		t.Fatalf("daysBetween = %d, want 15", d)
	}
	if d := daysBetween(a, a.AddDate(0, 0, -2)); d != -2 {
		t.Fatalf("daysBetween = %d, want -2", d)
	}
}
