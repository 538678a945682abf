package db

import "database/sql"

// Booking statuses. Only pending and confirmed rows occupy a slot.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// BookingSettings is the singleton policy row keyed by a fixed UUID.
type BookingSettings struct {
	ID                    string `json:"id"`
	DisableSameDayBooking bool   `json:"disable_same_day_booking"`
	DisableWeekendBooking bool   `json:"disable_weekend_booking"`
	MinAdvanceHours       int64  `json:"min_advance_hours"`
	MaxAdvanceDays        int64  `json:"max_advance_days"`
	MaxWeeklySlots        int64  `json:"max_weekly_slots"`
	AutoBlockExcessSlots  bool   `json:"auto_block_excess_slots"`
	ShowCallMessage       bool   `json:"show_call_message"`
	CallMessageText       string `json:"call_message_text"`
	UpdatedAt             string `json:"updated_at"`
}

// Booking is a customer reservation on a calendar date.
// Date is "YYYY-MM-DD" and Time is stored as entered by the writer; readers
// normalize it before doing interval math.
type Booking struct {
	ID        int64          `json:"id"`
	Date      string         `json:"date"`
	Time      string         `json:"time"`
	Duration  int64          `json:"duration"`
	Status    string         `json:"status"`
	Name      string         `json:"name"`
	Phone     string         `json:"phone"`
	Notes     sql.NullString `json:"notes"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// BookingBlock is an admin-defined unavailable interval. Virtual rows are
// display-only reservation markers.
type BookingBlock struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Duration  int64  `json:"duration"`
	IsVirtual bool   `json:"is_virtual"`
	CreatedAt string `json:"created_at"`
}

// OperatingHour is one bookable window for a weekday (0=Sunday..6=Saturday).
// A weekday may carry several disjoint windows.
type OperatingHour struct {
	ID          int64  `json:"id"`
	DayOfWeek   int64  `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}
