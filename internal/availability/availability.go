// Package availability computes bookable time slots for a calendar day.
// It is a pure function of its inputs: the caller supplies the clock, the
// booking policy, and the rows already loaded for the date, and it never
// touches the store itself.
package availability

import (
	"fmt"
	"time"
)

const (
	// DefaultDuration is the slot length assumed when the caller omits one.
	DefaultDuration = 60

	// fallbackOpenMinutes/fallbackCloseMinutes bound the hourly grid used
	// when no operating hours are configured for the weekday.
	fallbackOpenMinutes  = 9 * 60
	fallbackCloseMinutes = 18 * 60
)

// BookingRow is an occupying reservation loaded for the target date.
// Only pending/confirmed rows should be passed in.
type BookingRow struct {
	Time     string
	Duration int
}

// BlockRow is an admin-defined unavailable interval. Virtual rows are
// display-only markers and never exclude a slot.
type BlockRow struct {
	Time      string
	Duration  int
	IsVirtual bool
}

// Window is one operating-hours span for the weekday of the target date.
type Window struct {
	StartTime string
	EndTime   string
}

// Input carries everything Compute needs. Date must be a calendar day in the
// same location as Now.
type Input struct {
	Date     time.Time
	Duration int
	Now      time.Time
	Settings Settings
	Bookings []BookingRow
	Blocks   []BlockRow
	Hours    []Window
}

// Debug mirrors the diagnostic block the endpoint has always exposed.
type Debug struct {
	BlocksFromDB      int    `json:"blocks_from_db"`
	BlockedSlotsCount int    `json:"blocked_slots_count"`
	BlockedSlots      []Span `json:"blocked_slots"`
	VirtualSlotsCount int    `json:"virtual_slots_count"`
}

// Result is the assembled availability for one date. When Restriction is
// non-empty the time lists are empty and Message explains the rejection.
// ParseErrors records rows that were dropped during normalization; they are
// for logging only and never fail the computation.
type Result struct {
	AvailableTimes []string
	VirtualTimes   []string
	BookedTimes    []string
	BlockedTimes   []string
	TotalBookings  int
	TotalVirtual   int
	Restriction    string
	Message        string
	Debug          Debug
	ParseErrors    []error
}

// Compute runs the full pipeline: restriction gate, interval normalization,
// slot generation, and result assembly.
func Compute(in Input) Result {
	duration := in.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}

	result := Result{
		AvailableTimes: []string{},
		VirtualTimes:   []string{},
		BookedTimes:    []string{},
		BlockedTimes:   []string{},
		TotalBookings:  len(in.Bookings),
	}

	if code, message := CheckDate(in.Now, in.Date, in.Settings); code != "" {
		result.Restriction = code
		result.Message = message
		return result
	}

	booked, bookedStarts, parseErrs := normalizeBookings(in.Bookings, duration)
	result.ParseErrors = append(result.ParseErrors, parseErrs...)

	blocked, virtual, parseErrs := normalizeBlocks(in.Blocks)
	result.ParseErrors = append(result.ParseErrors, parseErrs...)

	result.Debug = Debug{
		BlocksFromDB:      len(in.Blocks),
		BlockedSlotsCount: len(blocked),
		BlockedSlots:      spans(blocked),
		VirtualSlotsCount: len(virtual),
	}

	isToday := midnight(in.Date).Equal(midnight(in.Now))
	minAdvance := time.Duration(in.Settings.MinAdvanceHours) * time.Hour
	earliestStart := in.Now.Add(minAdvance)

	var available []string
	if len(in.Hours) > 0 {
		available = generateFromWindows(in, duration, isToday, earliestStart, booked, blocked, &result)
	} else {
		available = generateFallback(in, duration, isToday, earliestStart, booked, blocked)
	}

	result.AvailableTimes = uniqueClocks(available)
	sortClocks(result.AvailableTimes)

	virtualStarts := make([]string, 0, len(virtual))
	for _, iv := range virtual {
		virtualStarts = append(virtualStarts, formatClock(iv.Start))
	}
	result.VirtualTimes = uniqueClocks(excludeClocks(virtualStarts, result.AvailableTimes))
	sortClocks(result.VirtualTimes)

	result.BookedTimes = uniqueClocks(excludeClocks(bookedStarts, result.AvailableTimes))
	sortClocks(result.BookedTimes)

	if len(in.Hours) > 0 {
		result.BlockedTimes = blockedWindowStarts(in.Hours, result.AvailableTimes, blocked)
	}

	result.TotalVirtual = len(result.VirtualTimes)
	return result
}

// generateFromWindows emits each configured window's start time as the sole
// candidate slot for that window, matching the behavior the booking form has
// always relied on.
func generateFromWindows(in Input, duration int, isToday bool, earliestStart time.Time, booked, blocked []Interval, result *Result) []string {
	var available []string
	for _, window := range in.Hours {
		startClock, err := NormalizeClock(window.StartTime)
		if err != nil {
			result.ParseErrors = append(result.ParseErrors, fmt.Errorf("operating window start %q: %w", window.StartTime, err))
			continue
		}
		endMinutes, err := ClockToMinutes(window.EndTime)
		if err != nil {
			result.ParseErrors = append(result.ParseErrors, fmt.Errorf("operating window end %q: %w", window.EndTime, err))
			continue
		}
		startMinutes, _ := ClockToMinutes(startClock)
		slot := Interval{Start: startMinutes, End: startMinutes + duration}

		if isToday && clockOnDate(in.Date, startMinutes).Before(earliestStart) {
			continue
		}
		if slot.End > endMinutes {
			continue
		}
		if overlapsAny(slot, booked) {
			continue
		}
		// Blocks reject on "slot start inside block" in addition to plain
		// overlap. Stricter than the booking check on purpose; do not unify
		// without product sign-off.
		if blockedStrict(slot, blocked) {
			continue
		}
		available = append(available, startClock)
	}
	return available
}

// generateFallback walks a fixed hourly 09:00-18:00 grid when the weekday has
// no configured windows. Block avoidance here is the plain overlap test.
func generateFallback(in Input, duration int, isToday bool, earliestStart time.Time, booked, blocked []Interval) []string {
	var available []string
	for start := fallbackOpenMinutes; start < fallbackCloseMinutes; start += 60 {
		slot := Interval{Start: start, End: start + duration}

		if isToday && clockOnDate(in.Date, start).Before(earliestStart) {
			continue
		}
		if slot.End > fallbackCloseMinutes {
			continue
		}
		if overlapsAny(slot, booked) {
			continue
		}
		if overlapsAny(slot, blocked) {
			continue
		}
		available = append(available, formatClock(start))
	}
	return available
}

// blockedWindowStarts lists configured window starts that are not available
// because their start minute falls inside a blocked interval.
func blockedWindowStarts(hours []Window, available []string, blocked []Interval) []string {
	taken := make(map[string]struct{}, len(available))
	for _, clock := range available {
		taken[clock] = struct{}{}
	}

	var out []string
	for _, window := range hours {
		startClock, err := NormalizeClock(window.StartTime)
		if err != nil {
			continue
		}
		if _, ok := taken[startClock]; ok {
			continue
		}
		startMinutes, _ := ClockToMinutes(startClock)
		for _, iv := range blocked {
			if iv.Contains(startMinutes) {
				out = append(out, startClock)
				break
			}
		}
	}

	out = uniqueClocks(out)
	sortClocks(out)
	if out == nil {
		out = []string{}
	}
	return out
}

func normalizeBookings(rows []BookingRow, fallbackDuration int) ([]Interval, []string, []error) {
	intervals := make([]Interval, 0, len(rows))
	starts := make([]string, 0, len(rows))
	var errs []error
	for _, row := range rows {
		clock, err := NormalizeClock(row.Time)
		if err != nil {
			errs = append(errs, fmt.Errorf("booking time %q dropped: %w", row.Time, err))
			continue
		}
		start, _ := ClockToMinutes(clock)
		duration := row.Duration
		if duration <= 0 {
			duration = fallbackDuration
		}
		intervals = append(intervals, Interval{Start: start, End: start + duration})
		starts = append(starts, clock)
	}
	return intervals, starts, errs
}

func normalizeBlocks(rows []BlockRow) (blocked, virtual []Interval, errs []error) {
	for _, row := range rows {
		clock, err := NormalizeClock(row.Time)
		if err != nil {
			errs = append(errs, fmt.Errorf("block time %q dropped: %w", row.Time, err))
			continue
		}
		start, _ := ClockToMinutes(clock)
		duration := row.Duration
		if duration <= 0 {
			duration = DefaultDuration
		}
		iv := Interval{Start: start, End: start + duration}
		if row.IsVirtual {
			virtual = append(virtual, iv)
		} else {
			blocked = append(blocked, iv)
		}
	}
	return blocked, virtual, errs
}

func overlapsAny(slot Interval, intervals []Interval) bool {
	for _, iv := range intervals {
		if slot.Overlaps(iv) {
			return true
		}
	}
	return false
}

func blockedStrict(slot Interval, blocked []Interval) bool {
	for _, iv := range blocked {
		if iv.Contains(slot.Start) || slot.Overlaps(iv) {
			return true
		}
	}
	return false
}

func spans(intervals []Interval) []Span {
	out := make([]Span, 0, len(intervals))
	for _, iv := range intervals {
		out = append(out, iv.span())
	}
	return out
}

func clockOnDate(date time.Time, minutesOfDay int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), minutesOfDay/60, minutesOfDay%60, 0, 0, date.Location())
}
