package availability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Interval is a half-open [Start, End) range in minutes of day. End may pass
// midnight when a row's duration runs over 24:00; overlap math stays valid.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && iv.End > other.Start
}

// Contains reports whether the minute offset falls inside [Start, End).
func (iv Interval) Contains(minute int) bool {
	return minute >= iv.Start && minute < iv.End
}

// Span is an interval rendered back to clock strings for debug output.
type Span struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NormalizeClock canonicalizes the time formats stored by the admin tooling:
// "11" becomes "11:00", "11:00:00" becomes "11:00", "11:00" passes through.
// Hour and minute must parse and sit in 0-23 / 0-59.
func NormalizeClock(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("empty time value")
	}

	parts := strings.Split(value, ":")
	switch len(parts) {
	case 1:
		parts = append(parts, "00")
	case 2, 3:
		// seconds, if present, are discarded
	default:
		return "", fmt.Errorf("malformed time %q", raw)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", fmt.Errorf("malformed hour in %q", raw)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", fmt.Errorf("malformed minute in %q", raw)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("time %q out of range", raw)
	}
	return formatClock(hour*60 + minute), nil
}

// ClockToMinutes converts a canonical "HH:MM" clock to minutes of day.
func ClockToMinutes(clock string) (int, error) {
	canonical, err := NormalizeClock(clock)
	if err != nil {
		return 0, err
	}
	hour, _ := strconv.Atoi(canonical[:2])
	minute, _ := strconv.Atoi(canonical[3:])
	return hour*60 + minute, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func (iv Interval) span() Span {
	return Span{Start: formatClock(iv.Start), End: formatClock(iv.End)}
}

// sortClocks orders canonical "HH:MM" strings ascending by (hour, minute).
// Lexicographic order coincides for zero-padded clocks, but the comparison is
// kept numeric to match the contract.
func sortClocks(clocks []string) {
	sort.Slice(clocks, func(i, j int) bool {
		a, _ := ClockToMinutes(clocks[i])
		b, _ := ClockToMinutes(clocks[j])
		return a < b
	})
}

// uniqueClocks deduplicates while preserving first-seen order.
func uniqueClocks(clocks []string) []string {
	seen := make(map[string]struct{}, len(clocks))
	out := make([]string, 0, len(clocks))
	for _, clock := range clocks {
		if _, ok := seen[clock]; ok {
			continue
		}
		seen[clock] = struct{}{}
		out = append(out, clock)
	}
	return out
}

func excludeClocks(clocks []string, exclude []string) []string {
	drop := make(map[string]struct{}, len(exclude))
	for _, clock := range exclude {
		drop[clock] = struct{}{}
	}
	out := make([]string, 0, len(clocks))
	for _, clock := range clocks {
		if _, ok := drop[clock]; ok {
			continue
		}
		out = append(out, clock)
	}
	return out
}
