package db

import "context"

const hourColumns = `id, day_of_week, start_time, end_time, is_available`

func (q *Queries) queryHours(ctx context.Context, query string, args ...any) ([]OperatingHour, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []OperatingHour
	for rows.Next() {
		var h OperatingHour
		if err := rows.Scan(&h.ID, &h.DayOfWeek, &h.StartTime, &h.EndTime, &h.IsAvailable); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// ListOperatingHours returns every configured window across all weekdays.
func (q *Queries) ListOperatingHours(ctx context.Context) ([]OperatingHour, error) {
	return q.queryHours(ctx,
		`SELECT `+hourColumns+` FROM booking_hours
		 ORDER BY day_of_week ASC, start_time ASC`)
}

// ListAvailableHoursByWeekday returns the bookable windows for one weekday
// (0=Sunday..6=Saturday), ordered by start time.
func (q *Queries) ListAvailableHoursByWeekday(ctx context.Context, dayOfWeek int64) ([]OperatingHour, error) {
	return q.queryHours(ctx,
		`SELECT `+hourColumns+` FROM booking_hours
		 WHERE day_of_week = ? AND is_available = 1
		 ORDER BY start_time ASC`,
		dayOfWeek)
}

// DeleteOperatingHoursForDay clears all windows for a weekday.
func (q *Queries) DeleteOperatingHoursForDay(ctx context.Context, dayOfWeek int64) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		`DELETE FROM booking_hours WHERE day_of_week = ?`, dayOfWeek)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type InsertOperatingWindowParams struct {
	DayOfWeek   int64
	StartTime   string
	EndTime     string
	IsAvailable bool
}

// InsertOperatingWindow adds one window to a weekday.
func (q *Queries) InsertOperatingWindow(ctx context.Context, arg InsertOperatingWindowParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO booking_hours (day_of_week, start_time, end_time, is_available)
		VALUES (?, ?, ?, ?)`,
		arg.DayOfWeek, arg.StartTime, arg.EndTime, arg.IsAvailable)
	return err
}
