package db

import (
	"context"
	"database/sql"
)

const bookingColumns = `id, date, time, duration, status, name, phone, notes, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID,
		&b.Date,
		&b.Time,
		&b.Duration,
		&b.Status,
		&b.Name,
		&b.Phone,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func (q *Queries) queryBookings(ctx context.Context, query string, args ...any) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ListActiveBookingsByDate returns the occupying rows (pending or confirmed)
// for one calendar date, ordered by time ascending.
func (q *Queries) ListActiveBookingsByDate(ctx context.Context, date string) ([]Booking, error) {
	return q.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE date = ? AND status IN (?, ?)
		 ORDER BY time ASC`,
		date, BookingStatusPending, BookingStatusConfirmed)
}

// ListBookingsByDate returns every booking row for a date regardless of
// status, ordered by time ascending.
func (q *Queries) ListBookingsByDate(ctx context.Context, date string) ([]Booking, error) {
	return q.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE date = ?
		 ORDER BY time ASC`,
		date)
}

// GetBookingByID fetches one booking or sql.ErrNoRows.
func (q *Queries) GetBookingByID(ctx context.Context, id int64) (Booking, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

type CreateBookingParams struct {
	Date     string
	Time     string
	Duration int64
	Name     string
	Phone    string
	Notes    sql.NullString
}

// CreateBooking inserts a pending booking. The partial unique index on active
// (date, time) pairs makes this the serialization point for slot contention;
// callers translate a unique violation into a conflict response.
func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO bookings (date, time, duration, status, name, phone, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Date, arg.Time, arg.Duration, BookingStatusPending, arg.Name, arg.Phone, arg.Notes)
	if err != nil {
		return Booking{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Booking{}, err
	}
	return q.GetBookingByID(ctx, id)
}

type UpdateBookingStatusParams struct {
	ID     int64
	Status string
}

// UpdateBookingStatus transitions a booking and returns the number of rows
// changed (zero when the id does not exist).
func (q *Queries) UpdateBookingStatus(ctx context.Context, arg UpdateBookingStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE bookings SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		arg.Status, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExpireStalePendingBookings cancels pending bookings created before the
// cutoff (an SQLite datetime string) and returns the number cancelled.
func (q *Queries) ExpireStalePendingBookings(ctx context.Context, cutoff string) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE bookings SET status = ?, updated_at = datetime('now')
		WHERE status = ? AND created_at < ?`,
		BookingStatusCancelled, BookingStatusPending, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
