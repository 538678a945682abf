package db

import "context"

const settingsColumns = `id, disable_same_day_booking, disable_weekend_booking,
	min_advance_hours, max_advance_days, max_weekly_slots,
	auto_block_excess_slots, show_call_message, call_message_text, updated_at`

// GetBookingSettings fetches the policy row with the given id.
// Returns sql.ErrNoRows when the singleton has not been created yet.
func (q *Queries) GetBookingSettings(ctx context.Context, id string) (BookingSettings, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM booking_settings WHERE id = ?`, id)

	var s BookingSettings
	err := row.Scan(
		&s.ID,
		&s.DisableSameDayBooking,
		&s.DisableWeekendBooking,
		&s.MinAdvanceHours,
		&s.MaxAdvanceDays,
		&s.MaxWeeklySlots,
		&s.AutoBlockExcessSlots,
		&s.ShowCallMessage,
		&s.CallMessageText,
		&s.UpdatedAt,
	)
	return s, err
}

type UpsertBookingSettingsParams struct {
	ID                    string
	DisableSameDayBooking bool
	DisableWeekendBooking bool
	MinAdvanceHours       int64
	MaxAdvanceDays        int64
	MaxWeeklySlots        int64
	AutoBlockExcessSlots  bool
	ShowCallMessage       bool
	CallMessageText       string
}

// UpsertBookingSettings writes the singleton policy row and returns it.
func (q *Queries) UpsertBookingSettings(ctx context.Context, arg UpsertBookingSettingsParams) (BookingSettings, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO booking_settings (
			id, disable_same_day_booking, disable_weekend_booking,
			min_advance_hours, max_advance_days, max_weekly_slots,
			auto_block_excess_slots, show_call_message, call_message_text, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			disable_same_day_booking = excluded.disable_same_day_booking,
			disable_weekend_booking = excluded.disable_weekend_booking,
			min_advance_hours = excluded.min_advance_hours,
			max_advance_days = excluded.max_advance_days,
			max_weekly_slots = excluded.max_weekly_slots,
			auto_block_excess_slots = excluded.auto_block_excess_slots,
			show_call_message = excluded.show_call_message,
			call_message_text = excluded.call_message_text,
			updated_at = datetime('now')`,
		arg.ID,
		arg.DisableSameDayBooking,
		arg.DisableWeekendBooking,
		arg.MinAdvanceHours,
		arg.MaxAdvanceDays,
		arg.MaxWeeklySlots,
		arg.AutoBlockExcessSlots,
		arg.ShowCallMessage,
		arg.CallMessageText,
	)
	if err != nil {
		return BookingSettings{}, err
	}
	return q.GetBookingSettings(ctx, arg.ID)
}
