package db

import "context"

const blockColumns = `id, date, time, duration, is_virtual, created_at`

// ListBlocksByDate returns every block and virtual block for one calendar
// date, ordered by time ascending.
func (q *Queries) ListBlocksByDate(ctx context.Context, date string) ([]BookingBlock, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+blockColumns+` FROM booking_blocks
		 WHERE date = ?
		 ORDER BY time ASC`,
		date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []BookingBlock
	for rows.Next() {
		var b BookingBlock
		if err := rows.Scan(&b.ID, &b.Date, &b.Time, &b.Duration, &b.IsVirtual, &b.CreatedAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

type CreateBlockParams struct {
	Date      string
	Time      string
	Duration  int64
	IsVirtual bool
}

// CreateBlock inserts a block or virtual-block row and returns it.
func (q *Queries) CreateBlock(ctx context.Context, arg CreateBlockParams) (BookingBlock, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO booking_blocks (date, time, duration, is_virtual)
		VALUES (?, ?, ?, ?)`,
		arg.Date, arg.Time, arg.Duration, arg.IsVirtual)
	if err != nil {
		return BookingBlock{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return BookingBlock{}, err
	}

	row := q.db.QueryRowContext(ctx,
		`SELECT `+blockColumns+` FROM booking_blocks WHERE id = ?`, id)
	var b BookingBlock
	err = row.Scan(&b.ID, &b.Date, &b.Time, &b.Duration, &b.IsVirtual, &b.CreatedAt)
	return b, err
}

// DeleteBlock removes a block row and returns the number of rows deleted.
func (q *Queries) DeleteBlock(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		`DELETE FROM booking_blocks WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
