package gantt

import (
	"context"
	"time"

	"hotelapi/internal/booking"
	"hotelapi/pkg/db"
)

// Rooms returns the active room products, by name.
func Rooms(ctx context.Context, q db.Querier, hotelID *int64) ([]Room, error) {
	const stmt = `
SELECT p.id, p.name, COALESCE(p.code, ''), p.max_adult, p.max_child, p.list_price::text,
       p.hotel_id, h.name, p.room_status
FROM products p
LEFT JOIN hotels h ON h.id = p.hotel_id
WHERE p.is_room_type AND p.active AND ($1::bigint IS NULL OR p.hotel_id = $1)
ORDER BY p.name, p.id
LIMIT $2
`
	rows, err := q.Query(ctx, stmt, hotelID, roomLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Room{}
	for rows.Next() {
		var (
			r     Room
			price string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Code, &r.MaxAdult, &r.MaxChild, &price,
			&r.HotelID, &r.HotelName, &r.Status); err != nil {
			return nil, err
		}
		r.Price = db.Dec(price)
		r.Capacity = r.MaxAdult + r.MaxChild
		out = append(out, r)
	}
	return out, rows.Err()
}

// Reservations loads the visible bookings overlapping the days from..to
// (both inclusive) and splits each into its line segments.
func Reservations(ctx context.Context, q db.Querier, hotelID *int64, from, to time.Time, loc *time.Location) ([]Reservation, error) {
	bookings, _, err := booking.List(ctx, q, booking.ListFilter{
		HotelID:         hotelID,
		DateFrom:        &from,
		DateTo:          &to,
		ExcludeStatuses: Hidden,
	})
	if err != nil {
		return nil, err
	}

	out := []Reservation{}
	for _, b := range bookings {
		lines, err := booking.Lines(ctx, q, b.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Segments(b, lines, loc)...)
	}
	return out, nil
}
