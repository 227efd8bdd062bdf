package events

import (
	"context"
	"time"

	"hotelapi/pkg/db"
)

type Event struct {
	ID            int64     `json:"id"`
	BookingID     int64     `json:"booking_id"`
	BookingLineID *int64    `json:"booking_line_id,omitempty"`
	EventType     string    `json:"event_type"`
	Summary       string    `json:"summary"`
	Actor         string    `json:"actor"`
	OccurredAt    time.Time `json:"date"`
	Data          any       `json:"data,omitempty"`
}

// ListByBooking returns the booking timeline, newest first. eventTypes
// narrows the result when non-empty.
func ListByBooking(ctx context.Context, q db.Querier, bookingID int64, eventTypes []string, limit int) ([]Event, error) {
	const stmt = `
SELECT id, booking_id, booking_line_id, event_type, summary, actor, occurred_at, COALESCE(data, '{}'::jsonb)
FROM booking_events
WHERE booking_id = $1
  AND (cardinality($2::text[]) = 0 OR event_type = ANY($2::text[]))
ORDER BY occurred_at DESC, id DESC
LIMIT $3
`
	if eventTypes == nil {
		eventTypes = []string{}
	}
	return scan(ctx, q, stmt, bookingID, eventTypes, limit)
}

// ListByLine returns the events recorded against one booking line.
func ListByLine(ctx context.Context, q db.Querier, lineID int64, limit int) ([]Event, error) {
	const stmt = `
SELECT id, booking_id, booking_line_id, event_type, summary, actor, occurred_at, COALESCE(data, '{}'::jsonb)
FROM booking_events
WHERE booking_line_id = $1
ORDER BY occurred_at DESC, id DESC
LIMIT $2
`
	return scan(ctx, q, stmt, lineID, limit)
}

func scan(ctx context.Context, q db.Querier, stmt string, args ...any) ([]Event, error) {
	rows, err := q.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.BookingID, &e.BookingLineID, &e.EventType, &e.Summary, &e.Actor, &e.OccurredAt, &e.Data); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
