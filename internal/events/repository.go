package events

import (
	"context"
	"encoding/json"
	"time"

	"hotelapi/pkg/db"
)

const (
	TypeCreated       = "BOOKING_CREATED"
	TypeUpdated       = "BOOKING_UPDATED"
	TypeStatusChanged = "STATUS_CHANGED"
	TypeCancelled     = "BOOKING_CANCELLED"
	TypeRoomsAdded    = "ROOMS_ADDED"
	TypeGuestsUpdated = "GUESTS_UPDATED"
	TypePriceChanged  = "PRICE_CHANGED"
	TypePriceReset    = "PRICE_RESET"
	TypePricingEdited = "PRICING_UPDATED"
	TypeRoomChanged   = "ROOM_CHANGED"
	TypeNote          = "NOTE"
	TypeEmailRequest  = "EMAIL_REQUESTED"
	TypeInvoice       = "INVOICE_CREATED"
	TypePayment       = "PAYMENT_REGISTERED"
	TypeServicesSync  = "SERVICES_SYNCED"
)

// Insert appends a row to the booking timeline. lineID scopes the event to a
// single booking line (price changes).
func Insert(ctx context.Context, q db.Querier, bookingID int64, lineID *int64, eventType, summary, actor string, occurredAt time.Time, data any) error {
	var s *string
	if data != nil {
		b, _ := json.Marshal(data)
		str := string(b)
		s = &str
	}
	const stmt = `
INSERT INTO booking_events (booking_id, booking_line_id, event_type, summary, actor, occurred_at, data)
VALUES ($1, $2, $3, $4, $5, $6, CAST($7 AS jsonb))
`
	_, err := q.Exec(ctx, stmt, bookingID, lineID, eventType, summary, actor, occurredAt, s)
	return err
}
