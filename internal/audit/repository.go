package audit

import (
	"context"
	"encoding/json"

	"hotelapi/pkg/db"
)

const (
	ActionAPIKeyCreated = "API_KEY_CREATED"
	ActionAPIKeyRevoked = "API_KEY_REVOKED"
	ActionLogin         = "LOGIN"
	ActionBookingDelete = "BOOKING_DELETED"
	ActionPriceChanged  = "PRICE_CHANGED"
	ActionPriceReset    = "PRICE_RESET"
)

// Insert records a security-relevant action. bookingID is nil for actions not
// tied to a booking.
func Insert(ctx context.Context, q db.Querier, userID *int64, bookingID *int64, action, actor string, metadata any) error {
	var s *string
	if metadata != nil {
		b, _ := json.Marshal(metadata)
		str := string(b)
		s = &str
	}
	const stmt = `
INSERT INTO audit_logs (user_id, booking_id, action, actor, metadata)
VALUES ($1, $2, $3, $4, CAST($5 AS jsonb))
`
	_, err := q.Exec(ctx, stmt, userID, bookingID, action, actor, s)
	return err
}
