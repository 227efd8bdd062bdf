package pricing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hotelapi/internal/booking"
	"hotelapi/pkg/db"
)

// LockLine takes a row lock on the line and returns it with its guests, or
// nil when it does not exist.
func LockLine(ctx context.Context, tx pgx.Tx, id int64) (*booking.Line, error) {
	var bookingID int64
	err := tx.QueryRow(ctx, `SELECT booking_id FROM booking_lines WHERE id = $1 FOR UPDATE`, id).Scan(&bookingID)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return booking.LineByID(ctx, tx, id)
}

// SetLinePrice writes a manual price. original is stored only when the line
// had none yet.
func SetLinePrice(ctx context.Context, q db.Querier, lineID int64, price decimal.Decimal, original *decimal.Decimal, reason string) error {
	const stmt = `
UPDATE booking_lines
SET price = $2::numeric,
    original_price = COALESCE(original_price, $3::numeric),
    discount_reason = $4,
    updated_at = NOW()
WHERE id = $1
`
	_, err := q.Exec(ctx, stmt, lineID, db.Str(price), db.StrPtr(original), reason)
	return err
}

// ResetLinePrice restores the stored original price and clears the discount.
func ResetLinePrice(ctx context.Context, q db.Querier, lineID int64) error {
	const stmt = `
UPDATE booking_lines
SET price = original_price, discount = 0, discount_reason = NULL, updated_at = NOW()
WHERE id = $1 AND original_price IS NOT NULL
`
	_, err := q.Exec(ctx, stmt, lineID)
	return err
}

// Services lists a booking's additional charges in creation order.
func Services(ctx context.Context, q db.Querier, bookingID int64, loc *time.Location) ([]Service, error) {
	const stmt = `
SELECT s.id, s.product_id, COALESCE(p.name, s.name), s.kind, s.amount::text, COALESCE(s.note, ''), s.created_at
FROM booking_services s
LEFT JOIN products p ON p.id = s.product_id
WHERE s.booking_id = $1
ORDER BY s.id
`
	rows, err := q.Query(ctx, stmt, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Service{}
	for rows.Next() {
		var (
			s       Service
			amount  string
			created time.Time
		)
		if err := rows.Scan(&s.ID, &s.ServiceID, &s.ServiceName, &s.Kind, &amount, &s.Note, &created); err != nil {
			return nil, err
		}
		s.Amount = db.Dec(amount)
		s.CreateDate = booking.FormatDateTime(created, loc)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Load builds the Priced view of one booking.
func Load(ctx context.Context, q db.Querier, b *booking.Booking, loc *time.Location) (Priced, error) {
	lines, err := booking.Lines(ctx, q, b.ID)
	if err != nil {
		return Priced{}, err
	}
	services, err := Services(ctx, q, b.ID, loc)
	if err != nil {
		return Priced{}, err
	}
	return Priced{Booking: b, Lines: lines, Services: services}, nil
}

// LoadAll lists the bookings matching f, oldest first, and loads their lines
// and services.
func LoadAll(ctx context.Context, q db.Querier, f booking.ListFilter, loc *time.Location) ([]Priced, error) {
	bookings, _, err := booking.List(ctx, q, f)
	if err != nil {
		return nil, err
	}
	out := make([]Priced, 0, len(bookings))
	for i := len(bookings) - 1; i >= 0; i-- {
		p, err := Load(ctx, q, bookings[i], loc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type UserRef struct {
	ID        int64
	Name      string
	PartnerID *int64
}

// User returns nil when the user does not exist.
func User(ctx context.Context, q db.Querier, id int64) (*UserRef, error) {
	u := UserRef{ID: id}
	err := q.QueryRow(ctx, `SELECT name, partner_id FROM users WHERE id = $1`, id).Scan(&u.Name, &u.PartnerID)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type GuestRef struct {
	ID     int64
	Name   string
	Age    int
	Gender string
}

// Guest returns nil when the guest does not exist.
func Guest(ctx context.Context, q db.Querier, id int64) (*GuestRef, error) {
	g := GuestRef{ID: id}
	err := q.QueryRow(ctx, `SELECT name, age, gender FROM booking_line_guests WHERE id = $1`, id).Scan(&g.Name, &g.Age, &g.Gender)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

type PartnerRef struct {
	ID        int64
	Name      string
	IsCompany bool
	Email     *string
	Phone     *string
	City      *string
	Country   *string
}

// Partner returns nil when the partner does not exist.
func Partner(ctx context.Context, q db.Querier, id int64) (*PartnerRef, error) {
	const stmt = `
SELECT p.name, p.is_company, p.email, p.phone, p.city, c.name
FROM partners p
LEFT JOIN countries c ON c.id = p.country_id
WHERE p.id = $1
`
	p := PartnerRef{ID: id}
	err := q.QueryRow(ctx, stmt, id).Scan(&p.Name, &p.IsCompany, &p.Email, &p.Phone, &p.City, &p.Country)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
