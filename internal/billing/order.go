package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hotelapi/internal/booking"
	"hotelapi/pkg/db"
)

// Service kinds materialised from the booking's extension charges.
const (
	ServiceEarlyCheckin = "early_checkin"
	ServiceLateCheckout = "late_checkout"
	ServiceManual       = "manual"
)

// Charge is an additional service billed with the rooms.
type Charge struct {
	Kind      string
	ProductID *int64
	Name      string
	Amount    decimal.Decimal
}

func named(name *string, fallback string) string {
	if name != nil && strings.TrimSpace(*name) != "" {
		return *name
	}
	return fallback
}

// Charges lists the booking's early check-in, late checkout and manual service
// amounts. Zero amounts are skipped.
func Charges(b *booking.Booking) []Charge {
	var out []Charge
	if b.EarlyCheckinCharge.IsPositive() {
		out = append(out, Charge{ServiceEarlyCheckin, b.EarlyCheckinProductID,
			named(b.EarlyCheckinProductName, "Check-in temprano"), b.EarlyCheckinCharge})
	}
	if b.LateCheckoutCharge.IsPositive() {
		out = append(out, Charge{ServiceLateCheckout, b.LateCheckoutProductID,
			named(b.LateCheckoutProductName, "Check-out tardío"), b.LateCheckoutCharge})
	}
	if b.ManualServiceAmount.IsPositive() {
		out = append(out, Charge{ServiceManual, nil,
			named(&b.ManualServiceDescription, "Servicio manual"), b.ManualServiceAmount})
	}
	return out
}

// OrderLine is a sale order line as billed.
type OrderLine struct {
	ID            int64           `json:"id"`
	BookingLineID *int64          `json:"booking_line_id"`
	ServiceID     *int64          `json:"service_id"`
	ProductID     *int64          `json:"product_id"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	PriceUnit     decimal.Decimal `json:"price_unit"`
	Discount      decimal.Decimal `json:"discount"`
	TaxPercent    decimal.Decimal `json:"tax_percent"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

func (l OrderLine) Tax() decimal.Decimal {
	return l.Subtotal.Mul(l.TaxPercent).Div(hundred).Round(currencyScale)
}

// OrderAmounts totals the order lines. The booking discount lowers the
// untaxed amount, never below zero.
func OrderAmounts(lines []OrderLine, discount decimal.Decimal) (untaxed, tax, total decimal.Decimal) {
	for _, l := range lines {
		untaxed = untaxed.Add(l.Subtotal)
		tax = tax.Add(l.Tax())
	}
	untaxed = untaxed.Sub(discount)
	if untaxed.IsNegative() {
		untaxed = decimal.Zero
	}
	untaxed = untaxed.Round(currencyScale)
	return untaxed, tax, untaxed.Add(tax)
}

// CreateOrder bills a confirmed booking: one line per room, one per extension
// charge, and links the order to the booking.
func CreateOrder(ctx context.Context, tx pgx.Tx, b *booking.Booking) (int64, error) {
	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('sale_order_number_seq')`).Scan(&seq); err != nil {
		return 0, err
	}
	const insOrder = `
INSERT INTO sale_orders (name, booking_id, partner_id, company_id, currency, state)
VALUES ($1, $2, $3, $4, $5, 'sale')
RETURNING id
`
	var orderID int64
	if err := tx.QueryRow(ctx, insOrder, fmt.Sprintf("SO%05d", seq), b.ID, b.PartnerID, b.CompanyID, b.Currency).Scan(&orderID); err != nil {
		return 0, err
	}

	lines, err := booking.Lines(ctx, tx, b.ID)
	if err != nil {
		return 0, err
	}
	const insLine = `
INSERT INTO sale_order_lines (order_id, booking_line_id, product_id, name, quantity, price_unit, discount, tax_percent, subtotal)
VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric)
`
	for _, l := range lines {
		lineID, productID := l.ID, l.ProductID
		name := fmt.Sprintf("%s (%s)", l.RoomName, l.SequenceID)
		if _, err := tx.Exec(ctx, insLine, orderID, &lineID, &productID, name,
			db.Str(l.BookingDays), db.Str(l.Price), db.Str(l.Discount), db.Str(l.TaxPercent), db.Str(l.Subtotal())); err != nil {
			return 0, err
		}
	}

	if err := EnsureServices(ctx, tx, b); err != nil {
		return 0, err
	}
	if _, err := SyncOrder(ctx, tx, orderID, b.ID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE bookings SET order_id = $2, updated_at = NOW() WHERE id = $1`, b.ID, orderID); err != nil {
		return 0, err
	}
	b.OrderID = &orderID
	return orderID, nil
}

// ConfirmHook adapts CreateOrder to the booking status flow.
func ConfirmHook(ctx context.Context, tx pgx.Tx, b *booking.Booking) error {
	_, err := CreateOrder(ctx, tx, b)
	return err
}

// EnsureServices keeps one booking_services row per extension charge, in step
// with the booking amounts.
func EnsureServices(ctx context.Context, tx pgx.Tx, b *booking.Booking) error {
	const upd = `
UPDATE booking_services
SET amount = $3::numeric, name = $4, product_id = $5
WHERE booking_id = $1 AND kind = $2
`
	const ins = `
INSERT INTO booking_services (booking_id, kind, amount, name, product_id)
VALUES ($1, $2, $3::numeric, $4, $5)
`
	for _, c := range Charges(b) {
		tag, err := tx.Exec(ctx, upd, b.ID, c.Kind, db.Str(c.Amount), c.Name, c.ProductID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			continue
		}
		if _, err := tx.Exec(ctx, ins, b.ID, c.Kind, db.Str(c.Amount), c.Name, c.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// SyncOrder adds the booking's services missing from the order and refreshes
// the order totals. It returns how many lines were added.
func SyncOrder(ctx context.Context, tx pgx.Tx, orderID, bookingID int64) (int, error) {
	const stmt = `
INSERT INTO sale_order_lines (order_id, service_id, product_id, name, quantity, price_unit, subtotal)
SELECT $1, s.id, s.product_id, s.name, 1, s.amount, s.amount
FROM booking_services s
WHERE s.booking_id = $2
  AND NOT EXISTS (SELECT 1 FROM sale_order_lines l WHERE l.order_id = $1 AND l.service_id = s.id)
ORDER BY s.id
`
	tag, err := tx.Exec(ctx, stmt, orderID, bookingID)
	if err != nil {
		return 0, err
	}
	if err := refreshOrder(ctx, tx, orderID); err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func refreshOrder(ctx context.Context, tx pgx.Tx, orderID int64) error {
	lines, err := OrderLines(ctx, tx, orderID)
	if err != nil {
		return err
	}
	var discount string
	const qDiscount = `
SELECT COALESCE(b.booking_discount, 0)::text
FROM sale_orders o
LEFT JOIN bookings b ON b.id = o.booking_id
WHERE o.id = $1
`
	if err := tx.QueryRow(ctx, qDiscount, orderID).Scan(&discount); err != nil {
		return err
	}
	untaxed, tax, total := OrderAmounts(lines, db.Dec(discount))
	const upd = `
UPDATE sale_orders
SET amount_untaxed = $2::numeric, amount_tax = $3::numeric, amount_total = $4::numeric
WHERE id = $1
`
	_, err = tx.Exec(ctx, upd, orderID, db.Str(untaxed), db.Str(tax), db.Str(total))
	return err
}
