package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hotelapi/pkg/db"
)

type Order struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	BookingID     *int64          `json:"booking_id"`
	PartnerID     int64           `json:"partner_id"`
	PartnerName   string          `json:"partner_name"`
	CompanyID     *int64          `json:"company_id"`
	CompanyName   *string         `json:"company_name"`
	Currency      string          `json:"currency"`
	State         string          `json:"state"`
	AmountUntaxed decimal.Decimal `json:"amount_untaxed"`
	AmountTax     decimal.Decimal `json:"amount_tax"`
	AmountTotal   decimal.Decimal `json:"amount_total"`
	CreatedAt     time.Time       `json:"-"`
}

const orderColumns = `
SELECT o.id, o.name, o.booking_id, o.partner_id, p.name, o.company_id, c.name,
       o.currency, o.state, o.amount_untaxed::text, o.amount_tax::text, o.amount_total::text, o.created_at
FROM sale_orders o
JOIN partners p ON p.id = o.partner_id
LEFT JOIN companies c ON c.id = o.company_id
`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o                   Order
		untaxed, tax, total string
	)
	err := row.Scan(&o.ID, &o.Name, &o.BookingID, &o.PartnerID, &o.PartnerName, &o.CompanyID, &o.CompanyName,
		&o.Currency, &o.State, &untaxed, &tax, &total, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.AmountUntaxed, o.AmountTax, o.AmountTotal = db.Dec(untaxed), db.Dec(tax), db.Dec(total)
	return &o, nil
}

// GetOrder returns nil when the order does not exist.
func GetOrder(ctx context.Context, q db.Querier, id int64) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, orderColumns+`WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// ActiveOrders lists the non-cancelled orders of a booking, including the
// linked order when it belongs to another booking.
func ActiveOrders(ctx context.Context, q db.Querier, bookingID int64, linked *int64) ([]Order, error) {
	rows, err := q.Query(ctx, orderColumns+`
WHERE (o.booking_id = $1 OR o.id = $2) AND o.state IN ('draft', 'sent', 'sale')
ORDER BY o.id`, bookingID, linked)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func OrderLines(ctx context.Context, q db.Querier, orderID int64) ([]OrderLine, error) {
	const stmt = `
SELECT id, booking_line_id, service_id, product_id, name,
       quantity::text, price_unit::text, discount::text, tax_percent::text, subtotal::text
FROM sale_order_lines
WHERE order_id = $1
ORDER BY id
`
	rows, err := q.Query(ctx, stmt, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []OrderLine{}
	for rows.Next() {
		var (
			l                                      OrderLine
			qty, price, discount, taxPct, subtotal string
		)
		if err := rows.Scan(&l.ID, &l.BookingLineID, &l.ServiceID, &l.ProductID, &l.Name,
			&qty, &price, &discount, &taxPct, &subtotal); err != nil {
			return nil, err
		}
		l.Quantity, l.PriceUnit, l.Discount = db.Dec(qty), db.Dec(price), db.Dec(discount)
		l.TaxPercent, l.Subtotal = db.Dec(taxPct), db.Dec(subtotal)
		out = append(out, l)
	}
	return out, rows.Err()
}

// LoadLedger reads the order amounts with its invoice and payment sums.
func LoadLedger(ctx context.Context, q db.Querier, o *Order) (Ledger, error) {
	const stmt = `
SELECT
  COALESCE(SUM(amount_total) FILTER (WHERE kind = 'down_payment'), 0)::text,
  COALESCE(SUM(amount_total + deducted_amount) FILTER (WHERE kind = 'final'), 0)::text,
  COALESCE(SUM(deducted_amount) FILTER (WHERE kind = 'final'), 0)::text,
  (SELECT COALESCE(SUM(CASE WHEN payment_type = 'inbound' THEN amount ELSE -amount END), 0)
     FROM payments WHERE order_id = $1)::text
FROM invoices
WHERE order_id = $1 AND state <> 'cancel'
`
	var dp, final, deducted, paid string
	if err := q.QueryRow(ctx, stmt, o.ID).Scan(&dp, &final, &deducted, &paid); err != nil {
		return Ledger{}, err
	}
	return Ledger{
		OrderUntaxed: o.AmountUntaxed,
		OrderTax:     o.AmountTax,
		OrderTotal:   o.AmountTotal,
		DownPayments: db.Dec(dp),
		FinalGross:   db.Dec(final),
		Deducted:     db.Dec(deducted),
		Paid:         db.Dec(paid),
	}, nil
}

type Invoice struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	MoveType       string          `json:"move_type"`
	Kind           string          `json:"kind"`
	State          string          `json:"state"`
	AmountUntaxed  decimal.Decimal `json:"amount_untaxed"`
	AmountTax      decimal.Decimal `json:"amount_tax"`
	AmountTotal    decimal.Decimal `json:"amount_total"`
	DeductedAmount decimal.Decimal `json:"deducted_amount"`
	Currency       string          `json:"currency"`
	InvoiceDate    string          `json:"invoice_date"`
}

// InsertInvoice posts the planned invoice as INV/<year>/<seq>.
func InsertInvoice(ctx context.Context, tx pgx.Tx, o *Order, bookingID int64, p Plan, date time.Time) (*Invoice, error) {
	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&seq); err != nil {
		return nil, err
	}
	inv := &Invoice{
		Name:           fmt.Sprintf("INV/%d/%05d", date.Year(), seq),
		MoveType:       "out_invoice",
		Kind:           p.Kind,
		State:          "posted",
		AmountUntaxed:  p.Untaxed,
		AmountTax:      p.Tax,
		AmountTotal:    p.Total,
		DeductedAmount: p.Deducted,
		Currency:       o.Currency,
		InvoiceDate:    date.Format("2006-01-02"),
	}
	const stmt = `
INSERT INTO invoices (name, order_id, booking_id, partner_id, currency, move_type, kind, state,
                      amount_untaxed, amount_tax, amount_total, deducted_amount, invoice_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric, $12::numeric, $13::date)
RETURNING id
`
	err := tx.QueryRow(ctx, stmt, inv.Name, o.ID, bookingID, o.PartnerID, inv.Currency, inv.MoveType, inv.Kind, inv.State,
		db.Str(p.Untaxed), db.Str(p.Tax), db.Str(p.Total), db.Str(p.Deducted), inv.InvoiceDate).Scan(&inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func Invoices(ctx context.Context, q db.Querier, orderID int64) ([]Invoice, error) {
	const stmt = `
SELECT id, name, move_type, kind, state, amount_untaxed::text, amount_tax::text, amount_total::text,
       deducted_amount::text, currency, invoice_date
FROM invoices
WHERE order_id = $1
ORDER BY id
`
	rows, err := q.Query(ctx, stmt, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Invoice{}
	for rows.Next() {
		var (
			inv                           Invoice
			untaxed, tax, total, deducted string
			date                          time.Time
		)
		if err := rows.Scan(&inv.ID, &inv.Name, &inv.MoveType, &inv.Kind, &inv.State,
			&untaxed, &tax, &total, &deducted, &inv.Currency, &date); err != nil {
			return nil, err
		}
		inv.AmountUntaxed, inv.AmountTax = db.Dec(untaxed), db.Dec(tax)
		inv.AmountTotal, inv.DeductedAmount = db.Dec(total), db.Dec(deducted)
		inv.InvoiceDate = date.Format("2006-01-02")
		out = append(out, inv)
	}
	return out, rows.Err()
}

type Journal struct {
	ID   int64  `json:"value"`
	Name string `json:"label"`
	Code string `json:"code"`
	Type string `json:"type"`
}

// Journals lists bank and cash journals usable by the company. Journals
// without a company are shared.
func Journals(ctx context.Context, q db.Querier, companyID *int64) ([]Journal, error) {
	const stmt = `
SELECT id, name, code, type
FROM payment_journals
WHERE type IN ('bank', 'cash') AND (company_id IS NULL OR company_id = $1)
ORDER BY id
`
	rows, err := q.Query(ctx, stmt, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Journal{}
	for rows.Next() {
		var j Journal
		if err := rows.Scan(&j.ID, &j.Name, &j.Code, &j.Type); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// JournalByID returns nil when missing.
func JournalByID(ctx context.Context, q db.Querier, id int64) (*Journal, error) {
	var j Journal
	err := q.QueryRow(ctx, `SELECT id, name, code, type FROM payment_journals WHERE id = $1`, id).
		Scan(&j.ID, &j.Name, &j.Code, &j.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

type Payment struct {
	ID          int64           `json:"id"`
	JournalID   int64           `json:"journal_id"`
	JournalName string          `json:"journal_name"`
	PaymentType string          `json:"payment_type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaymentDate string          `json:"payment_date"`
}

type NewPayment struct {
	BookingID   int64
	OrderID     int64
	JournalID   int64
	PaymentType string
	Amount      decimal.Decimal
	Currency    string
	Date        time.Time
	CreatedBy   *int64
}

func InsertPayment(ctx context.Context, q db.Querier, p NewPayment) (int64, error) {
	const stmt = `
INSERT INTO payments (booking_id, order_id, journal_id, payment_type, amount, currency, payment_date, created_by)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7::date, $8)
RETURNING id
`
	var id int64
	err := q.QueryRow(ctx, stmt, p.BookingID, p.OrderID, p.JournalID, p.PaymentType, db.Str(p.Amount),
		p.Currency, p.Date.Format("2006-01-02"), p.CreatedBy).Scan(&id)
	return id, err
}

func Payments(ctx context.Context, q db.Querier, orderID int64) ([]Payment, error) {
	const stmt = `
SELECT p.id, p.journal_id, j.name, p.payment_type, p.amount::text, p.currency, p.payment_date
FROM payments p
JOIN payment_journals j ON j.id = p.journal_id
WHERE p.order_id = $1
ORDER BY p.payment_date, p.id
`
	rows, err := q.Query(ctx, stmt, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Payment{}
	for rows.Next() {
		var (
			p      Payment
			amount string
			date   time.Time
		)
		if err := rows.Scan(&p.ID, &p.JournalID, &p.JournalName, &p.PaymentType, &amount, &p.Currency, &date); err != nil {
			return nil, err
		}
		p.Amount = db.Dec(amount)
		p.PaymentDate = date.Format("2006-01-02")
		out = append(out, p)
	}
	return out, rows.Err()
}
