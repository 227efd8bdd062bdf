package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hotelapi/pkg/db"
)

const bookingSelect = `
SELECT b.id, b.sequence_id, b.partner_id, p.name,
       b.user_id, u.name, b.hotel_id, h.name, b.company_id, c.name, b.pricelist_id, pl.name,
       b.currency, b.check_in, b.check_out, b.status_bar, b.booking_date,
       COALESCE(b.origin, ''), b.booking_reference, COALESCE(b.description, ''),
       COALESCE(b.motivo_viaje, ''), COALESCE(b.cancellation_reason, ''),
       b.booking_discount::text, COALESCE(b.discount_reason, ''),
       b.early_checkin_charge::text, b.late_checkout_charge::text,
       b.early_checkin_product_id, ep.name, b.late_checkout_product_id, lp.name,
       COALESCE(b.manual_service_description, ''), b.manual_service_amount::text,
       b.via_agent, b.agent_id, ag.name, COALESCE(b.commission_type, ''),
       b.agent_commission_amount::text, b.agent_commission_percentage::text,
       b.connected_booking_id, b.split_from_booking_id, b.order_id,
       COALESCE(b.remarks, ''), b.created_at, b.updated_at
FROM bookings b
JOIN partners p ON p.id = b.partner_id
LEFT JOIN users u ON u.id = b.user_id
LEFT JOIN hotels h ON h.id = b.hotel_id
LEFT JOIN companies c ON c.id = b.company_id
LEFT JOIN pricelists pl ON pl.id = b.pricelist_id
LEFT JOIN products ep ON ep.id = b.early_checkin_product_id
LEFT JOIN products lp ON lp.id = b.late_checkout_product_id
LEFT JOIN partners ag ON ag.id = b.agent_id
`

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b                                         Booking
		discount, early, late, manual, cAmt, cPct string
	)
	err := row.Scan(
		&b.ID, &b.SequenceID, &b.PartnerID, &b.PartnerName,
		&b.UserID, &b.UserName, &b.HotelID, &b.HotelName, &b.CompanyID, &b.CompanyName, &b.PricelistID, &b.PricelistName,
		&b.Currency, &b.CheckIn, &b.CheckOut, &b.Status, &b.BookingDate,
		&b.Origin, &b.BookingReference, &b.Description,
		&b.MotivoViaje, &b.CancellationReason,
		&discount, &b.DiscountReason,
		&early, &late,
		&b.EarlyCheckinProductID, &b.EarlyCheckinProductName, &b.LateCheckoutProductID, &b.LateCheckoutProductName,
		&b.ManualServiceDescription, &manual,
		&b.ViaAgent, &b.AgentID, &b.AgentName, &b.CommissionType,
		&cAmt, &cPct,
		&b.ConnectedBookingID, &b.SplitFromBookingID, &b.OrderID,
		&b.Remarks, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.BookingDiscount = db.Dec(discount)
	b.EarlyCheckinCharge = db.Dec(early)
	b.LateCheckoutCharge = db.Dec(late)
	b.ManualServiceAmount = db.Dec(manual)
	b.AgentCommissionAmount = db.Dec(cAmt)
	b.AgentCommissionPercentage = db.Dec(cPct)
	return &b, nil
}

// Get returns nil when the booking does not exist.
func Get(ctx context.Context, q db.Querier, id int64) (*Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, bookingSelect+`WHERE b.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, nil
	}
	return b, err
}

// GetForUpdate locks the booking row for the rest of tx.
func GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx, bookingSelect+`WHERE b.id = $1 FOR UPDATE OF b`, id))
	if db.IsNoRows(err) {
		return nil, nil
	}
	return b, err
}

type ListFilter struct {
	HotelID   *int64
	PartnerID *int64
	UserID    *int64
	RoomID    *int64
	Status    *Status
	DateFrom  *time.Time
	DateTo    *time.Time
	// CheckInFrom and CheckOutTo bound the stay itself rather than
	// matching any overlap.
	CheckInFrom *time.Time
	CheckOutTo  *time.Time
	// GuestID keeps bookings with that guest on any line.
	GuestID *int64
	// Statuses restricts to any of the listed states when non-empty.
	Statuses []Status
	// ExcludeStatuses drops bookings in any of the listed states.
	ExcludeStatuses []Status
	Limit           int
	Offset          int
}

func (f ListFilter) where() *db.Where {
	w := &db.Where{}
	if f.HotelID != nil {
		w.Add("b.hotel_id = $%d", *f.HotelID)
	}
	if f.PartnerID != nil {
		w.Add("b.partner_id = $%d", *f.PartnerID)
	}
	if f.UserID != nil {
		w.Add("b.user_id = $%d", *f.UserID)
	}
	if f.RoomID != nil {
		w.Add("EXISTS (SELECT 1 FROM booking_lines bl WHERE bl.booking_id = b.id AND bl.product_id = $%d)", *f.RoomID)
	}
	if f.Status != nil {
		w.Add("b.status_bar = $%d", string(*f.Status))
	}
	if len(f.Statuses) > 0 {
		s := make([]string, len(f.Statuses))
		for i, v := range f.Statuses {
			s[i] = string(v)
		}
		w.Add("b.status_bar = ANY($%d)", s)
	}
	if len(f.ExcludeStatuses) > 0 {
		s := make([]string, len(f.ExcludeStatuses))
		for i, v := range f.ExcludeStatuses {
			s[i] = string(v)
		}
		w.Add("b.status_bar <> ALL($%d)", s)
	}
	if f.DateFrom != nil {
		w.Add("b.check_out >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.Add("b.check_in < $%d", f.DateTo.AddDate(0, 0, 1))
	}
	if f.CheckInFrom != nil {
		w.Add("b.check_in >= $%d", *f.CheckInFrom)
	}
	if f.CheckOutTo != nil {
		w.Add("b.check_out <= $%d", *f.CheckOutTo)
	}
	if f.GuestID != nil {
		w.Add(`EXISTS (SELECT 1 FROM booking_lines bl JOIN booking_line_guests g ON g.booking_line_id = bl.id
WHERE bl.booking_id = b.id AND g.id = $%d)`, *f.GuestID)
	}
	return w
}

// List returns matching bookings newest first plus the unpaginated count.
func List(ctx context.Context, q db.Querier, f ListFilter) ([]*Booking, int, error) {
	w := f.where()

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM bookings b `+w.String(), w.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql, args := w.Page(bookingSelect+w.String()+`ORDER BY b.check_in DESC, b.id DESC`, f.Limit, f.Offset)

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// SplitChild returns the earliest booking split from id.
func SplitChild(ctx context.Context, q db.Querier, id int64) (*Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, bookingSelect+`WHERE b.split_from_booking_id = $1 ORDER BY b.id LIMIT 1`, id))
	if db.IsNoRows(err) {
		return nil, nil
	}
	return b, err
}

// QuerierChain adapts a Querier to ChainSource.
type QuerierChain struct{ Q db.Querier }

func (c QuerierChain) Booking(ctx context.Context, id int64) (*Booking, error) {
	return Get(ctx, c.Q, id)
}

func (c QuerierChain) SplitChild(ctx context.Context, id int64) (*Booking, error) {
	return SplitChild(ctx, c.Q, id)
}

const lineSelect = `
SELECT l.id, l.booking_id, l.booking_sequence_id, l.product_id, pr.name, COALESCE(pr.code, ''), COALESCE(pr.barcode, ''),
       pr.max_adult, pr.max_child, l.booking_days::text, l.price::text, l.original_price::text,
       l.discount::text, COALESCE(l.discount_reason, ''), l.tax_percent::text, COALESCE(l.description, ''),
       l.is_room_change_segment, l.previous_line_id, prev.booking_sequence_id, l.next_line_id, nxt.booking_sequence_id
FROM booking_lines l
JOIN products pr ON pr.id = l.product_id
LEFT JOIN booking_lines prev ON prev.id = l.previous_line_id
LEFT JOIN booking_lines nxt ON nxt.id = l.next_line_id
`

func scanLine(row pgx.Row) (*Line, error) {
	var (
		l                                 Line
		days, price, discount, taxPercent string
		original                          *string
	)
	if err := row.Scan(
		&l.ID, &l.BookingID, &l.SequenceID, &l.ProductID, &l.RoomName, &l.RoomCode, &l.RoomBarcode,
		&l.MaxAdult, &l.MaxChild, &days, &price, &original,
		&discount, &l.DiscountReason, &taxPercent, &l.Description,
		&l.IsRoomChangeSegment, &l.PreviousLineID, &l.PreviousLineSeq, &l.NextLineID, &l.NextLineSeq,
	); err != nil {
		return nil, err
	}
	l.BookingDays = db.Dec(days)
	l.Price = db.Dec(price)
	l.OriginalPrice = db.DecPtr(original)
	l.Discount = db.Dec(discount)
	l.TaxPercent = db.Dec(taxPercent)
	return &l, nil
}

// Lines loads a booking's lines with their guests, in creation order.
func Lines(ctx context.Context, q db.Querier, bookingID int64) ([]Line, error) {
	rows, err := q.Query(ctx, lineSelect+`WHERE l.booking_id = $1 ORDER BY l.id`, bookingID)
	if err != nil {
		return nil, err
	}
	var out []Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	lineIDs := make([]int64, len(out))
	index := make(map[int64]int, len(out))
	for i, l := range out {
		lineIDs[i] = l.ID
		index[l.ID] = i
	}
	guests, err := guestsByLines(ctx, q, lineIDs)
	if err != nil {
		return nil, err
	}
	for _, g := range guests {
		i := index[g.LineID]
		out[i].Guests = append(out[i].Guests, g)
	}
	return out, nil
}

// LineByID returns nil when the line does not exist.
func LineByID(ctx context.Context, q db.Querier, id int64) (*Line, error) {
	l, err := scanLine(q.QueryRow(ctx, lineSelect+`WHERE l.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	guests, err := guestsByLines(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	l.Guests = guests
	return l, nil
}

func guestsByLines(ctx context.Context, q db.Querier, lineIDs []int64) ([]Guest, error) {
	const stmt = `
SELECT id, booking_line_id, partner_id, name, age, gender
FROM booking_line_guests
WHERE booking_line_id = ANY($1)
ORDER BY id
`
	rows, err := q.Query(ctx, stmt, lineIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Guest
	for rows.Next() {
		var g Guest
		if err := rows.Scan(&g.ID, &g.LineID, &g.PartnerID, &g.Name, &g.Age, &g.Gender); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func Documents(ctx context.Context, q db.Querier, bookingID int64) ([]Document, error) {
	const stmt = `
SELECT id, booking_id, name, file_name, content_type, blob_key, file_size
FROM booking_documents
WHERE booking_id = $1
ORDER BY id
`
	rows, err := q.Query(ctx, stmt, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.BookingID, &d.Name, &d.FileName, &d.ContentType, &d.BlobKey, &d.FileSize); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func DocumentByID(ctx context.Context, q db.Querier, bookingID, docID int64) (*Document, error) {
	const stmt = `
SELECT id, booking_id, name, file_name, content_type, blob_key, file_size
FROM booking_documents
WHERE booking_id = $1 AND id = $2
`
	var d Document
	err := q.QueryRow(ctx, stmt, bookingID, docID).Scan(&d.ID, &d.BookingID, &d.Name, &d.FileName, &d.ContentType, &d.BlobKey, &d.FileSize)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func SaleOrders(ctx context.Context, q db.Querier, bookingID int64) ([]SaleOrderRef, error) {
	const stmt = `
SELECT id, name, state, amount_total::text, currency
FROM sale_orders
WHERE booking_id = $1
ORDER BY id
`
	rows, err := q.Query(ctx, stmt, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SaleOrderRef{}
	for rows.Next() {
		var (
			o     SaleOrderRef
			total string
		)
		if err := rows.Scan(&o.ID, &o.Name, &o.State, &total, &o.Currency); err != nil {
			return nil, err
		}
		o.AmountTotal = db.Dec(total)
		out = append(out, o)
	}
	return out, rows.Err()
}

// NewBooking carries the insert values of a booking header.
type NewBooking struct {
	PartnerID          int64
	UserID             *int64
	HotelID            *int64
	CompanyID          *int64
	PricelistID        *int64
	Currency           string
	CheckIn            time.Time
	CheckOut           time.Time
	Status             Status
	BookingDate        time.Time
	Origin             *string
	BookingReference   *string
	Description        *string
	MotivoViaje        *string
	CancellationReason *string

	BookingDiscount          decimal.Decimal
	DiscountReason           *string
	EarlyCheckinCharge       decimal.Decimal
	LateCheckoutCharge       decimal.Decimal
	EarlyCheckinProductID    *int64
	LateCheckoutProductID    *int64
	ManualServiceDescription *string
	ManualServiceAmount      decimal.Decimal

	Agent AgentInput

	ConnectedBookingID *int64
	SplitFromBookingID *int64
}

// Insert creates the header and returns its id and BK/ sequence.
func Insert(ctx context.Context, tx pgx.Tx, nb NewBooking) (int64, string, error) {
	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('booking_number_seq')`).Scan(&seq); err != nil {
		return 0, "", err
	}
	sequenceID := fmt.Sprintf("BK/%05d", seq)

	commissionType := nb.Agent.CommissionType
	if nb.Agent.ViaAgent && commissionType == "" {
		commissionType = "fixed"
	}
	cAmt, cPct := decimal.Zero, decimal.Zero
	if nb.Agent.AgentCommissionAmount != nil {
		cAmt = *nb.Agent.AgentCommissionAmount
	}
	if nb.Agent.AgentCommissionPercentage != nil {
		cPct = *nb.Agent.AgentCommissionPercentage
	}
	var agentID *int64
	var ct *string
	if nb.Agent.ViaAgent {
		agentID = nb.Agent.AgentID
		ct = &commissionType
	}

	const stmt = `
INSERT INTO bookings (
    sequence_id, partner_id, user_id, hotel_id, company_id, pricelist_id, currency,
    check_in, check_out, status_bar, booking_date, origin, booking_reference, description,
    motivo_viaje, cancellation_reason, booking_discount, discount_reason,
    early_checkin_charge, late_checkout_charge, early_checkin_product_id, late_checkout_product_id,
    manual_service_description, manual_service_amount,
    via_agent, agent_id, commission_type, agent_commission_amount, agent_commission_percentage,
    connected_booking_id, split_from_booking_id
) VALUES (
    $1, $2, $3, $4, $5, $6, $7,
    $8, $9, $10, $11, $12, $13, $14,
    $15, $16, $17::numeric, $18,
    $19::numeric, $20::numeric, $21, $22,
    $23, $24::numeric,
    $25, $26, $27, $28::numeric, $29::numeric,
    $30, $31
)
RETURNING id
`
	var id int64
	err := tx.QueryRow(ctx, stmt,
		sequenceID, nb.PartnerID, nb.UserID, nb.HotelID, nb.CompanyID, nb.PricelistID, nb.Currency,
		nb.CheckIn, nb.CheckOut, string(nb.Status), nb.BookingDate, nb.Origin, nb.BookingReference, nb.Description,
		nb.MotivoViaje, nb.CancellationReason, db.Str(nb.BookingDiscount), nb.DiscountReason,
		db.Str(nb.EarlyCheckinCharge), db.Str(nb.LateCheckoutCharge), nb.EarlyCheckinProductID, nb.LateCheckoutProductID,
		nb.ManualServiceDescription, db.Str(nb.ManualServiceAmount),
		nb.Agent.ViaAgent, agentID, ct, db.Str(cAmt), db.Str(cPct),
		nb.ConnectedBookingID, nb.SplitFromBookingID,
	).Scan(&id)
	if err != nil {
		return 0, "", err
	}
	return id, sequenceID, nil
}

// NewLine carries the insert values of a booking line.
type NewLine struct {
	ProductID           int64
	BookingDays         decimal.Decimal
	Price               decimal.Decimal
	OriginalPrice       *decimal.Decimal
	Discount            decimal.Decimal
	TaxPercent          decimal.Decimal
	Description         *string
	IsRoomChangeSegment bool
	PreviousLineID      *int64
}

// InsertLine numbers the line after the booking's existing lines.
func InsertLine(ctx context.Context, tx pgx.Tx, bookingID int64, sequenceID string, nl NewLine) (int64, error) {
	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM booking_lines WHERE booking_id = $1`, bookingID).Scan(&n); err != nil {
		return 0, err
	}
	const stmt = `
INSERT INTO booking_lines (
    booking_id, booking_sequence_id, product_id, booking_days, price, original_price,
    discount, tax_percent, description, is_room_change_segment, previous_line_id
) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11)
RETURNING id
`
	var id int64
	err := tx.QueryRow(ctx, stmt,
		bookingID, fmt.Sprintf("%s-%02d", sequenceID, n+1), nl.ProductID,
		db.Str(nl.BookingDays), db.Str(nl.Price), db.StrPtr(nl.OriginalPrice),
		db.Str(nl.Discount), db.Str(nl.TaxPercent), nl.Description, nl.IsRoomChangeSegment, nl.PreviousLineID,
	).Scan(&id)
	return id, err
}

func InsertGuest(ctx context.Context, q db.Querier, lineID int64, g Guest) error {
	const stmt = `
INSERT INTO booking_line_guests (booking_line_id, partner_id, name, age, gender)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := q.Exec(ctx, stmt, lineID, g.PartnerID, g.Name, g.Age, g.Gender)
	return err
}

func DeleteGuests(ctx context.Context, q db.Querier, lineID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM booking_line_guests WHERE booking_line_id = $1`, lineID)
	return err
}

func InsertDocument(ctx context.Context, q db.Querier, d Document) (int64, error) {
	const stmt = `
INSERT INTO booking_documents (booking_id, name, file_name, content_type, blob_key, file_size)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`
	var id int64
	err := q.QueryRow(ctx, stmt, d.BookingID, d.Name, d.FileName, d.ContentType, d.BlobKey, d.FileSize).Scan(&id)
	return id, err
}

// Change is one column assignment of an UPDATE. Column names come from code,
// never from request input.
type Change struct {
	Column string
	Value  any
}

// Update applies changes to the booking header and bumps updated_at.
func Update(ctx context.Context, q db.Querier, id int64, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	sets := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+1)
	for _, c := range changes {
		args = append(args, c.Value)
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Column, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	_, err := q.Exec(ctx, fmt.Sprintf("UPDATE bookings SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)), args...)
	return err
}

func SetStatus(ctx context.Context, q db.Querier, id int64, s Status) error {
	return Update(ctx, q, id, []Change{{"status_bar", string(s)}})
}

// SetLineDays overwrites booking_days on every line of the booking.
func SetLineDays(ctx context.Context, q db.Querier, bookingID int64, days decimal.Decimal) error {
	_, err := q.Exec(ctx, `UPDATE booking_lines SET booking_days = $1::numeric, updated_at = NOW() WHERE booking_id = $2`, db.Str(days), bookingID)
	return err
}

func SetOneLineDays(ctx context.Context, q db.Querier, lineID int64, days decimal.Decimal) error {
	_, err := q.Exec(ctx, `UPDATE booking_lines SET booking_days = $1::numeric, updated_at = NOW() WHERE id = $2`, db.Str(days), lineID)
	return err
}

// SetRoomStatus updates the housekeeping status of every room in the booking.
func SetRoomStatus(ctx context.Context, q db.Querier, bookingID int64, roomStatus string) error {
	const stmt = `
UPDATE products SET room_status = $1
WHERE id IN (SELECT product_id FROM booking_lines WHERE booking_id = $2)
`
	_, err := q.Exec(ctx, stmt, roomStatus, bookingID)
	return err
}

func Delete(ctx context.Context, q db.Querier, id int64) error {
	_, err := q.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	return err
}

// QuerierCatalog implements Catalog over a Querier.
type QuerierCatalog struct{ Q db.Querier }

func (c QuerierCatalog) Product(ctx context.Context, id int64) (*Product, error) {
	return ProductByID(ctx, c.Q, id)
}

func (c QuerierCatalog) PartnerExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := c.Q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM partners WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (c QuerierCatalog) HotelExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := c.Q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM hotels WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

// ProductByID returns nil when the product does not exist.
func ProductByID(ctx context.Context, q db.Querier, id int64) (*Product, error) {
	const stmt = `
SELECT id, hotel_id, name, COALESCE(code, ''), is_room_type, list_price::text, tax_percent::text,
       max_adult, max_child, active
FROM products
WHERE id = $1
`
	var (
		p         Product
		list, tax string
	)
	err := q.QueryRow(ctx, stmt, id).Scan(&p.ID, &p.HotelID, &p.Name, &p.Code, &p.IsRoomType, &list, &tax, &p.MaxAdult, &p.MaxChild, &p.Active)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ListPrice = db.Dec(list)
	p.TaxPercent = db.Dec(tax)
	return &p, nil
}

// PartnerName returns "" when the partner does not exist.
func PartnerName(ctx context.Context, q db.Querier, id int64) (string, error) {
	var name string
	err := q.QueryRow(ctx, `SELECT name FROM partners WHERE id = $1`, id).Scan(&name)
	if db.IsNoRows(err) {
		return "", nil
	}
	return name, err
}

// HotelName reports the hotel's name and whether it exists.
func HotelName(ctx context.Context, q db.Querier, id int64) (string, bool, error) {
	var name string
	err := q.QueryRow(ctx, `SELECT name FROM hotels WHERE id = $1`, id).Scan(&name)
	if db.IsNoRows(err) {
		return "", false, nil
	}
	return name, err == nil, err
}

// Currency picks the pricelist currency, then the hotel's, then fallback.
func Currency(ctx context.Context, q db.Querier, hotelID, pricelistID *int64, fallback string) (string, error) {
	const stmt = `
SELECT COALESCE(
    (SELECT currency FROM pricelists WHERE id = $1),
    (SELECT currency FROM hotels WHERE id = $2),
    $3
)
`
	var c string
	err := q.QueryRow(ctx, stmt, pricelistID, hotelID, fallback).Scan(&c)
	return c, err
}

type EmailRequest struct {
	BookingID     int64
	TemplateXMLID string
	ForceSend     bool
	EmailValues   map[string]any
	RequestedBy   *int64
}

func InsertEmailRequest(ctx context.Context, q db.Querier, e EmailRequest) (int64, error) {
	values, _ := json.Marshal(e.EmailValues)
	const stmt = `
INSERT INTO email_requests (booking_id, template_xml_id, force_send, email_values, requested_by)
VALUES ($1, $2, $3, CAST($4 AS jsonb), $5)
RETURNING id
`
	var id int64
	err := q.QueryRow(ctx, stmt, e.BookingID, e.TemplateXMLID, e.ForceSend, string(values), e.RequestedBy).Scan(&id)
	return id, err
}
