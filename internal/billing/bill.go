package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"hotelapi/internal/apperr"
	"hotelapi/internal/booking"
	"hotelapi/internal/pricing"
)

const (
	PrintCombine  = "combine"
	PrintSeparate = "separate"
)

type BillLine struct {
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	PriceUnit   decimal.Decimal `json:"price_unit"`
	Discount    decimal.Decimal `json:"discount"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`

	// Detailed bills only.
	RoomCode *string  `json:"room_code,omitempty"`
	Guests   []string `json:"guests,omitempty"`
}

type BillSection struct {
	Title    string          `json:"title"`
	Lines    []BillLine      `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func (s *BillSection) add(l BillLine) {
	s.Lines = append(s.Lines, l)
	s.Subtotal = s.Subtotal.Add(l.Subtotal)
	s.Tax = s.Tax.Add(l.Tax)
	s.Total = s.Total.Add(l.Total)
}

type Bill struct {
	ReservaID       int64            `json:"reserva_id"`
	SequenceID      string           `json:"sequence_id"`
	Filename        string           `json:"filename"`
	PrintMode       string           `json:"print_mode"`
	Detailed        bool             `json:"detailed"`
	Partner         pricing.Ref      `json:"partner"`
	Hotel           *pricing.Ref     `json:"hotel"`
	Company         *pricing.Ref     `json:"company"`
	CheckIn         string           `json:"check_in"`
	CheckOut        string           `json:"check_out"`
	Currency        pricing.Currency `json:"currency"`
	Sections        []BillSection    `json:"sections"`
	BookingDiscount decimal.Decimal  `json:"booking_discount"`
	AmountUntaxed   decimal.Decimal  `json:"amount_untaxed"`
	TaxAmount       decimal.Decimal  `json:"tax_amount"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	AmountInvoiced  decimal.Decimal  `json:"amount_invoiced"`
	AmountPaid      decimal.Decimal  `json:"amount_paid"`
	AmountDue       decimal.Decimal  `json:"amount_due"`
	Invoices        []Invoice        `json:"invoices"`
	Payments        []Payment        `json:"payments"`
	GeneratedAt     string           `json:"generated_at"`
}

// BillInput is everything a bill is printed from. Ledger, Invoices and
// Payments stay zero for bookings without a sale order.
type BillInput struct {
	Booking  *booking.Booking
	Lines    []booking.Line
	Ledger   Ledger
	Invoices []Invoice
	Payments []Payment
}

func ValidatePrintMode(mode string) (string, error) {
	switch mode {
	case "":
		return PrintCombine, nil
	case PrintCombine, PrintSeparate:
		return mode, nil
	default:
		return "", apperr.Validation(`print_mode debe ser "combine" o "separate".`)
	}
}

func roomLine(l booking.Line, detailed bool) BillLine {
	out := BillLine{
		Kind:        "room",
		Description: l.RoomName + " (" + l.SequenceID + ")",
		Quantity:    l.BookingDays,
		PriceUnit:   l.Price,
		Discount:    l.Discount,
		TaxPercent:  l.TaxPercent,
		Subtotal:    l.Subtotal(),
		Tax:         l.Tax(),
		Total:       l.Taxed(),
	}
	if detailed {
		code := l.RoomCode
		out.RoomCode = &code
		out.Guests = make([]string, 0, len(l.Guests))
		for _, g := range l.Guests {
			out.Guests = append(out.Guests, g.Name)
		}
	}
	return out
}

func chargeLine(c Charge) BillLine {
	return BillLine{
		Kind:        c.Kind,
		Description: c.Name,
		Quantity:    decimal.NewFromInt(1),
		PriceUnit:   c.Amount,
		Subtotal:    c.Amount,
		Total:       c.Amount,
	}
}

// BuildBill lays out the booking bill. combine puts every line in one section;
// separate gives each room its own section and groups the services.
func BuildBill(in BillInput, mode string, detailed bool, loc *time.Location, now time.Time) Bill {
	b := in.Booking
	totals := booking.ComputeTotals(b, in.Lines)

	bill := Bill{
		ReservaID:       b.ID,
		SequenceID:      b.SequenceID,
		Filename:        b.SequenceID + "_bill.json",
		PrintMode:       mode,
		Detailed:        detailed,
		Partner:         pricing.Ref{ID: b.PartnerID, Name: b.PartnerName},
		CheckIn:         booking.FormatDateTime(b.CheckIn, loc),
		CheckOut:        booking.FormatDateTime(b.CheckOut, loc),
		Currency:        pricing.CurrencyOf(b.Currency),
		BookingDiscount: totals.BookingDiscount,
		AmountUntaxed:   totals.AmountUntaxed,
		TaxAmount:       totals.TaxAmount,
		TotalAmount:     totals.Total,
		AmountInvoiced:  in.Ledger.Invoiced(),
		AmountPaid:      in.Ledger.Paid,
		Invoices:        in.Invoices,
		Payments:        in.Payments,
		GeneratedAt:     booking.FormatDateTime(now, loc),
	}
	if b.HotelID != nil {
		bill.Hotel = &pricing.Ref{ID: *b.HotelID, Name: named(b.HotelName, "")}
	}
	if b.CompanyID != nil {
		bill.Company = &pricing.Ref{ID: *b.CompanyID, Name: named(b.CompanyName, "")}
	}
	if bill.Invoices == nil {
		bill.Invoices = []Invoice{}
	}
	if bill.Payments == nil {
		bill.Payments = []Payment{}
	}
	bill.AmountDue = totals.Total.Sub(in.Ledger.Paid)
	if bill.AmountDue.IsNegative() {
		bill.AmountDue = decimal.Zero
	}

	charges := Charges(b)
	if mode == PrintSeparate {
		for _, l := range in.Lines {
			s := BillSection{Title: "Habitación " + l.RoomName, Lines: []BillLine{}}
			s.add(roomLine(l, detailed))
			bill.Sections = append(bill.Sections, s)
		}
		if len(charges) > 0 {
			s := BillSection{Title: "Servicios adicionales", Lines: []BillLine{}}
			for _, c := range charges {
				s.add(chargeLine(c))
			}
			bill.Sections = append(bill.Sections, s)
		}
	} else {
		s := BillSection{Title: "Hospedaje", Lines: []BillLine{}}
		for _, l := range in.Lines {
			s.add(roomLine(l, detailed))
		}
		for _, c := range charges {
			s.add(chargeLine(c))
		}
		bill.Sections = append(bill.Sections, s)
	}
	if bill.Sections == nil {
		bill.Sections = []BillSection{}
	}
	return bill
}
