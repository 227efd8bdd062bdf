package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// StayDays is the fractional number of days between check-in and check-out,
// rounded to two decimals. Same-day stays yield fractions of a day.
func StayDays(checkIn, checkOut time.Time) decimal.Decimal {
	if !checkOut.After(checkIn) {
		return decimal.Zero
	}
	hours := decimal.NewFromFloat(checkOut.Sub(checkIn).Hours())
	return hours.Div(decimal.NewFromInt(24)).Round(2)
}

// Subtotal is price * days less the line discount percentage.
func (l Line) Subtotal() decimal.Decimal {
	gross := l.Price.Mul(l.BookingDays)
	return gross.Sub(gross.Mul(l.Discount).Div(hundred)).Round(2)
}

func (l Line) DiscountAmount() decimal.Decimal {
	return l.Price.Mul(l.BookingDays).Sub(l.Subtotal()).Round(2)
}

func (l Line) Tax() decimal.Decimal {
	return l.Subtotal().Mul(l.TaxPercent).Div(hundred).Round(2)
}

func (l Line) Taxed() decimal.Decimal {
	return l.Subtotal().Add(l.Tax())
}

// BasePrice is the price before any manual change.
func (l Line) BasePrice() decimal.Decimal {
	if l.OriginalPrice != nil {
		return *l.OriginalPrice
	}
	return l.Price
}

type Totals struct {
	RoomsSubtotal     decimal.Decimal `json:"rooms_subtotal"`
	RoomsTax          decimal.Decimal `json:"rooms_tax"`
	RoomsTaxed        decimal.Decimal `json:"rooms_taxed"`
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
	ManualServices    decimal.Decimal `json:"manual_services"`
	BookingDiscount   decimal.Decimal `json:"booking_discount"`
	LineDiscounts     decimal.Decimal `json:"line_discounts"`
	AmountUntaxed     decimal.Decimal `json:"amount_untaxed"`
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	Total             decimal.Decimal `json:"total_amount"`
	// OriginalPrice is the undiscounted price of all rooms at their base price.
	OriginalPrice decimal.Decimal `json:"original_price"`
}

// ComputeTotals derives the booking amounts from its lines and extension
// charges. The untaxed amount never goes below zero.
func ComputeTotals(b *Booking, lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.RoomsSubtotal = t.RoomsSubtotal.Add(l.Subtotal())
		t.RoomsTax = t.RoomsTax.Add(l.Tax())
		t.LineDiscounts = t.LineDiscounts.Add(l.DiscountAmount())
		t.OriginalPrice = t.OriginalPrice.Add(l.BasePrice().Mul(l.BookingDays))
	}
	t.OriginalPrice = t.OriginalPrice.Round(2)
	t.RoomsTaxed = t.RoomsSubtotal.Add(t.RoomsTax)
	t.AdditionalCharges = b.EarlyCheckinCharge.Add(b.LateCheckoutCharge)
	t.ManualServices = b.ManualServiceAmount
	t.BookingDiscount = b.BookingDiscount

	untaxed := t.RoomsSubtotal.Add(t.AdditionalCharges).Add(t.ManualServices).Sub(t.BookingDiscount)
	if untaxed.IsNegative() {
		untaxed = decimal.Zero
	}
	t.AmountUntaxed = untaxed.Round(2)
	t.TaxAmount = t.RoomsTax
	t.Total = t.AmountUntaxed.Add(t.TaxAmount)
	return t
}
