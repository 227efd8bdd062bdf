package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"hotelapi/internal/booking"
)

var hundred = decimal.NewFromInt(100)

type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

var symbols = map[string]string{
	"PEN": "S/",
	"USD": "$",
	"EUR": "€",
}

func CurrencyOf(code string) Currency {
	sym, ok := symbols[code]
	if !ok {
		sym = code
	}
	return Currency{Name: code, Symbol: sym}
}

// Service is an additional charge recorded against a booking.
type Service struct {
	ID          int64           `json:"id"`
	ServiceID   *int64          `json:"service_id"`
	ServiceName string          `json:"service_name"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note"`
	CreateDate  string          `json:"create_date"`
}

// Priced is a booking with everything its price views need.
type Priced struct {
	Booking  *booking.Booking
	Lines    []booking.Line
	Services []Service
}

func (p Priced) Totals() booking.Totals {
	return booking.ComputeTotals(p.Booking, p.Lines)
}

// Original is the undiscounted room price, or the room subtotal when no line
// carries a price.
func (p Priced) Original() decimal.Decimal {
	t := p.Totals()
	if t.OriginalPrice.IsPositive() {
		return t.OriginalPrice
	}
	return t.RoomsSubtotal
}

// Discount is how far the untaxed amount sits below the original price.
func (p Priced) Discount() decimal.Decimal {
	d := p.Original().Sub(p.Totals().AmountUntaxed)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

type LinePriceInfo struct {
	BookingLineID      int64           `json:"booking_line_id"`
	BookingSequenceID  string          `json:"booking_sequence_id"`
	BookingID          int64           `json:"booking_id"`
	RoomName           string          `json:"room_name"`
	RoomCode           string          `json:"room_code"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountReason     string          `json:"discount_reason"`
	Currency           Currency        `json:"currency"`
	BookingDays        decimal.Decimal `json:"booking_days"`
	SubtotalPrice      decimal.Decimal `json:"subtotal_price"`
	TaxedPrice         decimal.Decimal `json:"taxed_price"`
	CheckIn            string          `json:"checkin"`
	CheckOut           string          `json:"checkout"`
	State              booking.Status  `json:"state"`
}

// LineInfo describes one line's price against its base price.
func LineInfo(b *booking.Booking, l booking.Line, loc *time.Location) LinePriceInfo {
	original := l.BasePrice()
	amount := original.Sub(l.Price).Round(2)
	return LinePriceInfo{
		BookingLineID:      l.ID,
		BookingSequenceID:  l.SequenceID,
		BookingID:          b.ID,
		RoomName:           l.RoomName,
		RoomCode:           l.RoomCode,
		OriginalPrice:      original,
		CurrentPrice:       l.Price,
		DiscountPercentage: percent(amount, original),
		DiscountAmount:     amount,
		DiscountReason:     l.DiscountReason,
		Currency:           CurrencyOf(b.Currency),
		BookingDays:        l.BookingDays,
		SubtotalPrice:      l.Subtotal(),
		TaxedPrice:         l.Taxed(),
		CheckIn:            booking.FormatDateTime(b.CheckIn, loc),
		CheckOut:           booking.FormatDateTime(b.CheckOut, loc),
		State:              b.Status,
	}
}

type RoomPrice struct {
	LineID                 int64           `json:"line_id"`
	BookingSequenceID      string          `json:"booking_sequence_id"`
	RoomName               string          `json:"room_name"`
	RoomID                 int64           `json:"room_id"`
	PricePerNight          decimal.Decimal `json:"price_per_night"`
	OriginalPricePerNight  decimal.Decimal `json:"original_price_per_night"`
	DiscountPercentage     decimal.Decimal `json:"discount_percentage"`
	DiscountAmountPerNight decimal.Decimal `json:"discount_amount_per_night"`
	DiscountReason         string          `json:"discount_reason"`
	BookingDays            decimal.Decimal `json:"booking_days"`
	SubtotalPrice          decimal.Decimal `json:"subtotal_price"`
	TaxedPrice             decimal.Decimal `json:"taxed_price"`
	TaxRate                decimal.Decimal `json:"tax_rate"`
	MaxAdult               int             `json:"max_adult"`
	MaxChild               int             `json:"max_child"`
	CurrentGuests          int             `json:"current_guests"`
	GuestIDs               []int64         `json:"-"`
}

func RoomBreakdown(lines []booking.Line) []RoomPrice {
	out := make([]RoomPrice, 0, len(lines))
	for _, l := range lines {
		ids := make([]int64, 0, len(l.Guests))
		for _, g := range l.Guests {
			ids = append(ids, g.ID)
		}
		out = append(out, RoomPrice{
			LineID:                 l.ID,
			BookingSequenceID:      l.SequenceID,
			RoomName:               l.RoomName,
			RoomID:                 l.ProductID,
			PricePerNight:          l.Price,
			OriginalPricePerNight:  l.BasePrice(),
			DiscountPercentage:     l.Discount,
			DiscountAmountPerNight: l.BasePrice().Sub(l.Price),
			DiscountReason:         l.DiscountReason,
			BookingDays:            l.BookingDays,
			SubtotalPrice:          l.Subtotal(),
			TaxedPrice:             l.Taxed(),
			TaxRate:                l.TaxPercent,
			MaxAdult:               l.MaxAdult,
			MaxChild:               l.MaxChild,
			CurrentGuests:          len(l.Guests),
			GuestIDs:               ids,
		})
	}
	return out
}

type FinancialSummary struct {
	RoomsSubtotal     decimal.Decimal `json:"rooms_subtotal"`
	RoomsTaxed        decimal.Decimal `json:"rooms_taxed"`
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
	ManualServices    decimal.Decimal `json:"manual_services"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
	TotalOriginal     decimal.Decimal `json:"total_original"`
	FinalTotal        decimal.Decimal `json:"final_total"`
	SavingsPercentage decimal.Decimal `json:"savings_percentage"`
}

func Summary(p Priced) FinancialSummary {
	t := p.Totals()
	discount := p.Discount()
	original := p.Original()
	return FinancialSummary{
		RoomsSubtotal:     t.RoomsSubtotal,
		RoomsTaxed:        t.RoomsTaxed,
		AdditionalCharges: t.AdditionalCharges,
		ManualServices:    t.ManualServices,
		TotalDiscount:     discount,
		TotalOriginal:     original,
		FinalTotal:        t.Total,
		SavingsPercentage: percent(discount, original),
	}
}

type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BookingPriceInfo is the complete price picture of a booking.
type BookingPriceInfo struct {
	BookingID                int64            `json:"booking_id"`
	SequenceID               string           `json:"sequence_id"`
	StatusBar                booking.Status   `json:"status_bar"`
	TotalAmount              decimal.Decimal  `json:"total_amount"`
	AmountUntaxed            decimal.Decimal  `json:"amount_untaxed"`
	TaxAmount                decimal.Decimal  `json:"tax_amount"`
	AdditionalChargesTotal   decimal.Decimal  `json:"additional_charges_total"`
	OriginalPrice            decimal.Decimal  `json:"original_price"`
	DiscountAmount           decimal.Decimal  `json:"discount_amount"`
	DiscountReason           string           `json:"discount_reason"`
	EarlyCheckinCharge       decimal.Decimal  `json:"early_checkin_charge"`
	LateCheckoutCharge       decimal.Decimal  `json:"late_checkout_charge"`
	ManualServiceDescription string           `json:"manual_service_description"`
	ManualServiceAmount      decimal.Decimal  `json:"manual_service_amount"`
	Currency                 Currency         `json:"currency"`
	Pricelist                *Ref             `json:"pricelist"`
	RoomPrices               []RoomPrice      `json:"room_prices"`
	Services                 []Service        `json:"services"`
	FinancialSummary         FinancialSummary `json:"financial_summary"`
	CalculatedAt             string           `json:"calculated_at"`
	// GuestSpecificLines is only filled by guest-scoped views.
	GuestSpecificLines []RoomPrice `json:"guest_specific_lines,omitempty"`
}

func BookingInfo(p Priced, loc *time.Location) BookingPriceInfo {
	b := p.Booking
	t := p.Totals()
	info := BookingPriceInfo{
		BookingID:                b.ID,
		SequenceID:               b.SequenceID,
		StatusBar:                b.Status,
		TotalAmount:              t.Total,
		AmountUntaxed:            t.AmountUntaxed,
		TaxAmount:                t.TaxAmount,
		AdditionalChargesTotal:   t.AdditionalCharges,
		OriginalPrice:            p.Original(),
		DiscountAmount:           p.Discount(),
		DiscountReason:           b.DiscountReason,
		EarlyCheckinCharge:       b.EarlyCheckinCharge,
		LateCheckoutCharge:       b.LateCheckoutCharge,
		ManualServiceDescription: b.ManualServiceDescription,
		ManualServiceAmount:      b.ManualServiceAmount,
		Currency:                 CurrencyOf(b.Currency),
		RoomPrices:               RoomBreakdown(p.Lines),
		Services:                 p.Services,
		FinancialSummary:         Summary(p),
		CalculatedAt:             booking.FormatDateTime(b.UpdatedAt, loc),
	}
	if info.Services == nil {
		info.Services = []Service{}
	}
	if b.PricelistID != nil {
		info.Pricelist = &Ref{ID: *b.PricelistID}
		if b.PricelistName != nil {
			info.Pricelist.Name = *b.PricelistName
		}
	}
	return info
}

// ForGuest keeps only the room prices of lines that host guestID.
func (info BookingPriceInfo) ForGuest(guestID int64) BookingPriceInfo {
	info.GuestSpecificLines = []RoomPrice{}
	for _, rp := range info.RoomPrices {
		for _, id := range rp.GuestIDs {
			if id == guestID {
				info.GuestSpecificLines = append(info.GuestSpecificLines, rp)
				break
			}
		}
	}
	return info
}
