package pricing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"hotelapi/internal/booking"
)

type Bucket struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type SpendSummary struct {
	TotalReservas     int                `json:"total_reservas"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	TotalDiscount     decimal.Decimal    `json:"total_discount"`
	TotalOriginal     decimal.Decimal    `json:"total_original"`
	ByStatus          map[string]*Bucket `json:"by_status"`
	ByMonth           map[string]*Bucket `json:"by_month"`
	SavingsPercentage decimal.Decimal    `json:"savings_percentage"`
	AverageAmount     decimal.Decimal    `json:"average_amount"`
}

func add(m map[string]*Bucket, key string, amount decimal.Decimal) {
	b, ok := m[key]
	if !ok {
		b = &Bucket{}
		m[key] = b
	}
	b.Count++
	b.Amount = b.Amount.Add(amount)
}

// Summarize totals the bookings by status and by creation month.
func Summarize(items []Priced, loc *time.Location) SpendSummary {
	s := SpendSummary{
		TotalReservas: len(items),
		ByStatus:      map[string]*Bucket{},
		ByMonth:       map[string]*Bucket{},
	}
	for _, p := range items {
		total := p.Totals().Total
		s.TotalAmount = s.TotalAmount.Add(total)
		s.TotalDiscount = s.TotalDiscount.Add(p.Discount())
		original := p.Original()
		if original.IsZero() {
			original = total
		}
		s.TotalOriginal = s.TotalOriginal.Add(original)
		add(s.ByStatus, string(p.Booking.Status), total)
		add(s.ByMonth, p.Booking.CreatedAt.In(loc).Format("2006-01"), total)
	}
	s.SavingsPercentage = percent(s.TotalDiscount, s.TotalOriginal)
	if len(items) > 0 {
		s.AverageAmount = s.TotalAmount.Div(decimal.NewFromInt(int64(len(items)))).Round(2)
	}
	return s
}

type BreakdownStats struct {
	TotalReservas int             `json:"total_reservas"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	TotalRooms    int             `json:"total_rooms"`
	TotalServices int             `json:"total_services"`
}

type ReservationBreakdown struct {
	BookingID         int64            `json:"booking_id"`
	SequenceID        string           `json:"sequence_id"`
	StatusBar         booking.Status   `json:"status_bar"`
	CheckIn           string           `json:"check_in"`
	CheckOut          string           `json:"check_out"`
	RoomBreakdown     []RoomPrice      `json:"room_breakdown"`
	ServicesBreakdown []Service        `json:"services_breakdown"`
	FinancialSummary  FinancialSummary `json:"financial_summary"`
}

func Breakdown(p Priced, loc *time.Location) ReservationBreakdown {
	services := p.Services
	if services == nil {
		services = []Service{}
	}
	return ReservationBreakdown{
		BookingID:         p.Booking.ID,
		SequenceID:        p.Booking.SequenceID,
		StatusBar:         p.Booking.Status,
		CheckIn:           booking.FormatDateTime(p.Booking.CheckIn, loc),
		CheckOut:          booking.FormatDateTime(p.Booking.CheckOut, loc),
		RoomBreakdown:     RoomBreakdown(p.Lines),
		ServicesBreakdown: services,
		FinancialSummary:  Summary(p),
	}
}

func BreakdownAll(items []Priced, loc *time.Location) (BreakdownStats, []ReservationBreakdown) {
	stats := BreakdownStats{TotalReservas: len(items)}
	out := make([]ReservationBreakdown, 0, len(items))
	for _, p := range items {
		out = append(out, Breakdown(p, loc))
		stats.TotalAmount = stats.TotalAmount.Add(p.Totals().Total)
		stats.TotalDiscount = stats.TotalDiscount.Add(p.Discount())
		stats.TotalRooms += len(p.Lines)
		stats.TotalServices += len(p.Services)
	}
	return stats, out
}

type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

type DateRange struct {
	Earliest *string `json:"earliest"`
	Latest   *string `json:"latest"`
}

type FilterOptions struct {
	StatusOptions   []string   `json:"status_options"`
	HotelOptions    []Ref      `json:"hotel_options"`
	CurrencyOptions []Currency `json:"currency_options"`
	AmountRange     Range      `json:"amount_range"`
	DateRange       DateRange  `json:"date_range"`
	DiscountOptions struct {
		HasDiscount bool `json:"has_discount"`
		NoDiscount  bool `json:"no_discount"`
	} `json:"discount_options"`
}

// Filters lists the distinct values a client can filter the bookings by.
func Filters(items []Priced, loc *time.Location) FilterOptions {
	f := FilterOptions{
		StatusOptions:   []string{},
		HotelOptions:    []Ref{},
		CurrencyOptions: []Currency{},
	}
	statuses := map[string]bool{}
	hotels := map[int64]bool{}
	currencies := map[string]bool{}
	var earliest, latest time.Time

	for i, p := range items {
		b := p.Booking
		if !statuses[string(b.Status)] {
			statuses[string(b.Status)] = true
			f.StatusOptions = append(f.StatusOptions, string(b.Status))
		}
		if b.HotelID != nil && !hotels[*b.HotelID] {
			hotels[*b.HotelID] = true
			ref := Ref{ID: *b.HotelID}
			if b.HotelName != nil {
				ref.Name = *b.HotelName
			}
			f.HotelOptions = append(f.HotelOptions, ref)
		}
		if !currencies[b.Currency] {
			currencies[b.Currency] = true
			f.CurrencyOptions = append(f.CurrencyOptions, CurrencyOf(b.Currency))
		}

		total := p.Totals().Total
		if i == 0 || total.LessThan(f.AmountRange.Min) {
			f.AmountRange.Min = total
		}
		if i == 0 || total.GreaterThan(f.AmountRange.Max) {
			f.AmountRange.Max = total
		}
		if i == 0 || b.CheckIn.Before(earliest) {
			earliest = b.CheckIn
		}
		if i == 0 || b.CheckOut.After(latest) {
			latest = b.CheckOut
		}

		if p.Discount().IsPositive() {
			f.DiscountOptions.HasDiscount = true
		} else {
			f.DiscountOptions.NoDiscount = true
		}
	}
	sort.Strings(f.StatusOptions)
	if len(items) > 0 {
		e, l := booking.FormatDateTime(earliest, loc), booking.FormatDateTime(latest, loc)
		f.DateRange = DateRange{Earliest: &e, Latest: &l}
	}
	return f
}

type GuestAggregate struct {
	GuestID       int64           `json:"guest_id"`
	Name          string          `json:"name"`
	Age           int             `json:"age"`
	Gender        string          `json:"gender"`
	TotalBookings int             `json:"total_bookings"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	FirstBooking  string          `json:"first_booking"`
	LastBooking   string          `json:"last_booking"`
	Hotels        []string        `json:"hotels"`
	Statuses      []string        `json:"statuses"`

	first, last time.Time
}

type GuestStats struct {
	TotalUniqueGuests       int             `json:"total_unique_guests"`
	TotalBookings           int             `json:"total_bookings"`
	TotalAmount             decimal.Decimal `json:"total_amount"`
	AverageBookingsPerGuest decimal.Decimal `json:"average_bookings_per_guest"`
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

// Guests aggregates every guest across the bookings, busiest first.
func Guests(items []Priced, loc *time.Location) (GuestStats, []*GuestAggregate) {
	byID := map[int64]*GuestAggregate{}
	var order []*GuestAggregate
	for _, p := range items {
		b := p.Booking
		total := p.Totals().Total
		for _, l := range p.Lines {
			for _, g := range l.Guests {
				agg, ok := byID[g.ID]
				if !ok {
					agg = &GuestAggregate{
						GuestID:  g.ID,
						Name:     g.Name,
						Age:      g.Age,
						Gender:   g.Gender,
						Hotels:   []string{},
						Statuses: []string{},
						first:    b.CreatedAt,
						last:     b.CreatedAt,
					}
					byID[g.ID] = agg
					order = append(order, agg)
				}
				agg.TotalBookings++
				agg.TotalAmount = agg.TotalAmount.Add(total)
				if b.CreatedAt.Before(agg.first) {
					agg.first = b.CreatedAt
				}
				if b.CreatedAt.After(agg.last) {
					agg.last = b.CreatedAt
				}
				if b.HotelName != nil {
					agg.Hotels = appendUnique(agg.Hotels, *b.HotelName)
				}
				agg.Statuses = appendUnique(agg.Statuses, string(b.Status))
			}
		}
	}

	var stats GuestStats
	for _, agg := range order {
		agg.FirstBooking = booking.FormatDateTime(agg.first, loc)
		agg.LastBooking = booking.FormatDateTime(agg.last, loc)
		stats.TotalBookings += agg.TotalBookings
		stats.TotalAmount = stats.TotalAmount.Add(agg.TotalAmount)
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].TotalBookings > order[j].TotalBookings })
	stats.TotalUniqueGuests = len(order)
	if len(order) > 0 {
		stats.AverageBookingsPerGuest = decimal.NewFromInt(int64(stats.TotalBookings)).Div(decimal.NewFromInt(int64(len(order)))).Round(2)
	}
	if order == nil {
		order = []*GuestAggregate{}
	}
	return stats, order
}

// Totals shared by the guest and partner price views.
type Spend struct {
	TotalBookings     int                `json:"total_bookings"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	TotalDiscount     decimal.Decimal    `json:"total_discount"`
	AverageAmount     *decimal.Decimal   `json:"average_amount,omitempty"`
	FirstBooking      *string            `json:"first_booking,omitempty"`
	LastBooking       *string            `json:"last_booking,omitempty"`
	SavingsPercentage *decimal.Decimal   `json:"savings_percentage,omitempty"`
	Bookings          []BookingPriceInfo `json:"bookings"`
}

// SpendOf builds the per-booking price infos and their totals. guestID > 0
// also marks the lines that host that guest.
func SpendOf(items []Priced, guestID int64, loc *time.Location) Spend {
	s := Spend{TotalBookings: len(items), Bookings: make([]BookingPriceInfo, 0, len(items))}
	var first, last time.Time
	for i, p := range items {
		info := BookingInfo(p, loc)
		if guestID > 0 {
			info = info.ForGuest(guestID)
		}
		s.Bookings = append(s.Bookings, info)
		s.TotalAmount = s.TotalAmount.Add(info.TotalAmount)
		s.TotalDiscount = s.TotalDiscount.Add(info.DiscountAmount)
		created := p.Booking.CreatedAt
		if i == 0 || created.Before(first) {
			first = created
		}
		if i == 0 || created.After(last) {
			last = created
		}
	}
	if len(items) == 0 {
		return s
	}
	avg := s.TotalAmount.Div(decimal.NewFromInt(int64(len(items)))).Round(2)
	savings := percent(s.TotalDiscount, s.TotalAmount)
	f, l := booking.FormatDateTime(first, loc), booking.FormatDateTime(last, loc)
	s.AverageAmount, s.SavingsPercentage = &avg, &savings
	s.FirstBooking, s.LastBooking = &f, &l
	return s
}

// UniqueGuests counts distinct guests over all lines.
func UniqueGuests(items []Priced) int {
	seen := map[int64]bool{}
	for _, p := range items {
		for _, l := range p.Lines {
			for _, g := range l.Guests {
				seen[g.ID] = true
			}
		}
	}
	return len(seen)
}
