package gantt

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"hotelapi/internal/booking"
	"hotelapi/internal/pricing"
)

const (
	isoLayout = "2006-01-02T15:04:05"
	// WindowDays is how far past the first day of the month the chart reaches.
	WindowDays = 31
	roomLimit  = 1000
)

// Hidden lists the states that never appear on the chart.
var Hidden = []booking.Status{booking.StatusCancelled, booking.StatusRoomReady}

type Room struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Code      string          `json:"code"`
	Capacity  int             `json:"capacity"`
	MaxAdult  int             `json:"max_adult"`
	MaxChild  int             `json:"max_child"`
	Price     decimal.Decimal `json:"price"`
	HotelID   *int64          `json:"hotel_id"`
	HotelName *string         `json:"hotel_name"`
	Status    string          `json:"room_status"`
}

// Reservation is one bar on the chart: a booking line placed on its room.
type Reservation struct {
	ID             int64           `json:"id"`
	BookingID      int64           `json:"booking_id"`
	SequenceID     string          `json:"sequence_id"`
	DateStart      string          `json:"date_start"`
	DateEnd        string          `json:"date_end"`
	State          booking.Status  `json:"state"`
	StatusBar      booking.Status  `json:"status_bar"`
	CustomerName   string          `json:"customer_name"`
	PartnerID      int64           `json:"partner_id"`
	RoomID         int64           `json:"room_id"`
	RoomName       string          `json:"room_name"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CurrencySymbol string          `json:"currency_symbol"`
	DiscountReason string          `json:"discount_reason"`

	CheckInHour     int     `json:"check_in_hour"`
	CheckInMinute   int     `json:"check_in_minute"`
	CheckOutHour    int     `json:"check_out_hour"`
	CheckOutMinute  int     `json:"check_out_minute"`
	HalfDayCheckIn  bool    `json:"is_half_day_checkin"`
	HalfDayCheckOut bool    `json:"is_half_day_checkout"`
	DurationHours   float64 `json:"duration_hours"`
	DurationDays    float64 `json:"duration_days"`

	BookingCheckIn        string  `json:"booking_check_in"`
	BookingCheckOut       string  `json:"booking_check_out"`
	BookingCheckInHour    int     `json:"booking_check_in_hour"`
	BookingCheckInMinute  int     `json:"booking_check_in_minute"`
	BookingCheckOutHour   int     `json:"booking_check_out_hour"`
	BookingCheckOutMinute int     `json:"booking_check_out_minute"`
	BookingDurationHours  float64 `json:"booking_duration_hours"`
	BookingDurationDays   float64 `json:"booking_duration_days"`

	// Exactly one of these is set.
	IsRoomChange     bool `json:"is_room_change,omitempty"`
	IsNewReservation bool `json:"is_new_reservation,omitempty"`

	ConnectedBookingID      *int64 `json:"connected_booking_id,omitempty"`
	IsRoomChangeOrigin      bool   `json:"is_room_change_origin,omitempty"`
	IsRoomChangeDestination bool   `json:"is_room_change_destination,omitempty"`
}

type MonthInfo struct {
	MonthName   string `json:"month_name"`
	MonthNumber int    `json:"month_number"`
	Year        int    `json:"year"`
	Days        []int  `json:"days"`
	FirstDay    string `json:"first_day"`
	LastDay     string `json:"last_day"`
	TotalDays   int    `json:"total_days"`
}

type Metadata struct {
	TotalRooms        int    `json:"total_rooms"`
	TotalReservations int    `json:"total_reservations"`
	HotelID           *int64 `json:"hotel_id"`
	TargetDate        string `json:"target_date"`
	GeneratedAt       string `json:"generated_at"`
	Timezone          string `json:"timezone"`
}

type Data struct {
	Rooms        []Room        `json:"rooms"`
	Reservations []Reservation `json:"reservations"`
	MonthInfo    MonthInfo     `json:"month_info"`
	Metadata     Metadata      `json:"metadata"`
}

// Window returns the first day of target's month and the end of the chart.
func Window(target time.Time, loc *time.Location) (time.Time, time.Time) {
	t := target.In(loc)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return first, first.AddDate(0, 0, WindowDays)
}

func Month(target time.Time, loc *time.Location) MonthInfo {
	first, _ := Window(target, loc)
	last := first.AddDate(0, 1, -1)
	days := make([]int, last.Day())
	for i := range days {
		days[i] = i + 1
	}
	return MonthInfo{
		MonthName:   first.Format("January 2006"),
		MonthNumber: int(first.Month()),
		Year:        first.Year(),
		Days:        days,
		FirstDay:    first.Format("2006-01-02"),
		LastDay:     last.Format("2006-01-02"),
		TotalDays:   len(days),
	}
}

// HasRoomChanges is true when the booking's lines occupy different rooms.
func HasRoomChanges(lines []booking.Line) bool {
	for _, l := range lines[min(1, len(lines)):] {
		if l.ProductID != lines[0].ProductID {
			return true
		}
	}
	return false
}

func daysToDuration(days decimal.Decimal) time.Duration {
	return time.Duration(days.Mul(decimal.NewFromInt(int64(24 * time.Hour))).IntPart())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Segments lays the booking lines end to end from check-in, each one
// booking_days long. Lines without days are skipped.
func Segments(b *booking.Booking, lines []booking.Line, loc *time.Location) []Reservation {
	changes := HasRoomChanges(lines)
	total := booking.ComputeTotals(b, lines).Total
	symbol := pricing.CurrencyOf(b.Currency).Symbol
	checkIn, checkOut := b.CheckIn.In(loc), b.CheckOut.In(loc)
	stay := checkOut.Sub(checkIn)

	out := make([]Reservation, 0, len(lines))
	cursor := checkIn
	for _, l := range lines {
		if !l.BookingDays.IsPositive() {
			continue
		}
		start := cursor
		end := start.Add(daysToDuration(l.BookingDays))
		cursor = end
		length := end.Sub(start)

		res := Reservation{
			ID:             l.ID,
			BookingID:      b.ID,
			SequenceID:     b.SequenceID,
			DateStart:      start.Format(isoLayout),
			DateEnd:        end.Format(isoLayout),
			State:          b.Status,
			StatusBar:      b.Status,
			CustomerName:   b.PartnerName,
			PartnerID:      b.PartnerID,
			RoomID:         l.ProductID,
			RoomName:       l.RoomName,
			TotalAmount:    total,
			CurrencySymbol: symbol,
			DiscountReason: b.DiscountReason,

			CheckInHour:     start.Hour(),
			CheckInMinute:   start.Minute(),
			CheckOutHour:    end.Hour(),
			CheckOutMinute:  end.Minute(),
			HalfDayCheckIn:  start.Hour() >= 12,
			HalfDayCheckOut: end.Hour() < 12,
			DurationHours:   round2(length.Hours()),
			DurationDays:    round2(length.Hours() / 24),

			BookingCheckIn:        checkIn.Format(isoLayout),
			BookingCheckOut:       checkOut.Format(isoLayout),
			BookingCheckInHour:    checkIn.Hour(),
			BookingCheckInMinute:  checkIn.Minute(),
			BookingCheckOutHour:   checkOut.Hour(),
			BookingCheckOutMinute: checkOut.Minute(),
			BookingDurationHours:  round2(stay.Hours()),
			BookingDurationDays:   round2(stay.Hours() / 24),

			IsRoomChange:     changes,
			IsNewReservation: !changes,
		}
		if b.ConnectedBookingID != nil {
			res.ConnectedBookingID = b.ConnectedBookingID
			res.IsRoomChangeOrigin = b.SplitFromBookingID == nil
			res.IsRoomChangeDestination = b.SplitFromBookingID != nil
		}
		out = append(out, res)
	}
	return out
}
