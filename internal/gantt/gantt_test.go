package gantt

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/booking"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWindowAndMonth(t *testing.T) {
	lima := time.FixedZone("Lima", -5*3600)
	target := time.Date(2024, 2, 17, 10, 0, 0, 0, lima)

	first, end := Window(target, lima)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, lima), first)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, lima), end)

	m := Month(target, lima)
	assert.Equal(t, "February 2024", m.MonthName)
	assert.Equal(t, 2, m.MonthNumber)
	assert.Equal(t, 2024, m.Year)
	assert.Equal(t, 29, m.TotalDays)
	assert.Len(t, m.Days, 29)
	assert.Equal(t, "2024-02-01", m.FirstDay)
	assert.Equal(t, "2024-02-29", m.LastDay)

	dec31 := Month(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, "2024-12-31", dec31.LastDay)
	assert.Equal(t, 31, dec31.TotalDays)
}

func TestHasRoomChanges(t *testing.T) {
	assert.False(t, HasRoomChanges(nil))
	assert.False(t, HasRoomChanges([]booking.Line{{ProductID: 1}}))
	assert.False(t, HasRoomChanges([]booking.Line{{ProductID: 1}, {ProductID: 1}}))
	assert.True(t, HasRoomChanges([]booking.Line{{ProductID: 1}, {ProductID: 2}}))
}

func chartBooking() *booking.Booking {
	in := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	return &booking.Booking{
		ID:          5,
		SequenceID:  "BK/00005",
		PartnerID:   3,
		PartnerName: "Ana Torres",
		Currency:    "PEN",
		Status:      booking.StatusConfirmed,
		CheckIn:     in,
		CheckOut:    in.Add(84 * time.Hour),
	}
}

func TestSegments_RoomChange(t *testing.T) {
	b := chartBooking()
	lines := []booking.Line{
		{ID: 11, ProductID: 1, RoomName: "101", BookingDays: dec("1.5"), Price: dec("100")},
		{ID: 12, ProductID: 2, RoomName: "102", BookingDays: dec("0")},
		{ID: 13, ProductID: 2, RoomName: "102", BookingDays: dec("2"), Price: dec("80")},
	}

	got := Segments(b, lines, time.UTC)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, int64(11), first.ID)
	assert.Equal(t, int64(5), first.BookingID)
	assert.Equal(t, "2025-03-10T14:00:00", first.DateStart)
	assert.Equal(t, "2025-03-12T02:00:00", first.DateEnd)
	assert.Equal(t, 14, first.CheckInHour)
	assert.True(t, first.HalfDayCheckIn)
	assert.True(t, first.HalfDayCheckOut)
	assert.Equal(t, 36.0, first.DurationHours)
	assert.Equal(t, 1.5, first.DurationDays)
	assert.True(t, first.IsRoomChange)
	assert.False(t, first.IsNewReservation)
	assert.Equal(t, "S/", first.CurrencySymbol)
	assert.Equal(t, "310", first.TotalAmount.String())

	second := got[1]
	assert.Equal(t, int64(13), second.ID)
	assert.Equal(t, first.DateEnd, second.DateStart)
	assert.Equal(t, "2025-03-14T02:00:00", second.DateEnd)
	assert.Equal(t, "102", second.RoomName)
	assert.Equal(t, 3.5, second.BookingDurationDays)
	assert.Equal(t, 84.0, second.BookingDurationHours)
	assert.Nil(t, second.ConnectedBookingID)
}

func TestSegments_SingleRoomAndLinks(t *testing.T) {
	b := chartBooking()
	connected := int64(9)
	b.ConnectedBookingID = &connected
	lines := []booking.Line{{ID: 21, ProductID: 4, RoomName: "201", BookingDays: dec("3")}}

	got := Segments(b, lines, time.UTC)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsNewReservation)
	assert.False(t, got[0].IsRoomChange)
	assert.Equal(t, &connected, got[0].ConnectedBookingID)
	assert.True(t, got[0].IsRoomChangeOrigin)
	assert.False(t, got[0].IsRoomChangeDestination)
	assert.False(t, got[0].HalfDayCheckOut)

	parent := int64(2)
	b.SplitFromBookingID = &parent
	got = Segments(b, lines, time.UTC)
	assert.False(t, got[0].IsRoomChangeOrigin)
	assert.True(t, got[0].IsRoomChangeDestination)
}
