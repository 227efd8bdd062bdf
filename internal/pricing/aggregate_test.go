package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/booking"
)

func TestSummarize(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)
	items := []Priced{
		fixture(1, booking.StatusConfirmed, jan, discountedLine()),
		fixture(2, booking.StatusConfirmed, feb, discountedLine()),
		fixture(3, booking.StatusCancelled, feb),
	}
	s := Summarize(items, time.UTC)
	assert.Equal(t, 3, s.TotalReservas)
	assert.Equal(t, "396", s.TotalAmount.String())
	assert.Equal(t, 2, s.ByStatus["confirmed"].Count)
	assert.Equal(t, 2, s.ByMonth["2025-02"].Count)
	assert.Equal(t, "132", s.AverageAmount.String())
}

func TestFilters(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	items := []Priced{
		fixture(1, booking.StatusConfirmed, jan, discountedLine()),
		fixture(2, booking.StatusCancelled, jan.AddDate(0, 1, 0)),
	}
	f := Filters(items, time.UTC)
	assert.Equal(t, []string{"cancelled", "confirmed"}, f.StatusOptions)
	assert.Len(t, f.HotelOptions, 1)
	assert.Len(t, f.CurrencyOptions, 1)
	assert.Equal(t, "0", f.AmountRange.Min.String())
	assert.Equal(t, "198", f.AmountRange.Max.String())
	assert.True(t, f.DiscountOptions.HasDiscount)
	assert.True(t, f.DiscountOptions.NoDiscount)
	require.NotNil(t, f.DateRange.Earliest)
	assert.Equal(t, "2025-01-15 00:00:00", *f.DateRange.Earliest)

	empty := Filters(nil, time.UTC)
	assert.Nil(t, empty.DateRange.Earliest)
	assert.Empty(t, empty.StatusOptions)
}

func TestGuests(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	second := discountedLine()
	second.Guests = append(second.Guests, booking.Guest{ID: 101, Name: "Leo", Age: 12})
	items := []Priced{
		fixture(1, booking.StatusConfirmed, jan, discountedLine()),
		fixture(2, booking.StatusCheckin, jan.AddDate(0, 0, 3), second),
	}
	stats, guests := Guests(items, time.UTC)
	assert.Equal(t, 2, stats.TotalUniqueGuests)
	assert.Equal(t, 3, stats.TotalBookings)
	require.Len(t, guests, 2)
	assert.Equal(t, int64(100), guests[0].GuestID)
	assert.Equal(t, 2, guests[0].TotalBookings)
	assert.Equal(t, []string{"confirmed", "checkin"}, guests[0].Statuses)
	assert.Equal(t, "2025-01-05 00:00:00", guests[0].FirstBooking)
	assert.Equal(t, "2025-01-08 00:00:00", guests[0].LastBooking)
	assert.Equal(t, "1.5", stats.AverageBookingsPerGuest.String())
}

func TestSpendOf(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	items := []Priced{
		fixture(1, booking.StatusConfirmed, jan, discountedLine()),
		fixture(2, booking.StatusConfirmed, jan.AddDate(0, 0, 1), discountedLine()),
	}
	s := SpendOf(items, 100, time.UTC)
	assert.Equal(t, 2, s.TotalBookings)
	assert.Equal(t, "396", s.TotalAmount.String())
	assert.Equal(t, "120", s.TotalDiscount.String())
	require.NotNil(t, s.AverageAmount)
	assert.Equal(t, "198", s.AverageAmount.String())
	assert.Len(t, s.Bookings[0].GuestSpecificLines, 1)
	assert.Equal(t, 1, UniqueGuests(items))

	none := SpendOf(nil, 0, time.UTC)
	assert.Nil(t, none.AverageAmount)
	assert.Empty(t, none.Bookings)
}
