package pricing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/booking"
)

func fixture(id int64, status booking.Status, created time.Time, lines ...booking.Line) Priced {
	return Priced{
		Booking: &booking.Booking{
			ID:         id,
			SequenceID: fmt.Sprintf("BK/%05d", id),
			Status:     status,
			Currency:   "PEN",
			HotelID:    ptr(int64(1)),
			HotelName:  ptr("Hotel Central"),
			CheckIn:    created.AddDate(0, 0, 10),
			CheckOut:   created.AddDate(0, 0, 12),
			CreatedAt:  created,
			UpdatedAt:  created,
		},
		Lines: lines,
	}
}

func discountedLine() booking.Line {
	orig := dec("120")
	return booking.Line{
		ID: 1, SequenceID: "BK/00001-01", ProductID: 10, RoomName: "Suite",
		Price: dec("90"), OriginalPrice: &orig, BookingDays: dec("2"), TaxPercent: dec("10"),
		Guests: []booking.Guest{{ID: 100, Name: "Ana", Age: 30}},
	}
}

func TestLineInfo(t *testing.T) {
	p := fixture(1, booking.StatusConfirmed, time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC), discountedLine())
	info := LineInfo(p.Booking, p.Lines[0], time.UTC)
	assert.Equal(t, "120", info.OriginalPrice.String())
	assert.Equal(t, "30", info.DiscountAmount.String())
	assert.Equal(t, "25", info.DiscountPercentage.String())
	assert.Equal(t, "180", info.SubtotalPrice.String())
	assert.Equal(t, "198", info.TaxedPrice.String())
	assert.Equal(t, "S/", info.Currency.Symbol)
	assert.Equal(t, "2025-01-15 09:00:00", info.CheckIn)
}

func TestSummaryAndDiscount(t *testing.T) {
	p := fixture(1, booking.StatusConfirmed, time.Now(), discountedLine())
	s := Summary(p)
	assert.Equal(t, "240", s.TotalOriginal.String())
	assert.Equal(t, "60", s.TotalDiscount.String())
	assert.Equal(t, "25", s.SavingsPercentage.String())
	assert.Equal(t, "198", s.FinalTotal.String())
}

func TestBookingInfo_ForGuest(t *testing.T) {
	other := discountedLine()
	other.ID = 2
	other.Guests = []booking.Guest{{ID: 200, Name: "Leo", Age: 40}}
	p := fixture(1, booking.StatusConfirmed, time.Now(), discountedLine(), other)

	info := BookingInfo(p, time.UTC)
	assert.Len(t, info.RoomPrices, 2)
	assert.Empty(t, info.Services)
	assert.Nil(t, info.Pricelist)

	scoped := info.ForGuest(200)
	require.Len(t, scoped.GuestSpecificLines, 1)
	assert.Equal(t, int64(2), scoped.GuestSpecificLines[0].LineID)
	assert.Nil(t, info.GuestSpecificLines)
}
