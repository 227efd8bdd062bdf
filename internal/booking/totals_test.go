package booking

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStayDays(t *testing.T) {
	in := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "3", StayDays(in, in.Add(72*time.Hour)).String())
	assert.Equal(t, "0.5", StayDays(in, in.Add(12*time.Hour)).String())
	assert.Equal(t, "0.88", StayDays(in, in.Add(21*time.Hour)).String())
	assert.True(t, StayDays(in, in).IsZero())
}

func TestLineAmounts(t *testing.T) {
	l := Line{Price: dec("100"), BookingDays: dec("2"), Discount: dec("10"), TaxPercent: dec("18")}
	assert.Equal(t, "180", l.Subtotal().String())
	assert.Equal(t, "20", l.DiscountAmount().String())
	assert.Equal(t, "32.4", l.Tax().String())
	assert.Equal(t, "212.4", l.Taxed().String())
	assert.Equal(t, "100", l.BasePrice().String())

	orig := dec("120")
	l.OriginalPrice = &orig
	assert.Equal(t, "120", l.BasePrice().String())
}

func TestComputeTotals(t *testing.T) {
	orig := dec("150")
	b := &Booking{
		EarlyCheckinCharge:  dec("20"),
		LateCheckoutCharge:  dec("10"),
		ManualServiceAmount: dec("5"),
		BookingDiscount:     dec("15"),
	}
	lines := []Line{
		{Price: dec("100"), BookingDays: dec("2"), TaxPercent: dec("18"), OriginalPrice: &orig},
		{Price: dec("50"), BookingDays: dec("2"), Discount: dec("50")},
	}
	got := ComputeTotals(b, lines)
	assert.Equal(t, "250", got.RoomsSubtotal.String())
	assert.Equal(t, "36", got.RoomsTax.String())
	assert.Equal(t, "30", got.AdditionalCharges.String())
	assert.Equal(t, "270", got.AmountUntaxed.String())
	assert.Equal(t, "306", got.Total.String())
	assert.Equal(t, "400", got.OriginalPrice.String())
	assert.Equal(t, "50", got.LineDiscounts.String())
}

func TestComputeTotals_DiscountFloorsAtZero(t *testing.T) {
	b := &Booking{BookingDiscount: dec("500")}
	got := ComputeTotals(b, []Line{{Price: dec("100"), BookingDays: dec("1"), TaxPercent: dec("10")}})
	assert.True(t, got.AmountUntaxed.IsZero())
	assert.Equal(t, "10", got.Total.String())
}
