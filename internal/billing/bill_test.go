package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/booking"
)

func billInput() BillInput {
	in := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	return BillInput{
		Booking: &booking.Booking{
			ID:                 7,
			SequenceID:         "BK/00007",
			PartnerID:          3,
			PartnerName:        "Ana Torres",
			HotelID:            ptr(int64(1)),
			HotelName:          ptr("Hotel Central"),
			Currency:           "PEN",
			CheckIn:            in,
			CheckOut:           in.AddDate(0, 0, 2),
			LateCheckoutCharge: dec("20"),
		},
		Lines: []booking.Line{
			{ID: 1, SequenceID: "BK/00007-01", RoomName: "101", RoomCode: "R101", Price: dec("100"), BookingDays: dec("2"), TaxPercent: dec("18"),
				Guests: []booking.Guest{{ID: 1, Name: "Ana", Age: 30}}},
			{ID: 2, SequenceID: "BK/00007-02", RoomName: "102", Price: dec("50"), BookingDays: dec("2")},
		},
	}
}

func TestValidatePrintMode(t *testing.T) {
	mode, err := ValidatePrintMode("")
	require.NoError(t, err)
	assert.Equal(t, PrintCombine, mode)

	mode, err = ValidatePrintMode(PrintSeparate)
	require.NoError(t, err)
	assert.Equal(t, PrintSeparate, mode)

	_, err = ValidatePrintMode("pdf")
	assert.ErrorContains(t, err, `print_mode debe ser "combine" o "separate".`)
}

func TestBuildBill_Combine(t *testing.T) {
	in := billInput()
	in.Ledger = Ledger{OrderTotal: dec("356"), DownPayments: dec("100"), Paid: dec("100")}
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

	bill := BuildBill(in, PrintCombine, false, time.UTC, now)
	require.Len(t, bill.Sections, 1)
	s := bill.Sections[0]
	assert.Len(t, s.Lines, 3)
	assert.Equal(t, "late_checkout", s.Lines[2].Kind)
	assert.Nil(t, s.Lines[0].Guests)

	assert.Equal(t, "320", bill.AmountUntaxed.String())
	assert.Equal(t, "36", bill.TaxAmount.String())
	assert.Equal(t, "356", bill.TotalAmount.String())
	assert.Equal(t, "356", s.Total.String())
	assert.Equal(t, "100", bill.AmountInvoiced.String())
	assert.Equal(t, "256", bill.AmountDue.String())
	assert.Equal(t, "BK/00007_bill.json", bill.Filename)
	assert.Equal(t, "2025-03-03 12:00:00", bill.GeneratedAt)
	require.NotNil(t, bill.Hotel)
	assert.Equal(t, "Hotel Central", bill.Hotel.Name)
	assert.Nil(t, bill.Company)
	assert.NotNil(t, bill.Invoices)
	assert.NotNil(t, bill.Payments)
}

func TestBuildBill_SeparateDetailed(t *testing.T) {
	bill := BuildBill(billInput(), PrintSeparate, true, time.UTC, time.Now())
	require.Len(t, bill.Sections, 3)
	assert.Equal(t, "Habitación 101", bill.Sections[0].Title)
	assert.Equal(t, "236", bill.Sections[0].Total.String())
	assert.Equal(t, []string{"Ana"}, bill.Sections[0].Lines[0].Guests)
	require.NotNil(t, bill.Sections[0].Lines[0].RoomCode)
	assert.Equal(t, "R101", *bill.Sections[0].Lines[0].RoomCode)
	assert.Equal(t, "Servicios adicionales", bill.Sections[2].Title)
	assert.Equal(t, "20", bill.Sections[2].Total.String())
	assert.Equal(t, "356", bill.AmountDue.String())
}
