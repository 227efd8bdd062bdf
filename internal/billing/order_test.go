package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/booking"
)

func TestCharges(t *testing.T) {
	b := &booking.Booking{
		EarlyCheckinCharge:       dec("25"),
		EarlyCheckinProductID:    ptr(int64(9)),
		EarlyCheckinProductName:  ptr("Early check-in"),
		LateCheckoutCharge:       dec("15"),
		ManualServiceDescription: "Traslado aeropuerto",
		ManualServiceAmount:      dec("40"),
	}
	got := Charges(b)
	require.Len(t, got, 3)
	assert.Equal(t, Charge{ServiceEarlyCheckin, ptr(int64(9)), "Early check-in", dec("25")}, got[0])
	assert.Equal(t, "Check-out tardío", got[1].Name)
	assert.Nil(t, got[1].ProductID)
	assert.Equal(t, "Traslado aeropuerto", got[2].Name)

	b.ManualServiceDescription = "  "
	assert.Equal(t, "Servicio manual", Charges(b)[2].Name)

	assert.Empty(t, Charges(&booking.Booking{}))
}

func TestOrderAmounts(t *testing.T) {
	lines := []OrderLine{
		{Subtotal: dec("200"), TaxPercent: dec("18")},
		{Subtotal: dec("50")},
	}
	untaxed, tax, total := OrderAmounts(lines, dec("30"))
	assert.Equal(t, "220", untaxed.String())
	assert.Equal(t, "36", tax.String())
	assert.Equal(t, "256", total.String())

	untaxed, _, total = OrderAmounts(lines[1:], dec("80"))
	assert.True(t, untaxed.IsZero())
	assert.True(t, total.IsZero())

	untaxed, tax, total = OrderAmounts(nil, decimal.Zero)
	assert.True(t, untaxed.IsZero() && tax.IsZero() && total.IsZero())
}

func TestSyncMessage(t *testing.T) {
	assert.Equal(t, "Se sincronizaron 2 servicio(s) en la cadena de reservas.", SyncMessage(2, 1))
	assert.Contains(t, SyncMessage(0, 1), "ya estaban sincronizadas")
	assert.Contains(t, SyncMessage(0, 0), "No se encontraron")
}
