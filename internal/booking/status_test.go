package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/apperr"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusInitial, StatusConfirmed, true},
		{StatusInitial, StatusCheckin, false},
		{StatusConfirmed, StatusCheckin, true},
		{StatusConfirmed, StatusCheckIn, true},
		{StatusAllot, StatusCheckIn, true},
		{StatusCheckIn, StatusCheckout, true},
		{StatusCheckout, StatusCleaningNeeded, true},
		{StatusCleaningNeeded, StatusRoomReady, true},
		{StatusRoomReady, StatusConfirmed, true},
		{StatusCancelled, StatusInitial, true},
		{StatusNoShow, StatusConfirmed, false},
		{StatusCheckoutPending, StatusCheckout, false},
		{Status("bogus"), StatusInitial, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusCheckin, NormalizeStatus("checked_in"))
	assert.Equal(t, StatusCheckin, NormalizeStatus("check_in"))
	assert.Equal(t, StatusConfirmed, NormalizeStatus(" confirmed "))
}

func TestParseStatus_Unknown(t *testing.T) {
	_, err := ParseStatus("archived")
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, e.Message, "Estado inválido: archived. Estados válidos: initial, draft, confirmed")
}

func TestValidateTransition_Message(t *testing.T) {
	err := ValidateTransition(StatusConfirmed, StatusCheckout)
	require.Error(t, err)
	e, _ := apperr.As(err)
	assert.Equal(t, `No se puede cambiar de estado "confirmed" a "checkout". Transiciones válidas: cancelled, check_in, checkin, no_show`, e.Message)

	err = ValidateTransition(StatusCheckoutPending, StatusConfirmed)
	e, _ = apperr.As(err)
	assert.Contains(t, e.Message, "Transiciones válidas: ninguna")

	assert.NoError(t, ValidateTransition(StatusInitial, StatusConfirmed))
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusCancelled, StatusCheckout, StatusNoShow} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.False(t, StatusConfirmed.IsTerminal())
}

func TestApplyStatus_SameStatusRejected(t *testing.T) {
	h := Handlers{}
	err := h.ApplyStatus(context.Background(), nil, &Booking{ID: 1, Status: StatusConfirmed}, StatusConfirmed, "admin")
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, `No se puede cambiar de estado "confirmed" a "confirmed". Transiciones válidas: cancelled, check_in, checkin, no_show`, e.Message)
}
