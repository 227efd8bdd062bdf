package states

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/apperr"
	"hotelapi/internal/booking"
)

func TestBookingCatalogMatchesStatusMachine(t *testing.T) {
	for _, s := range List(KindBooking, false) {
		for _, next := range s.NextStates {
			assert.True(t, booking.CanTransition(booking.Status(s.Code), booking.Status(next)),
				"%s -> %s", s.Code, next)
		}
	}
}

func TestList_Localized(t *testing.T) {
	es := List(KindBooking, false)
	en := List(KindBooking, true)
	require.Len(t, es, 8)
	assert.Equal(t, "Confirmada", es[1].Name)
	assert.Equal(t, "Confirmed", en[1].Name)

	en[1].NextStates[0] = "mutated"
	assert.Equal(t, "checkin", List(KindBooking, false)[1].NextStates[0])

	assert.Equal(t, Counts{TotalStates: 8, TerminalStates: 2, ActiveStates: 6}, Count(es))
	assert.Equal(t, Counts{TotalStates: 3, TerminalStates: 1, ActiveStates: 2}, Count(List(KindHousekeeping, false)))
}

func TestGet(t *testing.T) {
	d, err := Get(KindBooking, "checkout", true)
	require.NoError(t, err)
	assert.Equal(t, "Checked Out", d.Name)
	assert.Equal(t, []Ref{{Code: "cleaning_needed", Name: "Cleaning Needed"}}, d.NextStatesDetail)

	d, err = Get(KindHousekeeping, "completed", false)
	require.NoError(t, err)
	assert.Empty(t, d.NextStatesDetail)
	assert.Nil(t, d.RequiresRoom)

	_, err = Get(KindBooking, "nope", false)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, e.Kind)
	assert.Equal(t, "STATE_NOT_FOUND", e.Code)
	assert.Equal(t, "Estado con código 'nope' no encontrado", e.Message)
}

func TestGraph(t *testing.T) {
	g := Graph(KindHousekeeping)
	require.Len(t, g, 3)
	assert.Equal(t, Edge{Name: "En Progreso", CanTransitionTo: []string{"completed", "draft"}}, g["in_progress"])
	assert.True(t, g["completed"].IsTerminal)
}

func TestCheckTransition(t *testing.T) {
	res, err := CheckTransition(KindBooking, "confirmed", "checkin")
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Message)
	assert.Len(t, res.ValidTransitions, 3)

	res, err = CheckTransition(KindBooking, "checkout", "confirmed")
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, "La transición de 'checkout' a 'confirmed' no es válida", res.Message)
	assert.Equal(t, Ref{Code: "checkout", Name: "Check-out Realizado"}, res.FromState)

	_, err = CheckTransition(KindHousekeeping, "lost", "draft")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = ParseKind("room")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
