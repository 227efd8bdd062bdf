package booking

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/apperr"
)

type fakeCatalog struct {
	products map[int64]*Product
	partners map[int64]bool
	hotels   map[int64]bool
}

func (f fakeCatalog) Product(_ context.Context, id int64) (*Product, error) {
	return f.products[id], nil
}

func (f fakeCatalog) PartnerExists(_ context.Context, id int64) (bool, error) {
	return f.partners[id], nil
}

func (f fakeCatalog) HotelExists(_ context.Context, id int64) (bool, error) {
	return f.hotels[id], nil
}

func catalog() fakeCatalog {
	return fakeCatalog{
		products: map[int64]*Product{
			10: {ID: 10, Name: "Suite 101", IsRoomType: true, ListPrice: dec("150")},
			20: {ID: 20, Name: "Desayuno"},
		},
		partners: map[int64]bool{7: true},
		hotels:   map[int64]bool{1: true},
	}
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok, "expected apperr, got %v", err)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	return e.Message
}

func TestParseDateTime(t *testing.T) {
	lima, err := time.LoadLocation("America/Lima")
	require.NoError(t, err)

	for _, s := range []string{"2025-01-10 14:00:00", "2025-01-10T14:00:00"} {
		got, err := ParseDateTime(s, "check_in", lima)
		require.NoError(t, err)
		assert.Equal(t, 14, got.Hour())
		assert.Equal(t, lima, got.Location())
		assert.Equal(t, "2025-01-10 19:00:00", got.UTC().Format(DateTimeLayout))
	}

	got, err := ParseDateTime("2025-01-10", "check_in", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Hour())

	assert.Equal(t, "Formato de check_out no reconocido", validationMessage(t, mustErr(ParseDateTime("10/01/2025", "check_out", time.UTC))))
	assert.Equal(t, "check_in es requerida", validationMessage(t, mustErr(ParseDateTime(" ", "check_in", time.UTC))))
}

func mustErr(_ time.Time, err error) error { return err }

func TestValidateDates(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	in := time.Date(2025, 5, 2, 14, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateDates(in, in.AddDate(0, 0, 3), now, true))
	assert.NoError(t, ValidateDates(in, in, now, true), "zero-day stays are allowed")
	assert.NoError(t, ValidateDates(now.Add(-time.Hour), now, now, true), "earlier today is not the past")

	msg := validationMessage(t, ValidateDates(in, in.Add(-time.Hour), now, true))
	assert.Contains(t, msg, "check-out no puede ser anterior")

	msg = validationMessage(t, ValidateDates(in.AddDate(0, 0, -3), in, now, true))
	assert.Contains(t, msg, "en el pasado")
	assert.NoError(t, ValidateDates(in.AddDate(0, 0, -3), in, now, false))

	msg = validationMessage(t, ValidateDates(in, in.AddDate(0, 0, 366), now, true))
	assert.Equal(t, "La estadía no puede ser mayor a 365 días", msg)
}

func TestValidateRooms(t *testing.T) {
	ctx := context.Background()
	cat := catalog()
	adult := 30

	assert.Contains(t, validationMessage(t, ValidateRooms(ctx, cat, nil)), "al menos una habitación")

	ok := []RoomInput{{RoomID: ptr(int64(10))}}
	assert.NoError(t, ValidateRooms(ctx, cat, ok))

	cases := []struct {
		name string
		room RoomInput
		want string
	}{
		{"missing id", RoomInput{}, "Habitación 1: Debe especificar el ID del producto (product_id o room_id)"},
		{"unknown", RoomInput{ProductID: ptr(int64(99))}, "Habitación 1: El producto con ID 99 no existe"},
		{"not a room", RoomInput{ProductID: ptr(int64(20))}, `Habitación 1: El producto "Desayuno" no es un tipo de habitación`},
		{"negative price", RoomInput{ProductID: ptr(int64(10)), Price: ptr(dec("-1"))}, "Habitación 1: El precio no puede ser negativo"},
		{"discount", RoomInput{ProductID: ptr(int64(10)), Discount: ptr(dec("101"))}, "Habitación 1: El descuento debe estar entre 0 y 100"},
		{"bad guest", RoomInput{ProductID: ptr(int64(10)), Guests: []GuestInput{{Name: "Ana", Age: &adult, Gender: "x"}}}, "Habitación 1, Huésped 1: Género inválido. Debe ser: male, female, other"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, validationMessage(t, ValidateRooms(ctx, cat, []RoomInput{tc.room})))
		})
	}

	child := 9
	second := []RoomInput{
		{RoomID: ptr(int64(10))},
		{ProductID: ptr(int64(10)), Guests: []GuestInput{{Name: "Leo", Age: &child}}},
	}
	assert.Equal(t, "Habitación 2: Debe haber al menos un adulto por habitación",
		validationMessage(t, ValidateRooms(ctx, cat, second)))
}

func TestRoomInputProduct(t *testing.T) {
	assert.Equal(t, int64(5), RoomInput{ProductID: ptr(int64(5)), RoomID: ptr(int64(6))}.Product())
	assert.Equal(t, int64(6), RoomInput{ProductID: ptr(int64(0)), RoomID: ptr(int64(6))}.Product())
	assert.Zero(t, RoomInput{}.Product())
}

func TestValidateGuests(t *testing.T) {
	ctx := context.Background()
	cat := catalog()
	age := func(n int) *int { return &n }

	assert.NoError(t, ValidateGuests(ctx, cat, []GuestInput{
		{Name: "Ana", Age: age(34), Gender: "female"},
		{PartnerID: ptr(int64(7)), Age: age(8)},
	}, 1))

	cases := []struct {
		name   string
		guests []GuestInput
		want   string
	}{
		{"empty", nil, "Habitación 2: Debe especificar al menos un huésped"},
		{"nameless", []GuestInput{{Age: age(30)}}, "Habitación 2, Huésped 1: Debe especificar el nombre o un partner_id"},
		{"unknown partner", []GuestInput{{PartnerID: ptr(int64(8)), Age: age(30)}}, "Habitación 2, Huésped 1: El partner con ID 8 no existe"},
		{"no age", []GuestInput{{Name: "Ana"}}, "Habitación 2, Huésped 1: Debe especificar la edad"},
		{"too young", []GuestInput{{Name: "Ana", Age: age(-1)}}, "Habitación 2, Huésped 1: La edad debe ser mayor a 0"},
		{"too old", []GuestInput{{Name: "Ana", Age: age(121)}}, "Habitación 2, Huésped 1: La edad no puede ser mayor a 120 años"},
		{"no adult", []GuestInput{{Name: "Leo", Age: age(9)}}, "Habitación 2: Debe haber al menos un adulto por habitación"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, validationMessage(t, ValidateGuests(ctx, cat, tc.guests, 2)))
		})
	}
}

func TestValidateDocuments(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))
	files, err := ValidateDocuments([]DocumentInput{
		{Name: "DNI", File: payload},
		{Name: "Nota"},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), files[0])
	assert.Nil(t, files[1])

	_, err = ValidateDocuments([]DocumentInput{{Name: " "}})
	assert.Equal(t, "Documento 1: Debe especificar el nombre del documento", validationMessage(t, err))

	_, err = ValidateDocuments([]DocumentInput{{Name: "DNI", File: "%%%"}})
	assert.Contains(t, validationMessage(t, err), "debe ser base64")

	big := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("a", MaxFileSize+1)))
	_, err = ValidateDocuments([]DocumentInput{{Name: "DNI", File: big}})
	assert.Equal(t, "Documento 1: El archivo no puede ser mayor a 10MB", validationMessage(t, err))
}

func TestValidateAgent(t *testing.T) {
	ctx := context.Background()
	cat := catalog()

	assert.NoError(t, ValidateAgent(ctx, cat, AgentInput{}))
	assert.NoError(t, ValidateAgent(ctx, cat, AgentInput{ViaAgent: true, AgentID: ptr(int64(7))}))
	assert.NoError(t, ValidateAgent(ctx, cat, AgentInput{
		ViaAgent: true, AgentID: ptr(int64(7)), CommissionType: "percentage", AgentCommissionPercentage: ptr(dec("12.5")),
	}))

	assert.Contains(t, validationMessage(t, ValidateAgent(ctx, cat, AgentInput{ViaAgent: true})), "Debe especificar el agente")
	assert.Equal(t, "El agente con ID 3 no existe", validationMessage(t, ValidateAgent(ctx, cat, AgentInput{ViaAgent: true, AgentID: ptr(int64(3))})))
	assert.Equal(t, "Debe especificar el monto de comisión fija", validationMessage(t, ValidateAgent(ctx, cat, AgentInput{
		ViaAgent: true, AgentID: ptr(int64(7)), CommissionType: "fixed",
	})))
	assert.Equal(t, "El porcentaje de comisión debe estar entre 0 y 100", validationMessage(t, ValidateAgent(ctx, cat, AgentInput{
		ViaAgent: true, AgentID: ptr(int64(7)), CommissionType: "percentage", AgentCommissionPercentage: ptr(dec("150")),
	})))
	assert.Contains(t, validationMessage(t, ValidateAgent(ctx, cat, AgentInput{
		ViaAgent: true, AgentID: ptr(int64(7)), CommissionType: "tiered",
	})), "fixed, percentage")
}

func TestValidateBookingReference(t *testing.T) {
	assert.NoError(t, ValidateBookingReference(""))
	assert.NoError(t, ValidateBookingReference("agent"))
	assert.Contains(t, validationMessage(t, ValidateBookingReference("phone")), "Referencias válidas: sale_order, manual, agent, other")
}
