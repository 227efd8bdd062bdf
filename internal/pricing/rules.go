package pricing

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/internal/booking"
)

var (
	maxPrice     = decimal.RequireFromString("999999.99")
	minChange    = decimal.RequireFromString("0.01")
	maxMarkup    = decimal.NewFromInt(3)
	currencyCaps = map[string]decimal.Decimal{
		"PEN": decimal.NewFromInt(1_000_000),
		"USD": decimal.NewFromInt(300_000),
		"EUR": decimal.NewFromInt(300_000),
	}
)

// Line prices can only move while the booking is in one of these states.
var editableStatuses = []booking.Status{
	booking.StatusInitial,
	booking.StatusDraft,
	booking.StatusConfirmed,
	booking.StatusCheckin,
	booking.StatusAllot,
	booking.StatusRoomReady,
}

type ChangeRequest struct {
	NewPrice *decimal.Decimal `json:"new_price"`
	Reason   *string          `json:"reason"`
	Force    bool             `json:"force"`
}

// Validate checks the request on its own and returns the trimmed reason.
func (req ChangeRequest) Validate() (decimal.Decimal, string, error) {
	if req.NewPrice == nil {
		return decimal.Zero, "", apperr.Validation(`El campo "new_price" es requerido`)
	}
	if req.Reason == nil || strings.TrimSpace(*req.Reason) == "" {
		return decimal.Zero, "", apperr.Validation(`El campo "reason" es requerido`)
	}
	price := *req.NewPrice
	if price.IsNegative() {
		return decimal.Zero, "", apperr.Validation("El precio no puede ser negativo")
	}
	if price.GreaterThan(maxPrice) {
		return decimal.Zero, "", apperr.Validation("El precio no puede ser mayor a 999,999.99")
	}
	reason := strings.TrimSpace(*req.Reason)
	switch n := utf8.RuneCountInString(reason); {
	case n < 3:
		return decimal.Zero, "", apperr.Validation("La razón del cambio debe tener al menos 3 caracteres")
	case n > 500:
		return decimal.Zero, "", apperr.Validation("La razón del cambio no puede exceder 500 caracteres")
	}
	return price, reason, nil
}

// CheckEditable decides whether p may touch the prices of line l.
func CheckEditable(b *booking.Booking, l *booking.Line, p *api.Principal) error {
	if b.Status.IsTerminal() {
		return apperr.Validationf("No se puede modificar el precio de una reserva en estado \"%s\"", b.Status)
	}
	if !slices.Contains(editableStatuses, booking.NormalizeStatus(string(b.Status))) {
		return apperr.Validationf("No se puede modificar el precio en el estado actual \"%s\"", b.Status)
	}
	if !l.BookingDays.IsPositive() {
		return apperr.Validation("La línea de reserva debe tener días de reserva válidos")
	}
	if p == nil || p.IsAdmin {
		return nil
	}
	if b.UserID == nil || *b.UserID != p.UserID {
		return apperr.Forbidden("Solo el responsable de la reserva puede cambiar precios")
	}
	return nil
}

// CheckChange applies the business limits to moving l to price.
func CheckChange(l *booking.Line, currency string, price decimal.Decimal, force bool) error {
	current := l.Price
	if current.IsPositive() && !force && price.Sub(current).Abs().LessThan(minChange) {
		return apperr.Validation(`El cambio de precio debe ser significativo (mínimo 0.01). Use "force": true para forzar cambios menores`)
	}
	original := l.BasePrice()
	if original.IsPositive() && price.GreaterThan(original.Mul(maxMarkup)) {
		return apperr.Validation("El nuevo precio no puede ser más de 3 veces el precio original")
	}
	if len(l.Guests) == 0 {
		return apperr.Validation("No se puede cambiar el precio de una línea sin huéspedes asignados")
	}
	if limit, ok := currencyCaps[currency]; ok && price.GreaterThan(limit) {
		return apperr.Validationf("El precio no puede exceder %s %s", formatThousands(limit), currency)
	}
	return nil
}

// formatThousands renders whole amounts as 1,000,000.
func formatThousands(d decimal.Decimal) string {
	s := d.Truncate(0).String()
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
