package booking

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hotelapi/internal/apperr"
)

const (
	MaxFileSize = 10 << 20
	MaxStayDays = 365
	MinAge      = 1
	MaxAge      = 120
	AdultAge    = 18

	DateTimeLayout = "2006-01-02 15:04:05"
)

var (
	validBookingReferences = []string{"sale_order", "manual", "agent", "other"}
	validGenders           = []string{"male", "female", "other"}
	validCommissionTypes   = []string{"fixed", "percentage"}

	dateLayouts = []string{DateTimeLayout, "2006-01-02T15:04:05", "2006-01-02"}
)

// Catalog answers the existence checks validation needs.
type Catalog interface {
	Product(ctx context.Context, id int64) (*Product, error)
	PartnerExists(ctx context.Context, id int64) (bool, error)
	HotelExists(ctx context.Context, id int64) (bool, error)
}

type GuestInput struct {
	Name      string `json:"name"`
	PartnerID *int64 `json:"partner_id"`
	Age       *int   `json:"age"`
	Gender    string `json:"gender"`
}

type RoomInput struct {
	ProductID   *int64           `json:"product_id"`
	RoomID      *int64           `json:"room_id"`
	Price       *decimal.Decimal `json:"price"`
	Discount    *decimal.Decimal `json:"discount"`
	BookingDays *decimal.Decimal `json:"booking_days"`
	Description string           `json:"description"`
	Guests      []GuestInput     `json:"guests"`
}

// Product returns product_id, falling back to the room_id alias.
func (r RoomInput) Product() int64 {
	if r.ProductID != nil && *r.ProductID != 0 {
		return *r.ProductID
	}
	if r.RoomID != nil {
		return *r.RoomID
	}
	return 0
}

type DocumentInput struct {
	Name        string `json:"name"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	File        string `json:"file"`
}

type AgentInput struct {
	ViaAgent                  bool             `json:"via_agent"`
	AgentID                   *int64           `json:"agent_id"`
	CommissionType            string           `json:"commission_type"`
	AgentCommissionAmount     *decimal.Decimal `json:"agent_commission_amount"`
	AgentCommissionPercentage *decimal.Decimal `json:"agent_commission_percentage"`
}

// ParseDateTime accepts the three wire layouts and interprets them in loc.
func ParseDateTime(s, field string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Validationf("%s es requerida", field)
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validationf("Formato de %s no reconocido", field)
}

// FormatDateTime renders t in loc using the wire layout.
func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateTimeLayout)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateDates checks ordering and the maximum stay. rejectPast also refuses a
// check-in date before today (both evaluated in the dates' own location).
func ValidateDates(checkIn, checkOut, now time.Time, rejectPast bool) error {
	if checkOut.Before(checkIn) {
		return apperr.Validation("La fecha de check-out no puede ser anterior a la fecha de check-in")
	}
	if rejectPast && dateOnly(checkIn).Before(dateOnly(now.In(checkIn.Location()))) {
		return apperr.Validation("La fecha de check-in no puede ser en el pasado")
	}
	days := int(dateOnly(checkOut).Sub(dateOnly(checkIn)).Hours() / 24)
	if days > MaxStayDays {
		return apperr.Validationf("La estadía no puede ser mayor a %d días", MaxStayDays)
	}
	return nil
}

func ValidateRooms(ctx context.Context, cat Catalog, rooms []RoomInput) error {
	if len(rooms) == 0 {
		return apperr.Validation("Debe especificar al menos una habitación")
	}
	for i, room := range rooms {
		n := i + 1
		id := room.Product()
		if id == 0 {
			return apperr.Validationf("Habitación %d: Debe especificar el ID del producto (product_id o room_id)", n)
		}
		if id < 0 {
			return apperr.Validationf("Habitación %d: El product_id debe ser un número válido", n)
		}
		p, err := cat.Product(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.Validationf("Habitación %d: El producto con ID %d no existe", n, id)
		}
		if !p.IsRoomType {
			return apperr.Validationf("Habitación %d: El producto \"%s\" no es un tipo de habitación", n, p.Name)
		}
		if room.Price != nil && room.Price.IsNegative() {
			return apperr.Validationf("Habitación %d: El precio no puede ser negativo", n)
		}
		if room.Discount != nil && (room.Discount.IsNegative() || room.Discount.GreaterThan(decimal.NewFromInt(100))) {
			return apperr.Validationf("Habitación %d: El descuento debe estar entre 0 y 100", n)
		}
		if room.BookingDays != nil && room.BookingDays.IsNegative() {
			return apperr.Validationf("Habitación %d: Los días de reserva no pueden ser negativos", n)
		}
		if len(room.Guests) > 0 {
			if err := ValidateGuests(ctx, cat, room.Guests, int64(n)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateGuests checks one room's guest set. room labels messages; it is the
// room position on create and the line id on guest updates.
func ValidateGuests(ctx context.Context, cat Catalog, guests []GuestInput, room int64) error {
	if len(guests) == 0 {
		return apperr.Validationf("Habitación %d: Debe especificar al menos un huésped", room)
	}
	adults := 0
	for i, g := range guests {
		prefix := fmt.Sprintf("Habitación %d, Huésped %d: ", room, i+1)
		if strings.TrimSpace(g.Name) == "" && (g.PartnerID == nil || *g.PartnerID == 0) {
			return apperr.Validation(prefix + "Debe especificar el nombre o un partner_id")
		}
		if g.PartnerID != nil && *g.PartnerID != 0 {
			ok, err := cat.PartnerExists(ctx, *g.PartnerID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validation(prefix + fmt.Sprintf("El partner con ID %d no existe", *g.PartnerID))
			}
		}
		if g.Age == nil || *g.Age == 0 {
			return apperr.Validation(prefix + "Debe especificar la edad")
		}
		if *g.Age < MinAge {
			return apperr.Validation(prefix + fmt.Sprintf("La edad debe ser mayor a %d", MinAge-1))
		}
		if *g.Age > MaxAge {
			return apperr.Validation(prefix + fmt.Sprintf("La edad no puede ser mayor a %d años", MaxAge))
		}
		if *g.Age >= AdultAge {
			adults++
		}
		if g.Gender != "" && !slices.Contains(validGenders, g.Gender) {
			return apperr.Validation(prefix + "Género inválido. Debe ser: " + strings.Join(validGenders, ", "))
		}
	}
	if adults == 0 {
		return apperr.Validationf("Habitación %d: Debe haber al menos un adulto por habitación", room)
	}
	return nil
}

// ValidateDocuments checks names and decodes attachments. The returned slice
// is aligned with docs; entries without a file are nil.
func ValidateDocuments(docs []DocumentInput) ([][]byte, error) {
	out := make([][]byte, len(docs))
	for i, d := range docs {
		n := i + 1
		if strings.TrimSpace(d.Name) == "" {
			return nil, apperr.Validationf("Documento %d: Debe especificar el nombre del documento", n)
		}
		if d.File == "" {
			continue
		}
		b, err := base64.StdEncoding.DecodeString(d.File)
		if err != nil {
			return nil, apperr.Validationf("Documento %d: Formato de archivo inválido (debe ser base64)", n)
		}
		if len(b) > MaxFileSize {
			return nil, apperr.Validationf("Documento %d: El archivo no puede ser mayor a %dMB", n, MaxFileSize>>20)
		}
		out[i] = b
	}
	return out, nil
}

func ValidateAgent(ctx context.Context, cat Catalog, a AgentInput) error {
	if !a.ViaAgent {
		return nil
	}
	if a.AgentID == nil || *a.AgentID == 0 {
		return apperr.Validation("Debe especificar el agente cuando via_agent es True")
	}
	ok, err := cat.PartnerExists(ctx, *a.AgentID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validationf("El agente con ID %d no existe", *a.AgentID)
	}

	switch a.CommissionType {
	case "":
	case "fixed":
		if a.AgentCommissionAmount == nil || a.AgentCommissionAmount.IsZero() {
			return apperr.Validation("Debe especificar el monto de comisión fija")
		}
		if a.AgentCommissionAmount.IsNegative() {
			return apperr.Validation("El monto de comisión no puede ser negativo")
		}
	case "percentage":
		if a.AgentCommissionPercentage == nil || a.AgentCommissionPercentage.IsZero() {
			return apperr.Validation("Debe especificar el porcentaje de comisión")
		}
		p := *a.AgentCommissionPercentage
		if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(100)) {
			return apperr.Validation("El porcentaje de comisión debe estar entre 0 y 100")
		}
	default:
		return apperr.Validation("Tipo de comisión debe ser: " + strings.Join(validCommissionTypes, ", "))
	}
	return nil
}

func ValidateBookingReference(ref string) error {
	if ref == "" || slices.Contains(validBookingReferences, ref) {
		return nil
	}
	return apperr.Validationf("Referencia de reserva inválida: %s. Referencias válidas: %s", ref, strings.Join(validBookingReferences, ", "))
}
