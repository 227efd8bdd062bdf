package booking

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/internal/events"
	"hotelapi/pkg/db"
	"hotelapi/pkg/logger"
)

// releasedStatuses no longer hold their rooms.
var releasedStatuses = []string{
	string(StatusCancelled), string(StatusNoShow), string(StatusCheckout),
	string(StatusCleaningNeeded), string(StatusRoomReady),
}

// SelectLine picks the line a room change applies to. lineID may be zero
// when the booking has a single line.
func SelectLine(lines []Line, lineID int64) (*Line, error) {
	if lineID != 0 {
		for i := range lines {
			if lines[i].ID == lineID {
				return &lines[i], nil
			}
		}
		return nil, apperr.Validation("La línea de reserva indicada no pertenece a la reserva.")
	}
	if len(lines) == 1 {
		return &lines[0], nil
	}
	return nil, apperr.Validation("Debe especificar booking_line_id cuando la reserva tiene múltiples líneas.")
}

// Nights counts calendar nights between two instants in loc.
func Nights(start, end time.Time, loc *time.Location) int {
	s, e := dateOnly(start.In(loc)), dateOnly(end.In(loc))
	n := int(e.Sub(s).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

type RoomChangeRequest struct {
	BookingLineID       int64            `json:"booking_line_id"`
	NewRoomID           int64            `json:"new_room_id"`
	ChangeStartDate     string           `json:"change_start_date"`
	ChangeEndDate       string           `json:"change_end_date"`
	ChangeStartDatetime string           `json:"change_start_datetime"`
	ChangeEndDatetime   string           `json:"change_end_datetime"`
	CheckInHour         *int             `json:"check_in_hour"`
	CheckInMinute       *int             `json:"check_in_minute"`
	CheckOutHour        *int             `json:"check_out_hour"`
	CheckOutMinute      *int             `json:"check_out_minute"`
	UseCustomPrice      bool             `json:"use_custom_price"`
	CustomPrice         *decimal.Decimal `json:"custom_price"`
	Note                string           `json:"note"`
}

func at(day time.Time, hour, minute int, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc)
}

func hasClock(s string) bool {
	return len(s) > len("2006-01-02")
}

func minuteOr(m *int) int {
	if m == nil {
		return 0
	}
	return *m
}

// checkClock rejects hours outside 0..23 and minutes outside 0..59 instead of
// letting time.Date roll them into another day.
func checkClock(prefix string, hour, minute *int) error {
	if hour != nil && (*hour < 0 || *hour > 23) {
		return apperr.Validationf("%s_hour debe estar entre 0 y 23 (recibido %d)", prefix, *hour)
	}
	if minute != nil && (*minute < 0 || *minute > 59) {
		return apperr.Validationf("%s_minute debe estar entre 0 y 59 (recibido %d)", prefix, *minute)
	}
	return nil
}

// Window resolves the new segment's start and end. Explicit hours win over
// times embedded in the strings; date-only values take the booking's own
// check-in and check-out times.
func (req RoomChangeRequest) Window(b *Booking, loc *time.Location) (time.Time, time.Time, error) {
	startRaw := req.ChangeStartDatetime
	if startRaw == "" {
		startRaw = req.ChangeStartDate
	}
	endRaw := req.ChangeEndDatetime
	if endRaw == "" {
		endRaw = req.ChangeEndDate
	}
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, apperr.Validation("Debe proporcionar change_start_date/change_start_datetime y change_end_date/change_end_datetime, o fechas con check_in_hour/check_out_hour.")
	}
	if err := checkClock("check_in", req.CheckInHour, req.CheckInMinute); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := checkClock("check_out", req.CheckOutHour, req.CheckOutMinute); err != nil {
		return time.Time{}, time.Time{}, err
	}

	start, err := ParseDateTime(startRaw, "change_start", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDateTime(endRaw, "change_end", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	in, out := b.CheckIn.In(loc), b.CheckOut.In(loc)
	switch {
	case req.CheckInHour != nil:
		start = at(start, *req.CheckInHour, minuteOr(req.CheckInMinute), loc)
	case !hasClock(startRaw):
		start = at(start, in.Hour(), in.Minute(), loc)
	}
	switch {
	case req.CheckOutHour != nil:
		end = at(end, *req.CheckOutHour, minuteOr(req.CheckOutMinute), loc)
	case !hasClock(endRaw):
		end = at(end, out.Hour(), out.Minute(), loc)
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, apperr.Validation("La fecha de fin del cambio debe ser posterior a la fecha de inicio")
	}
	if start.Before(b.CheckIn) || start.After(b.CheckOut) {
		return time.Time{}, time.Time{}, apperr.Validation("La fecha de inicio del cambio debe estar dentro de la estadía")
	}
	if end.After(b.CheckOut) {
		return time.Time{}, time.Time{}, apperr.Validation("La fecha de fin del cambio no puede ser posterior al check-out de la reserva")
	}
	return start, end, nil
}

// truncation lists the changes to the source booking once one of its lines
// moves to another room at start. Only a single-room booking ends early; the
// other rooms of a multi-room booking keep the full stay.
func truncation(lines []Line, start time.Time, newID int64) []Change {
	changes := []Change{{"connected_booking_id", newID}}
	if len(lines) == 1 {
		changes = append(changes, Change{"check_out", start})
	}
	return changes
}

// AvailableRooms lists active room products of the hotel with no booking
// holding them in [start, end).
func AvailableRooms(ctx context.Context, q db.Querier, hotelID *int64, excludeRoom int64, start, end time.Time) ([]Product, error) {
	const stmt = `
SELECT p.id
FROM products p
WHERE p.is_room_type AND p.active
  AND p.id <> $1
  AND ($2::bigint IS NULL OR p.hotel_id = $2::bigint)
  AND NOT EXISTS (
      SELECT 1
      FROM booking_lines l
      JOIN bookings b ON b.id = l.booking_id
      WHERE l.product_id = p.id
        AND b.status_bar <> ALL($5)
        AND b.check_in < $4 AND b.check_out > $3
  )
ORDER BY p.name, p.id
`
	rows, err := q.Query(ctx, stmt, excludeRoom, hotelID, start, end, releasedStatuses)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		p, err := ProductByID(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

// RoomFree reports whether no other active booking holds room in [start, end).
func RoomFree(ctx context.Context, q db.Querier, room, excludeBooking int64, start, end time.Time) (bool, error) {
	const stmt = `
SELECT NOT EXISTS (
    SELECT 1
    FROM booking_lines l
    JOIN bookings b ON b.id = l.booking_id
    WHERE l.product_id = $1
      AND b.id <> $2
      AND b.status_bar <> ALL($5)
      AND b.check_in < $4 AND b.check_out > $3
)
`
	var free bool
	err := q.QueryRow(ctx, stmt, room, excludeBooking, start, end, releasedStatuses).Scan(&free)
	return free, err
}

func SetNextLine(ctx context.Context, q db.Querier, lineID, nextID int64) error {
	_, err := q.Exec(ctx, `UPDATE booking_lines SET next_line_id = $1, updated_at = NOW() WHERE id = $2`, nextID, lineID)
	return err
}

type roomOptionsRequest struct {
	BookingLineID int64 `json:"booking_line_id"`
}

type AvailableRoom struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Code  string          `json:"code"`
	Price decimal.Decimal `json:"price"`
}

func (h Handlers) ChangeRoomOptions(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req roomOptionsRequest
	if r.Method == http.MethodPost {
		if err := api.Decode(r, &req); err != nil {
			api.WriteErr(w, r, err)
			return
		}
	}
	if req.BookingLineID == 0 {
		v, err := api.QueryInt64(r, "booking_line_id")
		if err != nil {
			api.WriteErr(w, r, err)
			return
		}
		if v != nil {
			req.BookingLineID = *v
		}
	}

	ctx := r.Context()
	b, err := Load(ctx, h.DB, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	lines, err := Lines(ctx, h.DB, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	line, err := SelectLine(lines, req.BookingLineID)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	start := h.now().In(h.Loc)
	if start.Before(b.CheckIn) {
		start = b.CheckIn
	}
	end := b.CheckOut
	rooms, err := AvailableRooms(ctx, h.DB, b.HotelID, line.ProductID, start, end)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	available := make([]AvailableRoom, 0, len(rooms))
	for _, p := range rooms {
		available = append(available, AvailableRoom{ID: p.ID, Name: p.Name, Code: p.Code, Price: p.ListPrice})
	}

	nights := Nights(start, end, h.Loc)
	api.OK(w, map[string]any{
		"defaults": map[string]any{
			"booking_id":        b.ID,
			"booking_line_id":   line.ID,
			"booking_line_name": line.SequenceID,
			"current_room_id":   line.ProductID,
			"current_room_name": line.RoomName,
			"current_room_code": line.RoomCode,
			"current_room_capacity": map[string]any{
				"max_adult": line.MaxAdult,
				"max_child": line.MaxChild,
			},
			"current_room_price":    line.Price,
			"current_room_discount": line.Discount,
			"current_room_subtotal": line.Subtotal(),
			"current_room_total":    line.Taxed(),
			"current_room_currency": map[string]any{"name": b.Currency},
			"change_start_date":     start.In(h.Loc).Format("2006-01-02"),
			"change_end_date":       end.In(h.Loc).Format("2006-01-02"),
			"total_nights":          nights,
			"estimated_total":       line.Price.Mul(decimal.NewFromInt(int64(nights))).Round(2),
			"use_custom_price":      false,
			"custom_price":          decimal.Zero,
		},
		"available_rooms": available,
	}, "")
}

func (h Handlers) ChangeRoom(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req RoomChangeRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if req.NewRoomID == 0 {
		api.WriteErr(w, r, apperr.Validation("Debe proporcionar new_room_id."))
		return
	}
	if req.UseCustomPrice && (req.CustomPrice == nil || req.CustomPrice.IsNegative()) {
		api.WriteErr(w, r, apperr.Validation("El precio personalizado debe ser mayor o igual a 0"))
		return
	}

	ctx := r.Context()
	actor := Actor(r)
	var (
		orig, created *Booking
	)
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		var err error
		if orig, err = LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if orig.Status.IsTerminal() {
			return apperr.Validationf("No se puede cambiar de habitación una reserva en estado \"%s\"", orig.Status)
		}
		lines, err := Lines(ctx, tx, id)
		if err != nil {
			return err
		}
		line, err := SelectLine(lines, req.BookingLineID)
		if err != nil {
			return err
		}
		if req.NewRoomID == line.ProductID {
			return apperr.Validation("La nueva habitación debe ser distinta a la actual")
		}
		room, err := ProductByID(ctx, tx, req.NewRoomID)
		if err != nil {
			return err
		}
		if room == nil || !room.IsRoomType {
			return apperr.Validationf("La habitación con ID %d no existe", req.NewRoomID)
		}

		start, end, err := req.Window(orig, h.Loc)
		if err != nil {
			return err
		}
		free, err := RoomFree(ctx, tx, room.ID, orig.ID, start, end)
		if err != nil {
			return err
		}
		if !free {
			return apperr.Validationf("La habitación %s no está disponible en las fechas seleccionadas", room.Name)
		}

		newID, seq, err := Insert(ctx, tx, NewBooking{
			PartnerID:          orig.PartnerID,
			UserID:             orig.UserID,
			HotelID:            orig.HotelID,
			CompanyID:          orig.CompanyID,
			PricelistID:        orig.PricelistID,
			Currency:           orig.Currency,
			CheckIn:            start,
			CheckOut:           end,
			Status:             orig.Status,
			BookingDate:        h.now(),
			Origin:             nilIfEmpty(orig.SequenceID),
			BookingReference:   orig.BookingReference,
			MotivoViaje:        nilIfEmpty(orig.MotivoViaje),
			Description:        nilIfEmpty(req.Note),
			SplitFromBookingID: &orig.ID,
		})
		if err != nil {
			return err
		}

		price := line.Price
		if req.UseCustomPrice {
			price = *req.CustomPrice
		} else if room.ListPrice.IsPositive() {
			price = room.ListPrice
		}
		prev := line.ID
		newLineID, err := InsertLine(ctx, tx, newID, seq, NewLine{
			ProductID:           room.ID,
			BookingDays:         StayDays(start, end),
			Price:               price,
			Discount:            line.Discount,
			TaxPercent:          room.TaxPercent,
			IsRoomChangeSegment: true,
			PreviousLineID:      &prev,
		})
		if err != nil {
			return err
		}
		for _, g := range line.Guests {
			if err := InsertGuest(ctx, tx, newLineID, g); err != nil {
				return err
			}
		}
		if err := SetNextLine(ctx, tx, line.ID, newLineID); err != nil {
			return err
		}

		if err := Update(ctx, tx, orig.ID, truncation(lines, start, newID)); err != nil {
			return err
		}
		if err := SetOneLineDays(ctx, tx, line.ID, StayDays(orig.CheckIn, start)); err != nil {
			return err
		}

		summary := fmt.Sprintf("Cambio de habitación de %s a %s", line.RoomName, room.Name)
		data := map[string]any{
			"from_room_id":   line.ProductID,
			"to_room_id":     room.ID,
			"new_booking_id": newID,
			"note":           req.Note,
		}
		if err := events.Insert(ctx, tx, orig.ID, &prev, events.TypeRoomChanged, summary, actor, h.now(), data); err != nil {
			return err
		}
		if err := events.Insert(ctx, tx, newID, &newLineID, events.TypeCreated, "Reserva creada por cambio de habitación", actor, h.now(), data); err != nil {
			return err
		}

		created, err = GetForUpdate(ctx, tx, newID)
		return err
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	logger.FromContext(ctx).Info("room changed",
		zap.Int64("booking_id", orig.ID),
		zap.Int64("new_booking_id", created.ID),
	)
	h.announce(ctx, events.TypeRoomChanged, orig, map[string]any{"new_booking_id": created.ID})

	in, out := created.CheckIn.In(h.Loc), created.CheckOut.In(h.Loc)
	api.OK(w, map[string]any{
		"reserva_id": orig.ID,
		"new_reserva": map[string]any{
			"id":               created.ID,
			"sequence_id":      created.SequenceID,
			"check_in":         FormatDateTime(created.CheckIn, h.Loc),
			"check_out":        FormatDateTime(created.CheckOut, h.Loc),
			"check_in_hour":    in.Hour(),
			"check_in_minute":  in.Minute(),
			"check_out_hour":   out.Hour(),
			"check_out_minute": out.Minute(),
			"status_bar":       created.Status,
		},
	}, "Cambio de habitación aplicado correctamente.")
}
