package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/internal/audit"
	"hotelapi/internal/events"
	"hotelapi/pkg/blob"
	"hotelapi/pkg/db"
	"hotelapi/pkg/logger"
)

// Housekeeping states of a room product.
const (
	RoomAvailable = "available"
	RoomOccupied  = "occupied"
	RoomDirty     = "dirty"
)

const DefaultEmailTemplate = "hotel_management_system.hotel_booking_confirm_id"

func auditDelete(ctx context.Context, tx pgx.Tx, r *http.Request, b *Booking) error {
	id := b.ID
	return audit.Insert(ctx, tx, principalID(r), &id, audit.ActionBookingDelete, Actor(r), map[string]any{
		"sequence_id": b.SequenceID,
		"status_bar":  b.Status,
	})
}

type statusRequest struct {
	StatusBar string `json:"status_bar"`
}

// ApplyStatus moves a locked booking to next and runs the side effects tied
// to the target state. A request for the current state is rejected unless
// the transition table allows it.
func (h Handlers) ApplyStatus(ctx context.Context, tx pgx.Tx, b *Booking, next Status, actor string) error {
	if err := ValidateTransition(b.Status, next); err != nil {
		return err
	}

	switch {
	case next == StatusConfirmed:
		if h.OnConfirm != nil && b.OrderID == nil {
			if err := h.OnConfirm(ctx, tx, b); err != nil {
				return err
			}
		}
	case next.IsCheckin() && b.Status == StatusConfirmed:
		if err := SetRoomStatus(ctx, tx, b.ID, RoomOccupied); err != nil {
			return err
		}
		if err := events.Insert(ctx, tx, b.ID, nil, events.TypeNote, "Check-in registrado, habitaciones ocupadas", actor, h.now(), nil); err != nil {
			return err
		}
	case next == StatusCleaningNeeded:
		if err := SetRoomStatus(ctx, tx, b.ID, RoomDirty); err != nil {
			return err
		}
	case next == StatusRoomReady:
		if err := SetRoomStatus(ctx, tx, b.ID, RoomAvailable); err != nil {
			return err
		}
	}

	if err := SetStatus(ctx, tx, b.ID, next); err != nil {
		return err
	}
	return events.Insert(ctx, tx, b.ID, nil, events.TypeStatusChanged,
		fmt.Sprintf("Estado cambiado de %s a %s", b.Status, next), actor, h.now(),
		map[string]any{"from": b.Status, "to": next})
}

func (h Handlers) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req statusRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if req.StatusBar == "" {
		api.WriteErr(w, r, apperr.Validation("Debe especificar el nuevo estado (status_bar)"))
		return
	}
	next, err := ParseStatus(req.StatusBar)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	ctx := r.Context()
	var b *Booking
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		var err error
		if b, err = LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		return h.ApplyStatus(ctx, tx, b, next, Actor(r))
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	old := b.Status
	if old != next {
		h.Metrics.StatusChanged(string(old), string(next))
		logger.FromContext(ctx).Info("booking status changed",
			zap.Int64("booking_id", id),
			zap.String("from", string(old)),
			zap.String("to", string(next)),
		)
		h.announce(ctx, events.TypeStatusChanged, &Booking{ID: b.ID, SequenceID: b.SequenceID, Status: next}, map[string]any{"old_status": old})
	}

	api.OK(w, map[string]any{
		"reserva_id":  id,
		"old_status":  old,
		"new_status":  next,
		"sequence_id": b.SequenceID,
	}, fmt.Sprintf("Estado cambiado de \"%s\" a \"%s\"", old, next))
}

type updateGuestsRequest struct {
	BookingLineID *int64       `json:"booking_line_id"`
	Guests        []GuestInput `json:"guests"`
	Replace       bool         `json:"replace"`
}

func existingGuestInputs(guests []Guest) []GuestInput {
	out := make([]GuestInput, 0, len(guests))
	for _, g := range guests {
		age := g.Age
		out = append(out, GuestInput{Name: g.Name, PartnerID: g.PartnerID, Age: &age, Gender: g.Gender})
	}
	return out
}

func (h Handlers) UpdateGuests(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req updateGuestsRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}

	ctx := r.Context()
	cat := QuerierCatalog{Q: h.DB}
	added := 0
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		b, err := LockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.Status.IsTerminal() {
			return apperr.Validationf("No se puede modificar una reserva en estado \"%s\"", b.Status)
		}
		if len(req.Guests) == 0 {
			return apperr.Validation("Debe proporcionar al menos un huésped")
		}

		lines, err := Lines(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.BookingLineID != nil && *req.BookingLineID != 0 {
			var target []Line
			for _, l := range lines {
				if l.ID == *req.BookingLineID {
					target = append(target, l)
				}
			}
			if len(target) == 0 {
				return apperr.NotFoundf("La línea de reserva con ID %d no existe o no pertenece a esta reserva", *req.BookingLineID)
			}
			lines = target
		}
		if len(lines) == 0 {
			return apperr.Validation("La reserva no tiene líneas de habitación")
		}

		for _, l := range lines {
			all := req.Guests
			if !req.Replace && len(l.Guests) > 0 {
				all = append(existingGuestInputs(l.Guests), req.Guests...)
			}
			if err := ValidateGuests(ctx, cat, all, l.ID); err != nil {
				return err
			}
		}

		for _, l := range lines {
			if req.Replace {
				if err := DeleteGuests(ctx, tx, l.ID); err != nil {
					return err
				}
			}
			if err := CreateGuests(ctx, tx, l.ID, req.Guests); err != nil {
				return err
			}
			added += len(req.Guests)
		}
		return events.Insert(ctx, tx, id, nil, events.TypeGuestsUpdated,
			fmt.Sprintf("%d huésped(es) agregado(s)", added), Actor(r), h.now(),
			map[string]any{"guests_added": added, "replace": req.Replace})
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	view, err := h.view(ctx, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	logger.FromContext(ctx).Info("booking guests updated", zap.Int64("booking_id", id), zap.Int("guests_added", added))
	api.OK(w, map[string]any{
		"reserva_id":   id,
		"guests_added": added,
		"booking":      view,
	}, fmt.Sprintf("Se agregaron %d huésped(es) a la reserva", added))
}

type sendEmailRequest struct {
	TemplateXMLID string         `json:"template_xml_id"`
	ForceSend     *bool          `json:"force_send"`
	EmailValues   map[string]any `json:"email_values"`
}

// SendEmail records an email request and hands it to the mailer over NATS.
// Rendering happens downstream.
func (h Handlers) SendEmail(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req sendEmailRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if req.TemplateXMLID == "" {
		req.TemplateXMLID = DefaultEmailTemplate
	}
	force := true
	if req.ForceSend != nil {
		force = *req.ForceSend
	}

	ctx := r.Context()
	b, err := Load(ctx, h.DB, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	var requestID int64
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		var err error
		requestID, err = InsertEmailRequest(ctx, tx, EmailRequest{
			BookingID:     id,
			TemplateXMLID: req.TemplateXMLID,
			ForceSend:     force,
			EmailValues:   req.EmailValues,
			RequestedBy:   principalID(r),
		})
		if err != nil {
			return err
		}
		return events.Insert(ctx, tx, id, nil, events.TypeEmailRequest, "Correo solicitado", Actor(r), h.now(),
			map[string]any{"template_xml_id": req.TemplateXMLID, "email_request_id": requestID})
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	events.Announce(ctx, h.Events, events.SubjectEmail, events.TypeEmailRequest, map[string]any{
		"email_request_id": requestID,
		"booking_id":       id,
		"sequence_id":      b.SequenceID,
		"partner_id":       b.PartnerID,
		"template_xml_id":  req.TemplateXMLID,
		"force_send":       force,
		"email_values":     req.EmailValues,
	})

	api.OK(w, map[string]any{
		"reserva_id":      id,
		"template_xml_id": req.TemplateXMLID,
	}, "Correo enviado correctamente")
}

// Document streams one attachment of the booking.
func (h Handlers) Document(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	docID, err := api.PathID(r, "doc_id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	if _, err := Load(ctx, h.DB, id); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	d, err := DocumentByID(ctx, h.DB, id, docID)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if d == nil {
		api.WriteErr(w, r, apperr.NotFoundf("El documento con ID %d no existe", docID))
		return
	}
	if d.BlobKey == nil || h.Blobs == nil {
		api.WriteErr(w, r, apperr.NotFound("El documento no tiene archivo adjunto"))
		return
	}
	data, err := h.Blobs.Get(ctx, *d.BlobKey)
	if errors.Is(err, blob.ErrNotFound) {
		api.WriteErr(w, r, apperr.NotFound("El documento no tiene archivo adjunto"))
		return
	}
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
