package pricing

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/internal/booking"
	"hotelapi/internal/events"
	"hotelapi/pkg/db"
	"hotelapi/pkg/logger"
)

func (h Handlers) priced(ctx context.Context, id int64) (Priced, error) {
	b, err := booking.Load(ctx, h.DB, id)
	if err != nil {
		return Priced{}, err
	}
	return Load(ctx, h.DB, b, h.Loc)
}

func (h Handlers) BookingPriceInfo(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	p, err := h.priced(r.Context(), id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, BookingInfo(p, h.Loc), "")
}

func (h Handlers) PriceBreakdown(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	p, err := h.priced(r.Context(), id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, Breakdown(p, h.Loc), "")
}

type priceInfoRequest struct {
	DiscountReason           *string          `json:"discount_reason"`
	EarlyCheckinCharge       *decimal.Decimal `json:"early_checkin_charge"`
	LateCheckoutCharge       *decimal.Decimal `json:"late_checkout_charge"`
	ManualServiceDescription *string          `json:"manual_service_description"`
	ManualServiceAmount      *decimal.Decimal `json:"manual_service_amount"`
}

func (req priceInfoRequest) changes() ([]booking.Change, error) {
	amounts := []struct {
		col string
		v   *decimal.Decimal
		msg string
	}{
		{"early_checkin_charge", req.EarlyCheckinCharge, "El cargo por check-in temprano no puede ser negativo"},
		{"late_checkout_charge", req.LateCheckoutCharge, "El cargo por check-out tardío no puede ser negativo"},
		{"manual_service_amount", req.ManualServiceAmount, "El monto del servicio manual no puede ser negativo"},
	}
	var out []booking.Change
	for _, a := range amounts {
		if a.v == nil {
			continue
		}
		if a.v.IsNegative() {
			return nil, apperr.Validation(a.msg)
		}
		out = append(out, booking.Change{Column: a.col, Value: db.Str(*a.v)})
	}
	if req.DiscountReason != nil {
		out = append(out, booking.Change{Column: "discount_reason", Value: *req.DiscountReason})
	}
	if req.ManualServiceDescription != nil {
		out = append(out, booking.Change{Column: "manual_service_description", Value: *req.ManualServiceDescription})
	}
	return out, nil
}

func (h Handlers) UpdatePriceInfo(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req priceInfoRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	changes, err := req.changes()
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	ctx := r.Context()
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		if _, err := booking.LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := booking.Update(ctx, tx, id, changes); err != nil {
			return err
		}
		fields := make([]string, 0, len(changes))
		for _, c := range changes {
			fields = append(fields, c.Column)
		}
		return events.Insert(ctx, tx, id, nil, events.TypePricingEdited, "Información de precios actualizada",
			booking.Actor(r), h.now(), map[string]any{"fields": fields})
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	p, err := h.priced(ctx, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	logger.FromContext(ctx).Info("booking pricing updated", zap.Int64("booking_id", id), zap.Int("fields", len(changes)))
	api.OK(w, BookingInfo(p, h.Loc), "Información de precios actualizada exitosamente")
}

// Recalculate realigns every line's booking_days with the stay dates.
func (h Handlers) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		b, err := booking.LockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		return booking.SetLineDays(ctx, tx, id, booking.StayDays(b.CheckIn, b.CheckOut))
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	p, err := h.priced(ctx, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, BookingInfo(p, h.Loc), "Precios recalculados exitosamente")
}

var priceEventTypes = []string{events.TypePriceChanged, events.TypePriceReset, events.TypePricingEdited}

func (h Handlers) BookingPriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	p, err := h.priced(ctx, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	evs, err := events.ListByBooking(ctx, h.DB, id, priceEventTypes, 100)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, map[string]any{
		"booking_id":         id,
		"sequence_id":        p.Booking.SequenceID,
		"current_price_info": BookingInfo(p, h.Loc),
		"changes":            h.history(evs),
		"created_at":         booking.FormatDateTime(p.Booking.CreatedAt, h.Loc),
		"last_updated":       booking.FormatDateTime(p.Booking.UpdatedAt, h.Loc),
	}, "")
}
