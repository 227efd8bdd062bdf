package pricing

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/internal/audit"
	"hotelapi/internal/booking"
	"hotelapi/internal/events"
	"hotelapi/pkg/db"
	"hotelapi/pkg/logger"
	"hotelapi/pkg/metrics"
)

type Handlers struct {
	DB      *pgxpool.Pool
	Loc     *time.Location
	Events  events.Publisher
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func principalID(ctx context.Context) *int64 {
	if p := api.PrincipalFromContext(ctx); p != nil {
		id := p.UserID
		return &id
	}
	return nil
}

func lineNotFound(id int64) error {
	return apperr.NotFoundf("Línea de reserva con ID %d no encontrada", id)
}

func (h Handlers) lineInfo(ctx context.Context, lineID int64) (*LinePriceInfo, error) {
	l, err := booking.LineByID(ctx, h.DB, lineID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, lineNotFound(lineID)
	}
	b, err := booking.Load(ctx, h.DB, l.BookingID)
	if err != nil {
		return nil, err
	}
	info := LineInfo(b, *l, h.Loc)
	return &info, nil
}

func (h Handlers) LinePriceInfo(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "line_id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	info, err := h.lineInfo(r.Context(), id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, info, "Información obtenida exitosamente")
}

type historyEntry struct {
	Date        string `json:"date"`
	Author      string `json:"author"`
	EventType   string `json:"event_type"`
	Description string `json:"description"`
	Data        any    `json:"data,omitempty"`
}

func (h Handlers) history(evs []events.Event) []historyEntry {
	out := make([]historyEntry, 0, len(evs))
	for _, e := range evs {
		out = append(out, historyEntry{
			Date:        booking.FormatDateTime(e.OccurredAt, h.Loc),
			Author:      e.Actor,
			EventType:   e.EventType,
			Description: e.Summary,
			Data:        e.Data,
		})
	}
	return out
}

func (h Handlers) LinePriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "line_id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	info, err := h.lineInfo(ctx, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	evs, err := events.ListByLine(ctx, h.DB, id, 20)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var last *string
	if len(evs) > 0 {
		s := booking.FormatDateTime(evs[0].OccurredAt, h.Loc)
		last = &s
	}
	api.OK(w, map[string]any{
		"booking_line_info": info,
		"changes":           h.history(evs),
		"last_update":       last,
	}, "Historial obtenido exitosamente")
}

type changeInfo struct {
	OldPrice        decimal.Decimal `json:"old_price"`
	PriceDifference decimal.Decimal `json:"price_difference"`
	ChangedBy       string          `json:"changed_by"`
	ChangedAt       string          `json:"changed_at"`
}

// ChangePrice sets a manual per-night price on a line. The first change keeps
// the previous price as the line's original price.
func (h Handlers) ChangePrice(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "line_id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req ChangeRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}

	ctx := r.Context()
	actor := booking.Actor(r)
	at := h.now()
	var (
		b        *booking.Booking
		oldPrice decimal.Decimal
		newPrice decimal.Decimal
	)
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		l, err := LockLine(ctx, tx, id)
		if err != nil {
			return err
		}
		if l == nil {
			return lineNotFound(id)
		}
		if b, err = booking.Load(ctx, tx, l.BookingID); err != nil {
			return err
		}
		if err := CheckEditable(b, l, api.PrincipalFromContext(ctx)); err != nil {
			return err
		}
		price, reason, err := req.Validate()
		if err != nil {
			return err
		}
		if err := CheckChange(l, b.Currency, price, req.Force); err != nil {
			return err
		}

		oldPrice, newPrice = l.Price, price
		var original *decimal.Decimal
		if l.OriginalPrice == nil {
			original = &oldPrice
		}
		if err := SetLinePrice(ctx, tx, id, price, original, reason); err != nil {
			return err
		}
		bookingID := b.ID
		if err := audit.Insert(ctx, tx, principalID(ctx), &bookingID, audit.ActionPriceChanged, actor, map[string]any{
			"booking_line_id": id, "old_price": oldPrice, "new_price": price,
		}); err != nil {
			return err
		}
		sym := CurrencyOf(b.Currency).Symbol
		return events.Insert(ctx, tx, b.ID, &id, events.TypePriceChanged,
			"Cambio de precio - Línea "+l.SequenceID+": "+sym+" "+oldPrice.StringFixed(2)+" -> "+sym+" "+price.StringFixed(2),
			actor, at, map[string]any{"old_price": oldPrice, "new_price": price, "reason": reason})
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	info, err := h.lineInfo(ctx, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	h.Metrics.PriceChanged()
	logger.FromContext(ctx).Info("line price changed",
		zap.Int64("booking_line_id", id),
		zap.String("old_price", oldPrice.String()),
		zap.String("new_price", newPrice.String()),
		zap.String("actor", actor),
	)
	events.Announce(ctx, h.Events, events.SubjectBooking, events.TypePriceChanged, map[string]any{
		"booking_id":      b.ID,
		"booking_line_id": id,
		"old_price":       oldPrice,
		"new_price":       newPrice,
	})

	api.OK(w, struct {
		*LinePriceInfo
		ChangeInfo changeInfo `json:"change_info"`
	}{info, changeInfo{
		OldPrice:        oldPrice,
		PriceDifference: newPrice.Sub(oldPrice),
		ChangedBy:       actor,
		ChangedAt:       booking.FormatDateTime(at, h.Loc),
	}}, "Precio actualizado exitosamente")
}

type resetInfo struct {
	OldPrice        decimal.Decimal `json:"old_price"`
	RestoredPrice   decimal.Decimal `json:"restored_price"`
	PriceDifference decimal.Decimal `json:"price_difference"`
	ResetBy         string          `json:"reset_by"`
	ResetAt         string          `json:"reset_at"`
}

func (h Handlers) ResetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "line_id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	ctx := r.Context()
	actor := booking.Actor(r)
	at := h.now()
	var oldPrice, restored decimal.Decimal
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		l, err := LockLine(ctx, tx, id)
		if err != nil {
			return err
		}
		if l == nil {
			return lineNotFound(id)
		}
		b, err := booking.Load(ctx, tx, l.BookingID)
		if err != nil {
			return err
		}
		if err := CheckEditable(b, l, api.PrincipalFromContext(ctx)); err != nil {
			return err
		}
		if l.OriginalPrice == nil || l.OriginalPrice.IsZero() {
			return apperr.Validation("No hay precio original registrado para restaurar")
		}
		if l.Price.Equal(*l.OriginalPrice) {
			return apperr.Validation("El precio ya está en su valor original")
		}
		oldPrice, restored = l.Price, *l.OriginalPrice
		if err := ResetLinePrice(ctx, tx, id); err != nil {
			return err
		}
		bookingID := b.ID
		if err := audit.Insert(ctx, tx, principalID(ctx), &bookingID, audit.ActionPriceReset, actor, map[string]any{
			"booking_line_id": id, "restored_price": restored,
		}); err != nil {
			return err
		}
		return events.Insert(ctx, tx, b.ID, &id, events.TypePriceReset,
			"Precio restaurado - Línea "+l.SequenceID, actor, at,
			map[string]any{"old_price": oldPrice, "restored_price": restored})
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	info, err := h.lineInfo(ctx, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	logger.FromContext(ctx).Info("line price reset", zap.Int64("booking_line_id", id), zap.String("actor", actor))
	api.OK(w, struct {
		*LinePriceInfo
		ResetInfo resetInfo `json:"reset_info"`
	}{info, resetInfo{
		OldPrice:        oldPrice,
		RestoredPrice:   restored,
		PriceDifference: restored.Sub(oldPrice),
		ResetBy:         actor,
		ResetAt:         booking.FormatDateTime(at, h.Loc),
	}}, "Precio restaurado exitosamente")
}

// BookingLines lists the price info of every line of a booking.
func (h Handlers) BookingLines(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	b, err := booking.Load(ctx, h.DB, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	lines, err := booking.Lines(ctx, h.DB, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	infos := make([]LinePriceInfo, 0, len(lines))
	var original, current, discount decimal.Decimal
	for _, l := range lines {
		info := LineInfo(b, l, h.Loc)
		infos = append(infos, info)
		original = original.Add(info.OriginalPrice)
		current = current.Add(info.CurrentPrice)
		discount = discount.Add(info.DiscountAmount)
	}
	api.OK(w, map[string]any{
		"booking_id":     id,
		"sequence_id":    b.SequenceID,
		"total_lines":    len(lines),
		"total_original": original,
		"total_current":  current,
		"total_discount": discount,
		"lines":          infos,
	}, "Información obtenida exitosamente")
}
