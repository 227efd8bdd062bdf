package billing

import (
	"fmt"
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

type printRequest struct {
	PrintMode string `json:"print_mode"`
	Detailed  bool   `json:"detailed"`
}

// PrintBill returns the booking bill as structured data.
func (h Handlers) PrintBill(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req printRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	mode, err := ValidatePrintMode(req.PrintMode)
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
	in := BillInput{Booking: b}
	if in.Lines, err = booking.Lines(ctx, h.DB, id); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if b.OrderID != nil {
		o, err := GetOrder(ctx, h.DB, *b.OrderID)
		if err != nil {
			api.WriteErr(w, r, err)
			return
		}
		if o != nil {
			if in.Ledger, err = LoadLedger(ctx, h.DB, o); err != nil {
				api.WriteErr(w, r, err)
				return
			}
			if in.Invoices, err = Invoices(ctx, h.DB, o.ID); err != nil {
				api.WriteErr(w, r, err)
				return
			}
			if in.Payments, err = Payments(ctx, h.DB, o.ID); err != nil {
				api.WriteErr(w, r, err)
				return
			}
		}
	}
	api.OK(w, BuildBill(in, mode, req.Detailed, h.Loc, h.now()), "")
}

// MarkRoomReady finishes housekeeping for a booking in cleaning_needed.
func (h Handlers) MarkRoomReady(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	var b *booking.Booking
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		var err error
		if b, err = booking.LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if b.Status != booking.StatusCleaningNeeded {
			return apperr.Validation(`La habitación solo puede marcarse como lista desde el estado "cleaning_needed".`)
		}
		return h.Bookings.ApplyStatus(ctx, tx, b, booking.StatusRoomReady, booking.Actor(r))
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	h.Bookings.Metrics.StatusChanged(string(booking.StatusCleaningNeeded), string(booking.StatusRoomReady))
	logger.FromContext(ctx).Info("room marked ready", zap.Int64("booking_id", id))
	events.Announce(ctx, h.Events, events.SubjectBooking, events.TypeStatusChanged, map[string]any{
		"booking_id": id, "sequence_id": b.SequenceID, "old_status": booking.StatusCleaningNeeded, "status_bar": booking.StatusRoomReady,
	})

	api.OK(w, map[string]any{
		"reserva_id": id,
		"status_bar": booking.StatusRoomReady,
	}, `La reserva fue marcada como "Habitación Lista".`)
}

type orderSummary struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	State       string          `json:"state"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	Currency    string          `json:"currency"`
}

type bookingSync struct {
	BookingID      int64   `json:"booking_id"`
	SequenceID     string  `json:"sequence_id"`
	ServicesSynced int     `json:"services_synced"`
	OrderIDs       []int64 `json:"order_ids"`
}

// SyncMessage words the sync_services outcome.
func SyncMessage(added, orders int) string {
	switch {
	case added > 0:
		return fmt.Sprintf("Se sincronizaron %d servicio(s) en la cadena de reservas.", added)
	case orders > 0:
		return "No se agregaron servicios nuevos; las órdenes ya estaban sincronizadas."
	default:
		return "No se encontraron órdenes de venta para sincronizar."
	}
}

// SyncServices pushes additional services into the sale orders of a booking
// and the bookings of its room change.
func (h Handlers) SyncServices(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	actor := booking.Actor(r)

	var (
		total     int
		orders    []orderSummary
		processed []bookingSync
	)
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		b, err := booking.LockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		lines, err := booking.Lines(ctx, tx, id)
		if err != nil {
			return err
		}
		hasRoomChange := b.ConnectedBookingID != nil || b.SplitFromBookingID != nil
		if !hasRoomChange && len(lines) <= 1 {
			return apperr.Validation("La sincronización de servicios solo está disponible para reservas con cambio de habitación o reservas múltiples.")
		}

		targets := []*booking.Booking{b}
		for _, linked := range []*int64{b.ConnectedBookingID, b.SplitFromBookingID} {
			if linked == nil || *linked == b.ID {
				continue
			}
			lb, err := booking.Get(ctx, tx, *linked)
			if err != nil {
				return err
			}
			if lb != nil {
				targets = append(targets, lb)
			}
		}

		seen := map[int64]bool{}
		for _, t := range targets {
			if err := EnsureServices(ctx, tx, t); err != nil {
				return err
			}
			active, err := ActiveOrders(ctx, tx, t.ID, t.OrderID)
			if err != nil {
				return err
			}
			res := bookingSync{BookingID: t.ID, SequenceID: t.SequenceID, OrderIDs: []int64{}}
			for _, o := range active {
				added, err := SyncOrder(ctx, tx, o.ID, t.ID)
				if err != nil {
					return err
				}
				res.ServicesSynced += added
				res.OrderIDs = append(res.OrderIDs, o.ID)
				if !seen[o.ID] {
					seen[o.ID] = true
					orders = append(orders, orderSummary{ID: o.ID, Name: o.Name, State: o.State, Currency: o.Currency})
				}
			}
			total += res.ServicesSynced
			processed = append(processed, res)
		}

		// totals changed with the new lines
		for i := range orders {
			o, err := GetOrder(ctx, tx, orders[i].ID)
			if err != nil {
				return err
			}
			if o != nil {
				orders[i].AmountTotal = o.AmountTotal
			}
		}
		if total == 0 {
			return nil
		}
		return events.Insert(ctx, tx, b.ID, nil, events.TypeServicesSync, SyncMessage(total, len(orders)), actor, h.now(),
			map[string]any{"services_synced": total})
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if orders == nil {
		orders = []orderSummary{}
	}
	logger.FromContext(ctx).Info("services synced", zap.Int64("booking_id", id), zap.Int("services_synced", total))

	api.OK(w, map[string]any{
		"reserva_id":         id,
		"services_synced":    total,
		"orders":             orders,
		"bookings_processed": processed,
	}, SyncMessage(total, len(orders)))
}
