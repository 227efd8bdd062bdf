package billing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/internal/booking"
	"hotelapi/internal/events"
	"hotelapi/internal/pricing"
	"hotelapi/pkg/db"
	"hotelapi/pkg/logger"
)

type Handlers struct {
	DB     *pgxpool.Pool
	Loc    *time.Location
	Events events.Publisher
	// Bookings runs status transitions for mark_room_ready.
	Bookings booking.Handlers
	Now      func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func errNoOrder() error {
	return apperr.Validation("La reserva no tiene una orden de venta asociada. Confirme la reserva primero.")
}

// orderOf loads the booking's sale order, failing when it has none.
func orderOf(ctx context.Context, q db.Querier, b *booking.Booking) (*Order, error) {
	if b.OrderID == nil {
		return nil, errNoOrder()
	}
	o, err := GetOrder(ctx, q, *b.OrderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errNoOrder()
	}
	return o, nil
}

type invoiceView struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	MoveType    string          `json:"move_type"`
	Kind        string          `json:"kind"`
	State       string          `json:"state"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	Currency    string          `json:"currency"`
}

func viewInvoice(inv *Invoice) invoiceView {
	return invoiceView{inv.ID, inv.Name, inv.MoveType, inv.Kind, inv.State, inv.AmountTotal, inv.Currency}
}

type advanceRequest struct {
	Method             Method           `json:"advance_payment_method"`
	Amount             *decimal.Decimal `json:"amount"`
	DeductDownPayments *bool            `json:"deduct_down_payments"`
}

// issue plans and posts one invoice for a locked booking.
func (h Handlers) issue(ctx context.Context, tx pgx.Tx, b *booking.Booking, plan func(Ledger) (Plan, error), actor string) (*Invoice, *Order, error) {
	o, err := orderOf(ctx, tx, b)
	if err != nil {
		return nil, nil, err
	}
	l, err := LoadLedger(ctx, tx, o)
	if err != nil {
		return nil, nil, err
	}
	p, err := plan(l)
	if err != nil {
		return nil, nil, err
	}
	at := h.now()
	inv, err := InsertInvoice(ctx, tx, o, b.ID, p, at.In(h.Loc))
	if err != nil {
		return nil, nil, err
	}
	err = events.Insert(ctx, tx, b.ID, nil, events.TypeInvoice, "Factura "+inv.Name+" creada", actor, at, map[string]any{
		"invoice_id": inv.ID, "kind": inv.Kind, "amount_total": inv.AmountTotal, "deducted_amount": inv.DeductedAmount,
	})
	if err != nil {
		return nil, nil, err
	}
	return inv, o, nil
}

func (h Handlers) announceInvoice(ctx context.Context, b *booking.Booking, inv *Invoice) {
	logger.FromContext(ctx).Info("invoice created",
		zap.Int64("booking_id", b.ID),
		zap.String("invoice", inv.Name),
		zap.String("kind", inv.Kind),
		zap.String("amount_total", inv.AmountTotal.String()),
	)
	events.Announce(ctx, h.Events, events.SubjectBooking, events.TypeInvoice, map[string]any{
		"booking_id":   b.ID,
		"sequence_id":  b.SequenceID,
		"invoice_id":   inv.ID,
		"invoice_name": inv.Name,
		"kind":         inv.Kind,
		"amount_total": inv.AmountTotal,
	})
}

// AdvancePayment creates a down payment or regular invoice for the booking's
// sale order.
func (h Handlers) AdvancePayment(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req advanceRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if req.Method == "" {
		req.Method = MethodPercentage
	}
	deduct := req.DeductDownPayments == nil || *req.DeductDownPayments

	ctx := r.Context()
	var (
		b   *booking.Booking
		o   *Order
		inv *Invoice
	)
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		var err error
		if b, err = booking.LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		inv, o, err = h.issue(ctx, tx, b, func(l Ledger) (Plan, error) {
			return PlanAdvance(l, req.Method, req.Amount, deduct)
		}, booking.Actor(r))
		return err
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	h.announceInvoice(ctx, b, inv)

	api.OK(w, map[string]any{
		"reserva_id":             b.ID,
		"sale_order_id":          o.ID,
		"advance_payment_method": req.Method,
		"invoices_created":       []invoiceView{viewInvoice(inv)},
	}, "Anticipo creado exitosamente")
}

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var paymentTypeOptions = []option{
	{"inbound", "Recibir dinero"},
	{"outbound", "Enviar dinero"},
}

// AdvancePaymentOptions returns the defaults and choices of the payment modal.
func (h Handlers) AdvancePaymentOptions(w http.ResponseWriter, r *http.Request) {
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
	o, err := orderOf(ctx, h.DB, b)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	l, err := LoadLedger(ctx, h.DB, o)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	journals, err := Journals(ctx, h.DB, o.CompanyID)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	method := MethodDelivered
	if l.DownPayments.IsZero() && l.FinalGross.IsZero() {
		method = MethodPercentage
	}
	defaults := map[string]any{
		"advance_payment_method": method,
		"amount":                 l.Residual(),
		"fixed_amount":           l.ToInvoice(),
		"has_down_payments":      l.DownPayments.IsPositive(),
		"deduct_down_payments":   true,
		"amount_invoiced":        l.Invoiced(),
		"amount_to_invoice":      l.ToInvoice(),
		"amount_paid":            l.Paid,
		"payment_type":           "inbound",
		"payment_date":           h.now().In(h.Loc).Format("2006-01-02"),
		"journal_id":             nil,
		"journal_name":           nil,
		"currency":               pricing.CurrencyOf(o.Currency),
		"partner":                pricing.Ref{ID: o.PartnerID, Name: o.PartnerName},
		"customer":               o.PartnerName,
		"company":                nil,
		"sale_order_id":          o.ID,
		"sale_order_name":        o.Name,
	}
	if len(journals) > 0 {
		defaults["journal_id"] = journals[0].ID
		defaults["journal_name"] = journals[0].Name
	}
	if o.CompanyID != nil {
		defaults["company"] = pricing.Ref{ID: *o.CompanyID, Name: named(o.CompanyName, "")}
	}

	methods := make([]option, 0, len(methodLabels))
	for _, m := range methodLabels {
		methods = append(methods, option{string(m.Value), m.Label})
	}
	api.OK(w, map[string]any{
		"defaults":                defaults,
		"advance_payment_methods": methods,
		"payment_type_options":    paymentTypeOptions,
		"journal_options":         journals,
	}, "")
}

type paymentRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	JournalID   *int64           `json:"journal_id" validate:"required"`
	PaymentType string           `json:"payment_type"`
	Date        string           `json:"date"`
}

// RegisterPayment records money received (or refunded) against the order.
func (h Handlers) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req paymentRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if !req.Amount.IsPositive() {
		api.WriteErr(w, r, apperr.Validation("El monto del pago debe ser mayor a 0"))
		return
	}
	if req.PaymentType == "" {
		req.PaymentType = "inbound"
	}
	if req.PaymentType != "inbound" && req.PaymentType != "outbound" {
		api.WriteErr(w, r, apperr.Validation(`payment_type debe ser "inbound" o "outbound"`))
		return
	}
	date := h.now().In(h.Loc)
	if s := strings.TrimSpace(req.Date); s != "" {
		if date, err = time.ParseInLocation("2006-01-02", s, h.Loc); err != nil {
			api.WriteErr(w, r, apperr.Validation("Formato de fecha inválido. Use YYYY-MM-DD"))
			return
		}
	}

	ctx := r.Context()
	actor := booking.Actor(r)
	var (
		b         *booking.Booking
		o         *Order
		journal   *Journal
		paymentID int64
		ledger    Ledger
	)
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		var err error
		if b, err = booking.LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if o, err = orderOf(ctx, tx, b); err != nil {
			return err
		}
		if journal, err = JournalByID(ctx, tx, *req.JournalID); err != nil {
			return err
		}
		if journal == nil {
			return apperr.NotFoundf("Diario con ID %d no encontrado", *req.JournalID)
		}
		var createdBy *int64
		if p := api.PrincipalFromContext(ctx); p != nil {
			uid := p.UserID
			createdBy = &uid
		}
		paymentID, err = InsertPayment(ctx, tx, NewPayment{
			BookingID:   b.ID,
			OrderID:     o.ID,
			JournalID:   journal.ID,
			PaymentType: req.PaymentType,
			Amount:      *req.Amount,
			Currency:    o.Currency,
			Date:        date,
			CreatedBy:   createdBy,
		})
		if err != nil {
			return err
		}
		if ledger, err = LoadLedger(ctx, tx, o); err != nil {
			return err
		}
		return events.Insert(ctx, tx, b.ID, nil, events.TypePayment,
			"Pago registrado: "+pricing.CurrencyOf(o.Currency).Symbol+" "+req.Amount.StringFixed(2), actor, h.now(),
			map[string]any{"payment_id": paymentID, "journal_id": journal.ID, "payment_type": req.PaymentType, "amount": req.Amount})
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	logger.FromContext(ctx).Info("payment registered",
		zap.Int64("booking_id", b.ID),
		zap.Int64("payment_id", paymentID),
		zap.String("amount", req.Amount.String()),
	)
	events.Announce(ctx, h.Events, events.SubjectBooking, events.TypePayment, map[string]any{
		"booking_id": b.ID, "payment_id": paymentID, "amount": req.Amount, "payment_type": req.PaymentType,
	})
	api.Created(w, map[string]any{
		"payment_id":    paymentID,
		"reserva_id":    b.ID,
		"sale_order_id": o.ID,
		"amount":        req.Amount,
		"payment_type":  req.PaymentType,
		"payment_date":  date.Format("2006-01-02"),
		"journal":       journal,
		"paid_amount":   ledger.Paid,
		"residual":      ledger.Residual(),
	}, "Pago registrado exitosamente")
}

var invoiceStatuses = map[booking.Status]bool{
	booking.StatusCheckout:       true,
	booking.StatusCleaningNeeded: true,
}

// CreateInvoice posts the final invoice once the guest checked out. Pending
// down payments are deducted.
func (h Handlers) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	var (
		b   *booking.Booking
		inv *Invoice
	)
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		var err error
		if b, err = booking.LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if b.OrderID == nil {
			return apperr.Validation("La reserva no tiene una orden de venta asociada.")
		}
		if !invoiceStatuses[b.Status] {
			return apperr.Validation(`Solo se puede crear la factura cuando la reserva está en estado "checkout" o "cleaning_needed".`)
		}
		inv, _, err = h.issue(ctx, tx, b, func(l Ledger) (Plan, error) {
			return PlanFinal(l, true)
		}, booking.Actor(r))
		return err
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	h.announceInvoice(ctx, b, inv)

	api.OK(w, map[string]any{
		"reserva_id": b.ID,
		"invoices":   []invoiceView{viewInvoice(inv)},
	}, "Factura creada correctamente.")
}
