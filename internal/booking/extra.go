package booking

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/internal/events"
	"hotelapi/pkg/db"
	"hotelapi/pkg/logger"
)

type NamedRef struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
}

type PartnerContact struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// ExtraInfos is the secondary information block of a booking.
type ExtraInfos struct {
	BookingID          int64           `json:"booking_id"`
	SequenceID         string          `json:"sequence_id"`
	BookingReference   *string         `json:"booking_reference"`
	BookingDate        string          `json:"booking_date"`
	BookingDays        decimal.Decimal `json:"booking_days"`
	Remarks            string          `json:"remarks"`
	Description        string          `json:"description"`
	MotivoViaje        string          `json:"motivo_viaje"`
	Origin             string          `json:"origin"`
	CancellationReason string          `json:"cancellation_reason"`
	Company            NamedRef        `json:"company"`
	StatusBar          Status          `json:"status_bar"`
	CheckIn            string          `json:"check_in"`
	CheckOut           string          `json:"check_out"`
	Partner            PartnerContact  `json:"partner"`
	Hotel              NamedRef        `json:"hotel"`
	User               NamedRef        `json:"user_id"`
	Currency           string          `json:"currency"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	CreateDate         string          `json:"create_date"`
	WriteDate          string          `json:"write_date"`
}

func partnerContact(ctx context.Context, q db.Querier, id int64) (PartnerContact, error) {
	c := PartnerContact{ID: id}
	err := q.QueryRow(ctx, `SELECT name, email, phone FROM partners WHERE id = $1`, id).Scan(&c.Name, &c.Email, &c.Phone)
	if db.IsNoRows(err) {
		return c, nil
	}
	return c, err
}

// CompanyName reports the company's name and whether it exists.
func CompanyName(ctx context.Context, q db.Querier, id int64) (string, bool, error) {
	var name string
	err := q.QueryRow(ctx, `SELECT name FROM companies WHERE id = $1`, id).Scan(&name)
	if db.IsNoRows(err) {
		return "", false, nil
	}
	return name, err == nil, err
}

func (v Viewer) extraInfos(b *Booking, lines []Line, partner PartnerContact) ExtraInfos {
	return ExtraInfos{
		BookingID:          b.ID,
		SequenceID:         b.SequenceID,
		BookingReference:   b.BookingReference,
		BookingDate:        v.fmt(b.BookingDate),
		BookingDays:        StayDays(b.CheckIn, b.CheckOut),
		Remarks:            b.Remarks,
		Description:        b.Description,
		MotivoViaje:        b.MotivoViaje,
		Origin:             b.Origin,
		CancellationReason: b.CancellationReason,
		Company:            NamedRef{ID: b.CompanyID, Name: b.CompanyName},
		StatusBar:          b.Status,
		CheckIn:            v.fmt(b.CheckIn),
		CheckOut:           v.fmt(b.CheckOut),
		Partner:            partner,
		Hotel:              NamedRef{ID: b.HotelID, Name: b.HotelName},
		User:               NamedRef{ID: b.UserID, Name: b.UserName},
		Currency:           b.Currency,
		TotalAmount:        ComputeTotals(b, lines).Total,
		CreateDate:         v.fmt(b.CreatedAt),
		WriteDate:          v.fmt(b.UpdatedAt),
	}
}

func (h Handlers) loadExtraInfos(ctx context.Context, id int64) (*ExtraInfos, error) {
	b, err := Load(ctx, h.DB, id)
	if err != nil {
		return nil, err
	}
	lines, err := Lines(ctx, h.DB, id)
	if err != nil {
		return nil, err
	}
	partner, err := partnerContact(ctx, h.DB, b.PartnerID)
	if err != nil {
		return nil, err
	}
	info := h.viewer().extraInfos(b, lines, partner)
	return &info, nil
}

func (h Handlers) GetExtraInfos(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	info, err := h.loadExtraInfos(r.Context(), id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, info, "")
}

type extraInfosRequest struct {
	BookingDate        *string `json:"booking_date"`
	Description        *string `json:"description"`
	Remarks            *string `json:"remarks"`
	MotivoViaje        *string `json:"motivo_viaje"`
	Origin             *string `json:"origin"`
	CancellationReason *string `json:"cancellation_reason"`
	BookingReference   *string `json:"booking_reference"`
	CompanyID          *int64  `json:"company_id"`
	UserID             *int64  `json:"user_id"`
}

func (h Handlers) extraChanges(ctx context.Context, req extraInfosRequest) ([]Change, error) {
	var out []Change
	add := func(col string, v any) { out = append(out, Change{col, v}) }

	if req.BookingDate != nil {
		t, err := ParseDateTime(*req.BookingDate, "booking_date", h.Loc)
		if err != nil {
			return nil, apperr.Validation("Formato de fecha inválido")
		}
		add("booking_date", t)
	}
	if req.BookingReference != nil {
		if err := ValidateBookingReference(*req.BookingReference); err != nil {
			return nil, err
		}
		add("booking_reference", nilIfEmpty(*req.BookingReference))
	}
	if req.CompanyID != nil {
		if _, ok, err := CompanyName(ctx, h.DB, *req.CompanyID); err != nil {
			return nil, err
		} else if !ok {
			return nil, apperr.NotFoundf("Empresa con ID %d no encontrada", *req.CompanyID)
		}
		add("company_id", *req.CompanyID)
	}
	if req.UserID != nil {
		add("user_id", *req.UserID)
	}
	texts := []struct {
		col string
		v   *string
	}{
		{"description", req.Description},
		{"remarks", req.Remarks},
		{"motivo_viaje", req.MotivoViaje},
		{"origin", req.Origin},
		{"cancellation_reason", req.CancellationReason},
	}
	for _, t := range texts {
		if t.v != nil {
			add(t.col, *t.v)
		}
	}
	return out, nil
}

func (h Handlers) UpdateExtraInfos(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req extraInfosRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	changes, err := h.extraChanges(ctx, req)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if err := h.writeExtra(r, id, changes); err != nil {
		api.WriteErr(w, r, err)
		return
	}

	info, err := h.loadExtraInfos(ctx, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	logger.FromContext(ctx).Info("booking extra infos updated", zap.Int64("booking_id", id), zap.Int("fields", len(changes)))
	api.OK(w, info, "Información adicional actualizada exitosamente")
}

func (h Handlers) writeExtra(r *http.Request, id int64, changes []Change) error {
	ctx := r.Context()
	return db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		if _, err := LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := Update(ctx, tx, id, changes); err != nil {
			return err
		}
		cols := make([]string, 0, len(changes))
		for _, c := range changes {
			cols = append(cols, c.Column)
		}
		return events.Insert(ctx, tx, id, nil, events.TypeUpdated, "Información adicional actualizada", Actor(r), h.now(),
			map[string]any{"fields": cols})
	})
}

type remarksRequest struct {
	Remarks *string `json:"remarks"`
}

func (h Handlers) UpdateRemarks(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req remarksRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if req.Remarks == nil {
		api.WriteErr(w, r, apperr.Validation("El campo remarks es requerido"))
		return
	}
	if err := h.writeExtra(r, id, []Change{{"remarks", *req.Remarks}}); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	b, err := Load(r.Context(), h.DB, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, map[string]any{
		"booking_id":  id,
		"sequence_id": b.SequenceID,
		"remarks":     b.Remarks,
		"updated_at":  h.viewer().fmt(b.UpdatedAt),
	}, "Observaciones actualizadas exitosamente")
}

type companyRequest struct {
	CompanyID *int64 `json:"company_id"`
}

func (h Handlers) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req companyRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if req.CompanyID == nil {
		api.WriteErr(w, r, apperr.Validation("El campo company_id es requerido"))
		return
	}
	ctx := r.Context()
	if _, err := Load(ctx, h.DB, id); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	name, ok, err := CompanyName(ctx, h.DB, *req.CompanyID)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if !ok {
		api.WriteErr(w, r, apperr.NotFoundf("Empresa con ID %d no encontrada", *req.CompanyID))
		return
	}
	if err := h.writeExtra(r, id, []Change{{"company_id", *req.CompanyID}}); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	b, err := Load(ctx, h.DB, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	logger.FromContext(ctx).Info("booking company updated", zap.Int64("booking_id", id), zap.String("company", name))
	api.OK(w, map[string]any{
		"booking_id":  id,
		"sequence_id": b.SequenceID,
		"company":     NamedRef{ID: b.CompanyID, Name: b.CompanyName},
		"updated_at":  h.viewer().fmt(b.UpdatedAt),
	}, "Empresa actualizada exitosamente")
}
