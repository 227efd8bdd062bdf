package booking

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/internal/events"
	"hotelapi/pkg/blob"
	"hotelapi/pkg/db"
	"hotelapi/pkg/logger"
	"hotelapi/pkg/metrics"
)

// ConfirmHook runs inside the status transaction when a booking is confirmed.
type ConfirmHook func(ctx context.Context, tx pgx.Tx, b *Booking) error

type Handlers struct {
	DB       *pgxpool.Pool
	Loc      *time.Location
	Currency string
	Blobs    blob.Store
	Events   events.Publisher
	Metrics  *metrics.Metrics

	OnConfirm ConfirmHook
	Now       func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h Handlers) viewer() Viewer {
	return Viewer{Loc: h.Loc}
}

func NotFoundError(id int64) error {
	return apperr.NotFoundf("La reserva con ID %d no existe", id)
}

// Actor names the caller in event rows.
func Actor(r *http.Request) string {
	if p := api.PrincipalFromContext(r.Context()); p != nil {
		return p.Login
	}
	return "api"
}

func principalID(r *http.Request) *int64 {
	if p := api.PrincipalFromContext(r.Context()); p != nil {
		id := p.UserID
		return &id
	}
	return nil
}

// Load fetches a booking or returns the not-found error.
func Load(ctx context.Context, q db.Querier, id int64) (*Booking, error) {
	b, err := Get(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, NotFoundError(id)
	}
	return b, nil
}

// LockForUpdate is GetForUpdate with the not-found error.
func LockForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*Booking, error) {
	b, err := GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, NotFoundError(id)
	}
	return b, nil
}

func (h Handlers) views(ctx context.Context, bookings []*Booking) ([]*View, error) {
	out := make([]*View, 0, len(bookings))
	v := h.viewer()
	for _, b := range bookings {
		view, err := v.Build(ctx, h.DB, b)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (h Handlers) view(ctx context.Context, id int64) (*View, error) {
	b, err := Load(ctx, h.DB, id)
	if err != nil {
		return nil, err
	}
	return h.viewer().Build(ctx, h.DB, b)
}

func (h Handlers) announce(ctx context.Context, eventType string, b *Booking, extra map[string]any) {
	data := map[string]any{
		"event_id":    uuid.NewString(),
		"booking_id":  b.ID,
		"sequence_id": b.SequenceID,
		"status_bar":  b.Status,
	}
	for k, v := range extra {
		data[k] = v
	}
	events.Announce(ctx, h.Events, events.SubjectBooking, eventType, data)
}

// filterFromQuery reads the shared booking list filters. Empty values are
// ignored; unknown partners or hotels are rejected.
func (h Handlers) filterFromQuery(r *http.Request) (ListFilter, error) {
	var f ListFilter
	ctx := r.Context()
	cat := QuerierCatalog{Q: h.DB}

	partnerID, err := api.QueryInt64(r, "partner_id")
	if err != nil {
		return f, err
	}
	if partnerID != nil {
		ok, err := cat.PartnerExists(ctx, *partnerID)
		if err != nil {
			return f, err
		}
		if !ok {
			return f, apperr.Validationf("El partner con ID %d no existe", *partnerID)
		}
		f.PartnerID = partnerID
	}

	hotelParam := "hotel_id"
	if strings.TrimSpace(r.URL.Query().Get(hotelParam)) == "" {
		hotelParam = "hotel"
	}
	hotelID, err := api.QueryInt64(r, hotelParam)
	if err != nil {
		return f, apperr.Validation("El hotel_id debe ser un número entero válido")
	}
	if hotelID != nil {
		ok, err := cat.HotelExists(ctx, *hotelID)
		if err != nil {
			return f, err
		}
		if !ok {
			return f, apperr.Validationf("El hotel con ID %d no existe", *hotelID)
		}
		f.HotelID = hotelID
	}

	if f.UserID, err = api.QueryInt64(r, "user_id"); err != nil {
		return f, apperr.Validation("El user_id debe ser un número entero válido")
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status_bar")); raw != "" {
		s, err := ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = &s
	}
	if f.DateFrom, err = api.QueryDate(r, "date_from", h.Loc); err != nil {
		return f, err
	}
	if f.DateTo, err = api.QueryDate(r, "date_to", h.Loc); err != nil {
		return f, err
	}
	if f.Limit, err = api.QueryInt(r, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = api.QueryInt(r, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

func roomTypeMessage(p *Product) string {
	if p.IsRoomType {
		return "Es tipo de habitación"
	}
	return "No es tipo de habitación"
}

func (h Handlers) ListByHotel(w http.ResponseWriter, r *http.Request) {
	hotelID, err := api.PathID(r, "hotel_id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	name, ok, err := HotelName(r.Context(), h.DB, hotelID)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if !ok {
		api.WriteErr(w, r, apperr.NotFoundf("El hotel con ID %d no existe", hotelID))
		return
	}

	f, err := h.filterFromQuery(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	f.HotelID = &hotelID

	bookings, _, err := List(r.Context(), h.DB, f)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	data, err := h.views(r.Context(), bookings)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.M{
		"count":      len(data),
		"hotel_id":   hotelID,
		"hotel_name": name,
		"data":       data,
	})
}

func (h Handlers) ListByRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := api.PathID(r, "room_id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	p, err := ProductByID(r.Context(), h.DB, roomID)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if p == nil {
		api.WriteErr(w, r, apperr.NotFoundf("El producto con ID %d no existe", roomID))
		return
	}
	if !p.IsRoomType {
		logger.FromContext(r.Context()).Warn("booking lookup by non-room product", zap.Int64("product_id", roomID))
	}

	f, err := h.filterFromQuery(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	f.RoomID = &roomID

	bookings, _, err := List(r.Context(), h.DB, f)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	data, err := h.views(r.Context(), bookings)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.M{
		"count":             len(data),
		"room_id":           roomID,
		"room_name":         p.Name,
		"room_code":         p.Code,
		"is_room_type":      p.IsRoomType,
		"room_type_message": roomTypeMessage(p),
		"data":              data,
	})
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	f, err := h.filterFromQuery(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	body := api.M{}
	roomParam := "room_id"
	if strings.TrimSpace(r.URL.Query().Get(roomParam)) == "" {
		roomParam = "product_id"
	}
	roomID, err := api.QueryInt64(r, roomParam)
	if err != nil {
		api.WriteErr(w, r, apperr.Validation("El room_id/product_id debe ser un número entero válido"))
		return
	}
	if roomID != nil {
		p, err := ProductByID(r.Context(), h.DB, *roomID)
		if err != nil {
			api.WriteErr(w, r, err)
			return
		}
		if p == nil {
			api.WriteErr(w, r, apperr.NotFoundf("El producto con ID %d no existe", *roomID))
			return
		}
		f.RoomID = roomID
		body["room_id"] = p.ID
		body["room_name"] = p.Name
		body["is_room_type"] = p.IsRoomType
		body["room_type_message"] = roomTypeMessage(p)
	}
	if f.HotelID != nil {
		name, _, err := HotelName(r.Context(), h.DB, *f.HotelID)
		if err != nil {
			api.WriteErr(w, r, err)
			return
		}
		body["hotel_id"] = *f.HotelID
		body["hotel_name"] = name
	}

	bookings, total, err := List(r.Context(), h.DB, f)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	data, err := h.views(r.Context(), bookings)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	body["count"] = len(data)
	body["total"] = total
	body["data"] = data
	api.WriteSuccess(w, http.StatusOK, body)
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	view, err := h.view(r.Context(), id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, view, "")
}

type CreateRequest struct {
	PartnerID *int64      `json:"partner_id" validate:"required"`
	UserID    *int64      `json:"user_id" validate:"required"`
	CheckIn   string      `json:"check_in" validate:"required"`
	CheckOut  string      `json:"check_out" validate:"required"`
	Rooms     []RoomInput `json:"rooms" validate:"required"`
	StatusBar string      `json:"status_bar"`

	HotelID            *int64           `json:"hotel_id"`
	PricelistID        *int64           `json:"pricelist_id"`
	CompanyID          *int64           `json:"company_id"`
	Origin             *string          `json:"origin"`
	BookingDate        *string          `json:"booking_date"`
	BookingDiscount    *decimal.Decimal `json:"booking_discount"`
	BookingReference   *string          `json:"booking_reference"`
	Description        *string          `json:"description"`
	CancellationReason *string          `json:"cancellation_reason"`
	MotivoViaje        *string          `json:"motivo_viaje"`

	EarlyCheckinCharge       *decimal.Decimal `json:"early_checkin_charge"`
	LateCheckoutCharge       *decimal.Decimal `json:"late_checkout_charge"`
	EarlyCheckinProductID    *int64           `json:"early_checkin_product_id"`
	LateCheckoutProductID    *int64           `json:"late_checkout_product_id"`
	DiscountReason           *string          `json:"discount_reason"`
	ConnectedBookingID       *int64           `json:"connected_booking_id"`
	SplitFromBookingID       *int64           `json:"split_from_booking_id"`
	ManualServiceDescription *string          `json:"manual_service_description"`
	ManualServiceAmount      *decimal.Decimal `json:"manual_service_amount"`

	AgentInput
	Documents []DocumentInput `json:"documents"`
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	now := h.now()
	cat := QuerierCatalog{Q: h.DB}

	checkIn, err := ParseDateTime(req.CheckIn, "check_in", h.Loc)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	checkOut, err := ParseDateTime(req.CheckOut, "check_out", h.Loc)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if err := ValidateDates(checkIn, checkOut, now, true); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if ok, err := cat.PartnerExists(ctx, *req.PartnerID); err != nil || !ok {
		if err == nil {
			err = apperr.Validationf("El partner con ID %d no existe", *req.PartnerID)
		}
		api.WriteErr(w, r, err)
		return
	}
	if err := ValidateRooms(ctx, cat, req.Rooms); err != nil {
		api.WriteErr(w, r, err)
		return
	}

	status := StatusInitial
	if req.StatusBar != "" {
		if status, err = ParseStatus(req.StatusBar); err != nil {
			api.WriteErr(w, r, err)
			return
		}
	}
	if req.HotelID != nil {
		if ok, err := cat.HotelExists(ctx, *req.HotelID); err != nil || !ok {
			if err == nil {
				err = apperr.Validationf("El hotel con ID %d no existe", *req.HotelID)
			}
			api.WriteErr(w, r, err)
			return
		}
	}
	if req.BookingReference != nil {
		if err := ValidateBookingReference(*req.BookingReference); err != nil {
			api.WriteErr(w, r, err)
			return
		}
	}
	if err := ValidateAgent(ctx, cat, req.AgentInput); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	files, err := ValidateDocuments(req.Documents)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	bookingDate := now
	if req.BookingDate != nil {
		if t, err := ParseDateTime(*req.BookingDate, "booking_date", h.Loc); err == nil {
			bookingDate = t
		}
	}
	currency, err := Currency(ctx, h.DB, req.HotelID, req.PricelistID, h.Currency)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	nb := NewBooking{
		PartnerID:          *req.PartnerID,
		UserID:             req.UserID,
		HotelID:            req.HotelID,
		CompanyID:          req.CompanyID,
		PricelistID:        req.PricelistID,
		Currency:           currency,
		CheckIn:            checkIn,
		CheckOut:           checkOut,
		Status:             status,
		BookingDate:        bookingDate,
		Origin:             req.Origin,
		BookingReference:   req.BookingReference,
		Description:        req.Description,
		MotivoViaje:        req.MotivoViaje,
		CancellationReason: req.CancellationReason,

		BookingDiscount:          orZero(req.BookingDiscount),
		DiscountReason:           req.DiscountReason,
		EarlyCheckinCharge:       orZero(req.EarlyCheckinCharge),
		LateCheckoutCharge:       orZero(req.LateCheckoutCharge),
		EarlyCheckinProductID:    req.EarlyCheckinProductID,
		LateCheckoutProductID:    req.LateCheckoutProductID,
		ManualServiceDescription: req.ManualServiceDescription,
		ManualServiceAmount:      orZero(req.ManualServiceAmount),

		Agent:              req.AgentInput,
		ConnectedBookingID: req.ConnectedBookingID,
		SplitFromBookingID: req.SplitFromBookingID,
	}

	var id int64
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		var seq string
		var err error
		id, seq, err = Insert(ctx, tx, nb)
		if err != nil {
			return err
		}
		days := StayDays(checkIn, checkOut)
		if err := CreateLines(ctx, tx, id, seq, nb.PartnerID, days, req.Rooms); err != nil {
			return err
		}
		if err := h.storeDocuments(ctx, tx, id, req.Documents, files); err != nil {
			return err
		}
		return events.Insert(ctx, tx, id, nil, events.TypeCreated, "Reserva creada", Actor(r), now, map[string]any{
			"sequence_id": seq,
			"rooms":       len(req.Rooms),
		})
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

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
	totals := ComputeTotals(b, lines)

	logger.FromContext(ctx).Info("booking created",
		zap.Int64("booking_id", id),
		zap.String("sequence_id", b.SequenceID),
	)
	h.announce(ctx, events.TypeCreated, b, map[string]any{"total_amount": totals.Total})

	api.Created(w, map[string]any{
		"reserva_id":   b.ID,
		"sequence_id":  b.SequenceID,
		"partner_name": b.PartnerName,
		"check_in":     FormatDateTime(b.CheckIn, h.Loc),
		"check_out":    FormatDateTime(b.CheckOut, h.Loc),
		"status_bar":   b.Status,
		"total_amount": totals.Total,
	}, "Reserva creada exitosamente")
}

// CreateLines inserts one line per room with its guests. Rooms without guests
// get the booking partner as a default adult guest.
func CreateLines(ctx context.Context, tx pgx.Tx, bookingID int64, sequenceID string, partnerID int64, days decimal.Decimal, rooms []RoomInput) error {
	partnerName, err := PartnerName(ctx, tx, partnerID)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		productID := room.Product()
		if productID == 0 {
			continue
		}
		p, err := ProductByID(ctx, tx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.Validationf("El producto con ID %d no existe", productID)
		}

		nl := NewLine{
			ProductID:   productID,
			BookingDays: days,
			Price:       p.ListPrice,
			TaxPercent:  p.TaxPercent,
		}
		if room.BookingDays != nil && room.BookingDays.IsPositive() {
			nl.BookingDays = *room.BookingDays
		}
		if room.Price != nil && room.Price.IsPositive() {
			nl.Price = *room.Price
		}
		if room.Discount != nil {
			nl.Discount = *room.Discount
		}
		if room.Description != "" {
			d := room.Description
			nl.Description = &d
		}
		lineID, err := InsertLine(ctx, tx, bookingID, sequenceID, nl)
		if err != nil {
			return err
		}

		guests := room.Guests
		if len(guests) == 0 {
			age := 30
			pid := partnerID
			guests = []GuestInput{{PartnerID: &pid, Name: partnerName, Age: &age, Gender: "male"}}
		}
		if err := CreateGuests(ctx, tx, lineID, guests); err != nil {
			return err
		}
	}
	return nil
}

// CreateGuests stores guest rows; partner guests take the partner's name.
func CreateGuests(ctx context.Context, q db.Querier, lineID int64, guests []GuestInput) error {
	for _, in := range guests {
		g := Guest{Name: strings.TrimSpace(in.Name), Gender: in.Gender}
		if in.PartnerID != nil && *in.PartnerID != 0 {
			name, err := PartnerName(ctx, q, *in.PartnerID)
			if err != nil {
				return err
			}
			if name == "" {
				return apperr.Validationf("El partner con ID %d no existe", *in.PartnerID)
			}
			g.Name = name
			g.PartnerID = in.PartnerID
		}
		if g.Name == "" {
			return apperr.Validation("Debe especificar el nombre del huésped o un partner_id válido")
		}
		if in.Age == nil || *in.Age == 0 {
			return apperr.Validation("Debe especificar la edad del huésped")
		}
		g.Age = *in.Age
		if g.Gender == "" {
			g.Gender = "male"
		}
		if err := InsertGuest(ctx, q, lineID, g); err != nil {
			return err
		}
	}
	return nil
}

func (h Handlers) storeDocuments(ctx context.Context, q db.Querier, bookingID int64, docs []DocumentInput, files [][]byte) error {
	for i, in := range docs {
		d := Document{
			BookingID:   bookingID,
			Name:        strings.TrimSpace(in.Name),
			FileName:    in.FileName,
			ContentType: in.ContentType,
		}
		if d.FileName == "" {
			d.FileName = "Document"
		}
		if d.ContentType == "" {
			d.ContentType = "application/octet-stream"
		}
		if data := files[i]; data != nil && h.Blobs != nil {
			key := fmt.Sprintf("bookings/%d/%s", bookingID, uuid.NewString())
			if err := h.Blobs.Put(ctx, key, d.ContentType, data); err != nil {
				return err
			}
			d.BlobKey = &key
			d.FileSize = int64(len(data))
		}
		if _, err := InsertDocument(ctx, q, d); err != nil {
			return err
		}
	}
	return nil
}

type UpdateRequest struct {
	CheckIn   *string `json:"check_in"`
	CheckOut  *string `json:"check_out"`
	PartnerID *int64  `json:"partner_id"`
	HotelID   *int64  `json:"hotel_id"`
	StatusBar *string `json:"status_bar"`

	UserID                   *int64           `json:"user_id"`
	MotivoViaje              *string          `json:"motivo_viaje"`
	Description              *string          `json:"description"`
	BookingDiscount          *decimal.Decimal `json:"booking_discount"`
	CancellationReason       *string          `json:"cancellation_reason"`
	Origin                   *string          `json:"origin"`
	PricelistID              *int64           `json:"pricelist_id"`
	CompanyID                *int64           `json:"company_id"`
	EarlyCheckinCharge       *decimal.Decimal `json:"early_checkin_charge"`
	LateCheckoutCharge       *decimal.Decimal `json:"late_checkout_charge"`
	DiscountReason           *string          `json:"discount_reason"`
	ManualServiceDescription *string          `json:"manual_service_description"`
	ManualServiceAmount      *decimal.Decimal `json:"manual_service_amount"`

	ViaAgent                  *bool            `json:"via_agent"`
	AgentID                   *int64           `json:"agent_id"`
	CommissionType            string           `json:"commission_type"`
	AgentCommissionAmount     *decimal.Decimal `json:"agent_commission_amount"`
	AgentCommissionPercentage *decimal.Decimal `json:"agent_commission_percentage"`
}

// changes turns the optional fields into column assignments.
func (req UpdateRequest) changes() []Change {
	var out []Change
	add := func(col string, v any) { out = append(out, Change{col, v}) }
	if req.UserID != nil {
		add("user_id", *req.UserID)
	}
	if req.MotivoViaje != nil {
		add("motivo_viaje", *req.MotivoViaje)
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.BookingDiscount != nil {
		add("booking_discount", db.Str(*req.BookingDiscount))
	}
	if req.CancellationReason != nil {
		add("cancellation_reason", *req.CancellationReason)
	}
	if req.Origin != nil {
		add("origin", *req.Origin)
	}
	if req.PricelistID != nil {
		add("pricelist_id", *req.PricelistID)
	}
	if req.CompanyID != nil {
		add("company_id", *req.CompanyID)
	}
	if req.EarlyCheckinCharge != nil {
		add("early_checkin_charge", db.Str(*req.EarlyCheckinCharge))
	}
	if req.LateCheckoutCharge != nil {
		add("late_checkout_charge", db.Str(*req.LateCheckoutCharge))
	}
	if req.DiscountReason != nil {
		add("discount_reason", *req.DiscountReason)
	}
	if req.ManualServiceDescription != nil {
		add("manual_service_description", *req.ManualServiceDescription)
	}
	if req.ManualServiceAmount != nil {
		add("manual_service_amount", db.Str(*req.ManualServiceAmount))
	}
	return out
}

func (req UpdateRequest) agent() AgentInput {
	a := AgentInput{
		AgentID:                   req.AgentID,
		CommissionType:            req.CommissionType,
		AgentCommissionAmount:     req.AgentCommissionAmount,
		AgentCommissionPercentage: req.AgentCommissionPercentage,
	}
	if req.ViaAgent != nil {
		a.ViaAgent = *req.ViaAgent
	}
	return a
}

func (h Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var req UpdateRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	cat := QuerierCatalog{Q: h.DB}

	var (
		b        *Booking
		fields   []string
		statusTo Status
	)
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		var err error
		if b, err = LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if b.Status.IsTerminal() {
			return apperr.Validationf("No se puede actualizar una reserva en estado \"%s\"", b.Status)
		}

		changes := req.changes()
		datesChanged := false
		checkIn, checkOut := b.CheckIn, b.CheckOut
		if req.CheckIn != nil && *req.CheckIn != "" {
			if checkIn, err = ParseDateTime(*req.CheckIn, "check_in", h.Loc); err != nil {
				return err
			}
			datesChanged = true
		}
		if req.CheckOut != nil && *req.CheckOut != "" {
			if checkOut, err = ParseDateTime(*req.CheckOut, "check_out", h.Loc); err != nil {
				return err
			}
			datesChanged = true
		}
		if datesChanged {
			if err := ValidateDates(checkIn, checkOut, h.now(), false); err != nil {
				return err
			}
			changes = append(changes, Change{"check_in", checkIn}, Change{"check_out", checkOut})
		}

		if req.PartnerID != nil && *req.PartnerID != 0 {
			ok, err := cat.PartnerExists(ctx, *req.PartnerID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validationf("El partner con ID %d no existe", *req.PartnerID)
			}
			changes = append(changes, Change{"partner_id", *req.PartnerID})
		}
		if req.HotelID != nil && *req.HotelID != 0 {
			ok, err := cat.HotelExists(ctx, *req.HotelID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validationf("El hotel con ID %d no existe", *req.HotelID)
			}
			changes = append(changes, Change{"hotel_id", *req.HotelID})
		}

		var newStatus Status
		if req.StatusBar != nil && *req.StatusBar != "" {
			newStatus = NormalizeStatus(*req.StatusBar)
			if err := ValidateTransition(b.Status, newStatus); err != nil {
				return err
			}
			changes = append(changes, Change{"status_bar", string(newStatus)})
		}

		if req.ViaAgent != nil {
			if *req.ViaAgent {
				a := req.agent()
				if err := ValidateAgent(ctx, cat, a); err != nil {
					return err
				}
				changes = append(changes,
					Change{"via_agent", true},
					Change{"agent_id", a.AgentID},
					Change{"commission_type", nilIfEmpty(a.CommissionType)},
					Change{"agent_commission_amount", db.Str(orZero(a.AgentCommissionAmount))},
					Change{"agent_commission_percentage", db.Str(orZero(a.AgentCommissionPercentage))},
				)
			} else {
				changes = append(changes, Change{"via_agent", false})
			}
		}

		if len(changes) == 0 {
			return nil
		}
		if err := Update(ctx, tx, id, changes); err != nil {
			return err
		}
		if datesChanged {
			if err := SetLineDays(ctx, tx, id, StayDays(checkIn, checkOut)); err != nil {
				return err
			}
		}
		for _, c := range changes {
			fields = append(fields, c.Column)
		}
		if newStatus != "" && newStatus != b.Status {
			statusTo = newStatus
		}
		return events.Insert(ctx, tx, id, nil, events.TypeUpdated, "Reserva actualizada", Actor(r), h.now(), map[string]any{"fields": fields})
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
	if statusTo != "" {
		h.Metrics.StatusChanged(string(b.Status), string(statusTo))
	}
	if len(fields) > 0 {
		logger.FromContext(ctx).Info("booking updated", zap.Int64("booking_id", id), zap.Strings("fields", fields))
		h.announce(ctx, events.TypeUpdated, b, map[string]any{"fields": fields})
	}
	api.OK(w, view, "Reserva actualizada exitosamente")
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	force := api.QueryBool(r, "force")

	var b *Booking
	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		var err error
		if b, err = LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if force {
			if err := auditDelete(ctx, tx, r, b); err != nil {
				return err
			}
			return Delete(ctx, tx, id)
		}
		if b.Status == StatusCancelled {
			return apperr.Validation("La reserva ya está cancelada")
		}
		if err := SetStatus(ctx, tx, id, StatusCancelled); err != nil {
			return err
		}
		return events.Insert(ctx, tx, id, nil, events.TypeCancelled, "Reserva cancelada", Actor(r), h.now(), map[string]any{"from": b.Status})
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	if force {
		logger.FromContext(ctx).Info("booking deleted", zap.Int64("booking_id", id), zap.String("sequence_id", b.SequenceID))
		h.announce(ctx, "BOOKING_DELETED", b, nil)
		api.WriteSuccess(w, http.StatusOK, api.M{
			"message":     "Reserva eliminada permanentemente",
			"reserva_id":  id,
			"sequence_id": b.SequenceID,
		})
		return
	}

	h.Metrics.StatusChanged(string(b.Status), string(StatusCancelled))
	h.announce(ctx, events.TypeCancelled, b, map[string]any{"old_status": b.Status})
	view, err := h.view(ctx, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, view, "Reserva cancelada exitosamente")
}

type addRoomsRequest struct {
	Rooms []RoomInput `json:"rooms"`
}

func (h Handlers) AddRooms(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()

	b, err := Load(ctx, h.DB, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if b.Status.IsTerminal() {
		api.WriteErr(w, r, apperr.Validationf("No se pueden agregar habitaciones a una reserva en estado \"%s\"", b.Status))
		return
	}

	var req addRoomsRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if err := ValidateRooms(ctx, QuerierCatalog{Q: h.DB}, req.Rooms); err != nil {
		api.WriteErr(w, r, err)
		return
	}

	err = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		b, err := LockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := CreateLines(ctx, tx, id, b.SequenceID, b.PartnerID, StayDays(b.CheckIn, b.CheckOut), req.Rooms); err != nil {
			return err
		}
		return events.Insert(ctx, tx, id, nil, events.TypeRoomsAdded, fmt.Sprintf("%d habitación(es) agregada(s)", len(req.Rooms)), Actor(r), h.now(), map[string]any{"rooms": len(req.Rooms)})
	})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	h.announce(ctx, events.TypeRoomsAdded, b, map[string]any{"rooms": len(req.Rooms)})
	view, err := h.view(ctx, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, view, fmt.Sprintf("%d habitación(es) agregada(s) exitosamente", len(req.Rooms)))
}
