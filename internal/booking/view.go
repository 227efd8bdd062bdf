package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"hotelapi/pkg/db"
)

type RoomRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type GuestView struct {
	ID        int64  `json:"id"`
	PartnerID *int64 `json:"partner_id"`
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
	IsAdult   bool   `json:"is_adult"`
}

type LineView struct {
	ID                  int64           `json:"id"`
	BookingSequenceID   string          `json:"booking_sequence_id"`
	ProductID           int64           `json:"product_id"`
	RoomID              int64           `json:"room_id"`
	RoomName            string          `json:"room_name"`
	RoomCode            string          `json:"room_code"`
	RoomBarcode         string          `json:"room_barcode"`
	GuestInfo           []GuestView     `json:"guest_info"`
	MaxAdult            int             `json:"max_adult"`
	MaxChild            int             `json:"max_child"`
	BookingDays         decimal.Decimal `json:"booking_days"`
	Price               decimal.Decimal `json:"price"`
	OriginalPrice       decimal.Decimal `json:"original_price"`
	Discount            decimal.Decimal `json:"discount"`
	DiscountPercentage  decimal.Decimal `json:"discount_percentage"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	DiscountReason      string          `json:"discount_reason"`
	SubtotalPrice       decimal.Decimal `json:"subtotal_price"`
	TaxPercent          decimal.Decimal `json:"tax_percent"`
	TaxedPrice          decimal.Decimal `json:"taxed_price"`
	Description         string          `json:"description"`
	StatusBar           Status          `json:"status_bar"`
	Currency            string          `json:"currency"`
	IsRoomChangeSegment bool            `json:"is_room_change_segment"`
	PreviousLineID      *int64          `json:"previous_line_id,omitempty"`
	PreviousLineSeq     *string         `json:"previous_line_sequence,omitempty"`
	NextLineID          *int64          `json:"next_line_id,omitempty"`
	NextLineSeq         *string         `json:"next_line_sequence,omitempty"`
}

type DocumentView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	HasFile  bool   `json:"has_file"`
}

// LinkedBooking summarises a neighbour in a room-change chain.
type LinkedBooking struct {
	ID          int64     `json:"id"`
	SequenceID  string    `json:"sequence_id"`
	CheckIn     string    `json:"check_in"`
	CheckOut    string    `json:"check_out"`
	StatusBar   Status    `json:"status_bar"`
	PartnerName string    `json:"partner_name"`
	Rooms       []RoomRef `json:"rooms"`
}

type ChainEntry struct {
	BookingID  int64     `json:"booking_id"`
	SequenceID string    `json:"sequence_id"`
	CheckIn    string    `json:"check_in"`
	CheckOut   string    `json:"check_out"`
	StatusBar  Status    `json:"status_bar"`
	Position   int       `json:"position"`
	IsOriginal bool      `json:"is_original"`
	IsLast     bool      `json:"is_last"`
	IsCurrent  bool      `json:"is_current"`
	Rooms      []RoomRef `json:"rooms"`
}

type RoomChangeInfo struct {
	IsRoomChange       bool     `json:"is_room_change"`
	IsOrigin           bool     `json:"is_origin"`
	IsDestination      bool     `json:"is_destination"`
	ConnectedBookingID *int64   `json:"connected_booking_id"`
	SplitFromBookingID *int64   `json:"split_from_booking_id"`
	OriginalRoom       *RoomRef `json:"original_room"`
	NewRoom            *RoomRef `json:"new_room"`
	TotalChanges       int      `json:"total_changes"`
	CurrentPosition    *int     `json:"current_position"`
	ChainLength        int      `json:"chain_length"`
}

// View is the full JSON representation of a booking.
type View struct {
	ID                 int64   `json:"id"`
	SequenceID         string  `json:"sequence_id"`
	PartnerID          int64   `json:"partner_id"`
	PartnerName        string  `json:"partner_name"`
	CheckIn            string  `json:"check_in"`
	CheckOut           string  `json:"check_out"`
	StatusBar          Status  `json:"status_bar"`
	CheckInHour        int     `json:"check_in_hour"`
	CheckInMinute      int     `json:"check_in_minute"`
	CheckOutHour       int     `json:"check_out_hour"`
	CheckOutMinute     int     `json:"check_out_minute"`
	IsHalfDayCheckin   bool    `json:"is_half_day_checkin"`
	IsHalfDayCheckout  bool    `json:"is_half_day_checkout"`
	HotelID            *int64  `json:"hotel_id"`
	HotelName          *string `json:"hotel_name"`
	MotivoViaje        string  `json:"motivo_viaje"`
	ResponsibleName    *string `json:"responsible_name"`
	UserID             *int64  `json:"user_id"`
	Description        string  `json:"description"`
	BookingDate        string  `json:"booking_date"`
	CreateDate         string  `json:"create_date"`
	WriteDate          string  `json:"write_date"`
	BookingReference   *string `json:"booking_reference"`
	Origin             string  `json:"origin"`
	PricelistID        *int64  `json:"pricelist_id"`
	PricelistName      *string `json:"pricelist_name"`
	Currency           string  `json:"currency"`
	CancellationReason string  `json:"cancellation_reason"`

	AmountUntaxed   decimal.Decimal `json:"amount_untaxed"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	BookingDiscount decimal.Decimal `json:"booking_discount"`
	BookingDays     decimal.Decimal `json:"booking_days"`

	ViaAgent                  bool            `json:"via_agent"`
	AgentID                   *int64          `json:"agent_id"`
	AgentName                 *string         `json:"agent_name"`
	CommissionType            string          `json:"commission_type"`
	AgentCommissionAmount     decimal.Decimal `json:"agent_commission_amount"`
	AgentCommissionPercentage decimal.Decimal `json:"agent_commission_percentage"`
	CompanyID                 *int64          `json:"company_id"`
	CompanyName               *string         `json:"company_name"`

	OrderID          *int64          `json:"order_id"`
	OrderName        *string         `json:"order_name"`
	OrderState       *string         `json:"order_state"`
	OrderAmountTotal decimal.Decimal `json:"order_amount_total"`
	OrderCurrency    string          `json:"order_currency"`
	SaleOrders       []SaleOrderRef  `json:"sale_orders"`

	EarlyCheckinCharge       decimal.Decimal `json:"early_checkin_charge"`
	LateCheckoutCharge       decimal.Decimal `json:"late_checkout_charge"`
	AdditionalChargesTotal   decimal.Decimal `json:"additional_charges_total"`
	DiscountReason           string          `json:"discount_reason"`
	ManualServiceDescription string          `json:"manual_service_description"`
	ManualServiceAmount      decimal.Decimal `json:"manual_service_amount"`
	EarlyCheckinProductID    *int64          `json:"early_checkin_product_id,omitempty"`
	EarlyCheckinProductName  *string         `json:"early_checkin_product_name,omitempty"`
	LateCheckoutProductID    *int64          `json:"late_checkout_product_id,omitempty"`
	LateCheckoutProductName  *string         `json:"late_checkout_product_name,omitempty"`

	HasRoomChange            bool           `json:"has_room_change"`
	IsRoomChangeOrigin       bool           `json:"is_room_change_origin"`
	IsRoomChangeDestination  bool           `json:"is_room_change_destination"`
	ConnectedBookingID       *int64         `json:"connected_booking_id,omitempty"`
	ConnectedBookingSequence *string        `json:"connected_booking_sequence,omitempty"`
	ConnectedBooking         *LinkedBooking `json:"connected_booking,omitempty"`
	SplitFromBookingID       *int64         `json:"split_from_booking_id,omitempty"`
	SplitFromBookingSequence *string        `json:"split_from_booking_sequence,omitempty"`
	OriginalBooking          *LinkedBooking `json:"original_booking,omitempty"`
	RoomChangeInfo           RoomChangeInfo `json:"room_change_info"`
	RoomChangeChain          []ChainEntry   `json:"room_change_chain"`

	Rooms                  []LineView     `json:"rooms"`
	Documents              []DocumentView `json:"documents"`
	BookingLineSequenceIDs []string       `json:"booking_line_sequence_ids"`
	ShowSyncServicesButton bool           `json:"show_sync_services_button"`
}

// Viewer renders bookings in the hotel's local time.
type Viewer struct {
	Loc *time.Location
}

func (v Viewer) fmt(t time.Time) string {
	return FormatDateTime(t, v.Loc)
}

// Build loads everything a booking view needs and assembles it.
func (v Viewer) Build(ctx context.Context, q db.Querier, b *Booking) (*View, error) {
	lines, err := Lines(ctx, q, b.ID)
	if err != nil {
		return nil, err
	}
	docs, err := Documents(ctx, q, b.ID)
	if err != nil {
		return nil, err
	}
	orders, err := SaleOrders(ctx, q, b.ID)
	if err != nil {
		return nil, err
	}
	chain, err := BuildChain(ctx, QuerierChain{Q: q}, b)
	if err != nil {
		return nil, err
	}

	roomsOf := func(bk *Booking) ([]RoomRef, error) {
		if bk.ID == b.ID {
			return roomRefs(lines), nil
		}
		ls, err := Lines(ctx, q, bk.ID)
		if err != nil {
			return nil, err
		}
		return roomRefs(ls), nil
	}

	view := v.assemble(b, lines, docs, orders)
	if err := v.applyChain(view, b, chain, roomsOf); err != nil {
		return nil, err
	}
	view.ShowSyncServicesButton = view.HasRoomChange || len(lines) > 1
	return view, nil
}

func roomRefs(lines []Line) []RoomRef {
	out := make([]RoomRef, 0, len(lines))
	for _, l := range lines {
		out = append(out, RoomRef{ID: l.ProductID, Name: l.RoomName, Code: l.RoomCode})
	}
	return out
}

func (v Viewer) assemble(b *Booking, lines []Line, docs []Document, orders []SaleOrderRef) *View {
	in, out := b.CheckIn.In(v.Loc), b.CheckOut.In(v.Loc)
	totals := ComputeTotals(b, lines)

	view := &View{
		ID:                 b.ID,
		SequenceID:         b.SequenceID,
		PartnerID:          b.PartnerID,
		PartnerName:        b.PartnerName,
		CheckIn:            v.fmt(b.CheckIn),
		CheckOut:           v.fmt(b.CheckOut),
		StatusBar:          b.Status,
		CheckInHour:        in.Hour(),
		CheckInMinute:      in.Minute(),
		CheckOutHour:       out.Hour(),
		CheckOutMinute:     out.Minute(),
		IsHalfDayCheckin:   in.Hour() >= 12,
		IsHalfDayCheckout:  out.Hour() < 12,
		HotelID:            b.HotelID,
		HotelName:          b.HotelName,
		MotivoViaje:        b.MotivoViaje,
		ResponsibleName:    b.UserName,
		UserID:             b.UserID,
		Description:        b.Description,
		BookingDate:        v.fmt(b.BookingDate),
		CreateDate:         v.fmt(b.CreatedAt),
		WriteDate:          v.fmt(b.UpdatedAt),
		BookingReference:   b.BookingReference,
		Origin:             b.Origin,
		PricelistID:        b.PricelistID,
		PricelistName:      b.PricelistName,
		Currency:           b.Currency,
		CancellationReason: b.CancellationReason,

		AmountUntaxed:   totals.AmountUntaxed,
		TaxAmount:       totals.TaxAmount,
		TotalAmount:     totals.Total,
		BookingDiscount: b.BookingDiscount,
		BookingDays:     StayDays(b.CheckIn, b.CheckOut),

		ViaAgent:                  b.ViaAgent,
		AgentID:                   b.AgentID,
		AgentName:                 b.AgentName,
		CommissionType:            b.CommissionType,
		AgentCommissionAmount:     b.AgentCommissionAmount,
		AgentCommissionPercentage: b.AgentCommissionPercentage,
		CompanyID:                 b.CompanyID,
		CompanyName:               b.CompanyName,

		OrderCurrency: b.Currency,
		SaleOrders:    orders,

		EarlyCheckinCharge:       b.EarlyCheckinCharge,
		LateCheckoutCharge:       b.LateCheckoutCharge,
		AdditionalChargesTotal:   totals.AdditionalCharges,
		DiscountReason:           b.DiscountReason,
		ManualServiceDescription: b.ManualServiceDescription,
		ManualServiceAmount:      b.ManualServiceAmount,
		EarlyCheckinProductID:    b.EarlyCheckinProductID,
		EarlyCheckinProductName:  b.EarlyCheckinProductName,
		LateCheckoutProductID:    b.LateCheckoutProductID,
		LateCheckoutProductName:  b.LateCheckoutProductName,

		Rooms:                  make([]LineView, 0, len(lines)),
		Documents:              make([]DocumentView, 0, len(docs)),
		BookingLineSequenceIDs: make([]string, 0, len(lines)),
		RoomChangeChain:        []ChainEntry{},
	}

	if b.OrderID != nil {
		for _, o := range orders {
			if o.ID == *b.OrderID {
				o := o
				view.OrderID = &o.ID
				view.OrderName = &o.Name
				view.OrderState = &o.State
				view.OrderAmountTotal = o.AmountTotal
				view.OrderCurrency = o.Currency
			}
		}
	}

	for _, l := range lines {
		view.Rooms = append(view.Rooms, LineToView(l, b.Status, b.Currency))
		if l.SequenceID != "" {
			view.BookingLineSequenceIDs = append(view.BookingLineSequenceIDs, l.SequenceID)
		}
	}
	for _, d := range docs {
		view.Documents = append(view.Documents, DocumentView{
			ID:       d.ID,
			Name:     d.Name,
			FileName: d.FileName,
			FileSize: d.FileSize,
			HasFile:  d.BlobKey != nil,
		})
	}
	return view
}

func LineToView(l Line, status Status, currency string) LineView {
	guests := make([]GuestView, 0, len(l.Guests))
	for _, g := range l.Guests {
		guests = append(guests, GuestView{ID: g.ID, PartnerID: g.PartnerID, Name: g.Name, Age: g.Age, Gender: g.Gender, IsAdult: g.IsAdult()})
	}
	return LineView{
		ID:                  l.ID,
		BookingSequenceID:   l.SequenceID,
		ProductID:           l.ProductID,
		RoomID:              l.ProductID,
		RoomName:            l.RoomName,
		RoomCode:            l.RoomCode,
		RoomBarcode:         l.RoomBarcode,
		GuestInfo:           guests,
		MaxAdult:            l.MaxAdult,
		MaxChild:            l.MaxChild,
		BookingDays:         l.BookingDays,
		Price:               l.Price,
		OriginalPrice:       l.BasePrice(),
		Discount:            l.Discount,
		DiscountPercentage:  l.Discount,
		DiscountAmount:      l.DiscountAmount(),
		DiscountReason:      l.DiscountReason,
		SubtotalPrice:       l.Subtotal(),
		TaxPercent:          l.TaxPercent,
		TaxedPrice:          l.Taxed(),
		Description:         l.Description,
		StatusBar:           status,
		Currency:            currency,
		IsRoomChangeSegment: l.IsRoomChangeSegment,
		PreviousLineID:      l.PreviousLineID,
		PreviousLineSeq:     l.PreviousLineSeq,
		NextLineID:          l.NextLineID,
		NextLineSeq:         l.NextLineSeq,
	}
}

func (v Viewer) linked(bk *Booking, rooms []RoomRef) *LinkedBooking {
	return &LinkedBooking{
		ID:          bk.ID,
		SequenceID:  bk.SequenceID,
		CheckIn:     v.fmt(bk.CheckIn),
		CheckOut:    v.fmt(bk.CheckOut),
		StatusBar:   bk.Status,
		PartnerName: bk.PartnerName,
		Rooms:       rooms,
	}
}

func (v Viewer) applyChain(view *View, b *Booking, chain Chain, roomsOf func(*Booking) ([]RoomRef, error)) error {
	if !chain.HasRoomChange() {
		view.RoomChangeInfo = RoomChangeInfo{ChainLength: 1}
		return nil
	}

	pos := chain.Position
	view.HasRoomChange = true
	view.IsRoomChangeOrigin = pos == 0
	view.IsRoomChangeDestination = pos > 0

	rooms := make([][]RoomRef, len(chain.Bookings))
	for i, bk := range chain.Bookings {
		r, err := roomsOf(bk)
		if err != nil {
			return err
		}
		rooms[i] = r
		view.RoomChangeChain = append(view.RoomChangeChain, ChainEntry{
			BookingID:  bk.ID,
			SequenceID: bk.SequenceID,
			CheckIn:    v.fmt(bk.CheckIn),
			CheckOut:   v.fmt(bk.CheckOut),
			StatusBar:  bk.Status,
			Position:   i,
			IsOriginal: i == 0,
			IsLast:     i == len(chain.Bookings)-1,
			IsCurrent:  bk.ID == b.ID,
			Rooms:      r,
		})
	}

	if next := chain.Next(); next != nil && b.ConnectedBookingID != nil && *b.ConnectedBookingID == next.ID {
		view.ConnectedBookingID = &next.ID
		view.ConnectedBookingSequence = &next.SequenceID
		view.ConnectedBooking = v.linked(next, rooms[pos+1])
	}
	if prev := chain.Previous(); prev != nil {
		view.SplitFromBookingID = &prev.ID
		view.SplitFromBookingSequence = &prev.SequenceID
		view.OriginalBooking = v.linked(prev, rooms[pos-1])
	}

	var original, newRoom *RoomRef
	if pos > 0 && len(rooms[pos-1]) > 0 {
		original = &rooms[pos-1][0]
	}
	if pos > 0 && len(rooms[pos]) > 0 {
		newRoom = &rooms[pos][0]
	} else if pos+1 < len(rooms) && len(rooms[pos+1]) > 0 {
		// the origin points at the room it moved to
		if len(rooms[pos]) > 0 {
			original = &rooms[pos][0]
		}
		newRoom = &rooms[pos+1][0]
	}

	p := pos
	view.RoomChangeInfo = RoomChangeInfo{
		IsRoomChange:       true,
		IsOrigin:           view.IsRoomChangeOrigin,
		IsDestination:      view.IsRoomChangeDestination,
		ConnectedBookingID: view.ConnectedBookingID,
		SplitFromBookingID: view.SplitFromBookingID,
		OriginalRoom:       original,
		NewRoom:            newRoom,
		TotalChanges:       chain.TotalChanges(),
		CurrentPosition:    &p,
		ChainLength:        len(chain.Bookings),
	}
	return nil
}
