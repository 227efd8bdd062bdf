package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking is a reservation header with its denormalised display names.
type Booking struct {
	ID                 int64
	SequenceID         string
	PartnerID          int64
	PartnerName        string
	UserID             *int64
	UserName           *string
	HotelID            *int64
	HotelName          *string
	CompanyID          *int64
	CompanyName        *string
	PricelistID        *int64
	PricelistName      *string
	Currency           string
	CheckIn            time.Time
	CheckOut           time.Time
	Status             Status
	BookingDate        time.Time
	Origin             string
	BookingReference   *string
	Description        string
	MotivoViaje        string
	CancellationReason string
	Remarks            string

	BookingDiscount          decimal.Decimal
	DiscountReason           string
	EarlyCheckinCharge       decimal.Decimal
	LateCheckoutCharge       decimal.Decimal
	EarlyCheckinProductID    *int64
	EarlyCheckinProductName  *string
	LateCheckoutProductID    *int64
	LateCheckoutProductName  *string
	ManualServiceDescription string
	ManualServiceAmount      decimal.Decimal

	ViaAgent                  bool
	AgentID                   *int64
	AgentName                 *string
	CommissionType            string
	AgentCommissionAmount     decimal.Decimal
	AgentCommissionPercentage decimal.Decimal

	ConnectedBookingID *int64
	SplitFromBookingID *int64
	OrderID            *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line is one room of a booking.
type Line struct {
	ID                  int64
	BookingID           int64
	SequenceID          string
	ProductID           int64
	RoomName            string
	RoomCode            string
	RoomBarcode         string
	MaxAdult            int
	MaxChild            int
	BookingDays         decimal.Decimal
	Price               decimal.Decimal
	OriginalPrice       *decimal.Decimal
	Discount            decimal.Decimal
	DiscountReason      string
	TaxPercent          decimal.Decimal
	Description         string
	IsRoomChangeSegment bool
	PreviousLineID      *int64
	PreviousLineSeq     *string
	NextLineID          *int64
	NextLineSeq         *string
	Guests              []Guest
}

type Guest struct {
	ID        int64  `json:"id"`
	LineID    int64  `json:"-"`
	PartnerID *int64 `json:"partner_id"`
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
}

func (g Guest) IsAdult() bool {
	return g.Age >= AdultAge
}

type Document struct {
	ID          int64
	BookingID   int64
	Name        string
	FileName    string
	ContentType string
	BlobKey     *string
	FileSize    int64
}

// Product is the subset of a catalogue product the booking flows need.
type Product struct {
	ID         int64
	HotelID    *int64
	Name       string
	Code       string
	IsRoomType bool
	ListPrice  decimal.Decimal
	TaxPercent decimal.Decimal
	MaxAdult   int
	MaxChild   int
	Active     bool
}

type SaleOrderRef struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	State       string          `json:"state"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	Currency    string          `json:"currency"`
}
