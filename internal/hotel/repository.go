// Package hotel exposes the hotel and room catalogue.
package hotel

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hotelapi/pkg/db"
)

type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func ref(id *int64, name *string) *Ref {
	if id == nil {
		return nil
	}
	r := &Ref{ID: *id}
	if name != nil {
		r.Name = *name
	}
	return r
}

type PartnerInfo struct {
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Mobile  *string `json:"mobile"`
	Website *string `json:"website"`
	Street  *string `json:"street"`
	City    *string `json:"city"`
	Country *string `json:"country"`
	Zip     *string `json:"zip"`
}

type Hotel struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Partner     *Ref    `json:"partner"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	Tagline     *string `json:"tagline"`
	Description *string `json:"description"`
	Policies    *string `json:"policies"`
	HotelType   *Ref    `json:"hotel_type"`
	Company     *Ref    `json:"company"`
	Currency    string  `json:"currency"`
	Timezone    *string `json:"default_timezone"`
	IsPublished bool    `json:"is_published"`
	Active      bool    `json:"active"`

	// Detail only.
	PartnerInfo   *PartnerInfo `json:"partner_info,omitempty"`
	HotelTypeName *string      `json:"hotel_type_name,omitempty"`
	RoomCount     *int         `json:"room_count,omitempty"`
}

const hotelSelect = `
SELECT h.id, h.name, h.partner_id, p.name, h.address, COALESCE(h.city, p.city), h.tagline, h.description,
       h.policies, h.hotel_type_id, t.name, h.company_id, c.name, h.currency, h.timezone,
       h.is_published, h.active,
       p.email, p.phone, p.mobile, p.website, p.street, p.city, co.name, p.zip
FROM hotels h
LEFT JOIN partners p ON p.id = h.partner_id
LEFT JOIN countries co ON co.id = p.country_id
LEFT JOIN hotel_types t ON t.id = h.hotel_type_id
LEFT JOIN companies c ON c.id = h.company_id
`

func scanHotel(row pgx.Row, detailed bool) (*Hotel, error) {
	var (
		h                     Hotel
		partnerID, typeID     *int64
		companyID             *int64
		partnerName, typeName *string
		companyName           *string
		pi                    PartnerInfo
	)
	if err := row.Scan(
		&h.ID, &h.Name, &partnerID, &partnerName, &h.Address, &h.City, &h.Tagline, &h.Description,
		&h.Policies, &typeID, &typeName, &companyID, &companyName, &h.Currency, &h.Timezone,
		&h.IsPublished, &h.Active,
		&pi.Email, &pi.Phone, &pi.Mobile, &pi.Website, &pi.Street, &pi.City, &pi.Country, &pi.Zip,
	); err != nil {
		return nil, err
	}
	h.Partner = ref(partnerID, partnerName)
	h.HotelType = ref(typeID, typeName)
	h.Company = ref(companyID, companyName)
	if detailed {
		if h.Partner != nil {
			pi.Name = h.Partner.Name
			h.PartnerInfo = &pi
		}
		h.HotelTypeName = typeName
	}
	return &h, nil
}

type SearchFilter struct {
	Name        string
	City        string
	HotelTypeID *int64
	IsPublished *bool
	Limit       int
	Offset      int
}

func (f SearchFilter) where() *db.Where {
	w := &db.Where{}
	w.AddRaw("h.active")
	if f.Name != "" {
		w.Add("h.name ILIKE $%d", db.Like(f.Name))
	}
	if f.City != "" {
		w.Add("(h.city ILIKE $%[1]d OR p.city ILIKE $%[1]d)", db.Like(f.City))
	}
	if f.HotelTypeID != nil {
		w.Add("h.hotel_type_id = $%d", *f.HotelTypeID)
	}
	if f.IsPublished != nil {
		w.Add("h.is_published = $%d", *f.IsPublished)
	}
	return w
}

func collectHotels(rows pgx.Rows) ([]Hotel, error) {
	defer rows.Close()
	out := []Hotel{}
	for rows.Next() {
		h, err := scanHotel(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// All returns every hotel, archived ones included, by name.
func All(ctx context.Context, q db.Querier) ([]Hotel, error) {
	rows, err := q.Query(ctx, hotelSelect+`ORDER BY h.name, h.id`)
	if err != nil {
		return nil, err
	}
	return collectHotels(rows)
}

// Search returns one page of active hotels and the unpaginated count.
func Search(ctx context.Context, q db.Querier, f SearchFilter) ([]Hotel, int, error) {
	w := f.where()
	var total int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM hotels h LEFT JOIN partners p ON p.id = h.partner_id `+w.String(), w.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	sql, args := w.Page(hotelSelect+w.String()+`ORDER BY h.name, h.id`, f.Limit, f.Offset)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectHotels(rows)
	return out, total, err
}

// Get returns nil when the hotel does not exist; activeOnly also hides
// archived hotels.
func Get(ctx context.Context, q db.Querier, id int64, activeOnly bool) (*Hotel, error) {
	sql := hotelSelect + `WHERE h.id = $1`
	if activeOnly {
		sql += ` AND h.active`
	}
	h, err := scanHotel(q.QueryRow(ctx, sql, id), true)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_room_type AND active AND hotel_id = $1`, id).Scan(&n); err != nil {
		return nil, err
	}
	h.RoomCount = &n
	return h, nil
}

type Room struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Code          string          `json:"code"`
	Barcode       string          `json:"barcode"`
	ListPrice     decimal.Decimal `json:"list_price"`
	TaxPercent    decimal.Decimal `json:"tax_percent"`
	MaxAdult      int             `json:"max_adult"`
	MaxChild      int             `json:"max_child"`
	MaxInfants    int             `json:"max_infants"`
	BaseOccupancy int             `json:"base_occupancy"`
	Hotel         *Ref            `json:"hotel"`
	RoomStatus    string          `json:"room_status"`
	Active        bool            `json:"active"`
}

const roomSelect = `
SELECT pr.id, pr.name, COALESCE(pr.code, ''), COALESCE(pr.barcode, ''), pr.list_price::text, pr.tax_percent::text,
       pr.max_adult, pr.max_child, pr.max_infants, pr.base_occupancy, pr.hotel_id, h.name, pr.room_status, pr.active
FROM products pr
LEFT JOIN hotels h ON h.id = pr.hotel_id
`

func scanRoom(row pgx.Row) (*Room, error) {
	var (
		r          Room
		price, tax string
		hotelID    *int64
		hotelName  *string
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Code, &r.Barcode, &price, &tax,
		&r.MaxAdult, &r.MaxChild, &r.MaxInfants, &r.BaseOccupancy, &hotelID, &hotelName, &r.RoomStatus, &r.Active); err != nil {
		return nil, err
	}
	r.ListPrice = db.Dec(price)
	r.TaxPercent = db.Dec(tax)
	r.Hotel = ref(hotelID, hotelName)
	return &r, nil
}

// Rooms lists room products, optionally of one hotel.
func Rooms(ctx context.Context, q db.Querier, hotelID *int64) ([]Room, error) {
	rows, err := q.Query(ctx, roomSelect+`WHERE pr.is_room_type AND ($1::bigint IS NULL OR pr.hotel_id = $1)
ORDER BY pr.name, pr.id`, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Room{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// FindRoom returns the room product and whether a product with that id exists
// at all, so callers can tell "not a room" from "missing".
func FindRoom(ctx context.Context, q db.Querier, id int64) (*Room, bool, error) {
	r, err := scanRoom(q.QueryRow(ctx, roomSelect+`WHERE pr.id = $1 AND pr.is_room_type`, id))
	if err == nil {
		return r, true, nil
	}
	if !db.IsNoRows(err) {
		return nil, false, err
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, false, err
	}
	return nil, exists, nil
}

// SampleRoomIDs returns a few active room ids for error hints.
func SampleRoomIDs(ctx context.Context, q db.Querier, n int) ([]int64, error) {
	rows, err := q.Query(ctx, `SELECT id FROM products WHERE is_room_type AND active ORDER BY id LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
