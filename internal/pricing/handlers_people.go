package pricing

import (
	"context"
	"net/http"
	"strings"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/internal/booking"
)

// scope reads status_bar, date_from, date_to, hotel_id and guest_id. date_from
// bounds check-in and date_to bounds check-out.
func (h Handlers) scope(r *http.Request) (booking.ListFilter, error) {
	var f booking.ListFilter
	q := r.URL.Query()
	if s := strings.TrimSpace(q.Get("status_bar")); s != "" {
		st, err := booking.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	if s := strings.TrimSpace(q.Get("date_from")); s != "" {
		t, err := booking.ParseDateTime(s, "date_from", h.Loc)
		if err != nil {
			return f, err
		}
		f.CheckInFrom = &t
	}
	if s := strings.TrimSpace(q.Get("date_to")); s != "" {
		t, err := booking.ParseDateTime(s, "date_to", h.Loc)
		if err != nil {
			return f, err
		}
		if len(s) == len("2006-01-02") {
			t = t.AddDate(0, 0, 1).Add(-1)
		}
		f.CheckOutTo = &t
	}
	var err error
	if f.HotelID, err = api.QueryInt64(r, "hotel_id"); err != nil {
		return f, err
	}
	if f.GuestID, err = api.QueryInt64(r, "guest_id"); err != nil {
		return f, err
	}
	return f, nil
}

// userBookings scopes f to the user's own partner. A user without a partner
// has no bookings.
func (h Handlers) userBookings(ctx context.Context, u *UserRef, f booking.ListFilter) ([]Priced, error) {
	if u.PartnerID == nil {
		return []Priced{}, nil
	}
	f.PartnerID = u.PartnerID
	return LoadAll(ctx, h.DB, f, h.Loc)
}

func (h Handlers) user(r *http.Request) (*UserRef, error) {
	id, err := api.PathID(r, "user_id")
	if err != nil {
		return nil, err
	}
	u, err := User(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFoundf("Usuario con ID %d no encontrado", id)
	}
	return u, nil
}

func (h Handlers) guest(r *http.Request, param string) (*GuestRef, error) {
	id, err := api.PathID(r, param)
	if err != nil {
		return nil, err
	}
	g, err := Guest(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperr.NotFoundf("Huésped con ID %d no encontrado", id)
	}
	return g, nil
}

func (h Handlers) UserPriceSummary(w http.ResponseWriter, r *http.Request) {
	u, err := h.user(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	var f booking.ListFilter
	if f.GuestID, err = api.QueryInt64(r, "guest_id"); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	items, err := h.userBookings(r.Context(), u, f)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, map[string]any{
		"user_id":   u.ID,
		"user_name": u.Name,
		"summary":   Summarize(items, h.Loc),
	}, "")
}

func (h Handlers) UserPriceBreakdown(w http.ResponseWriter, r *http.Request) {
	u, err := h.user(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	f, err := h.scope(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	items, err := h.userBookings(r.Context(), u, f)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	stats, breakdown := BreakdownAll(items, h.Loc)
	api.OK(w, map[string]any{
		"user_id":                u.ID,
		"user_name":              u.Name,
		"total_stats":            stats,
		"reservations_breakdown": breakdown,
	}, "")
}

func (h Handlers) UserPriceFilters(w http.ResponseWriter, r *http.Request) {
	u, err := h.user(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	items, err := h.userBookings(r.Context(), u, booking.ListFilter{})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, map[string]any{
		"user_id":        u.ID,
		"user_name":      u.Name,
		"total_reservas": len(items),
		"filter_options": Filters(items, h.Loc),
	}, "")
}

func (h Handlers) UserGuests(w http.ResponseWriter, r *http.Request) {
	u, err := h.user(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	items, err := h.userBookings(r.Context(), u, booking.ListFilter{})
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	stats, guests := Guests(items, h.Loc)
	api.OK(w, map[string]any{
		"user_id":     u.ID,
		"user_name":   u.Name,
		"guest_stats": stats,
		"guests":      guests,
	}, "")
}

type guestSpend struct {
	GuestID     int64  `json:"guest_id"`
	GuestName   string `json:"guest_name"`
	GuestAge    int    `json:"guest_age"`
	GuestGender string `json:"guest_gender"`
	Spend
}

func (h Handlers) UserGuestPriceInfo(w http.ResponseWriter, r *http.Request) {
	u, err := h.user(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	g, err := h.guest(r, "guest_id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	f, err := h.scope(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	f.HotelID = nil
	f.GuestID = &g.ID
	items, err := h.userBookings(r.Context(), u, f)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, guestSpend{g.ID, g.Name, g.Age, g.Gender, SpendOf(items, g.ID, h.Loc)}, "")
}

func (h Handlers) GuestPriceInfo(w http.ResponseWriter, r *http.Request) {
	g, err := h.guest(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	f, err := h.scope(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	f.GuestID = &g.ID
	items, err := LoadAll(r.Context(), h.DB, f, h.Loc)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, guestSpend{g.ID, g.Name, g.Age, g.Gender, SpendOf(items, g.ID, h.Loc)}, "")
}

type partnerSpend struct {
	PartnerID      int64   `json:"partner_id"`
	PartnerName    string  `json:"partner_name"`
	PartnerType    string  `json:"partner_type"`
	PartnerEmail   *string `json:"partner_email"`
	PartnerPhone   *string `json:"partner_phone"`
	PartnerCity    *string `json:"partner_city"`
	PartnerCountry *string `json:"partner_country"`
	Spend
	UniqueGuestsCount *int `json:"unique_guests_count,omitempty"`
}

func (h Handlers) PartnerPriceInfo(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	ctx := r.Context()
	p, err := Partner(ctx, h.DB, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if p == nil {
		api.WriteErr(w, r, apperr.NotFoundf("Contacto con ID %d no encontrado", id))
		return
	}
	f, err := h.scope(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	f.GuestID = nil
	f.PartnerID = &p.ID
	items, err := LoadAll(ctx, h.DB, f, h.Loc)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	kind := "person"
	if p.IsCompany {
		kind = "company"
	}
	out := partnerSpend{
		PartnerID:      p.ID,
		PartnerName:    p.Name,
		PartnerType:    kind,
		PartnerEmail:   p.Email,
		PartnerPhone:   p.Phone,
		PartnerCity:    p.City,
		PartnerCountry: p.Country,
		Spend:          SpendOf(items, 0, h.Loc),
	}
	if len(items) > 0 {
		n := UniqueGuests(items)
		out.UniqueGuestsCount = &n
	}
	api.OK(w, out, "")
}
