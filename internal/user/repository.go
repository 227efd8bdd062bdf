// Package user lists the staff accounts that can be assigned as booking
// responsables.
package user

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"hotelapi/internal/apperr"
	"hotelapi/pkg/db"
)

// SystemUserID is the bootstrap administrator hidden from listings by default.
const SystemUserID = 1

const (
	defaultLimit = 50
	maxLimit     = 1000
)

type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Group struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category *string `json:"category"`
}

type User struct {
	ID      int64   `json:"id"`
	UserID  int64   `json:"user_id"`
	Name    string  `json:"name"`
	Login   string  `json:"login"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Mobile  *string `json:"mobile"`
	Active  bool    `json:"active"`
	Company *Ref    `json:"company"`

	// Detail only.
	Partner  *Ref    `json:"partner,omitempty"`
	Groups   []Group `json:"groups,omitempty"`
	Function *string `json:"function,omitempty"`
	TZ       *string `json:"tz,omitempty"`
	Website  *string `json:"website,omitempty"`
	Street   *string `json:"street,omitempty"`
	City     *string `json:"city,omitempty"`
	Zip      *string `json:"zip,omitempty"`
	Country  *Ref    `json:"country,omitempty"`
}

type Filter struct {
	Search          string
	Name            string
	Login           string
	Email           string
	Phone           string
	CompanyID       *int64
	GroupIDs        []int64
	IncludeArchived bool
	ExcludeSystem   bool
	Order           string
	Limit           int
	Offset          int
}

var orderColumns = map[string]string{
	"name":        "u.name",
	"login":       "u.login",
	"email":       "u.email",
	"id":          "u.id",
	"create_date": "u.created_at",
}

// orderBy maps "field [asc|desc]" onto a known column; anything else sorts
// by name.
func orderBy(s string) string {
	parts := strings.Fields(strings.ToLower(s))
	if len(parts) == 0 || len(parts) > 2 {
		return "u.name, u.id"
	}
	col, ok := orderColumns[parts[0]]
	if !ok {
		return "u.name, u.id"
	}
	if len(parts) == 2 && parts[1] == "desc" {
		return col + " DESC, u.id"
	}
	return col + ", u.id"
}

func text(get func(string) string, name string) string {
	return strings.TrimSpace(get(name))
}

// FilterFromQuery validates the list parameters.
func FilterFromQuery(get func(string) string) (Filter, error) {
	f := Filter{
		Search:          text(get, "search"),
		Name:            text(get, "name"),
		Login:           text(get, "login"),
		Email:           text(get, "email"),
		Phone:           text(get, "phone"),
		IncludeArchived: strings.EqualFold(text(get, "include_archived"), "true"),
		ExcludeSystem:   !strings.EqualFold(text(get, "exclude_system"), "false"),
		Order:           text(get, "order"),
		Limit:           defaultLimit,
	}

	if raw := text(get, "limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, apperr.Validation("Los parámetros limit y offset deben ser números enteros")
		}
		f.Limit = min(n, maxLimit)
	}
	if raw := text(get, "offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, apperr.Validation("Los parámetros limit y offset deben ser números enteros")
		}
		f.Offset = max(n, 0)
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if raw := text(get, "company_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, apperr.Validationf("Parámetro company_id inválido: %s", raw)
		}
		f.CompanyID = &id
	}
	if raw := text(get, "group_id"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return f, apperr.Validationf("Parámetro group_id inválido: %s", raw)
			}
			f.GroupIDs = append(f.GroupIDs, id)
		}
	}
	return f, nil
}

func (f Filter) where() *db.Where {
	w := &db.Where{}
	if !f.IncludeArchived {
		w.AddRaw("u.active")
	}
	if f.ExcludeSystem {
		w.Add("u.id <> $%d", SystemUserID)
	}
	if f.Search != "" {
		w.Add("(u.name ILIKE $%[1]d OR u.login ILIKE $%[1]d OR u.email ILIKE $%[1]d)", db.Like(f.Search))
	}
	if f.Name != "" {
		w.Add("u.name ILIKE $%d", db.Like(f.Name))
	}
	if f.Login != "" {
		w.Add("u.login ILIKE $%d", db.Like(f.Login))
	}
	if f.Email != "" {
		w.Add("u.email ILIKE $%d", db.Like(f.Email))
	}
	if f.Phone != "" {
		w.Add("(u.phone ILIKE $%[1]d OR u.mobile ILIKE $%[1]d)", db.Like(f.Phone))
	}
	if f.CompanyID != nil {
		w.Add("u.company_id = $%d", *f.CompanyID)
	}
	if len(f.GroupIDs) > 0 {
		w.Add("EXISTS (SELECT 1 FROM user_groups ug WHERE ug.user_id = u.id AND ug.group_id = ANY($%d))", f.GroupIDs)
	}
	return w
}

const userSelect = `
SELECT u.id, u.name, u.login, u.email, u.phone, u.mobile, u.active, u.company_id, c.name,
       u.partner_id, p.name, u.function, u.tz, p.website, p.street, p.city, p.zip, p.country_id, co.name
FROM users u
LEFT JOIN companies c ON c.id = u.company_id
LEFT JOIN partners p ON p.id = u.partner_id
LEFT JOIN countries co ON co.id = p.country_id
`

func scanUser(row pgx.Row, detailed bool) (*User, error) {
	var (
		u                     User
		companyID, partnerID  *int64
		companyName, partner  *string
		function, tz, website *string
		street, city, zip     *string
		countryID             *int64
		countryName           *string
	)
	if err := row.Scan(
		&u.ID, &u.Name, &u.Login, &u.Email, &u.Phone, &u.Mobile, &u.Active, &companyID, &companyName,
		&partnerID, &partner, &function, &tz, &website, &street, &city, &zip, &countryID, &countryName,
	); err != nil {
		return nil, err
	}
	u.UserID = u.ID
	u.Company = ref(companyID, companyName)
	if detailed {
		u.Partner = ref(partnerID, partner)
		u.Country = ref(countryID, countryName)
		u.Function, u.TZ, u.Website = function, tz, website
		u.Street, u.City, u.Zip = street, city, zip
	}
	return &u, nil
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

func List(ctx context.Context, q db.Querier, f Filter) ([]User, int, error) {
	w := f.where()
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users u `+w.String(), w.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql, args := w.Page(userSelect+w.String()+`ORDER BY `+orderBy(f.Order), f.Limit, f.Offset)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows, false)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

// Get returns nil when the user does not exist (or is archived and
// archived users were not requested).
func Get(ctx context.Context, q db.Querier, id int64, includeArchived bool) (*User, error) {
	sql := userSelect + `WHERE u.id = $1`
	if !includeArchived {
		sql += ` AND u.active`
	}
	u, err := scanUser(q.QueryRow(ctx, sql, id), true)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	const groups = `
SELECT g.id, g.name, g.category
FROM user_groups ug
JOIN groups g ON g.id = ug.group_id
WHERE ug.user_id = $1
ORDER BY g.name
`
	rows, err := q.Query(ctx, groups, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Category); err != nil {
			return nil, err
		}
		u.Groups = append(u.Groups, g)
	}
	return u, rows.Err()
}

type Stats struct {
	TotalResponsables int `json:"total_responsables"`
	TotalArchived     int `json:"total_archived"`
	TotalActive       int `json:"total_active"`
}

func LoadStats(ctx context.Context, q db.Querier) (Stats, error) {
	const stmt = `
SELECT COUNT(*) FILTER (WHERE active AND id <> $1),
       COUNT(*) FILTER (WHERE NOT active),
       COUNT(*) FILTER (WHERE active)
FROM users
`
	var s Stats
	err := q.QueryRow(ctx, stmt, SystemUserID).Scan(&s.TotalResponsables, &s.TotalArchived, &s.TotalActive)
	return s, err
}
