// Package partner serves the contacts directory (customers, companies and
// suppliers) under /api/v1/contacts.
package partner

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"hotelapi/pkg/db"
)

type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Country struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

type Contact struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Email        *string  `json:"email"`
	Phone        *string  `json:"phone"`
	Mobile       *string  `json:"mobile"`
	Website      *string  `json:"website"`
	Street       *string  `json:"street"`
	City         *string  `json:"city"`
	Zip          *string  `json:"zip"`
	Country      *Country `json:"country"`
	IsCompany    bool     `json:"is_company"`
	CustomerRank int      `json:"customer_rank"`
	SupplierRank int      `json:"supplier_rank"`

	// Detail only.
	Street2       *string `json:"street2,omitempty"`
	Vat           *string `json:"vat,omitempty"`
	Ref           *string `json:"ref,omitempty"`
	Function      *string `json:"function,omitempty"`
	Comment       *string `json:"comment,omitempty"`
	Parent        *Ref    `json:"parent,omitempty"`
	Company       *Ref    `json:"company,omitempty"`
	Active        *bool   `json:"active,omitempty"`
	ChildIDs      []int64 `json:"child_ids,omitempty"`
	ChildrenCount *int    `json:"children_count,omitempty"`
}

// Filter mirrors the list query parameters.
type Filter struct {
	Search          string
	IsCompany       *bool
	CountryID       *int64
	Email           string
	IncludeArchived bool
}

// FilterFromQuery reads the list filters. Unparseable country ids are
// ignored rather than rejected.
func FilterFromQuery(get func(string) string) Filter {
	f := Filter{
		Search:          strings.TrimSpace(get("search")),
		Email:           strings.TrimSpace(get("email")),
		IncludeArchived: strings.EqualFold(strings.TrimSpace(get("include_archived")), "true"),
	}
	if raw := strings.TrimSpace(get("is_company")); raw != "" {
		v := strings.EqualFold(raw, "true")
		f.IsCompany = &v
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(get("country_id")), 10, 64); err == nil {
		f.CountryID = &id
	}
	return f
}

func (f Filter) where() *db.Where {
	w := &db.Where{}
	if !f.IncludeArchived {
		w.AddRaw("p.active")
	}
	if f.Search != "" {
		w.Add("(p.name ILIKE $%[1]d OR p.email ILIKE $%[1]d OR p.ref ILIKE $%[1]d)", db.Like(f.Search))
	}
	if f.IsCompany != nil {
		w.Add("p.is_company = $%d", *f.IsCompany)
	}
	if f.CountryID != nil {
		w.Add("p.country_id = $%d", *f.CountryID)
	}
	if f.Email != "" {
		w.Add("p.email ILIKE $%d", db.Like(f.Email))
	}
	return w
}

const contactSelect = `
SELECT p.id, p.name, p.email, p.phone, p.mobile, p.website, p.street, p.city, p.zip,
       p.country_id, co.name, co.code, p.is_company, p.customer_rank, p.supplier_rank,
       p.street2, p.vat, p.ref, p.function, p.comment,
       p.parent_id, pp.name, p.company_id, c.name, p.active
FROM partners p
LEFT JOIN countries co ON co.id = p.country_id
LEFT JOIN partners pp ON pp.id = p.parent_id
LEFT JOIN companies c ON c.id = p.company_id
`

func scanContact(row pgx.Row, detailed bool) (*Contact, error) {
	var (
		c                   Contact
		countryID           *int64
		countryName, code   *string
		parentID, companyID *int64
		parentName, company *string
		street2, vat, ref   *string
		function, comment   *string
		active              bool
	)
	if err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Mobile, &c.Website, &c.Street, &c.City, &c.Zip,
		&countryID, &countryName, &code, &c.IsCompany, &c.CustomerRank, &c.SupplierRank,
		&street2, &vat, &ref, &function, &comment,
		&parentID, &parentName, &companyID, &company, &active,
	); err != nil {
		return nil, err
	}
	if countryID != nil {
		c.Country = &Country{ID: *countryID, Name: deref(countryName)}
		if detailed {
			c.Country.Code = deref(code)
		}
	}
	if !detailed {
		return &c, nil
	}
	c.Street2, c.Vat, c.Ref, c.Function, c.Comment = street2, vat, ref, function, comment
	c.Active = &active
	if parentID != nil {
		c.Parent = &Ref{ID: *parentID, Name: deref(parentName)}
	}
	if companyID != nil {
		c.Company = &Ref{ID: *companyID, Name: deref(company)}
	}
	return &c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// List returns one page of contacts by name and the unpaginated count.
func List(ctx context.Context, q db.Querier, f Filter, limit, offset int, detailed bool) ([]Contact, int, error) {
	w := f.where()
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM partners p `+w.String(), w.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql, args := w.Page(contactSelect+w.String()+`ORDER BY p.name, p.id`, limit, offset)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Contact{}
	for rows.Next() {
		c, err := scanContact(rows, detailed)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if detailed {
		if err := attachChildren(ctx, q, out); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// Get returns nil when the contact does not exist or is archived and
// archived contacts were not requested.
func Get(ctx context.Context, q db.Querier, id int64, includeArchived bool) (*Contact, error) {
	sql := contactSelect + `WHERE p.id = $1`
	if !includeArchived {
		sql += ` AND p.active`
	}
	c, err := scanContact(q.QueryRow(ctx, sql, id), true)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := []Contact{*c}
	if err := attachChildren(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func attachChildren(ctx context.Context, q db.Querier, contacts []Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	ids := make([]int64, len(contacts))
	index := make(map[int64]int, len(contacts))
	for i, c := range contacts {
		ids[i] = c.ID
		index[c.ID] = i
		contacts[i].ChildIDs = []int64{}
	}
	rows, err := q.Query(ctx, `SELECT parent_id, id FROM partners WHERE parent_id = ANY($1) AND active ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var parent, child int64
		if err := rows.Scan(&parent, &child); err != nil {
			return err
		}
		i := index[parent]
		contacts[i].ChildIDs = append(contacts[i].ChildIDs, child)
	}
	for i := range contacts {
		n := len(contacts[i].ChildIDs)
		contacts[i].ChildrenCount = &n
	}
	return rows.Err()
}

type Stats struct {
	TotalContacts    int            `json:"total_contacts"`
	TotalCompanies   int            `json:"total_companies"`
	TotalIndividuals int            `json:"total_individuals"`
	TotalCustomers   int            `json:"total_customers"`
	TotalSuppliers   int            `json:"total_suppliers"`
	TopCountries     []CountryCount `json:"top_countries,omitempty"`
}

type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// LoadStats counts active contacts; top countries are the ten largest.
func LoadStats(ctx context.Context, q db.Querier, withCountries bool) (Stats, error) {
	const stmt = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE is_company),
       COUNT(*) FILTER (WHERE NOT is_company),
       COUNT(*) FILTER (WHERE customer_rank > 0),
       COUNT(*) FILTER (WHERE supplier_rank > 0)
FROM partners
WHERE active
`
	var s Stats
	if err := q.QueryRow(ctx, stmt).Scan(&s.TotalContacts, &s.TotalCompanies, &s.TotalIndividuals,
		&s.TotalCustomers, &s.TotalSuppliers); err != nil {
		return s, err
	}
	if !withCountries {
		return s, nil
	}

	const top = `
SELECT co.name, COUNT(*)
FROM partners p
JOIN countries co ON co.id = p.country_id
WHERE p.active
GROUP BY co.id, co.name
ORDER BY COUNT(*) DESC, co.name
LIMIT 10
`
	rows, err := q.Query(ctx, top)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	s.TopCountries = []CountryCount{}
	for rows.Next() {
		var c CountryCount
		if err := rows.Scan(&c.Country, &c.Count); err != nil {
			return s, err
		}
		s.TopCountries = append(s.TopCountries, c)
	}
	return s, rows.Err()
}

// Count returns how many contacts match f.
func Count(ctx context.Context, q db.Querier, f Filter) (int, error) {
	w := f.where()
	var n int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM partners p `+w.String(), w.Args...).Scan(&n)
	return n, err
}
