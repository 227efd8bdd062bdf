package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"hotelapi/internal/api"
	"hotelapi/internal/auth"
	"hotelapi/pkg/cache"
	"hotelapi/pkg/config"
	"hotelapi/pkg/db"
)

type seeded struct {
	AdminID   int64
	PartnerID int64
	HotelID   int64
	RoomIDs   []int64
}

func main() {
	var (
		apiURL   = flag.String("api-url", "", "API base url (defaults to http://localhost<HTTP_ADDR>)")
		login    = flag.String("login", "admin", "admin login to seed")
		password = flag.String("password", "admin", "admin password to seed")
		seedOnly = flag.Bool("seed-only", false, "seed the database and print an API key without calling the API")
	)
	flag.Parse()

	cfg := config.Load()
	if *apiURL == "" {
		*apiURL = defaultAPIURL(cfg.HTTPAddr)
	}

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrationsPath != "" {
		if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	var s seeded
	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		var err error
		s, err = seed(ctx, tx, *login, hash, cfg.Hotel.DefaultCurrency)
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	svc := auth.NewService(pool, cache.NewMemory(), cfg.Auth)
	key, err := svc.GenerateKey(ctx, &api.Principal{UserID: s.AdminID, Login: *login, IsAdmin: true}, "devflow", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seed complete.\n")
	fmt.Printf("admin_id=%d login=%s\n", s.AdminID, *login)
	fmt.Printf("hotel_id=%d partner_id=%d rooms=%v\n", s.HotelID, s.PartnerID, s.RoomIDs)
	fmt.Printf("api_key=%s\n", key.APIKey)

	if *seedOnly {
		return
	}

	client := &apiClient{base: *apiURL, key: key.APIKey, http: &http.Client{Timeout: 10 * time.Second}}

	checkIn := time.Now().AddDate(0, 0, 1).Format("2006-01-02") + " 14:00:00"
	checkOut := time.Now().AddDate(0, 0, 3).Format("2006-01-02") + " 12:00:00"
	var created struct {
		Data struct {
			ID int64 `json:"reserva_id"`
		} `json:"data"`
	}
	err = client.do(http.MethodPost, "/api/hotel/reserva", map[string]any{
		"partner_id": s.PartnerID,
		"user_id":    s.AdminID,
		"hotel_id":   s.HotelID,
		"check_in":   checkIn,
		"check_out":  checkOut,
		"rooms": []map[string]any{{
			"product_id": s.RoomIDs[0],
			"guests":     []map[string]any{{"name": "Huésped Demo", "age": 34, "gender": "female"}},
		}},
	}, &created)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create booking: %v\n", err)
		fmt.Fprintf(os.Stderr, "tip: is the API running, and is HTTP_ADDR set correctly? api_url=%s\n", *apiURL)
		os.Exit(1)
	}
	bookingID := created.Data.ID

	if err := client.do(http.MethodPut, fmt.Sprintf("/api/hotel/reserva/%d/estado", bookingID), map[string]any{"status_bar": "confirmed"}, nil); err != nil {
		fmt.Fprintf(os.Stderr, "confirm booking: %v\n", err)
		os.Exit(1)
	}

	var gantt struct {
		Data struct {
			Reservations []json.RawMessage `json:"reservations"`
		} `json:"data"`
	}
	if err := client.do(http.MethodGet, fmt.Sprintf("/api/hotel/gantt/data?hotel_id=%d", s.HotelID), nil, &gantt); err != nil {
		fmt.Fprintf(os.Stderr, "gantt: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("booking_id=%d confirmed; gantt segments this month=%d\n", bookingID, len(gantt.Data.Reservations))
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("- Check in:       PUT %s/api/hotel/reserva/%d/estado {\"status_bar\":\"checkin\"}\n", *apiURL, bookingID)
	fmt.Printf("- Down payment:   POST %s/api/hotel/reserva/%d/advance_payment\n", *apiURL, bookingID)
	fmt.Printf("- Final invoice:  POST %s/api/hotel/reserva/%d/create_invoice (after checkout)\n", *apiURL, bookingID)
}

func seed(ctx context.Context, tx pgx.Tx, login, passwordHash, currency string) (seeded, error) {
	var s seeded

	const company = `
INSERT INTO companies (name, currency)
SELECT 'Hotel Demo SAC', $1
WHERE NOT EXISTS (SELECT 1 FROM companies)
`
	if _, err := tx.Exec(ctx, company, currency); err != nil {
		return s, fmt.Errorf("company: %w", err)
	}
	var companyID int64
	if err := tx.QueryRow(ctx, `SELECT id FROM companies ORDER BY id LIMIT 1`).Scan(&companyID); err != nil {
		return s, err
	}

	const countries = `
INSERT INTO countries (name, code) VALUES ('Perú', 'PE'), ('Chile', 'CL'), ('United States', 'US')
ON CONFLICT (code) DO NOTHING
`
	if _, err := tx.Exec(ctx, countries); err != nil {
		return s, fmt.Errorf("countries: %w", err)
	}

	const groups = `
INSERT INTO groups (name, category) VALUES ('Administrador', 'Hotel'), ('Recepción', 'Hotel')
ON CONFLICT (name) DO NOTHING
`
	if _, err := tx.Exec(ctx, groups); err != nil {
		return s, fmt.Errorf("groups: %w", err)
	}

	const admin = `
INSERT INTO users (login, name, email, password_hash, is_admin, company_id)
VALUES ($1, 'Administrator', $1 || '@example.com', $2, TRUE, $3)
ON CONFLICT (login) DO UPDATE SET password_hash = EXCLUDED.password_hash, active = TRUE
RETURNING id
`
	if err := tx.QueryRow(ctx, admin, login, passwordHash, companyID).Scan(&s.AdminID); err != nil {
		return s, fmt.Errorf("admin: %w", err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO user_groups (user_id, group_id)
SELECT $1::bigint, id FROM groups WHERE name = 'Administrador'
ON CONFLICT DO NOTHING
`, s.AdminID); err != nil {
		return s, fmt.Errorf("admin groups: %w", err)
	}

	const partner = `
INSERT INTO partners (name, email, phone, city, country_id, company_id, customer_rank)
SELECT 'Cliente Demo', 'cliente@example.com', '+51 999 000 111', 'Lima', (SELECT id FROM countries WHERE code = 'PE'), $1::bigint, 1
WHERE NOT EXISTS (SELECT 1 FROM partners WHERE email = 'cliente@example.com')
`
	if _, err := tx.Exec(ctx, partner, companyID); err != nil {
		return s, fmt.Errorf("partner: %w", err)
	}
	if err := tx.QueryRow(ctx, `SELECT id FROM partners WHERE email = 'cliente@example.com' ORDER BY id LIMIT 1`).Scan(&s.PartnerID); err != nil {
		return s, err
	}

	const hotel = `
INSERT INTO hotels (name, city, tagline, currency, company_id, hotel_type_id, timezone)
SELECT 'Hotel Demo', 'Cusco', 'Hospedaje en el centro histórico', $1, $2::bigint,
       (SELECT id FROM hotel_types ORDER BY id LIMIT 1), 'America/Lima'
WHERE NOT EXISTS (SELECT 1 FROM hotels WHERE name = 'Hotel Demo')
`
	if _, err := tx.Exec(ctx, `INSERT INTO hotel_types (name) SELECT 'Boutique' WHERE NOT EXISTS (SELECT 1 FROM hotel_types)`); err != nil {
		return s, fmt.Errorf("hotel types: %w", err)
	}
	if _, err := tx.Exec(ctx, hotel, currency, companyID); err != nil {
		return s, fmt.Errorf("hotel: %w", err)
	}
	if err := tx.QueryRow(ctx, `SELECT id FROM hotels WHERE name = 'Hotel Demo' ORDER BY id LIMIT 1`).Scan(&s.HotelID); err != nil {
		return s, err
	}

	const rooms = `
INSERT INTO products (hotel_id, name, code, is_room_type, list_price, tax_percent, max_adult, max_child)
SELECT $1::bigint, r.name, r.code, TRUE, r.price, 18, r.adults, r.children
FROM (VALUES ('Habitación 101', 'H101', 180.00, 2, 1),
             ('Habitación 102', 'H102', 180.00, 2, 1),
             ('Suite 201', 'S201', 320.00, 3, 2)) AS r(name, code, price, adults, children)
WHERE NOT EXISTS (SELECT 1 FROM products p WHERE p.hotel_id = $1::bigint AND p.code = r.code)
`
	if _, err := tx.Exec(ctx, rooms, s.HotelID); err != nil {
		return s, fmt.Errorf("rooms: %w", err)
	}
	const services = `
INSERT INTO products (name, code, list_price)
SELECT r.name, r.code, r.price
FROM (VALUES ('Early check-in', 'EARLY', 50.00), ('Late check-out', 'LATE', 50.00)) AS r(name, code, price)
WHERE NOT EXISTS (SELECT 1 FROM products p WHERE p.code = r.code)
`
	if _, err := tx.Exec(ctx, services); err != nil {
		return s, fmt.Errorf("service products: %w", err)
	}

	const journals = `
INSERT INTO payment_journals (name, code, type, company_id)
SELECT j.name, j.code, j.type, $1::bigint
FROM (VALUES ('Efectivo', 'CSH1', 'cash'), ('Banco', 'BNK1', 'bank')) AS j(name, code, type)
WHERE NOT EXISTS (SELECT 1 FROM payment_journals p WHERE p.code = j.code)
`
	if _, err := tx.Exec(ctx, journals, companyID); err != nil {
		return s, fmt.Errorf("journals: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT id FROM products WHERE hotel_id = $1 AND is_room_type ORDER BY id`, s.HotelID)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return s, err
		}
		s.RoomIDs = append(s.RoomIDs, id)
	}
	return s, rows.Err()
}

type apiClient struct {
	base string
	key  string
	http *http.Client
}

func (c *apiClient) do(method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status=%d body=%s", method, path, resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(b, out)
}

func defaultAPIURL(httpAddr string) string {
	// httpAddr is typically ":8081" or "0.0.0.0:8081".
	addr := strings.TrimSpace(httpAddr)
	if addr == "" {
		addr = ":8081"
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	if strings.HasPrefix(addr, "0.0.0.0:") {
		return "http://localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return "http://" + addr
}
