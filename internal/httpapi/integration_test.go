//go:build integration

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"hotelapi/internal/api"
	"hotelapi/internal/auth"
	"hotelapi/pkg/blob"
	"hotelapi/pkg/cache"
	"hotelapi/pkg/config"
	"hotelapi/pkg/db"
	"hotelapi/pkg/metrics"
	"hotelapi/pkg/natsclient"
)

type fixture struct {
	server    *httptest.Server
	pool      *pgxpool.Pool
	auth      *auth.Service
	key       string
	companyID int64
	adminID   int64
	partnerID int64
	hotelID   int64
	roomID    int64
}

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("hotelapi_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.MigrateURL("file://../../migrations", dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	pool := startPostgres(t)
	decimal.MarshalJSONWithoutQuotes = true

	hash, err := auth.HashPassword("secret")
	require.NoError(t, err)

	f := &fixture{pool: pool}
	var companyID int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO companies (name) VALUES ('Demo SAC') RETURNING id`).Scan(&companyID))
	f.companyID = companyID
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (login, name, password_hash, is_admin, company_id) VALUES ('admin', 'Admin', $1, TRUE, $2) RETURNING id`,
		hash, companyID).Scan(&f.adminID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO partners (name, email, city, company_id, customer_rank) VALUES ('Ana Torres', 'ana@example.com', 'Lima', $1, 1) RETURNING id`,
		companyID).Scan(&f.partnerID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO hotels (name, city, company_id) VALUES ('Hotel Centro', 'Cusco', $1) RETURNING id`,
		companyID).Scan(&f.hotelID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (hotel_id, name, code, is_room_type, list_price, max_adult, max_child) VALUES ($1, 'Habitación 101', 'H101', TRUE, 150, 2, 1) RETURNING id`,
		f.hotelID).Scan(&f.roomID))

	cfg := config.Config{
		Hotel: config.HotelConfig{Timezone: "UTC", DefaultCurrency: "PEN", APIVersion: "test"},
		Auth:  config.AuthConfig{JWTSecret: "integration", JWTTTL: time.Hour, KeyCacheTTL: time.Minute},
	}
	f.auth = auth.NewService(pool, cache.NewMemory(), cfg.Auth)
	f.key = f.newKey(t, f.adminID, "admin", true)

	f.server = httptest.NewServer(NewRouter(Dependencies{
		Cfg:     cfg,
		DB:      pool,
		Auth:    f.auth,
		Blobs:   blob.NewPostgres(pool),
		Events:  natsclient.Nop{},
		Metrics: metrics.New(),
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) newKey(t *testing.T, userID int64, login string, admin bool) string {
	t.Helper()
	key, err := f.auth.GenerateKey(context.Background(), &api.Principal{UserID: userID, Login: login, IsAdmin: admin}, "integration", "")
	require.NoError(t, err)
	return key.APIKey
}

func (f *fixture) call(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	return f.callAs(t, f.key, method, path, body)
}

func (f *fixture) callAs(t *testing.T, key, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", key)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (f *fixture) addRoom(t *testing.T, name string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, f.pool.QueryRow(context.Background(),
		`INSERT INTO products (hotel_id, name, code, is_room_type, list_price, max_adult, max_child) VALUES ($1, $2, $2, TRUE, 150, 2, 1) RETURNING id`,
		f.hotelID, name).Scan(&id))
	return id
}

func (f *fixture) roomStatus(t *testing.T, roomID int64) string {
	t.Helper()
	var s string
	require.NoError(t, f.pool.QueryRow(context.Background(), `SELECT room_status FROM products WHERE id = $1`, roomID).Scan(&s))
	return s
}

// stay returns check-in and check-out strings two days from now, for nights nights.
func stay(nights int) (time.Time, string, string) {
	day := time.Now().UTC().AddDate(0, 0, 2)
	return day, day.Format("2006-01-02") + " 14:00:00", day.AddDate(0, 0, nights).Format("2006-01-02") + " 12:00:00"
}

func room(productID int64, extra map[string]any) map[string]any {
	r := map[string]any{
		"product_id": productID,
		"guests":     []map[string]any{{"name": "Ana Torres", "age": 30, "gender": "female"}},
	}
	for k, v := range extra {
		r[k] = v
	}
	return r
}

// createBooking posts a booking over rooms and returns its id.
func (f *fixture) createBooking(t *testing.T, extra map[string]any, rooms ...map[string]any) int64 {
	t.Helper()
	_, checkIn, checkOut := stay(2)
	body := map[string]any{
		"partner_id": f.partnerID,
		"user_id":    f.adminID,
		"hotel_id":   f.hotelID,
		"check_in":   checkIn,
		"check_out":  checkOut,
		"rooms":      rooms,
	}
	for k, v := range extra {
		body[k] = v
	}
	status, out := f.call(t, http.MethodPost, "/api/hotel/reserva", body)
	require.Equal(t, http.StatusCreated, status, "%v", out)
	return int64(out["data"].(map[string]any)["reserva_id"].(float64))
}

func (f *fixture) booking(t *testing.T, id int64) map[string]any {
	t.Helper()
	status, out := f.call(t, http.MethodGet, fmt.Sprintf("/api/hotel/reserva/%d", id), nil)
	require.Equal(t, http.StatusOK, status, "%v", out)
	return out["data"].(map[string]any)
}

// lines maps product id to the booking line view.
func lines(view map[string]any) map[int64]map[string]any {
	out := map[int64]map[string]any{}
	for _, r := range view["rooms"].([]any) {
		l := r.(map[string]any)
		out[int64(l["product_id"].(float64))] = l
	}
	return out
}

func (f *fixture) setStatus(t *testing.T, id int64, status string) (int, map[string]any) {
	t.Helper()
	return f.call(t, http.MethodPut, fmt.Sprintf("/api/hotel/reserva/%d/estado", id), map[string]any{"status_bar": status})
}

func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t)

	day := time.Now().UTC().AddDate(0, 0, 2)
	checkIn := day.Format("2006-01-02") + " 14:00:00"
	checkOut := day.AddDate(0, 0, 2).Format("2006-01-02") + " 12:00:00"

	status, body := f.call(t, http.MethodPost, "/api/hotel/reserva", map[string]any{
		"partner_id": f.partnerID,
		"user_id":    f.adminID,
		"hotel_id":   f.hotelID,
		"check_in":   checkIn,
		"check_out":  checkOut,
		"rooms": []map[string]any{{
			"product_id": f.roomID,
			"guests":     []map[string]any{{"name": "Ana Torres", "age": 30, "gender": "female"}},
		}},
	})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	data := body["data"].(map[string]any)
	bookingID := int64(data["reserva_id"].(float64))

	status, body = f.call(t, http.MethodPut, fmt.Sprintf("/api/hotel/reserva/%d/estado", bookingID), map[string]any{"status_bar": "confirmed"})
	require.Equal(t, http.StatusOK, status, "%v", body)

	status, body = f.call(t, http.MethodGet, fmt.Sprintf("/api/hotel/reserva/%d", bookingID), nil)
	require.Equal(t, http.StatusOK, status, "%v", body)

	status, body = f.call(t, http.MethodGet,
		fmt.Sprintf("/api/hotel/gantt/data?hotel_id=%d&target_date=%s", f.hotelID, day.Format("2006-01-02")), nil)
	require.Equal(t, http.StatusOK, status, "%v", body)
	gantt := body["data"].(map[string]any)
	assert.Len(t, gantt["rooms"], 1)
	assert.NotEmpty(t, gantt["reservations"])

	status, body = f.call(t, http.MethodPost, fmt.Sprintf("/api/hotel/reserva/%d/create_invoice", bookingID), nil)
	assert.Equal(t, http.StatusBadRequest, status, "%v", body)

	status, _ = f.call(t, http.MethodDelete, fmt.Sprintf("/api/hotel/reserva/%d", bookingID), nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestCatalogEndpoints(t *testing.T) {
	f := newFixture(t)

	status, body := f.call(t, http.MethodGet, "/api/hotel/hoteles", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = f.call(t, http.MethodGet, "/api/hotel/hoteles/search?city=cus", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total_count"])

	status, body = f.call(t, http.MethodGet, fmt.Sprintf("/api/hotel/hoteles/%d", f.hotelID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["room_count"])

	status, body = f.call(t, http.MethodGet, "/api/hotel/cuartos/999999", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], fmt.Sprintf("Use IDs disponibles: %d", f.roomID))

	status, body = f.call(t, http.MethodGet, "/api/hotel/habitaciones?hotel_id=999999", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "El hotel con ID 999999 no existe", body["error"])

	status, body = f.call(t, http.MethodGet, "/api/v1/contacts?search=ana", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["meta"].(map[string]any)["total"])

	status, body = f.call(t, http.MethodGet, "/api/v1/responsables?exclude_system=false", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total_count"])
}

func TestCancelDeleteAndTerminalGuards(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t, nil, room(f.roomID, nil))
	path := fmt.Sprintf("/api/hotel/reserva/%d", id)

	status, body := f.call(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "cancelled", body["data"].(map[string]any)["status_bar"])

	status, body = f.call(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "La reserva ya está cancelada", body["error"])

	status, body = f.call(t, http.MethodPut, path, map[string]any{"description": "tarde"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, `No se puede actualizar una reserva en estado "cancelled"`, body["error"])

	status, body = f.call(t, http.MethodPost, path+"/habitaciones", map[string]any{"rooms": []map[string]any{room(f.roomID, nil)}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, `No se pueden agregar habitaciones a una reserva en estado "cancelled"`, body["error"])

	status, body = f.call(t, http.MethodDelete, path+"?force=true", nil)
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "Reserva eliminada permanentemente", body["message"])

	status, _ = f.call(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.setStatus(t, id, "confirmed")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStatusChangesMoveRoomStatus(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t, nil, room(f.roomID, nil))

	status, body := f.setStatus(t, id, "confirmed")
	require.Equal(t, http.StatusOK, status, "%v", body)

	status, body = f.setStatus(t, id, "confirmed")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], `No se puede cambiar de estado "confirmed" a "confirmed"`)

	status, body = f.call(t, http.MethodPut, fmt.Sprintf("/api/hotel/reserva/%d", id), map[string]any{"status_bar": "confirmed"})
	assert.Equal(t, http.StatusBadRequest, status, "%v", body)

	status, body = f.setStatus(t, id, "checkin")
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "occupied", f.roomStatus(t, f.roomID))

	status, body = f.setStatus(t, id, "checkout")
	require.Equal(t, http.StatusOK, status, "%v", body)

	status, body = f.call(t, http.MethodPost, fmt.Sprintf("/api/hotel/reserva/%d/mark_room_ready", id), nil)
	assert.Equal(t, http.StatusBadRequest, status, "%v", body)

	status, body = f.setStatus(t, id, "cleaning_needed")
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "dirty", f.roomStatus(t, f.roomID))

	status, body = f.call(t, http.MethodPost, fmt.Sprintf("/api/hotel/reserva/%d/mark_room_ready", id), nil)
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "available", f.roomStatus(t, f.roomID))
	assert.Equal(t, "room_ready", f.booking(t, id)["status_bar"])
}

func TestUpdateGuestsReplaceAndAppend(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t, nil, room(f.roomID, nil))
	lineID := lines(f.booking(t, id))[f.roomID]["id"]
	path := fmt.Sprintf("/api/hotel/reserva/%d/update_guests", id)

	status, body := f.call(t, http.MethodPost, path, map[string]any{
		"booking_line_id": lineID,
		"replace":         true,
		"guests": []map[string]any{
			{"name": "Luis Quispe", "age": 41, "gender": "male"},
			{"name": "Sofía Quispe", "age": 8, "gender": "female"},
		},
	})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.EqualValues(t, 2, body["data"].(map[string]any)["guests_added"])
	assert.Len(t, lines(f.booking(t, id))[f.roomID]["guest_info"], 2)

	status, body = f.call(t, http.MethodPut, path, map[string]any{
		"guests": []map[string]any{{"name": "Rosa Mamani", "age": 65, "gender": "female"}},
	})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Len(t, lines(f.booking(t, id))[f.roomID]["guest_info"], 3)

	status, body = f.call(t, http.MethodPost, path, map[string]any{
		"replace": true,
		"guests":  []map[string]any{{"name": "Leo", "age": 9}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "al menos un adulto")
	assert.Len(t, lines(f.booking(t, id))[f.roomID]["guest_info"], 3)
}

func TestChangeAndResetPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var pricelistID, staffID int64
	require.NoError(t, f.pool.QueryRow(ctx, `INSERT INTO pricelists (name, currency) VALUES ('Dólares', 'USD') RETURNING id`).Scan(&pricelistID))
	require.NoError(t, f.pool.QueryRow(ctx,
		`INSERT INTO users (login, name, company_id) VALUES ('recepcion', 'Recepción', $1) RETURNING id`, f.companyID).Scan(&staffID))
	staffKey := f.newKey(t, staffID, "recepcion", false)

	id := f.createBooking(t, map[string]any{"pricelist_id": pricelistID}, room(f.roomID, map[string]any{"price": 200000}))
	lineID := int64(lines(f.booking(t, id))[f.roomID]["id"].(float64))
	change := fmt.Sprintf("/api/hotel/booking_line/%d/change_price", lineID)
	reset := fmt.Sprintf("/api/hotel/booking_line/%d/reset_price", lineID)

	status, body := f.callAs(t, staffKey, http.MethodPost, change, map[string]any{"new_price": 210000, "reason": "Tarifa corporativa"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Solo el responsable de la reserva puede cambiar precios", body["error"])

	status, body = f.call(t, http.MethodPost, change, map[string]any{"new_price": 700000, "reason": "Tarifa corporativa"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "El nuevo precio no puede ser más de 3 veces el precio original", body["error"])

	status, body = f.call(t, http.MethodPost, change, map[string]any{"new_price": 350000, "reason": "Tarifa corporativa"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "El precio no puede exceder 300,000 USD", body["error"])

	status, body = f.call(t, http.MethodPost, reset, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No hay precio original registrado para restaurar", body["error"])

	status, body = f.call(t, http.MethodPost, change, map[string]any{"new_price": 250000, "reason": "Tarifa corporativa"})
	require.Equal(t, http.StatusOK, status, "%v", body)
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 250000, data["current_price"])
	assert.EqualValues(t, 200000, data["change_info"].(map[string]any)["old_price"])

	status, body = f.call(t, http.MethodPost, reset, nil)
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.EqualValues(t, 200000, body["data"].(map[string]any)["current_price"])

	status, body = f.call(t, http.MethodPost, reset, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "El precio ya está en su valor original", body["error"])
}

func TestChangeRoom(t *testing.T) {
	f := newFixture(t)
	taken := f.addRoom(t, "Habitación 102")
	first := f.addRoom(t, "Habitación 103")
	second := f.addRoom(t, "Habitación 104")
	free := f.addRoom(t, "Habitación 105")
	day, _, _ := stay(2)
	from, until := day.AddDate(0, 0, 1).Format("2006-01-02"), day.AddDate(0, 0, 2).Format("2006-01-02")

	single := f.createBooking(t, nil, room(f.roomID, nil))
	f.createBooking(t, nil, room(taken, nil))

	status, body := f.call(t, http.MethodPost, fmt.Sprintf("/api/hotel/reserva/%d/change_room", single), map[string]any{
		"new_room_id":       taken,
		"change_start_date": from,
		"change_end_date":   until,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "La habitación Habitación 102 no está disponible en las fechas seleccionadas", body["error"])

	multi := f.createBooking(t, nil, room(first, nil), room(second, nil))
	before := f.booking(t, multi)
	moved := lines(before)[first]

	status, body = f.call(t, http.MethodPost, fmt.Sprintf("/api/hotel/reserva/%d/change_room", multi), map[string]any{
		"booking_line_id":   moved["id"],
		"new_room_id":       free,
		"change_start_date": from,
		"change_end_date":   until,
	})
	require.Equal(t, http.StatusOK, status, "%v", body)

	after := f.booking(t, multi)
	assert.Equal(t, before["check_out"], after["check_out"])
	assert.Equal(t, lines(before)[second]["booking_days"], lines(after)[second]["booking_days"])
	assert.Less(t, lines(after)[first]["booking_days"].(float64), moved["booking_days"].(float64))
	assert.NotNil(t, after["connected_booking_id"])
}

func TestAdvancePaymentNeedsOrderAndRemainder(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t, nil, room(f.roomID, nil))
	path := fmt.Sprintf("/api/hotel/reserva/%d/advance_payment", id)

	status, body := f.call(t, http.MethodPost, path, map[string]any{"advance_payment_method": "fixed", "amount": 50})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "La reserva no tiene una orden de venta asociada. Confirme la reserva primero.", body["error"])

	status, body = f.setStatus(t, id, "confirmed")
	require.Equal(t, http.StatusOK, status, "%v", body)

	status, body = f.call(t, http.MethodPost, path, map[string]any{"advance_payment_method": "fixed", "amount": 999999})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "excede el monto pendiente por facturar")

	status, body = f.call(t, http.MethodPost, path, map[string]any{"advance_payment_method": "fixed", "amount": 50})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Len(t, body["data"].(map[string]any)["invoices_created"], 1)
}
