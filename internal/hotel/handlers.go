package hotel

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/pkg/logger"
)

const (
	searchLimit  = 50
	roomHintSize = 10
)

// SearchFromQuery reads the /hoteles/search parameters. hotel_type is
// accepted as an alias of hotel_type_id.
func SearchFromQuery(get func(string) string) (SearchFilter, error) {
	f := SearchFilter{
		Name:  strings.TrimSpace(get("name")),
		City:  strings.TrimSpace(get("city")),
		Limit: searchLimit,
	}
	raw := strings.TrimSpace(get("hotel_type_id"))
	if raw == "" {
		raw = strings.TrimSpace(get("hotel_type"))
	}
	if raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, apperr.Validation("ID de tipo de hotel inválido")
		}
		f.HotelTypeID = &id
	}
	if raw := strings.TrimSpace(get("is_published")); raw != "" {
		v := api.ParseBool(raw)
		f.IsPublished = &v
	}
	if n, err := strconv.Atoi(strings.TrimSpace(get("limit"))); err == nil && n > 0 {
		f.Limit = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(get("offset"))); err == nil && n > 0 {
		f.Offset = n
	}
	return f, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

// roomNotFound explains a failed room lookup and points at usable ids.
func roomNotFound(id int64, isProduct bool, hint []int64) *apperr.Error {
	if isProduct {
		return apperr.NotFoundf("Producto con ID %d existe pero no es una habitación (is_room_type=False). Use IDs: %s", id, joinIDs(hint))
	}
	return apperr.NotFoundf("Habitación con ID %d no encontrada. Use IDs disponibles: %s", id, joinIDs(hint))
}

type Handlers struct {
	DB *pgxpool.Pool
}

func (h Handlers) Hotels(w http.ResponseWriter, r *http.Request) {
	hotels, err := All(r.Context(), h.DB)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.M{"count": len(hotels), "data": hotels})
}

func (h Handlers) Hotel(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, apperr.Validation("ID de hotel inválido"))
		return
	}
	hotel, err := Get(r.Context(), h.DB, id, true)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if hotel == nil {
		api.WriteErr(w, r, apperr.NotFoundf("Hotel con ID %d no encontrado o inactivo", id))
		return
	}
	api.OK(w, hotel, "")
}

func (h Handlers) Search(w http.ResponseWriter, r *http.Request) {
	f, err := SearchFromQuery(r.URL.Query().Get)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	hotels, total, err := Search(r.Context(), h.DB, f)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("hotel search",
		zap.String("name", f.Name), zap.String("city", f.City), zap.Int("total", total))

	api.WriteSuccess(w, http.StatusOK, api.M{
		"data":        hotels,
		"count":       len(hotels),
		"total_count": total,
		"offset":      f.Offset,
		"limit":       f.Limit,
	})
}

func (h Handlers) HotelRooms(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, apperr.Validation("ID de hotel inválido"))
		return
	}
	hotel, err := Get(r.Context(), h.DB, id, false)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if hotel == nil {
		api.WriteErr(w, r, apperr.NotFoundf("Hotel con ID %d no encontrado", id))
		return
	}
	rooms, err := Rooms(r.Context(), h.DB, &id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.M{
		"hotel_id":   hotel.ID,
		"hotel_name": hotel.Name,
		"count":      len(rooms),
		"data":       rooms,
	})
}

func (h Handlers) Rooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := Rooms(r.Context(), h.DB, nil)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.M{"count": len(rooms), "data": rooms})
}

func (h Handlers) Room(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, apperr.Validation("ID de habitación inválido"))
		return
	}
	room, isProduct, err := FindRoom(r.Context(), h.DB, id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if room == nil {
		hint, err := SampleRoomIDs(r.Context(), h.DB, roomHintSize)
		if err != nil {
			api.WriteErr(w, r, err)
			return
		}
		api.WriteErr(w, r, roomNotFound(id, isProduct, hint))
		return
	}
	api.OK(w, room, "")
}

// Habitaciones lists rooms, optionally for one existing hotel.
func (h Handlers) Habitaciones(w http.ResponseWriter, r *http.Request) {
	var hotelID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("hotel_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			api.WriteErr(w, r, apperr.Validation("El hotel_id debe ser un número entero válido"))
			return
		}
		hotel, err := Get(r.Context(), h.DB, id, false)
		if err != nil {
			api.WriteErr(w, r, err)
			return
		}
		if hotel == nil {
			api.WriteErr(w, r, apperr.Validationf("El hotel con ID %d no existe", id))
			return
		}
		hotelID = &id
	}
	rooms, err := Rooms(r.Context(), h.DB, hotelID)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.M{"count": len(rooms), "data": rooms})
}
