package gantt

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/pkg/logger"
)

type Handlers struct {
	DB  *pgxpool.Pool
	Loc *time.Location
	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// hotelParam ignores values that are not integers and treats the whole
// catalogue as in scope.
func hotelParam(r *http.Request) *int64 {
	raw := strings.TrimSpace(r.URL.Query().Get("hotel_id"))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// Data returns the rooms and reservation segments of one month for the
// gantt chart.
func (h Handlers) Data(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now().In(h.Loc)

	target := now
	if raw := strings.TrimSpace(r.URL.Query().Get("target_date")); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, h.Loc)
		if err != nil {
			api.WriteErr(w, r, apperr.Validation("Formato de fecha inválido para target_date. Use YYYY-MM-DD"))
			return
		}
		target = t
	}
	hotelID := hotelParam(r)
	first, end := Window(target, h.Loc)

	rooms, err := Rooms(ctx, h.DB, hotelID)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	reservations, err := Reservations(ctx, h.DB, hotelID, first, end, h.Loc)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}

	logger.FromContext(ctx).Debug("gantt data",
		zap.Time("first_day", first), zap.Int("rooms", len(rooms)), zap.Int("reservations", len(reservations)))

	api.OK(w, Data{
		Rooms:        rooms,
		Reservations: reservations,
		MonthInfo:    Month(target, h.Loc),
		Metadata: Metadata{
			TotalRooms:        len(rooms),
			TotalReservations: len(reservations),
			HotelID:           hotelID,
			TargetDate:        target.Format("2006-01-02"),
			GeneratedAt:       now.Format(isoLayout),
			Timezone:          h.Loc.String(),
		},
	}, "")
}
