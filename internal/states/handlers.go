package states

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/pkg/logger"
)

var matcher = language.NewMatcher([]language.Tag{language.Spanish, language.English})

// English resolves the lang query parameter, then Accept-Language, against
// the supported languages. Spanish wins when nothing matches.
func English(r *http.Request) bool {
	tag, _ := language.MatchStrings(matcher, r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	base, _ := tag.Base()
	return base.String() == "en"
}

func query(r *http.Request, name string) string {
	return strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name)))
}

type Handlers struct{}

func (h Handlers) list(w http.ResponseWriter, r *http.Request, k Kind) {
	states := List(k, English(r))
	body := map[string]any{
		"states":   states,
		"count":    len(states),
		"metadata": Count(states),
	}
	if api.QueryBool(r, "include_transitions") {
		body["transitions"] = Graph(k)
	}
	api.OK(w, body, "")
}

func (h Handlers) detail(w http.ResponseWriter, r *http.Request, k Kind) {
	code := chi.URLParam(r, "code")
	d, err := Get(k, code, English(r))
	if err != nil {
		logger.FromContext(r.Context()).Info("state not found", zap.String("type", string(k)), zap.String("code", code))
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, d, "")
}

func (h Handlers) BookingStates(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, KindBooking)
}

func (h Handlers) BookingState(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, KindBooking)
}

func (h Handlers) HousekeepingStates(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, KindHousekeeping)
}

func (h Handlers) HousekeepingState(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, KindHousekeeping)
}

type group struct {
	States      []State `json:"states"`
	Count       int     `json:"count"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
}

// All lists both catalogues, grouped by kind unless format=flat.
func (h Handlers) All(w http.ResponseWriter, r *http.Request) {
	en := English(r)
	booking, housekeeping := List(KindBooking, en), List(KindHousekeeping, en)

	if query(r, "format") == "flat" {
		all := make([]State, 0, len(booking)+len(housekeeping))
		for _, s := range booking {
			s.Type = KindBooking
			all = append(all, s)
		}
		for _, s := range housekeeping {
			s.Type = KindHousekeeping
			all = append(all, s)
		}
		api.OK(w, map[string]any{"states": all, "total_count": len(all)}, "")
		return
	}

	bc, hc := Count(booking), Count(housekeeping)
	body := map[string]any{
		"booking": group{
			States: booking, Count: len(booking),
			Type: "hotel.booking", Description: "Estados de reservas de habitaciones",
		},
		"housekeeping": group{
			States: housekeeping, Count: len(housekeeping),
			Type: "hotel.housekeeping", Description: "Estados de mantenimiento y limpieza",
		},
		"summary": map[string]int{
			"total_booking_states":      bc.TotalStates,
			"total_housekeeping_states": hc.TotalStates,
			"total_states":              bc.TotalStates + hc.TotalStates,
			"total_terminal_states":     bc.TerminalStates + hc.TerminalStates,
		},
	}
	if api.QueryBool(r, "include_transitions") {
		body["transitions"] = map[Kind]map[string]Edge{
			KindBooking:      Graph(KindBooking),
			KindHousekeeping: Graph(KindHousekeeping),
		}
	}
	api.OK(w, body, "")
}

func (h Handlers) ValidateTransition(w http.ResponseWriter, r *http.Request) {
	kind, from, to := query(r, "type"), query(r, "from_state"), query(r, "to_state")
	if kind == "" || from == "" || to == "" {
		api.WriteErr(w, r, apperr.Validation("Parámetros requeridos: type, from_state, to_state"))
		return
	}
	k, err := ParseKind(kind)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	res, err := CheckTransition(k, from, to)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("transition checked",
		zap.String("from", from), zap.String("to", to), zap.Bool("valid", res.IsValid))
	api.OK(w, res, "")
}
