package states

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func router() http.Handler {
	var h Handlers
	r := chi.NewRouter()
	r.Get("/states", h.All)
	r.Get("/states/validate-transition", h.ValidateTransition)
	r.Get("/states/booking", h.BookingStates)
	r.Get("/states/booking/{code}", h.BookingState)
	r.Get("/states/housekeeping/{code}", h.HousekeepingState)
	return r
}

func get(t *testing.T, target string, header map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestEnglish(t *testing.T) {
	cases := []struct {
		query, accept string
		want          bool
	}{
		{"", "", false},
		{"en", "", true},
		{"EN-us", "", true},
		{"es", "en-US,en;q=0.9", false},
		{"", "en-GB", true},
		{"fr", "", false},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/?lang="+c.query, nil)
		if c.accept != "" {
			r.Header.Set("Accept-Language", c.accept)
		}
		assert.Equal(t, c.want, English(r), "lang=%q accept=%q", c.query, c.accept)
	}
}

func TestBookingStates_WithTransitions(t *testing.T) {
	code, body := get(t, "/states/booking?include_transitions=true&lang=en", nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 8, data["count"])
	states := data["states"].([]any)
	assert.Equal(t, "Draft", states[0].(map[string]any)["name"])
	transitions := data["transitions"].(map[string]any)
	assert.Contains(t, transitions, "room_ready")
}

func TestStateDetail_NotFound(t *testing.T) {
	code, body := get(t, "/states/housekeeping/unknown", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "STATE_NOT_FOUND", body["code"])
}

func TestAll_Formats(t *testing.T) {
	_, body := get(t, "/states", nil)
	data := body["data"].(map[string]any)
	summary := data["summary"].(map[string]any)
	assert.EqualValues(t, 11, summary["total_states"])
	assert.EqualValues(t, 3, summary["total_terminal_states"])
	assert.NotContains(t, data, "transitions")

	_, body = get(t, "/states?format=flat", nil)
	data = body["data"].(map[string]any)
	assert.EqualValues(t, 11, data["total_count"])
	last := data["states"].([]any)[10].(map[string]any)
	assert.Equal(t, "housekeeping", last["type"])
}

func TestValidateTransitionEndpoint(t *testing.T) {
	code, body := get(t, "/states/validate-transition?type=booking&from_state=checkin", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Parámetros requeridos: type, from_state, to_state", body["error"])

	code, _ = get(t, "/states/validate-transition?type=room&from_state=a&to_state=b", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = get(t, "/states/validate-transition?type=booking&from_state=CHECKIN&to_state=checkout", nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["is_valid"])
	assert.Len(t, data["valid_transitions"], 2)
}
