package httpapi

import (
	"net/http"
	"time"

	"hotelapi/internal/api"
)

// health reports liveness for load balancers and the frontend's status badge.
func health(version string, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		api.WriteSuccess(w, http.StatusOK, api.M{
			"status":    "healthy",
			"timestamp": now().UTC().Format(time.RFC3339),
			"version":   version,
		})
	}
}
