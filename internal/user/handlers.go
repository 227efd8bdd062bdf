package user

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/pkg/logger"
)

type Handlers struct {
	DB *pgxpool.Pool
}

// List serves both /responsables and /responsables/search.
func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	f, err := FilterFromQuery(r.URL.Query().Get)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	users, total, err := List(r.Context(), h.DB, f)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("responsables listed", zap.Int("count", len(users)), zap.Int("total", total))

	api.WriteSuccess(w, http.StatusOK, api.M{
		"data":        users,
		"count":       len(users),
		"total_count": total,
		"offset":      f.Offset,
		"limit":       f.Limit,
		"has_more":    f.Offset+len(users) < total,
	})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, apperr.Validation("ID de responsable inválido"))
		return
	}
	u, err := Get(r.Context(), h.DB, id, api.QueryBool(r, "include_archived"))
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if u == nil {
		api.WriteErr(w, r, apperr.NotFoundf("Responsable con ID %d no encontrado", id))
		return
	}
	api.OK(w, u, "")
}

func (h Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := LoadStats(r.Context(), h.DB)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, s, "")
}
