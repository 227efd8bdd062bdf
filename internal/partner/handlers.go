package partner

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

const (
	defaultLimit     = 20
	defaultExportMax = 5000
	exportCap        = 10000
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

type Meta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// Paging reads limit and page. Malformed or non-positive values fall back
// to the first page of defaultLimit contacts.
func Paging(get func(string) string) (limit, page int) {
	l, errL := intOr(get("limit"), defaultLimit)
	p, errP := intOr(get("page"), 1)
	if errL != nil || errP != nil || l <= 0 || p <= 0 {
		return defaultLimit, 1
	}
	return l, p
}

func intOr(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func NewMeta(total, page, limit int) Meta {
	return Meta{Total: total, Page: page, Limit: limit, Pages: (total + limit - 1) / limit}
}

// List serves both /contacts and /contacts/search.
func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := FilterFromQuery(q.Get)
	limit, page := Paging(q.Get)

	contacts, total, err := List(r.Context(), h.DB, f, limit, (page-1)*limit, false)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.M{
		"data": contacts,
		"meta": NewMeta(total, page, limit),
	})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.WriteErr(w, r, apperr.Validation("ID de contacto inválido"))
		return
	}
	c, err := Get(r.Context(), h.DB, id, api.QueryBool(r, "include_archived"))
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if c == nil {
		api.WriteErr(w, r, apperr.NotFound("Contacto no encontrado"))
		return
	}
	api.OK(w, c, "")
}

func (h Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := LoadStats(r.Context(), h.DB, api.QueryBool(r, "include_country_stats"))
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, s, "")
}

// ExportLimit resolves max_records, capped at exportCap.
func ExportLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultExportMax, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperr.Validationf("Parámetro max_records inválido: %s", raw)
	}
	return min(n, exportCap), nil
}

// Export returns every matching contact in detail form, refusing when the
// result would exceed max_records.
func (h Handlers) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := ExportLimit(r.URL.Query().Get("max_records"))
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	f := FilterFromQuery(r.URL.Query().Get)
	total, err := Count(ctx, h.DB, f)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if total > limit {
		api.WriteErr(w, r, apperr.Validationf("Demasiados registros (%d). Use filtros.", total))
		return
	}
	contacts, _, err := List(ctx, h.DB, f, limit, 0, true)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	logger.FromContext(ctx).Info("contacts exported", zap.Int("count", len(contacts)))
	api.WriteSuccess(w, http.StatusOK, api.M{
		"data":           contacts,
		"total_exported": len(contacts),
		"export_date":    h.now().In(h.Loc).Format("2006-01-02 15:04:05"),
	})
}
