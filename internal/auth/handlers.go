package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"hotelapi/internal/api"
	"hotelapi/internal/audit"
	"hotelapi/pkg/cache"
	"hotelapi/pkg/config"
)

type Handlers struct {
	Svc *Service
}

// NewService wires the Postgres store, the key cache and audit logging.
func NewService(pool *pgxpool.Pool, c cache.Cache, cfg config.AuthConfig) *Service {
	return &Service{
		Store:    NewRepository(pool),
		Cache:    c,
		Tokens:   TokenIssuer{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL},
		CacheTTL: cfg.KeyCacheTTL,
		Audit: func(ctx context.Context, userID int64, action, actor string, metadata any) error {
			return audit.Insert(ctx, pool, &userID, nil, action, actor, metadata)
		},
	}
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	res, err := h.Svc.Login(r.Context(), strings.TrimSpace(req.Login), req.Password)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.OK(w, res, "Sesión iniciada")
}

type generateKeyRequest struct {
	Name  string `json:"name"`
	Scope string `json:"scope"`
}

func (h Handlers) GenerateKey(w http.ResponseWriter, r *http.Request) {
	var req generateKeyRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if req.Name == "" {
		req.Name = r.URL.Query().Get("name")
	}
	if strings.TrimSpace(req.Name) == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", `El campo "name" es requerido`)
		return
	}

	p := api.PrincipalFromContext(r.Context())
	k, err := h.Svc.GenerateKey(r.Context(), p, strings.TrimSpace(req.Name), req.Scope)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.Created(w, k, "API key generada exitosamente")
}

func (h Handlers) MyKeys(w http.ResponseWriter, r *http.Request) {
	p := api.PrincipalFromContext(r.Context())
	keys, err := h.Svc.ListKeys(r.Context(), p.UserID)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.M{"count": len(keys), "data": keys})
}

func (h Handlers) RevokeKey(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "key_id")
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	name, err := h.Svc.RevokeKey(r.Context(), api.PrincipalFromContext(r.Context()), id)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.M{"message": `API key "` + name + `" revocada exitosamente`})
}

type keyRequest struct {
	APIKey string `json:"api_key"`
}

func keyFromRequest(r *http.Request) (string, error) {
	var req keyRequest
	if err := api.Decode(r, &req); err != nil {
		return "", err
	}
	if req.APIKey == "" {
		req.APIKey = r.URL.Query().Get("api_key")
	}
	return strings.TrimSpace(req.APIKey), nil
}

// Validate is public: the frontend checks a stored key before using it.
func (h Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromRequest(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if key == "" {
		api.WriteJSON(w, http.StatusBadRequest, api.M{
			"success": false,
			"valid":   false,
			"error":   "Debe proporcionar la API key a validar",
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	u, err := h.Svc.Check(r.Context(), key)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if u == nil {
		api.WriteJSON(w, http.StatusOK, api.M{"success": false, "valid": false, "message": "API key inválida o revocada"})
		return
	}
	api.WriteJSON(w, http.StatusOK, api.M{
		"success": true,
		"valid":   true,
		"message": "API key válida",
		"data":    api.M{"user_id": u.ID, "user_name": u.Name, "user_login": u.Login},
	})
}

func (h Handlers) TestKey(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromRequest(r)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if key == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Debe proporcionar la API key a probar")
		return
	}

	u, err := h.Svc.Check(r.Context(), key)
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	if u == nil {
		api.WriteJSON(w, http.StatusOK, api.M{"success": false, "valid": false, "error": "API key inválida o revocada"})
		return
	}
	api.WriteJSON(w, http.StatusOK, api.M{
		"success": true,
		"valid":   true,
		"data":    api.M{"user_id": u.ID, "user_name": u.Name, "user_login": u.Login},
	})
}
