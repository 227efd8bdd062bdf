package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"hotelapi/internal/apperr"
	"hotelapi/pkg/logger"
)

const (
	msgMissingKey = "API Key requerida. Envíela en el header X-API-Key o Authorization: Bearer <key>"
	msgInvalidKey = "API Key inválida, expirada o revocada. Genere una nueva con POST /api/auth/generate_key"
)

// Authenticator resolves a credential to a principal. A nil principal with a
// nil error means the credential is unknown.
type Authenticator interface {
	AuthenticateKey(ctx context.Context, key string) (*Principal, error)
	AuthenticateToken(ctx context.Context, token string) (*Principal, error)
}

// ExtractCredential returns the presented credential and whether it is a
// session token. Lookup order: X-API-Key, Authorization: Bearer, and the
// api_key query parameter on GET/OPTIONS.
func ExtractCredential(r *http.Request) (string, bool) {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k, false
	}
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			v := strings.TrimSpace(parts[1])
			if v != "" {
				return v, LooksLikeJWT(v)
			}
		}
	}
	if r.Method == http.MethodGet || r.Method == http.MethodOptions {
		if k := strings.TrimSpace(r.URL.Query().Get("api_key")); k != "" {
			return k, false
		}
	}
	return "", false
}

// LooksLikeJWT reports whether v has the three dot-separated segments of a
// compact JWT.
func LooksLikeJWT(v string) bool {
	return strings.Count(v, ".") == 2
}

// RequireAuth rejects requests without a valid API key or session token and
// stores the principal in the request context.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, isToken := ExtractCredential(r)
			if cred == "" {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", msgMissingKey)
				return
			}

			var (
				p   *Principal
				err error
			)
			if isToken {
				p, err = authn.AuthenticateToken(r.Context(), cred)
			} else {
				p, err = authn.AuthenticateKey(r.Context(), cred)
			}
			if err != nil {
				if apperr.Is(err, apperr.KindUnauthorized) {
					WriteErr(w, r, err)
					return
				}
				logger.FromContext(r.Context()).Error("authentication failed", zap.Error(err))
				WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", internalErrorMessage)
				return
			}
			if p == nil {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", msgInvalidKey)
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			ctx = logger.ContextWithLogger(ctx, logger.FromContext(ctx).With(zap.Int64("user_id", p.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request-scoped logger and logs one line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := logger.Log.With(zap.String("request_id", middleware.GetReqID(r.Context())))
		ctx, slot := withPrincipalSlot(logger.ContextWithLogger(r.Context(), reqLog))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		}
		if slot.p != nil {
			fields = append(fields, zap.Int64("user_id", slot.p.UserID))
		}
		reqLog.Info("request", fields...)
	})
}
