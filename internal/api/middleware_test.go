package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"hotelapi/internal/apperr"
	"hotelapi/pkg/logger"
)

type fakeAuthn struct {
	keys   map[string]*Principal
	tokens map[string]*Principal
}

func (f fakeAuthn) AuthenticateKey(_ context.Context, key string) (*Principal, error) {
	return f.keys[key], nil
}

func (f fakeAuthn) AuthenticateToken(_ context.Context, token string) (*Principal, error) {
	p, ok := f.tokens[token]
	if !ok {
		return nil, apperr.Unauthorized("Token de sesión inválido o expirado")
	}
	return p, nil
}

func protected(authn Authenticator) http.Handler {
	return RequireAuth(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		OK(w, M{"user_id": p.UserID, "method": p.Method}, "")
	}))
}

func TestExtractCredential_Order(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?api_key=query", nil)
	r.Header.Set("Authorization", "Bearer bearer")
	r.Header.Set("X-API-Key", "header")
	cred, isToken := ExtractCredential(r)
	assert.Equal(t, "header", cred)
	assert.False(t, isToken)

	r.Header.Del("X-API-Key")
	cred, _ = ExtractCredential(r)
	assert.Equal(t, "bearer", cred)

	r.Header.Del("Authorization")
	cred, _ = ExtractCredential(r)
	assert.Equal(t, "query", cred)
}

func TestExtractCredential_QueryIgnoredOnPost(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x?api_key=query", nil)
	cred, _ := ExtractCredential(r)
	assert.Empty(t, cred)
}

func TestExtractCredential_BearerJWT(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("Authorization", "Bearer aaa.bbb.ccc")
	cred, isToken := ExtractCredential(r)
	assert.Equal(t, "aaa.bbb.ccc", cred)
	assert.True(t, isToken)
}

func TestRequireAuth(t *testing.T) {
	authn := fakeAuthn{
		keys:   map[string]*Principal{"good": {UserID: 7, Method: "api_key"}},
		tokens: map[string]*Principal{"a.b.c": {UserID: 9, Method: "session"}},
	}
	h := protected(authn)

	cases := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"unknown key", "X-API-Key", "bad", http.StatusUnauthorized},
		{"valid key", "X-API-Key", "good", http.StatusOK},
		{"valid token", "Authorization", "Bearer a.b.c", http.StatusOK},
		{"bad token", "Authorization", "Bearer x.y.z", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				r.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			require.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
				assert.Contains(t, w.Body.String(), `"success":false`)
			}
		})
	}
}

func TestRequestLogger_LogsAuthenticatedUser(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	authn := fakeAuthn{keys: map[string]*Principal{"good": {UserID: 42, Method: "api_key"}}}
	h := RequestLogger(protected(authn))

	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("X-API-Key", "good")
	h.ServeHTTP(httptest.NewRecorder(), r)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 42, fields["user_id"])
	assert.EqualValues(t, http.StatusOK, fields["status"])

	logs.TakeAll()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	entries = logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "user_id")
}
