package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/api"
	"hotelapi/internal/apperr"
	"hotelapi/pkg/cache"
)

type fakeStore struct {
	users  map[int64]*User
	keys   []KeyRecord
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[int64]*User{}}
}

func (f *fakeStore) UserByID(_ context.Context, id int64) (*User, error) {
	return f.users[id], nil
}

func (f *fakeStore) UserByLogin(_ context.Context, login string) (*User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Login, login) {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) TouchLogin(context.Context, int64) error { return nil }

func (f *fakeStore) CreateKey(_ context.Context, userID int64, name, scope, index, hash string) (int64, error) {
	f.nextID++
	f.keys = append(f.keys, KeyRecord{ID: f.nextID, UserID: userID, Name: name, Scope: scope, CreatedAt: time.Now(), hash: hash, index: index})
	return f.nextID, nil
}

func (f *fakeStore) ActiveKeysByIndex(_ context.Context, index string) ([]KeyRecord, error) {
	var out []KeyRecord
	for _, k := range f.keys {
		if k.index == index && !k.revoked {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeStore) KeysByUser(_ context.Context, userID int64) ([]KeyRecord, error) {
	var out []KeyRecord
	for _, k := range f.keys {
		if k.UserID == userID && !k.revoked {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeStore) KeyByID(_ context.Context, id int64) (*KeyRecord, error) {
	for i := range f.keys {
		if f.keys[i].ID == id && !f.keys[i].revoked {
			return &f.keys[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) RevokeKey(_ context.Context, id int64) error {
	for i := range f.keys {
		if f.keys[i].ID == id {
			f.keys[i].revoked = true
		}
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	hash, err := HashPassword("secreto")
	require.NoError(t, err)
	store.users[7] = &User{ID: 7, Login: "recepcion", Name: "Recepción", PasswordHash: hash, Active: true}
	store.users[8] = &User{ID: 8, Login: "otro", Name: "Otro", Active: true}

	svc := &Service{
		Store:    store,
		Cache:    cache.NewMemory(),
		Tokens:   TokenIssuer{Secret: "s3cret", TTL: time.Hour},
		CacheTTL: time.Minute,
	}
	return svc, store
}

func TestGenerateKey_Shape(t *testing.T) {
	k, err := GenerateKey()
	require.NoError(t, err)
	assert.Len(t, k.Plaintext, 40)
	assert.Equal(t, k.Plaintext[:8], k.Index)
	assert.True(t, keyMatches(k.Hash, k.Plaintext))
	assert.False(t, keyMatches(k.Hash, strings.Repeat("0", 40)))
}

func TestService_KeyLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	owner := &api.Principal{UserID: 7, Login: "recepcion"}

	issued, err := svc.GenerateKey(ctx, owner, "React Frontend", "")
	require.NoError(t, err)

	p, err := svc.AuthenticateKey(ctx, issued.APIKey)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, issued.ID, p.KeyID)
	assert.Equal(t, "api_key", p.Method)

	// served from cache the second time
	_, err = svc.Cache.Get(ctx, cacheKey("s3cret", issued.APIKey))
	require.NoError(t, err)

	_, err = svc.RevokeKey(ctx, &api.Principal{UserID: 8}, issued.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	name, err := svc.RevokeKey(ctx, owner, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, "React Frontend", name)

	p, err = svc.AuthenticateKey(ctx, issued.APIKey)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = svc.RevokeKey(ctx, owner, issued.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_AuthenticateKey_UserGone(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	issued, err := svc.GenerateKey(ctx, &api.Principal{UserID: 8, Login: "otro"}, "tmp", "")
	require.NoError(t, err)
	delete(store.users, 8)

	_, err = svc.AuthenticateKey(ctx, issued.APIKey)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindUnauthorized, e.Kind)
	assert.Equal(t, msgUserGone, e.Message)
}

func TestService_LoginAndToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Login(ctx, "recepcion", "mal")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.Login(ctx, "otro", "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	res, err := svc.Login(ctx, "RECEPCION", "secreto")
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.UserID)
	assert.True(t, api.LooksLikeJWT(res.Token))

	p, err := svc.AuthenticateToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "session", p.Method)
	assert.Equal(t, "recepcion", p.Login)

	_, err = svc.AuthenticateToken(ctx, "a.b.c")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestHandlers_ValidateAndGenerate(t *testing.T) {
	svc, _ := newTestService(t)
	h := Handlers{Svc: svc}

	r := chi.NewRouter()
	r.Post("/api/auth/validate", h.Validate)
	r.Group(func(r chi.Router) {
		r.Use(api.RequireAuth(svc))
		r.Post("/api/auth/generate_key", h.GenerateKey)
		r.Get("/api/auth/my_keys", h.MyKeys)
	})

	issued, err := svc.GenerateKey(context.Background(), &api.Principal{UserID: 7, Login: "recepcion"}, "bootstrap", "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/validate", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/validate", strings.NewReader(`{"api_key":"`+strings.Repeat("f", 40)+`"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/validate", strings.NewReader(`{"api_key":"`+issued.APIKey+`"}`)))
	assert.Contains(t, rec.Body.String(), `"valid":true`)
	assert.Contains(t, rec.Body.String(), `"user_login":"recepcion"`)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/generate_key", strings.NewReader(`{}`))
	req.Header.Set("X-API-Key", issued.APIKey)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `El campo \"name\" es requerido`)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/generate_key", strings.NewReader(`{"name":"mobile"}`))
	req.Header.Set("Authorization", "Bearer "+issued.APIKey)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "No podrá verla nuevamente")

	req = httptest.NewRequest(http.MethodGet, "/api/auth/my_keys?api_key="+issued.APIKey, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
}
