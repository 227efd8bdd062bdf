package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/apperr"
)

type sampleBody struct {
	Name   string `json:"name" validate:"required"`
	UserID int64  `json:"user_id" validate:"required"`
	Mode   string `json:"mode" validate:"omitempty,oneof=a b"`
}

func TestDecode_MissingFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	var b sampleBody
	err := Decode(r, &b)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Campos requeridos faltantes: name, user_id", e.Message)
}

func TestDecode_EmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	var b sampleBody
	err := Decode(r, &b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Campos requeridos faltantes")
}

func TestDecode_InvalidJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	var b sampleBody
	err := Decode(r, &b)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDecode_OneOf(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","user_id":1,"mode":"c"}`))
	var b sampleBody
	err := Decode(r, &b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode debe ser uno de: a, b")
}

func TestPathID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "42")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(contextWithRoute(r, rctx))
	id, err := PathID(r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "-1")
	_, err = PathID(r, "id")
	assert.Error(t, err)
}

func TestWriteErr_Mapping(t *testing.T) {
	cases := map[error]int{
		apperr.Validation("x"):          http.StatusBadRequest,
		apperr.NotFound("x"):            http.StatusNotFound,
		apperr.Forbidden("x"):           http.StatusForbidden,
		apperr.Conflict("DUP", "x"):     http.StatusConflict,
		apperr.Unauthorized("x"):        http.StatusUnauthorized,
		assertPlainError("db exploded"): http.StatusInternalServerError,
	}
	for err, status := range cases {
		w := httptest.NewRecorder()
		WriteErr(w, httptest.NewRequest(http.MethodGet, "/", nil), err)
		assert.Equal(t, status, w.Code, err.Error())
		if status == http.StatusInternalServerError {
			assert.Contains(t, w.Body.String(), internalErrorMessage)
			assert.NotContains(t, w.Body.String(), "db exploded")
		}
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage(2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)
}

type assertPlainError string

func (e assertPlainError) Error() string { return string(e) }

func contextWithRoute(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}
