package hotel

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/apperr"
)

func TestSearchFromQuery(t *testing.T) {
	f, err := SearchFromQuery(url.Values{}.Get)
	require.NoError(t, err)
	assert.Equal(t, 50, f.Limit)
	assert.Zero(t, f.Offset)
	assert.Equal(t, "WHERE h.active\n", f.where().String())

	q := url.Values{
		"name":         {"Plaza"},
		"city":         {"Cusco"},
		"hotel_type":   {"3"},
		"is_published": {"false"},
		"limit":        {"10"},
		"offset":       {"20"},
	}
	f, err = SearchFromQuery(q.Get)
	require.NoError(t, err)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 20, f.Offset)
	require.NotNil(t, f.HotelTypeID)
	assert.Equal(t, int64(3), *f.HotelTypeID)

	w := f.where()
	assert.Equal(t,
		"WHERE h.active AND h.name ILIKE $1 AND (h.city ILIKE $2 OR p.city ILIKE $2) AND h.hotel_type_id = $3 AND h.is_published = $4\n",
		w.String())
	assert.Equal(t, []any{"%Plaza%", "%Cusco%", int64(3), false}, w.Args)
}

func TestSearchFromQuery_BadType(t *testing.T) {
	_, err := SearchFromQuery(url.Values{"hotel_type_id": {"suite"}}.Get)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "ID de tipo de hotel inválido")
}

func TestSearchFromQuery_IgnoresBadPaging(t *testing.T) {
	f, err := SearchFromQuery(url.Values{"limit": {"x"}, "offset": {"-4"}}.Get)
	require.NoError(t, err)
	assert.Equal(t, 50, f.Limit)
	assert.Zero(t, f.Offset)
}

func TestRoomNotFound(t *testing.T) {
	err := roomNotFound(7, true, []int64{1, 2, 3})
	assert.Equal(t, apperr.KindNotFound, err.Kind)
	assert.Equal(t, "Producto con ID 7 existe pero no es una habitación (is_room_type=False). Use IDs: 1, 2, 3", err.Message)

	err = roomNotFound(99, false, []int64{4})
	assert.Equal(t, "Habitación con ID 99 no encontrada. Use IDs disponibles: 4", err.Message)
}
