package user

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/apperr"
)

func TestFilterFromQuery_Defaults(t *testing.T) {
	f, err := FilterFromQuery(url.Values{}.Get)
	require.NoError(t, err)
	assert.Equal(t, 50, f.Limit)
	assert.Zero(t, f.Offset)
	assert.True(t, f.ExcludeSystem)
	assert.False(t, f.IncludeArchived)

	w := f.where()
	assert.Equal(t, "WHERE u.active AND u.id <> $1\n", w.String())
	assert.Equal(t, []any{SystemUserID}, w.Args)
}

func TestFilterFromQuery_All(t *testing.T) {
	q := url.Values{
		"search":           {"ana"},
		"phone":            {"999"},
		"company_id":       {"2"},
		"group_id":         {"3, 4"},
		"include_archived": {"true"},
		"exclude_system":   {"false"},
		"limit":            {"5000"},
		"offset":           {"-3"},
	}
	f, err := FilterFromQuery(q.Get)
	require.NoError(t, err)
	assert.Equal(t, 1000, f.Limit)
	assert.Zero(t, f.Offset)
	assert.Equal(t, []int64{3, 4}, f.GroupIDs)

	w := f.where()
	assert.Equal(t,
		"WHERE (u.name ILIKE $1 OR u.login ILIKE $1 OR u.email ILIKE $1) AND (u.phone ILIKE $2 OR u.mobile ILIKE $2) AND u.company_id = $3 AND EXISTS (SELECT 1 FROM user_groups ug WHERE ug.user_id = u.id AND ug.group_id = ANY($4))\n",
		w.String())
}

func TestFilterFromQuery_Invalid(t *testing.T) {
	for _, q := range []url.Values{
		{"limit": {"ten"}},
		{"offset": {"1.5"}},
		{"company_id": {"acme"}},
		{"group_id": {"1,x"}},
	} {
		_, err := FilterFromQuery(q.Get)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%v", q)
	}
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "u.name, u.id", orderBy(""))
	assert.Equal(t, "u.login DESC, u.id", orderBy("login desc"))
	assert.Equal(t, "u.created_at, u.id", orderBy("create_date"))
	assert.Equal(t, "u.name, u.id", orderBy("password_hash"))
	assert.Equal(t, "u.name, u.id", orderBy("name; DROP TABLE users"))
}
