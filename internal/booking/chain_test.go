package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapChain map[int64]*Booking

func (m mapChain) Booking(_ context.Context, id int64) (*Booking, error) {
	return m[id], nil
}

func (m mapChain) SplitChild(_ context.Context, id int64) (*Booking, error) {
	var best *Booking
	for _, b := range m {
		if b.SplitFromBookingID != nil && *b.SplitFromBookingID == id {
			if best == nil || b.ID < best.ID {
				best = b
			}
		}
	}
	return best, nil
}

func ptr[T any](v T) *T { return &v }

func chainFixture() mapChain {
	return mapChain{
		1: {ID: 1, ConnectedBookingID: ptr(int64(2))},
		2: {ID: 2, SplitFromBookingID: ptr(int64(1)), ConnectedBookingID: ptr(int64(3))},
		3: {ID: 3, SplitFromBookingID: ptr(int64(2))},
		9: {ID: 9},
	}
}

func ids(c Chain) []int64 {
	var out []int64
	for _, b := range c.Bookings {
		out = append(out, b.ID)
	}
	return out
}

func TestBuildChain_FromMiddle(t *testing.T) {
	m := chainFixture()
	c, err := BuildChain(context.Background(), m, m[2])
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(c))
	assert.Equal(t, 1, c.Position)
	assert.Equal(t, 2, c.TotalChanges())
	assert.Equal(t, int64(1), c.Previous().ID)
	assert.Equal(t, int64(3), c.Next().ID)
}

func TestBuildChain_FromEnds(t *testing.T) {
	m := chainFixture()

	c, err := BuildChain(context.Background(), m, m[1])
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(c))
	assert.Equal(t, 0, c.Position)
	assert.Nil(t, c.Previous())

	c, err = BuildChain(context.Background(), m, m[3])
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(c))
	assert.Equal(t, 2, c.Position)
	assert.Nil(t, c.Next())
}

func TestBuildChain_Standalone(t *testing.T) {
	m := chainFixture()
	c, err := BuildChain(context.Background(), m, m[9])
	require.NoError(t, err)
	assert.False(t, c.HasRoomChange())
	assert.Equal(t, 0, c.TotalChanges())
}

func TestBuildChain_StopsOnCycle(t *testing.T) {
	m := mapChain{
		1: {ID: 1, SplitFromBookingID: ptr(int64(2))},
		2: {ID: 2, SplitFromBookingID: ptr(int64(1))},
	}
	c, err := BuildChain(context.Background(), m, m[1])
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(c))
}
