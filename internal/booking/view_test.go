package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewBooking() *Booking {
	return &Booking{
		ID:          2,
		SequenceID:  "BK/00002",
		PartnerID:   7,
		PartnerName: "Ana Torres",
		Currency:    "PEN",
		Status:      StatusConfirmed,
		CheckIn:     time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		CheckOut:    time.Date(2025, 6, 3, 11, 30, 0, 0, time.UTC),
		OrderID:     ptr(int64(40)),
	}
}

func TestAssemble(t *testing.T) {
	v := Viewer{Loc: time.UTC}
	b := viewBooking()
	lines := []Line{{
		ID: 5, SequenceID: "BK/00002-01", ProductID: 10, RoomName: "Suite 101",
		Price: dec("100"), BookingDays: dec("2"), TaxPercent: dec("18"),
		Guests: []Guest{{ID: 1, Name: "Ana", Age: 30}, {ID: 2, Name: "Leo", Age: 8}},
	}}
	key := "bookings/2/doc"
	docs := []Document{{ID: 3, Name: "dni", FileName: "dni.pdf", BlobKey: &key}, {ID: 4, Name: "nota"}}
	orders := []SaleOrderRef{{ID: 40, Name: "SO00040", State: "sale", AmountTotal: dec("236"), Currency: "USD"}}

	view := v.assemble(b, lines, docs, orders)

	assert.Equal(t, "2025-06-01 14:00:00", view.CheckIn)
	assert.Equal(t, 14, view.CheckInHour)
	assert.Equal(t, 30, view.CheckOutMinute)
	assert.True(t, view.IsHalfDayCheckin)
	assert.True(t, view.IsHalfDayCheckout)
	assert.Equal(t, "200", view.AmountUntaxed.String())
	assert.Equal(t, "236", view.TotalAmount.String())

	require.NotNil(t, view.OrderName)
	assert.Equal(t, "SO00040", *view.OrderName)
	assert.Equal(t, "USD", view.OrderCurrency)

	require.Len(t, view.Rooms, 1)
	assert.Equal(t, int64(10), view.Rooms[0].RoomID)
	assert.True(t, view.Rooms[0].GuestInfo[0].IsAdult)
	assert.False(t, view.Rooms[0].GuestInfo[1].IsAdult)
	assert.Equal(t, []string{"BK/00002-01"}, view.BookingLineSequenceIDs)

	require.Len(t, view.Documents, 2)
	assert.True(t, view.Documents[0].HasFile)
	assert.False(t, view.Documents[1].HasFile)
}

func TestAssemble_OrderCurrencyDefaultsToBooking(t *testing.T) {
	b := viewBooking()
	b.OrderID = nil
	view := Viewer{Loc: time.UTC}.assemble(b, nil, nil, nil)
	assert.Nil(t, view.OrderID)
	assert.Equal(t, "PEN", view.OrderCurrency)
	assert.Empty(t, view.Rooms)
}

func roomsByID(refs map[int64][]RoomRef) func(*Booking) ([]RoomRef, error) {
	return func(b *Booking) ([]RoomRef, error) { return refs[b.ID], nil }
}

func TestApplyChain_Middle(t *testing.T) {
	m := chainFixture()
	for _, b := range m {
		b.CheckIn = time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
		b.CheckOut = b.CheckIn.Add(24 * time.Hour)
	}
	chain := Chain{Bookings: []*Booking{m[1], m[2], m[3]}, Position: 1}
	rooms := map[int64][]RoomRef{
		1: {{ID: 10, Name: "Suite 101"}},
		2: {{ID: 11, Name: "Suite 102"}},
		3: {{ID: 12, Name: "Suite 103"}},
	}

	v := Viewer{Loc: time.UTC}
	view := &View{}
	require.NoError(t, v.applyChain(view, m[2], chain, roomsByID(rooms)))

	assert.True(t, view.HasRoomChange)
	assert.False(t, view.IsRoomChangeOrigin)
	assert.True(t, view.IsRoomChangeDestination)
	require.Len(t, view.RoomChangeChain, 3)
	assert.True(t, view.RoomChangeChain[0].IsOriginal)
	assert.True(t, view.RoomChangeChain[1].IsCurrent)
	assert.True(t, view.RoomChangeChain[2].IsLast)

	require.NotNil(t, view.ConnectedBooking)
	assert.Equal(t, int64(3), view.ConnectedBooking.ID)
	require.NotNil(t, view.OriginalBooking)
	assert.Equal(t, int64(1), view.OriginalBooking.ID)

	info := view.RoomChangeInfo
	assert.Equal(t, "Suite 101", info.OriginalRoom.Name)
	assert.Equal(t, "Suite 102", info.NewRoom.Name)
	assert.Equal(t, 2, info.TotalChanges)
	assert.Equal(t, 3, info.ChainLength)
	require.NotNil(t, info.CurrentPosition)
	assert.Equal(t, 1, *info.CurrentPosition)
}

func TestApplyChain_Origin(t *testing.T) {
	m := chainFixture()
	chain := Chain{Bookings: []*Booking{m[1], m[2], m[3]}, Position: 0}
	rooms := map[int64][]RoomRef{1: {{ID: 10, Name: "A"}}, 2: {{ID: 11, Name: "B"}}}

	view := &View{}
	require.NoError(t, Viewer{Loc: time.UTC}.applyChain(view, m[1], chain, roomsByID(rooms)))
	assert.True(t, view.IsRoomChangeOrigin)
	assert.Nil(t, view.OriginalBooking)
	assert.Equal(t, "A", view.RoomChangeInfo.OriginalRoom.Name)
	assert.Equal(t, "B", view.RoomChangeInfo.NewRoom.Name)
}

func TestApplyChain_Standalone(t *testing.T) {
	b := &Booking{ID: 9}
	view := &View{}
	require.NoError(t, Viewer{Loc: time.UTC}.applyChain(view, b, Chain{Bookings: []*Booking{b}}, roomsByID(nil)))
	assert.False(t, view.HasRoomChange)
	assert.Equal(t, 1, view.RoomChangeInfo.ChainLength)
	assert.Nil(t, view.RoomChangeInfo.CurrentPosition)
}
