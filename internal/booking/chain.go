package booking

import "context"

// ChainSource loads the bookings linked by room changes.
type ChainSource interface {
	Booking(ctx context.Context, id int64) (*Booking, error)
	// SplitChild returns the first booking split from id, or nil.
	SplitChild(ctx context.Context, id int64) (*Booking, error)
}

// Chain is the ordered sequence of bookings produced by successive room
// changes, from the original booking to the latest.
type Chain struct {
	Bookings []*Booking
	Position int
}

func (c Chain) HasRoomChange() bool { return len(c.Bookings) > 1 }

func (c Chain) TotalChanges() int {
	if len(c.Bookings) < 2 {
		return 0
	}
	return len(c.Bookings) - 1
}

func (c Chain) Previous() *Booking {
	if c.Position <= 0 {
		return nil
	}
	return c.Bookings[c.Position-1]
}

func (c Chain) Next() *Booking {
	if c.Position+1 >= len(c.Bookings) {
		return nil
	}
	return c.Bookings[c.Position+1]
}

// BuildChain walks split_from links back to the origin, then follows split
// children forward from current. Cycles stop the walk.
func BuildChain(ctx context.Context, src ChainSource, current *Booking) (Chain, error) {
	visited := map[int64]bool{current.ID: true}
	back := []*Booking{current}

	for b := current; b.SplitFromBookingID != nil; {
		prev, err := src.Booking(ctx, *b.SplitFromBookingID)
		if err != nil {
			return Chain{}, err
		}
		if prev == nil || visited[prev.ID] {
			break
		}
		visited[prev.ID] = true
		back = append(back, prev)
		b = prev
	}

	chain := make([]*Booking, 0, len(back))
	for i := len(back) - 1; i >= 0; i-- {
		chain = append(chain, back[i])
	}
	pos := len(chain) - 1

	for b := current; ; {
		next, err := src.SplitChild(ctx, b.ID)
		if err != nil {
			return Chain{}, err
		}
		if next == nil || visited[next.ID] {
			break
		}
		visited[next.ID] = true
		chain = append(chain, next)
		b = next
	}

	return Chain{Bookings: chain, Position: pos}, nil
}
