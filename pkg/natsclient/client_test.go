package natsclient

import "testing"

func TestSubject(t *testing.T) {
	if got := Subject("hotel", "booking.status"); got != "hotel.booking.status" {
		t.Fatalf("unexpected subject %q", got)
	}
	if got := Subject("", "booking.status"); got != "booking.status" {
		t.Fatalf("unexpected subject %q", got)
	}
}
