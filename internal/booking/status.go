package booking

import (
	"fmt"
	"sort"
	"strings"

	"hotelapi/internal/apperr"
)

type Status string

const (
	StatusInitial         Status = "initial"
	StatusDraft           Status = "draft"
	StatusConfirmed       Status = "confirmed"
	StatusCheckin         Status = "checkin"
	StatusCheckIn         Status = "check_in"
	StatusCheckout        Status = "checkout"
	StatusCleaningNeeded  Status = "cleaning_needed"
	StatusRoomReady       Status = "room_ready"
	StatusCancelled       Status = "cancelled"
	StatusNoShow          Status = "no_show"
	StatusAllot           Status = "allot"
	StatusPending         Status = "pending"
	StatusCheckoutPending Status = "checkout_pending"
)

// validStatuses keeps the order used in error messages.
var validStatuses = []Status{
	StatusInitial, StatusDraft, StatusConfirmed, StatusCheckin, StatusCheckout,
	StatusCleaningNeeded, StatusRoomReady, StatusCancelled, StatusNoShow,
	StatusAllot, StatusCheckIn, StatusPending, StatusCheckoutPending,
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusInitial:        {StatusConfirmed: true, StatusCancelled: true},
	StatusDraft:          {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:      {StatusCheckin: true, StatusCheckIn: true, StatusCancelled: true, StatusNoShow: true},
	StatusCheckin:        {StatusCheckout: true, StatusCancelled: true},
	StatusCheckIn:        {StatusCheckout: true, StatusCancelled: true},
	StatusCheckout:       {StatusCleaningNeeded: true},
	StatusCleaningNeeded: {StatusRoomReady: true},
	StatusRoomReady:      {StatusConfirmed: true},
	StatusCancelled:      {StatusInitial: true},
	StatusNoShow:         {StatusInitial: true},
	StatusAllot:          {StatusCheckin: true, StatusCheckIn: true, StatusCancelled: true, StatusNoShow: true},
	StatusPending:        {StatusConfirmed: true, StatusCancelled: true},
	// checkout_pending has no outgoing transitions.
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusCheckout, StatusNoShow:
		return true
	}
	return false
}

// IsCheckin treats both spellings of the checked-in state as one.
func (s Status) IsCheckin() bool {
	return s == StatusCheckin || s == StatusCheckIn
}

// NormalizeStatus folds the checked-in spellings clients send into checkin.
func NormalizeStatus(s string) Status {
	switch strings.TrimSpace(s) {
	case "checked_in", "check_in":
		return StatusCheckin
	}
	return Status(strings.TrimSpace(s))
}

// ParseStatus normalizes s and rejects unknown states.
func ParseStatus(s string) (Status, error) {
	st := NormalizeStatus(s)
	for _, v := range validStatuses {
		if v == st {
			return st, nil
		}
	}
	names := make([]string, len(validStatuses))
	for i, v := range validStatuses {
		names[i] = string(v)
	}
	return "", apperr.Validationf("Estado inválido: %s. Estados válidos: %s", s, strings.Join(names, ", "))
}

func CanTransition(from, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	if m[to] {
		return true
	}
	if to.IsCheckin() {
		return m[StatusCheckin] || m[StatusCheckIn]
	}
	return false
}

// NextStatuses lists the targets reachable from s, sorted.
func NextStatuses(s Status) []Status {
	var out []Status
	for to := range allowedTransitions[s] {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ValidateTransition returns a validation error naming the allowed targets.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	next := NextStatuses(from)
	allowed := "ninguna"
	if len(next) > 0 {
		names := make([]string, len(next))
		for i, v := range next {
			names[i] = string(v)
		}
		allowed = strings.Join(names, ", ")
	}
	return apperr.Validation(fmt.Sprintf("No se puede cambiar de estado \"%s\" a \"%s\". Transiciones válidas: %s", from, to, allowed))
}
