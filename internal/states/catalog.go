// Package states publishes the booking and housekeeping state catalogue
// used by front ends to render badges and allowed transitions.
package states

import (
	"fmt"
	"slices"

	"hotelapi/internal/apperr"
)

type Kind string

const (
	KindBooking      Kind = "booking"
	KindHousekeeping Kind = "housekeeping"
)

type State struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	NameEn      string `json:"name_en"`
	Description string `json:"description"`
	Color       string `json:"color"`
	HexColor    string `json:"hex_color"`
	Icon        string `json:"icon"`
	IsTerminal  bool   `json:"is_terminal"`
	// Booking states only.
	RequiresRoom    *bool    `json:"requires_room,omitempty"`
	RequiresPayment *bool    `json:"requires_payment,omitempty"`
	NextStates      []string `json:"next_states"`
	CanReactivate   bool     `json:"can_reactivate,omitempty"`
	Order           int      `json:"order"`
	// Type is set in the flat listing.
	Type Kind `json:"type,omitempty"`
}

func flag(v bool) *bool { return &v }

var bookingStates = []State{
	{
		Code: "initial", Name: "Borrador", NameEn: "Draft",
		Description: "Reserva en estado inicial, pendiente de confirmación",
		Color:       "secondary", HexColor: "#6c757d", Icon: "fa-file-text-o",
		RequiresRoom: flag(false), RequiresPayment: flag(false),
		NextStates: []string{"confirmed", "cancelled"}, Order: 1,
	},
	{
		Code: "confirmed", Name: "Confirmada", NameEn: "Confirmed",
		Description: "Reserva confirmada por el cliente, en espera de check-in",
		Color:       "info", HexColor: "#17a2b8", Icon: "fa-check-circle",
		RequiresRoom: flag(false), RequiresPayment: flag(true),
		NextStates: []string{"checkin", "cancelled", "no_show"}, Order: 2,
	},
	{
		Code: "checkin", Name: "Check-in Realizado", NameEn: "Checked In",
		Description: "Huésped registrado y ocupando la habitación",
		Color:       "success", HexColor: "#28a745", Icon: "fa-sign-in",
		RequiresRoom: flag(true), RequiresPayment: flag(true),
		NextStates: []string{"checkout", "cancelled"}, Order: 3,
	},
	{
		Code: "checkout", Name: "Check-out Realizado", NameEn: "Checked Out",
		Description: "Huésped ha finalizado su estancia",
		Color:       "primary", HexColor: "#007bff", Icon: "fa-sign-out",
		RequiresRoom: flag(true), RequiresPayment: flag(true),
		NextStates: []string{"cleaning_needed"}, Order: 4,
	},
	{
		Code: "cleaning_needed", Name: "Limpieza Necesaria", NameEn: "Cleaning Needed",
		Description: "Habitación requiere limpieza y preparación",
		Color:       "warning", HexColor: "#ffc107", Icon: "fa-broom",
		RequiresRoom: flag(true), RequiresPayment: flag(false),
		NextStates: []string{"room_ready"}, Order: 5,
	},
	{
		Code: "room_ready", Name: "Habitación Lista", NameEn: "Room Ready",
		Description: "Habitación limpia y lista para nuevo huésped",
		Color:       "success", HexColor: "#28a745", Icon: "fa-thumbs-up",
		RequiresRoom: flag(true), RequiresPayment: flag(false),
		NextStates: []string{"confirmed"}, Order: 6,
	},
	{
		Code: "cancelled", Name: "Cancelada", NameEn: "Cancelled",
		Description: "Reserva cancelada por el cliente o el sistema",
		Color:       "danger", HexColor: "#dc3545", Icon: "fa-times-circle",
		IsTerminal: true, RequiresRoom: flag(false), RequiresPayment: flag(false),
		NextStates: []string{"initial"}, CanReactivate: true, Order: 7,
	},
	{
		Code: "no_show", Name: "No Se Presentó", NameEn: "No Show",
		Description: "Cliente no se presentó en la fecha programada",
		Color:       "danger", HexColor: "#dc3545", Icon: "fa-user-times",
		IsTerminal: true, RequiresRoom: flag(false), RequiresPayment: flag(false),
		NextStates: []string{"initial"}, CanReactivate: true, Order: 8,
	},
}

var housekeepingStates = []State{
	{
		Code: "draft", Name: "Borrador", NameEn: "Draft",
		Description: "Tarea de mantenimiento programada, pendiente de inicio",
		Color:       "secondary", HexColor: "#6c757d", Icon: "fa-clock-o",
		NextStates: []string{"in_progress"}, Order: 1,
	},
	{
		Code: "in_progress", Name: "En Progreso", NameEn: "In Progress",
		Description: "Mantenimiento o limpieza en curso",
		Color:       "warning", HexColor: "#ffc107", Icon: "fa-spinner",
		NextStates: []string{"completed", "draft"}, Order: 2,
	},
	{
		Code: "completed", Name: "Completado", NameEn: "Completed",
		Description: "Mantenimiento finalizado, habitación verificada",
		Color:       "success", HexColor: "#28a745", Icon: "fa-check-square",
		IsTerminal: true, NextStates: []string{}, Order: 3,
	},
}

// ParseKind accepts "booking" and "housekeeping".
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBooking, KindHousekeeping:
		return Kind(s), nil
	}
	return "", apperr.Validation("Tipo de estado inválido. Use: booking o housekeeping")
}

func (k Kind) all() []State {
	if k == KindHousekeeping {
		return housekeepingStates
	}
	return bookingStates
}

// List returns copies of the states of kind, named in English when en is set.
func List(k Kind, en bool) []State {
	src := k.all()
	out := make([]State, len(src))
	for i, s := range src {
		out[i] = s.localized(en)
	}
	return out
}

func (s State) localized(en bool) State {
	s.NextStates = slices.Clone(s.NextStates)
	if en && s.NameEn != "" {
		s.Name = s.NameEn
	}
	return s
}

func find(k Kind, code string) (State, bool) {
	i := slices.IndexFunc(k.all(), func(s State) bool { return s.Code == code })
	if i < 0 {
		return State{}, false
	}
	return k.all()[i], true
}

type Ref struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// refs names each code; unknown codes are named after themselves.
func refs(k Kind, codes []string, en bool) []Ref {
	out := make([]Ref, 0, len(codes))
	for _, c := range codes {
		name := c
		if s, ok := find(k, c); ok {
			name = s.localized(en).Name
		}
		out = append(out, Ref{Code: c, Name: name})
	}
	return out
}

type Detail struct {
	State
	NextStatesDetail []Ref `json:"next_states_detail"`
}

func Get(k Kind, code string, en bool) (Detail, error) {
	s, ok := find(k, code)
	if !ok {
		return Detail{}, apperr.NotFoundf("Estado con código '%s' no encontrado", code).WithCode("STATE_NOT_FOUND")
	}
	s = s.localized(en)
	return Detail{State: s, NextStatesDetail: refs(k, s.NextStates, en)}, nil
}

type Edge struct {
	Name            string   `json:"name"`
	CanTransitionTo []string `json:"can_transition_to"`
	IsTerminal      bool     `json:"is_terminal"`
}

// Graph maps every state code to its outgoing transitions.
func Graph(k Kind) map[string]Edge {
	out := make(map[string]Edge, len(k.all()))
	for _, s := range k.all() {
		out[s.Code] = Edge{Name: s.Name, CanTransitionTo: slices.Clone(s.NextStates), IsTerminal: s.IsTerminal}
	}
	return out
}

type Counts struct {
	TotalStates    int `json:"total_states"`
	TerminalStates int `json:"terminal_states"`
	ActiveStates   int `json:"active_states"`
}

func Count(states []State) Counts {
	c := Counts{TotalStates: len(states)}
	for _, s := range states {
		if s.IsTerminal {
			c.TerminalStates++
		}
	}
	c.ActiveStates = c.TotalStates - c.TerminalStates
	return c
}

type TransitionCheck struct {
	IsValid          bool   `json:"is_valid"`
	FromState        Ref    `json:"from_state"`
	ToState          string `json:"to_state"`
	ValidTransitions []Ref  `json:"valid_transitions"`
	Message          string `json:"message,omitempty"`
}

// CheckTransition reports whether from may move to to. Only an unknown
// origin is an error; an invalid target is a negative answer.
func CheckTransition(k Kind, from, to string) (TransitionCheck, error) {
	origin, ok := find(k, from)
	if !ok {
		return TransitionCheck{}, apperr.NotFoundf("Estado origen '%s' no encontrado", from)
	}
	res := TransitionCheck{
		IsValid:          slices.Contains(origin.NextStates, to),
		FromState:        Ref{Code: from, Name: origin.Name},
		ToState:          to,
		ValidTransitions: refs(k, origin.NextStates, false),
	}
	if !res.IsValid {
		res.Message = fmt.Sprintf("La transición de '%s' a '%s' no es válida", from, to)
	}
	return res, nil
}
