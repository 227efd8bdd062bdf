package api

import (
	"encoding/json"
	"net/http"
)

// M is a success body; WriteSuccess adds "success": true.
type M map[string]any

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteSuccess(w http.ResponseWriter, status int, body M) {
	if body == nil {
		body = M{}
	}
	body["success"] = true
	WriteJSON(w, status, body)
}

// OK writes {"success": true, "message"?, "data"}.
func OK(w http.ResponseWriter, data any, message string) {
	body := M{"data": data}
	if message != "" {
		body["message"] = message
	}
	WriteSuccess(w, http.StatusOK, body)
}

func Created(w http.ResponseWriter, data any, message string) {
	body := M{"data": data}
	if message != "" {
		body["message"] = message
	}
	WriteSuccess(w, http.StatusCreated, body)
}

// Page is the pagination block of paginated list responses.
type Page struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

func NewPage(page, perPage, total int) Page {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	pages := (total + perPage - 1) / perPage
	return Page{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}
