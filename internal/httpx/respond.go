// internal/httpx/respond.go
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response shape every endpoint uses.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PageMeta   `json:"meta,omitempty"`
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

func writeJSON(w http.ResponseWriter, code int, v Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, code int, message string, data interface{}, meta *PageMeta) {
	writeJSON(w, code, Envelope{Success: true, Message: message, Data: data, Meta: meta})
}

// Fail writes a failure envelope.
func Fail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, Envelope{Success: false, Message: message})
}
