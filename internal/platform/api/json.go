package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as a JSON response body with the given status.
// Encoding failures after the header is written can only be logged by
// middleware; the body is left truncated.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
