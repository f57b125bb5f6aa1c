package mw

import (
	"encoding/json"
	"net/http"
)

// deny writes the JSON error body every API response uses.
func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
