// Package response defines the JSON envelope every classbank endpoint speaks.
package response

import (
	"encoding/json"
	"net/http"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	// Invalidates names the client-side query caches a mutation made stale
	// (e.g. "students", "stats"). Empty for reads.
	Invalidates []string `json:"invalidates,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, APIResponse{Status: "success", Data: data})
}

// JSONInvalidate is JSON plus the cache-invalidation hints produced by a
// mutation.
func JSONInvalidate(w http.ResponseWriter, status int, data interface{}, invalidates []string) {
	write(w, status, APIResponse{Status: "success", Data: data, Invalidates: invalidates})
}

func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, APIResponse{Status: "error", Message: msg})
}

func write(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
