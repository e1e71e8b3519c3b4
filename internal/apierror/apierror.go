// Package apierror defines the JSON error envelope returned by the API.
package apierror

import (
	"encoding/json"
	"net/http"
)

// Response is the body of every non-2xx response.
type Response struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Hint       string `json:"hint,omitempty"`
	ExistingID int64  `json:"existing_id,omitempty"`
}

func New(msg string) Response {
	return Response{Error: msg}
}

func (r Response) WithDetails(d string) Response {
	r.Details = d
	return r
}

// Write sends r with the given status code.
func Write(w http.ResponseWriter, status int, r Response) {
	WriteJSON(w, status, r)
}

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
