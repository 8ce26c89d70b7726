package response

import (
	"encoding/json"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data, Meta: metaFor(r)})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	write(w, status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
		Meta:    metaFor(r),
	})
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func metaFor(r *http.Request) Meta {
	if r == nil {
		return Meta{}
	}
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		id = strings.TrimSpace(r.Header.Get("X-Request-Id"))
	}
	return Meta{RequestID: id}
}
