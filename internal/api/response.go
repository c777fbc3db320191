package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/redlattice/wsm/internal/core"
)

// ErrorResponse is the wire shape of every error this API returns.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a typed error response.
func WriteError(w http.ResponseWriter, err *core.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code.HTTPStatus())
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    string(err.Code),
		Message: err.Message,
	})
}

// WriteDomainError maps any error coming out of the lifecycle manager to a
// response, falling back to internal for unexpected ones.
func WriteDomainError(w http.ResponseWriter, err error) {
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		WriteError(w, appErr)
		return
	}
	WriteError(w, core.NewAppError(core.ErrInternal, "internal server error"))
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
