package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hikgate/hikgate-core/internal/hikcentral"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeVendor       = "vendor_error"
	ErrCodeUnavailable  = "vendor_unavailable"
)

// envelope wraps vendor-backed responses.
type envelope struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeOK writes a successful envelope.
func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Message: message, Success: true, Data: data})
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeValidation(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeVendorError maps a HikCentral failure to a response. prefix is
// prepended to the vendor message.
func writeVendorError(w http.ResponseWriter, prefix string, err error) {
	var ve *hikcentral.VendorError
	switch {
	case errors.As(err, &ve) && ve.Local():
		writeError(w, http.StatusBadGateway, ErrCodeUnavailable, prefix+": HikCentral unreachable ("+ve.Msg+")")
	case errors.As(err, &ve):
		msg := ve.Msg
		if msg == "" {
			msg = "code " + ve.Code
		}
		writeError(w, http.StatusBadRequest, ErrCodeVendor, prefix+": "+msg)
	default:
		writeError(w, http.StatusBadRequest, ErrCodeVendor, prefix+": "+err.Error())
	}
}
