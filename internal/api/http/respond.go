package http

import (
	"encoding/json"
	"net/http"

	"github.com/bandmaster/bandmaster/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps apperr kinds to HTTP status codes. Anything without a
// kind is a 500 with a generic body so internals do not leak to clients.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindUnauthenticated:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindInvalid:
		status = http.StatusUnprocessableEntity
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"statusCode": http.StatusInternalServerError,
			"message":    "internal error",
		})
		return
	}
	writeJSON(w, status, map[string]any{
		"statusCode": status,
		"message":    err.Error(),
	})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("malformed JSON body: %v", err)
	}
	return nil
}
