package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Somnusochi/auto-novel/errors"
)

// maxBodyBytes caps request bodies; every payload here is a few short strings
const maxBodyBytes = 64 * 1024

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeError writes a JSON error response: {"error": message}
func writeError(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, map[string]string{"error": message})
}

// readJSON decodes the request body into v, answering 400 itself on failure
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return err
	}
	return nil
}

// categories maps error sentinels to HTTP status, most specific first
var categories = []struct {
	sentinel error
	status   int
}{
	{errors.ErrUnauthorized, http.StatusUnauthorized},
	{errors.ErrForbidden, http.StatusForbidden},
	{errors.ErrNotFound, http.StatusNotFound},
	{errors.ErrConflict, http.StatusConflict},
	{errors.ErrInvalidRequest, http.StatusBadRequest},
	{errors.ErrServiceUnavailable, http.StatusServiceUnavailable},
	{errors.ErrTimeout, http.StatusGatewayTimeout},
}

// errorStatus returns the HTTP status for err and the message safe to show
// the caller. Uncategorized errors are internal and their text is withheld.
func errorStatus(err error) (int, string) {
	for _, c := range categories {
		if errors.Is(err, c.sentinel) {
			return c.status, strings.TrimSuffix(err.Error(), ": "+c.sentinel.Error())
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// shortID truncates an ID to 8 characters for logging
func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
