package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"example.com/tweetfeed/internal/middleware"
	"example.com/tweetfeed/internal/models"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logg.Error("http", "Failed to encode response", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends user-facing errors as is. Anything else is logged and
// reported as a generic 500.
func writeError(w http.ResponseWriter, module string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logg.Error(module, "Request failed", err)
		writeJSON(w, status, errorBody{Error: "Internal server error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// decodeJSON reads a JSON body of bounded size into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return models.Validation("Invalid request body")
	}
	return nil
}

// actingUser returns the user set by the auth middleware.
func actingUser(r *http.Request) *models.User {
	u, _ := middleware.UserFromContext(r.Context())
	return u
}

func actingUserID(r *http.Request) string {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}
