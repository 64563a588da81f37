package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
)

// maxBodyBytes bounds every decoded request body.
const maxBodyBytes = 1 << 20

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into v, replying 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// writeStoreError maps domain sentinels to status codes. Anything unknown is
// logged with action and answered with a generic 500.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, action string, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, wellness.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status transition")
	default:
		logger.Error(action, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
