package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"justanote/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as a FrontendError with the matching status
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errors.ToFrontendError(err))
}

// decodeJSON reads a JSON body into v
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errors.ErrInvalidRequest.WithCause(err)
	}
	return nil
}
