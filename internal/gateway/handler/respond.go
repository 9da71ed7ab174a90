package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"zentra/internal/apperr"
	"zentra/internal/gateway/middleware"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"error": code, "message": msg}. Causes stay in
// the logs.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)
	if status >= 500 {
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.RequestIDFrom(r.Context()),
			"path", r.URL.Path,
			"error_code", string(code),
			"error", err,
		)
	}
	writeJSON(w, status, errorBody{Error: string(code), Message: apperr.PublicMessage(err)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidArgument("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.InvalidArgument("request body too large")
		}
		return apperr.Wrap(err, apperr.CodeInvalidArgument, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
