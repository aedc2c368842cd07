package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	apperrors "dormly/pkg/errors"
	httputil "dormly/pkg/http"
	"dormly/pkg/logger"
)

func writeError(w http.ResponseWriter, log *logger.Logger, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func writeSuccess(w http.ResponseWriter, log *logger.Logger, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

// requireRequester returns the caller's id, or writes a 400 and returns "".
func requireRequester(w http.ResponseWriter, r *http.Request, log *logger.Logger, handler string) string {
	requesterID := strings.TrimSpace(httputil.RequesterID(r))
	if requesterID == "" {
		writeError(w, log, handler, apperrors.InvalidInput(httputil.RequesterIDHeader+" header is required"))
	}
	return requesterID
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperrors.New(apperrors.CodeBadRequest, "Request body too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("Request body is required")
		default:
			return apperrors.InvalidInput("Invalid request body")
		}
	}
	return nil
}
