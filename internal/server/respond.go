package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/acaslabs/mcp-server/internal/common"
)

// errorBody is the wire format for every error response (matches the
// `{error: true, message}` contract the uploader script expects).
type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: true, Message: message})
}

// writeError maps the failure taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch common.CodeOf(err) {
	case common.CodeValidation:
		status = http.StatusBadRequest
	case common.CodeNotFound:
		status = http.StatusNotFound
	case common.CodeNotReady:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		var ae *common.AppError
		if !errors.As(err, &ae) {
			logger.Error("unhandled request error", zap.Error(err))
		}
	}
	writeErrorMessage(w, status, err.Error())
}
