package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/contents"
	"github.com/marmos91/bucketfs/pkg/namespace"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("json encode failed: %v", err)
	}
}

type errResponse struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func errorBody(msg, reason string) errResponse {
	return errResponse{Message: msg, Reason: reason}
}

// statusFor maps an error to its HTTP status and a stable reason string.
func statusFor(err error) (int, string) {
	if errors.Is(err, contents.ErrInvalidModel) {
		return http.StatusBadRequest, "InvalidModel"
	}

	code, ok := namespace.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError, ""
	}

	switch code {
	case namespace.ErrNoSuchEntity:
		return http.StatusNotFound, code.String()
	case namespace.ErrAlreadyExists:
		return http.StatusConflict, code.String()
	case namespace.ErrParentMissing, namespace.ErrDirectoryNotEmpty, namespace.ErrInvalidTarget:
		return http.StatusBadRequest, code.String()
	case namespace.ErrStoreUnavailable:
		return http.StatusServiceUnavailable, code.String()
	default:
		return http.StatusInternalServerError, code.String()
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, reason := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody(msg, reason))
}
