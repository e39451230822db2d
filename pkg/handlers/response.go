package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// statusForKind maps the error taxonomy onto HTTP status codes.
func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindAuthorization:
		return http.StatusUnauthorized
	case apperrors.KindUnsafeStatement:
		return http.StatusUnprocessableEntity
	case apperrors.KindResourceExhausted:
		return http.StatusTooManyRequests
	case apperrors.KindCacheUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.KindExecutionTimeout:
		return http.StatusGatewayTimeout
	case apperrors.KindRowCapExceeded:
		return http.StatusUnprocessableEntity
	case apperrors.KindSchemaDiscovery, apperrors.KindExecution:
		return http.StatusBadGateway
	case apperrors.KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError maps a classified error onto an HTTP error response. Errors
// without a classification become 500s with a generic message so internal
// detail never leaks to callers.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		logger.Error("Unclassified error", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "An internal error occurred"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	status := statusForKind(appErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
	} else {
		logger.Warn("Request rejected", zap.String("kind", string(appErr.Kind)), zap.String("message", appErr.Message))
	}
	if err := ErrorResponse(w, status, string(appErr.Kind), appErr.Message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
