package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/futig/knowledge-console/internal/entity"
	pkghttp "github.com/futig/knowledge-console/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Can't change response at this point, just log
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// Error logs err and writes an ErrorResponse with the given status.
func Error(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message, zap.Error(err))
	}

	JSON(w, status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// Success writes a success response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Attachment writes a file download.
func Attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// HandleError maps domain and backend errors to HTTP statuses.
func HandleError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := Classify(err)
	Error(ctx, w, status, message, err)
}

// Classify returns the status and client message for err.
func Classify(err error) (int, string) {
	var (
		connErr   *pkghttp.ConnectivityError
		httpErr   *pkghttp.HTTPError
		decodeErr *pkghttp.DecodeError
	)

	switch {
	case errors.Is(err, entity.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, entity.ErrQueryInFlight), errors.Is(err, entity.ErrIngestInFlight):
		return http.StatusConflict, err.Error()
	case errors.Is(err, entity.ErrEmptyQuery),
		errors.Is(err, entity.ErrEmptySubmission),
		errors.Is(err, entity.ErrValidation),
		errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrInvalidFormat),
		errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidFile):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrFileTooLarge), errors.Is(err, entity.ErrTooManyFiles):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.As(err, &connErr):
		return http.StatusServiceUnavailable, connErr.Error()
	case errors.As(err, &httpErr):
		return http.StatusBadGateway, httpErr.Error()
	case errors.As(err, &decodeErr), errors.Is(err, entity.ErrMalformedReply):
		return http.StatusBadGateway, "malformed backend response"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "backend did not answer in time"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
