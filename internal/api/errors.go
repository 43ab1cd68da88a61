package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrack/pagetrack-server/internal/auth"
	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
	"github.com/pagetrack/pagetrack-server/internal/media/images"
	"github.com/pagetrack/pagetrack-server/internal/store"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = newAPIError
}

func newAPIError(status int, message string, errs ...error) huma.StatusError {
	var details []string
	for _, err := range errs {
		if err == nil {
			continue
		}

		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return &APIError{
				status:  domainErr.HTTPStatus(),
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Details: domainErr.Details,
			}
		}

		var storeErr *store.Error
		if errors.As(err, &storeErr) {
			return &APIError{
				status:  storeErr.HTTPCode(),
				Code:    statusToCode(storeErr.HTTPCode()),
				Message: storeErr.Message,
			}
		}

		if errors.Is(err, images.ErrNotFound) {
			return &APIError{
				status:  http.StatusNotFound,
				Code:    string(domainerrors.CodeNotFound),
				Message: "cover not found",
			}
		}

		if errors.Is(err, auth.ErrUnauthenticated) {
			return &APIError{
				status:  http.StatusUnauthorized,
				Code:    string(domainerrors.CodeUnauthorized),
				Message: "authentication required",
			}
		}

		// huma request validation reports one ErrorDetail per field.
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) {
			details = append(details, detail.Error())
		}
	}

	apiErr := &APIError{
		status:  status,
		Code:    statusToCode(status),
		Message: message,
	}
	if len(details) > 0 {
		apiErr.Details = details
	}
	if status >= http.StatusInternalServerError && len(errs) > 0 {
		// Do not leak internals.
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodePermissionDenied)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeTooManyRequests)
	default:
		return string(domainerrors.CodeInternal)
	}
}
