package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/psyche-api/internal/api/shared"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/export"
	"github.com/phrazzld/psyche-api/internal/service/assessment"
	"github.com/phrazzld/psyche-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, assessment.ErrSessionNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Rejected answers and incomplete completion requests
	case errors.Is(err, assessment.ErrInvalidAnswer),
		errors.Is(err, domain.ErrConfirmationRequired),
		errors.Is(err, domain.ErrResultRequired),
		errors.Is(err, domain.ErrSessionMismatch):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, assessment.ErrInvalidRequest),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, assessment.ErrResultNotAvailable),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Includes *domain.ConfigurationError: callers asked for an unsupported instrument.
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that never
// includes internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, assessment.ErrSessionNotFound),
		errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, assessment.ErrInvalidAnswer):
		return "Answer failed validation"
	case errors.Is(err, domain.ErrConfirmationRequired):
		return "Session completion must be confirmed"
	case errors.Is(err, domain.ErrResultRequired):
		return "Session has no result to complete with"
	case errors.Is(err, domain.ErrSessionMismatch):
		return "Answer does not belong to this session"

	case errors.Is(err, export.ErrUnsupportedFormat):
		return "Unsupported export format"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, assessment.ErrInvalidRequest),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID format"

	case errors.Is(err, domain.ErrSessionClosed):
		return "Session is closed"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "Session cannot move to the requested status"
	case errors.Is(err, assessment.ErrResultNotAvailable):
		return "Session result is not available yet"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case domain.IsConfigurationError(err):
		return "Unsupported instrument configuration"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. defaultMsg
// replaces the generic message for unmapped server errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string, opts ...shared.ResponseOption) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" && !domain.IsConfigurationError(err) {
		message = defaultMsg
	}

	var rejected *assessment.AnswerRejectedError
	if errors.As(err, &rejected) {
		opts = append(opts, shared.WithDetails(rejected.Validation))
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns a validator error into a short message
// naming the first failing field.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid UUID"
	default:
		return "validation failed"
	}
}
