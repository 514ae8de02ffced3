package dto

import (
	"errors"

	"github.com/JoaoMaganin/syncflow/internal/domain"
)

// ErrorResponse is the standard error reply format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code, message and, for unknown-user
// failures, the ids that could not be resolved.
type ErrorDetail struct {
	Code           string   `json:"code"`
	Message        string   `json:"message"`
	MissingUserIDs []string `json:"missingUserIds,omitempty"`
}

// NewErrorResponse creates a new error reply.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// MapDomainError maps domain errors to a stable error code the gateway
// can translate into its own status space.
func MapDomainError(err error) ErrorResponse {
	message := err.Error()

	var unknownUsers *domain.UnknownUsersError
	if errors.As(err, &unknownUsers) {
		return ErrorResponse{
			Error: ErrorDetail{
				Code:           "UNKNOWN_USERS",
				Message:        message,
				MissingUserIDs: unknownUsers.IDs,
			},
		}
	}

	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return NewErrorResponse("TASK_NOT_FOUND", message)
	case errors.Is(err, domain.ErrForbidden):
		return NewErrorResponse("FORBIDDEN", message)
	case errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrTitleTooLong),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrEmptyComment):
		return NewErrorResponse("VALIDATION_FAILED", message)
	default:
		return NewErrorResponse("INTERNAL_ERROR", "internal error")
	}
}
