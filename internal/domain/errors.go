package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain-specific errors for business logic validation.
var (
	// Task errors
	ErrTaskNotFound = errors.New("task not found")

	// Permission errors
	ErrForbidden = errors.New("permission denied")

	// Validation errors
	ErrEmptyTitle      = errors.New("title is required")
	ErrTitleTooLong    = errors.New("title exceeds 255 characters")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
	ErrEmptyComment    = errors.New("comment content is required")
)

// UnknownUsersError reports assignee ids that do not resolve against the
// user mirror. Validation is all-or-nothing: one unresolved id rejects the
// whole command and every missing id is listed for the caller.
type UnknownUsersError struct {
	IDs []string
}

func (e *UnknownUsersError) Error() string {
	return fmt.Sprintf("unknown user(s): %s", strings.Join(e.IDs, ", "))
}
