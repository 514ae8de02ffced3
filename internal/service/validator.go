package service

import (
	"fmt"

	"github.com/JoaoMaganin/syncflow/internal/domain"
)

const maxTitleLength = 255

// Validator handles input and permission validation for task operations.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateTitle checks the title is present and within the column limit.
func (v *Validator) ValidateTitle(title string) error {
	if title == "" {
		return domain.ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: got %d characters", domain.ErrTitleTooLong, len(title))
	}
	return nil
}

// ValidateCreate checks a create command's fields.
func (v *Validator) ValidateCreate(input CreateTaskInput) error {
	return v.ValidateTitle(input.Title)
}

// ValidateUpdate checks the fields present in an update patch. Absent
// fields are left unchanged and are not validated.
func (v *Validator) ValidateUpdate(patch UpdateTaskInput) error {
	if patch.Title != nil {
		if err := v.ValidateTitle(*patch.Title); err != nil {
			return err
		}
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidStatus, *patch.Status)
	}
	if patch.Priority != nil && !patch.Priority.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidPriority, *patch.Priority)
	}
	return nil
}

// CanView validates that the user is the task's owner or an assignee.
// The task's assignee set must be loaded.
func (v *Validator) CanView(task *domain.Task, userID string) error {
	if !task.IsParticipant(userID) {
		return fmt.Errorf("%w: user %s is neither owner nor assignee of task %s", domain.ErrForbidden, userID, task.ID)
	}
	return nil
}

// CanUpdate validates that the user may mutate the task's fields. Any
// participant may update, not only the owner.
func (v *Validator) CanUpdate(task *domain.Task, userID string) error {
	return v.CanView(task, userID)
}

// CanDelete validates that the user owns the task. Assignee participation
// is not sufficient for deletion.
func (v *Validator) CanDelete(task *domain.Task, userID string) error {
	if !task.IsOwnedBy(userID) {
		return fmt.Errorf("%w: only the owner can delete task %s", domain.ErrForbidden, task.ID)
	}
	return nil
}
