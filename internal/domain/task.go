package domain

import "time"

// TaskStatus represents the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusReview     TaskStatus = "REVIEW"
	TaskStatusDone       TaskStatus = "DONE"
)

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	default:
		return false
	}
}

// TaskPriority represents the priority level of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

// IsValid checks if the priority is one of the allowed values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	default:
		return false
	}
}

// Task is the aggregate root: comments, assignee links and history rows
// are owned by the task and cascade with it. OwnerUsername is denormalized
// at creation time and never re-derived from the user mirror.
type Task struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   *string      `json:"description"`
	Priority      TaskPriority `json:"priority"`
	Status        TaskStatus   `json:"status"`
	OwnerID       string       `json:"ownerId"`
	OwnerUsername string       `json:"ownerUsername"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	// Hydrated relations; nil until loaded.
	Assignees []User         `json:"assignees"`
	Comments  []*Comment     `json:"comments"`
	History   []*TaskHistory `json:"history"`
}

// IsOwnedBy checks if the task belongs to the given user.
func (t *Task) IsOwnedBy(userID string) bool {
	return t.OwnerID == userID
}

// IsAssignedTo checks if the given user is in the task's loaded assignee set.
func (t *Task) IsAssignedTo(userID string) bool {
	for _, u := range t.Assignees {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// IsParticipant checks if the user is either the owner or an assignee.
func (t *Task) IsParticipant(userID string) bool {
	return t.IsOwnedBy(userID) || t.IsAssignedTo(userID)
}
