package domain

import "time"

// HistoryAction represents the kind of change recorded in the audit trail.
type HistoryAction string

const (
	ActionTaskCreated      HistoryAction = "TASK_CREATED"
	ActionStatusChanged    HistoryAction = "STATUS_CHANGED"
	ActionPriorityChanged  HistoryAction = "PRIORITY_CHANGED"
	ActionAssigneesChanged HistoryAction = "ASSIGNEES_CHANGED"
)

// NoAssignees is the placeholder recorded in audit values when a task's
// assignee set is empty.
const NoAssignees = "Ninguém"

// TaskHistory is an append-only audit entry for one discrete change to a
// task. Actor identity is denormalized so later renames never rewrite
// history. Rows are never updated or deleted except by cascade.
type TaskHistory struct {
	ID        string        `json:"id"`
	TaskID    string        `json:"taskId"`
	UserID    string        `json:"userId"`
	Username  string        `json:"username"`
	Action    HistoryAction `json:"action"`
	OldValue  *string       `json:"oldValue"`
	NewValue  *string       `json:"newValue"`
	Timestamp time.Time     `json:"timestamp"`
}
