package dto

// CreateTaskDto carries the user-settable fields of a create command.
type CreateTaskDto struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	AssigneeIDs []string `json:"assigneeIds,omitempty"`
}

// UpdateTaskDto is a merge patch. Absent fields stay nil and are left
// unchanged; assigneeIds distinguishes "omitted" from "clear all"
// (an explicit empty array).
type UpdateTaskDto struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *string   `json:"priority,omitempty"`
	Status      *string   `json:"status,omitempty"`
	AssigneeIDs *[]string `json:"assigneeIds,omitempty"`
}

// CreateCommentDto carries the body of an add-comment command.
type CreateCommentDto struct {
	Content string `json:"content"`
}

// CreateTaskRequest is the payload of the create_task command.
type CreateTaskRequest struct {
	CreateTaskDto CreateTaskDto `json:"createTaskDto"`
	OwnerID       string        `json:"ownerId"`
	OwnerUsername string        `json:"ownerUsername"`
}

// FindAllTasksRequest is the payload of the find_all_tasks_for_user command.
type FindAllTasksRequest struct {
	UserID string `json:"userId"`
	Search string `json:"search,omitempty"`
	Page   int    `json:"page,omitempty"`
	Size   int    `json:"size,omitempty"`
}

// FindTaskByIDRequest is the payload of the find_task_by_id command.
type FindTaskByIDRequest struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// UpdateTaskRequest is the payload of the update_task command. The
// username is denormalized into the audit trail, so the gateway must
// supply it alongside the user id.
type UpdateTaskRequest struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Username      string        `json:"username"`
	UpdateTaskDto UpdateTaskDto `json:"updateTaskDto"`
}

// DeleteTaskRequest is the payload of the delete_task command.
type DeleteTaskRequest struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
}

// AddCommentRequest is the payload of the add_comment_to_task command.
type AddCommentRequest struct {
	TaskID           string           `json:"taskId"`
	AuthorID         string           `json:"authorId"`
	AuthorUsername   string           `json:"authorUsername"`
	CreateCommentDto CreateCommentDto `json:"createCommentDto"`
}

// FindCommentsRequest is the payload of the find_comments_for_task command.
type FindCommentsRequest struct {
	TaskID string `json:"taskId"`
	UserID string `json:"userId"`
	Page   int    `json:"page,omitempty"`
	Size   int    `json:"size,omitempty"`
}
