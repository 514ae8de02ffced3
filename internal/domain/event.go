package domain

// Event patterns published to the durable tasks queue. The notifications
// tier maps each pattern to the websocket event name pushed to clients.
const (
	EventTaskCreated    = "task_created"
	EventTaskUpdated    = "task_updated"
	EventTaskDeleted    = "task_deleted"
	EventCommentCreated = "comment_created"
)
