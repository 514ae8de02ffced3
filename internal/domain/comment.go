package domain

import "time"

// Comment is an immutable note on a task. There is no update or delete
// operation; comments disappear only when their task is removed.
type Comment struct {
	ID             string    `json:"id"`
	TaskID         string    `json:"taskId"`
	Content        string    `json:"content"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	CreatedAt      time.Time `json:"createdAt"`
}
