package service

import "github.com/JoaoMaganin/syncflow/internal/domain"

// Default page sizes per listing.
const (
	DefaultTaskPageSize    = 10
	DefaultCommentPageSize = 5
)

// TaskPage is the pagination envelope for task listings.
type TaskPage struct {
	Items      []*domain.Task `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	TotalPages int            `json:"totalPages"`
}

// CommentPage is the pagination envelope for comment listings.
type CommentPage struct {
	Items      []*domain.Comment `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	Size       int               `json:"size"`
	TotalPages int               `json:"totalPages"`
}

// normalizePage clamps page and size to valid values, substituting the
// given default size when size is not positive.
func normalizePage(page, size, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultSize
	}
	return page, size
}

// totalPages computes ceil(total/size). A result of zero means no pages.
func totalPages(total, size int) int {
	return (total + size - 1) / size
}
