package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoaoMaganin/syncflow/internal/domain"
)

// commentColumns is the shared list of columns for comment queries.
var commentColumns = []string{
	"id", "task_id", "content", "author_id", "author_username", "created_at",
}

// CommentRepository handles database operations for comments.
type CommentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(pool *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

// Create inserts a new comment. Returns the comment with ID and CreatedAt
// populated.
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	query, args, err := psql.
		Insert("comments").
		Columns("task_id", "content", "author_id", "author_username").
		Values(comment.TaskID, comment.Content, comment.AuthorID, comment.AuthorUsername).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for comment: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	return comment, nil
}

// GetByTaskID retrieves all comments for a task, newest first.
func (r *CommentRepository) GetByTaskID(ctx context.Context, taskID string) ([]*domain.Comment, error) {
	query, args, err := psql.
		Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByTaskID query for comments: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}

	return scanComments(rows)
}

// ListByTaskID retrieves one page of a task's comments, newest first, with
// a total count over all of the task's comments.
func (r *CommentRepository) ListByTaskID(
	ctx context.Context,
	taskID string,
	limit, offset int,
) ([]*domain.Comment, int, error) {
	query, args, err := psql.
		Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build ListByTaskID query for comments: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query comments: %w", err)
	}

	comments, err := scanComments(rows)
	if err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := psql.
		Select("COUNT(*)").
		From("comments").
		Where(sq.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	return comments, total, nil
}

// scanComments scans rows into a slice of Comment structs.
func scanComments(rows pgx.Rows) ([]*domain.Comment, error) {
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		var c domain.Comment
		err := rows.Scan(
			&c.ID,
			&c.TaskID,
			&c.Content,
			&c.AuthorID,
			&c.AuthorUsername,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return comments, nil
}
