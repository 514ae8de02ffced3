package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoaoMaganin/syncflow/internal/domain"
)

// AssigneeRepository maintains the task_assignees junction table.
type AssigneeRepository struct {
	pool *pgxpool.Pool
}

// NewAssigneeRepository creates a new AssigneeRepository.
func NewAssigneeRepository(pool *pgxpool.Pool) *AssigneeRepository {
	return &AssigneeRepository{pool: pool}
}

// GetByTaskID retrieves the task's assignees, ordered by username so that
// audit strings built from the set are stable.
func (r *AssigneeRepository) GetByTaskID(ctx context.Context, taskID string) ([]domain.User, error) {
	query, args, err := psql.
		Select("u.id", "u.username").
		From("task_assignees ta").
		Join("users u ON u.id = ta.user_id").
		Where(sq.Eq{"ta.task_id": taskID}).
		OrderBy("u.username ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByTaskID query for assignees: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignees: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return users, nil
}

// Add inserts junction rows for the given user ids within a transaction.
func (r *AssigneeRepository) Add(ctx context.Context, tx pgx.Tx, taskID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	qb := psql.Insert("task_assignees").Columns("task_id", "user_id")
	for _, userID := range userIDs {
		qb = qb.Values(taskID, userID)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("build Add query for assignees: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("add assignees: %w", err)
	}

	return nil
}

// Remove deletes junction rows for the given user ids within a transaction.
func (r *AssigneeRepository) Remove(ctx context.Context, tx pgx.Tx, taskID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	query, args, err := psql.
		Delete("task_assignees").
		Where(sq.Eq{"task_id": taskID, "user_id": userIDs}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Remove query for assignees: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("remove assignees: %w", err)
	}

	return nil
}
