package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoaoMaganin/syncflow/internal/domain"
)

// HistoryRepository handles database operations for the task audit trail.
// Rows are append-only: no update or delete statements exist here.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Create appends a new audit entry within a transaction.
func (r *HistoryRepository) Create(
	ctx context.Context,
	tx pgx.Tx,
	entry *domain.TaskHistory,
) error {
	query, args, err := psql.
		Insert("task_history").
		Columns("task_id", "user_id", "username", "action", "old_value", "new_value").
		Values(entry.TaskID, entry.UserID, entry.Username, entry.Action, entry.OldValue, entry.NewValue).
		Suffix(`RETURNING id, "timestamp"`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&entry.ID, &entry.Timestamp)
	if err != nil {
		return fmt.Errorf("create history entry: %w", err)
	}

	return nil
}

// GetByTaskID retrieves all audit entries for a task in chronological order.
func (r *HistoryRepository) GetByTaskID(ctx context.Context, taskID string) ([]*domain.TaskHistory, error) {
	query, args, err := psql.
		Select("id", "task_id", "user_id", "username", "action", "old_value", "new_value", `"timestamp"`).
		From("task_history").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy(`"timestamp" ASC`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.TaskHistory
	for rows.Next() {
		var entry domain.TaskHistory
		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.UserID,
			&entry.Username,
			&entry.Action,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}
