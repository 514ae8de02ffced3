package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JoaoMaganin/syncflow/internal/domain"
	"github.com/JoaoMaganin/syncflow/internal/repository"
)

// AuditLogger appends immutable change records to a task's history. The
// caller is responsible for diffing old vs. new state and invoking Record
// once per distinct changed aspect; no diffing happens here.
type AuditLogger struct {
	historyRepo *repository.HistoryRepository
}

// NewAuditLogger creates a new AuditLogger.
func NewAuditLogger(historyRepo *repository.HistoryRepository) *AuditLogger {
	return &AuditLogger{historyRepo: historyRepo}
}

// Record appends one audit entry within the caller's transaction,
// attributed to the acting user and timestamped by the store.
func (l *AuditLogger) Record(
	ctx context.Context,
	tx pgx.Tx,
	taskID string,
	actor Actor,
	action domain.HistoryAction,
	oldValue, newValue *string,
) error {
	entry := &domain.TaskHistory{
		TaskID:   taskID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Action:   action,
		OldValue: oldValue,
		NewValue: newValue,
	}

	if err := l.historyRepo.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}

	return nil
}

// AssigneeValue renders an assignee set for audit values: usernames sorted
// and comma-joined, or the NoAssignees placeholder for an empty set.
func AssigneeValue(users []domain.User) string {
	if len(users) == 0 {
		return domain.NoAssignees
	}
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// strPtr returns a pointer to the given string for nullable audit values.
func strPtr(s string) *string {
	return &s
}
