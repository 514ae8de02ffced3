package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JoaoMaganin/syncflow/internal/domain"
	"github.com/JoaoMaganin/syncflow/internal/repository"
)

// Reconciler brings a task's assignee set to a caller-supplied target by
// applying only the add/remove delta on the junction table, avoiding row
// churn and keeping audit deltas accurate.
type Reconciler struct {
	userRepo     *repository.UserRepository
	assigneeRepo *repository.AssigneeRepository
}

// NewReconciler creates a new Reconciler.
func NewReconciler(userRepo *repository.UserRepository, assigneeRepo *repository.AssigneeRepository) *Reconciler {
	return &Reconciler{
		userRepo:     userRepo,
		assigneeRepo: assigneeRepo,
	}
}

// ReconcileResult describes one applied reconciliation.
type ReconcileResult struct {
	Added   []domain.User
	Removed []domain.User
	Target  []domain.User
}

// Changed reports whether the reconciliation touched the assignee set.
func (r ReconcileResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// Resolve batch-resolves the given ids against the user mirror. If any id
// is unknown the whole resolution fails with an UnknownUsersError listing
// every missing id; nothing is partially accepted. Duplicate ids are
// collapsed.
func (r *Reconciler) Resolve(ctx context.Context, ids []string) ([]domain.User, error) {
	unique := dedupe(ids)

	users, err := r.userRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}

	if len(users) != len(unique) {
		found := make(map[string]bool, len(users))
		for _, u := range users {
			found[u.ID] = true
		}
		var missing []string
		for _, id := range unique {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		return nil, &domain.UnknownUsersError{IDs: missing}
	}

	return users, nil
}

// Reconcile resolves targetIDs and applies the symmetric difference against
// the current set inside the caller's transaction. An empty targetIDs is a
// valid clear-all instruction. The returned delta feeds the audit trail.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	tx pgx.Tx,
	taskID string,
	current []domain.User,
	targetIDs []string,
) (ReconcileResult, error) {
	target, err := r.Resolve(ctx, targetIDs)
	if err != nil {
		return ReconcileResult{}, err
	}

	added, removed := SplitDelta(current, target)

	if err := r.assigneeRepo.Add(ctx, tx, taskID, userIDs(added)); err != nil {
		return ReconcileResult{}, err
	}
	if err := r.assigneeRepo.Remove(ctx, tx, taskID, userIDs(removed)); err != nil {
		return ReconcileResult{}, err
	}

	return ReconcileResult{Added: added, Removed: removed, Target: target}, nil
}

// SplitDelta computes added = target − current and removed = current − target.
func SplitDelta(current, target []domain.User) (added, removed []domain.User) {
	inCurrent := make(map[string]bool, len(current))
	for _, u := range current {
		inCurrent[u.ID] = true
	}
	inTarget := make(map[string]bool, len(target))
	for _, u := range target {
		inTarget[u.ID] = true
	}

	for _, u := range target {
		if !inCurrent[u.ID] {
			added = append(added, u)
		}
	}
	for _, u := range current {
		if !inTarget[u.ID] {
			removed = append(removed, u)
		}
	}
	return added, removed
}

// userIDs extracts the id of each user.
func userIDs(users []domain.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

// dedupe returns the ids with duplicates removed, preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
