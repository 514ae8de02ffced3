package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoaoMaganin/syncflow/internal/broker"
	"github.com/JoaoMaganin/syncflow/internal/domain"
	"github.com/JoaoMaganin/syncflow/internal/repository"
)

// Actor is the authenticated identity performing a command, asserted by
// the upstream gateway. The username is denormalized into owner, author
// and audit fields at write time.
type Actor struct {
	UserID   string
	Username string
}

// CreateTaskInput holds the fields of a create command.
type CreateTaskInput struct {
	Title       string
	Description *string
	AssigneeIDs []string
}

// UpdateTaskInput is a merge patch: nil fields are left unchanged.
// AssigneeIDs distinguishes "omitted" (nil) from "clear all" (pointer to
// an empty slice).
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *domain.TaskPriority
	Status      *domain.TaskStatus
	AssigneeIDs *[]string
}

// ServiceOptions makes the policies left open by the original design
// explicit instead of silently tightening or loosening them.
type ServiceOptions struct {
	// RestrictComments requires comment authors to be the task's owner or
	// an assignee. Off by default: any authenticated actor who knows the
	// task id may comment.
	RestrictComments bool

	// PublishDeletes emits a task_deleted event after a successful delete.
	// Off by default: deletions are not propagated to the real-time tier.
	PublishDeletes bool
}

// TaskService orchestrates task mutations: authorization, field merge,
// assignee reconciliation, audit logging and event emission. Every
// mutation commits in one transaction; the event publish happens after
// commit and never fails the command.
type TaskService struct {
	pool         *pgxpool.Pool
	taskRepo     *repository.TaskRepository
	commentRepo  *repository.CommentRepository
	historyRepo  *repository.HistoryRepository
	assigneeRepo *repository.AssigneeRepository
	userRepo     *repository.UserRepository
	reconciler   *Reconciler
	audit        *AuditLogger
	validator    *Validator
	publisher    broker.Publisher
	opts         ServiceOptions
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	pool *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	commentRepo *repository.CommentRepository,
	historyRepo *repository.HistoryRepository,
	assigneeRepo *repository.AssigneeRepository,
	userRepo *repository.UserRepository,
	publisher broker.Publisher,
	opts ServiceOptions,
) *TaskService {
	return &TaskService{
		pool:         pool,
		taskRepo:     taskRepo,
		commentRepo:  commentRepo,
		historyRepo:  historyRepo,
		assigneeRepo: assigneeRepo,
		userRepo:     userRepo,
		reconciler:   NewReconciler(userRepo, assigneeRepo),
		audit:        NewAuditLogger(historyRepo),
		validator:    NewValidator(),
		publisher:    publisher,
		opts:         opts,
	}
}

// publish emits one event, logging and dropping failures: the committed
// entity state is the source of truth and a lost notification must never
// surface as a command failure. The context is detached so a client
// disconnect after commit cannot cancel the publish.
func (s *TaskService) publish(ctx context.Context, pattern string, data any) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), pattern, data); err != nil {
		slog.Error("failed to publish event", "pattern", pattern, "error", err)
	}
}

// rollback discards an open transaction, tolerating prior commits.
func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && err.Error() != "tx is closed" {
		slog.Error("failed to rollback transaction", "error", err)
	}
}

// hydrateTask loads the task with its assignees, comments and history.
func (s *TaskService) hydrateTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	assignees, err := s.assigneeRepo.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	history, err := s.historyRepo.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	// Empty relations serialize as [] rather than null.
	if assignees == nil {
		assignees = []domain.User{}
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}
	if history == nil {
		history = []*domain.TaskHistory{}
	}

	task.Assignees = assignees
	task.Comments = comments
	task.History = history
	return task, nil
}

// CreateTask validates and persists a new task owned by the actor, writes
// the TASK_CREATED audit entry, and emits task_created with the hydrated
// snapshot. Supplied assignee ids must all resolve against the user
// mirror; creation is a pure insert, not a reconciliation.
func (s *TaskService) CreateTask(ctx context.Context, actor Actor, input CreateTaskInput) (*domain.Task, error) {
	if err := s.validator.ValidateCreate(input); err != nil {
		return nil, err
	}

	var assignees []domain.User
	if len(input.AssigneeIDs) > 0 {
		var err error
		assignees, err = s.reconciler.Resolve(ctx, input.AssigneeIDs)
		if err != nil {
			return nil, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task := &domain.Task{
		Title:         input.Title,
		Description:   input.Description,
		OwnerID:       actor.UserID,
		OwnerUsername: actor.Username,
	}

	if _, err := s.taskRepo.Create(ctx, tx, task); err != nil {
		return nil, err
	}

	if err := s.assigneeRepo.Add(ctx, tx, task.ID, userIDs(assignees)); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, tx, task.ID, actor, domain.ActionTaskCreated, nil, strPtr(task.Title)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	hydrated, err := s.hydrateTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventTaskCreated, hydrated)

	slog.Info("task created",
		"task_id", task.ID,
		"owner_id", actor.UserID,
		"assignees", len(assignees),
	)

	return hydrated, nil
}

// FindTasksForUser returns one page of tasks where the user is owner or
// assignee, newest first, optionally filtered by a case-insensitive title
// substring. Items carry their assignees and comments.
func (s *TaskService) FindTasksForUser(
	ctx context.Context,
	userID string,
	search string,
	page, size int,
) (*TaskPage, error) {
	page, size = normalizePage(page, size, DefaultTaskPageSize)

	tasks, total, err := s.taskRepo.ListForUser(ctx, userID, search, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	for _, task := range tasks {
		assignees, err := s.assigneeRepo.GetByTaskID(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		comments, err := s.commentRepo.GetByTaskID(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		if assignees == nil {
			assignees = []domain.User{}
		}
		if comments == nil {
			comments = []*domain.Comment{}
		}
		task.Assignees = assignees
		task.Comments = comments
	}

	return &TaskPage{
		Items:      tasks,
		Total:      total,
		Page:       page,
		Size:       size,
		TotalPages: totalPages(total, size),
	}, nil
}

// FindTaskByID returns the fully hydrated task. Fails with ErrTaskNotFound
// for an unknown id and ErrForbidden when the user is neither owner nor
// assignee.
func (s *TaskService) FindTaskByID(ctx context.Context, taskID, userID string) (*domain.Task, error) {
	task, err := s.hydrateTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.CanView(task, userID); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask merges the patch into the task under a row lock, reconciles
// the assignee set when the patch carries one, writes one audit entry per
// changed aspect in the fixed order status, priority, assignees, and emits
// task_updated with the post-audit hydrated snapshot. Any participant may
// update, not only the owner; audit entries are attributed to the actor.
func (s *TaskService) UpdateTask(
	ctx context.Context,
	taskID string,
	actor Actor,
	patch UpdateTaskInput,
) (*domain.Task, error) {
	if err := s.validator.ValidateUpdate(patch); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := s.taskRepo.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	currentAssignees, err := s.assigneeRepo.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.Assignees = currentAssignees

	if err := s.validator.CanUpdate(task, actor.UserID); err != nil {
		return nil, err
	}

	oldStatus := task.Status
	oldPriority := task.Priority

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = patch.Description
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}

	if err := s.taskRepo.Update(ctx, tx, task); err != nil {
		return nil, err
	}

	var delta ReconcileResult
	if patch.AssigneeIDs != nil {
		delta, err = s.reconciler.Reconcile(ctx, tx, taskID, currentAssignees, *patch.AssigneeIDs)
		if err != nil {
			return nil, err
		}
	}

	// One audit entry per changed aspect; no-op writes produce none.
	if task.Status != oldStatus {
		err = s.audit.Record(ctx, tx, taskID, actor, domain.ActionStatusChanged,
			strPtr(string(oldStatus)), strPtr(string(task.Status)))
		if err != nil {
			return nil, err
		}
	}
	if task.Priority != oldPriority {
		err = s.audit.Record(ctx, tx, taskID, actor, domain.ActionPriorityChanged,
			strPtr(string(oldPriority)), strPtr(string(task.Priority)))
		if err != nil {
			return nil, err
		}
	}
	if delta.Changed() {
		err = s.audit.Record(ctx, tx, taskID, actor, domain.ActionAssigneesChanged,
			strPtr(AssigneeValue(currentAssignees)), strPtr(AssigneeValue(delta.Target)))
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	// Re-read so the snapshot carries the freshly written audit rows.
	hydrated, err := s.hydrateTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventTaskUpdated, hydrated)

	slog.Info("task updated",
		"task_id", taskID,
		"actor_id", actor.UserID,
		"added_assignees", len(delta.Added),
		"removed_assignees", len(delta.Removed),
	)

	return hydrated, nil
}

// DeleteTask removes a task and, by cascade, its comments, assignee links
// and history. Only the owner may delete. Returns the task's last-known
// hydrated state.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, ownerID string) (*domain.Task, error) {
	snapshot, err := s.hydrateTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.CanDelete(snapshot, ownerID); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	if err := s.taskRepo.Delete(ctx, tx, taskID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if s.opts.PublishDeletes {
		s.publish(ctx, domain.EventTaskDeleted, snapshot)
	}

	slog.Info("task deleted", "task_id", taskID, "owner_id", ownerID)

	return snapshot, nil
}

// AddComment appends an immutable comment to an existing task and emits
// comment_created. Authorization beyond task existence is applied only
// when RestrictComments is set.
func (s *TaskService) AddComment(
	ctx context.Context,
	taskID string,
	actor Actor,
	content string,
) (*domain.Comment, error) {
	if content == "" {
		return nil, domain.ErrEmptyComment
	}

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if s.opts.RestrictComments {
		assignees, err := s.assigneeRepo.GetByTaskID(ctx, taskID)
		if err != nil {
			return nil, err
		}
		task.Assignees = assignees
		if err := s.validator.CanView(task, actor.UserID); err != nil {
			return nil, err
		}
	}

	comment := &domain.Comment{
		TaskID:         taskID,
		Content:        content,
		AuthorID:       actor.UserID,
		AuthorUsername: actor.Username,
	}

	if _, err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventCommentCreated, comment)

	slog.Info("comment created",
		"task_id", taskID,
		"comment_id", comment.ID,
		"author_id", actor.UserID,
	)

	return comment, nil
}

// FindCommentsForTask returns one page of a task's comments, newest first.
// Fails with ErrTaskNotFound for an unknown task and ErrForbidden when the
// user is neither owner nor assignee.
func (s *TaskService) FindCommentsForTask(
	ctx context.Context,
	taskID, userID string,
	page, size int,
) (*CommentPage, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	assignees, err := s.assigneeRepo.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.Assignees = assignees
	if err := s.validator.CanView(task, userID); err != nil {
		return nil, err
	}

	page, size = normalizePage(page, size, DefaultCommentPageSize)

	comments, total, err := s.commentRepo.ListByTaskID(ctx, taskID, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}

	return &CommentPage{
		Items:      comments,
		Total:      total,
		Page:       page,
		Size:       size,
		TotalPages: totalPages(total, size),
	}, nil
}
