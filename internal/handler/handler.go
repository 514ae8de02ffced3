// Package handler exposes the task command interface over the message
// broker: it decodes command payloads, dispatches them to the service
// layer and encodes the reply the gateway expects.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JoaoMaganin/syncflow/internal/domain"
	"github.com/JoaoMaganin/syncflow/internal/handler/dto"
	"github.com/JoaoMaganin/syncflow/internal/service"
)

// Command patterns accepted by Dispatch. The names are part of the wire
// contract with the gateway.
const (
	CmdCreateTask   = "create_task"
	CmdFindAllTasks = "find_all_tasks_for_user"
	CmdFindTaskByID = "find_task_by_id"
	CmdUpdateTask   = "update_task"
	CmdDeleteTask   = "delete_task"
	CmdAddComment   = "add_comment_to_task"
	CmdFindComments = "find_comments_for_task"
)

// TaskCommands is the slice of the service layer the handler dispatches
// into.
type TaskCommands interface {
	CreateTask(ctx context.Context, actor service.Actor, input service.CreateTaskInput) (*domain.Task, error)
	FindTasksForUser(ctx context.Context, userID, search string, page, size int) (*service.TaskPage, error)
	FindTaskByID(ctx context.Context, taskID, userID string) (*domain.Task, error)
	UpdateTask(ctx context.Context, taskID string, actor service.Actor, patch service.UpdateTaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, taskID, ownerID string) (*domain.Task, error)
	AddComment(ctx context.Context, taskID string, actor service.Actor, content string) (*domain.Comment, error)
	FindCommentsForTask(ctx context.Context, taskID, userID string, page, size int) (*service.CommentPage, error)
}

// ErrMalformedPayload marks command payloads that fail to decode. The
// server reports these back to the caller instead of treating them as
// internal faults.
var ErrMalformedPayload = errors.New("malformed payload")

// ErrUnknownPattern rejects a command the handler has no dispatch for.
type ErrUnknownPattern struct {
	Pattern string
}

func (e *ErrUnknownPattern) Error() string {
	return fmt.Sprintf("unknown command pattern: %q", e.Pattern)
}

// Handler dispatches decoded commands to the task service.
type Handler struct {
	svc TaskCommands
}

// New creates a Handler backed by the given command service.
func New(svc TaskCommands) *Handler {
	return &Handler{svc: svc}
}

// Dispatch decodes payload according to pattern, runs the command and
// returns the value to serialize into the reply. A malformed payload or
// unknown pattern is an error like any other; the caller decides how to
// report it.
func (h *Handler) Dispatch(ctx context.Context, pattern string, payload json.RawMessage) (any, error) {
	switch pattern {
	case CmdCreateTask:
		var req dto.CreateTaskRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrMalformedPayload, pattern, err)
		}
		actor := service.Actor{UserID: req.OwnerID, Username: req.OwnerUsername}
		return h.svc.CreateTask(ctx, actor, service.CreateTaskInput{
			Title:       req.CreateTaskDto.Title,
			Description: req.CreateTaskDto.Description,
			AssigneeIDs: req.CreateTaskDto.AssigneeIDs,
		})

	case CmdFindAllTasks:
		var req dto.FindAllTasksRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrMalformedPayload, pattern, err)
		}
		return h.svc.FindTasksForUser(ctx, req.UserID, req.Search, req.Page, req.Size)

	case CmdFindTaskByID:
		var req dto.FindTaskByIDRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrMalformedPayload, pattern, err)
		}
		return h.svc.FindTaskByID(ctx, req.ID, req.UserID)

	case CmdUpdateTask:
		var req dto.UpdateTaskRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrMalformedPayload, pattern, err)
		}
		actor := service.Actor{UserID: req.UserID, Username: req.Username}
		return h.svc.UpdateTask(ctx, req.ID, actor, toUpdateInput(req.UpdateTaskDto))

	case CmdDeleteTask:
		var req dto.DeleteTaskRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrMalformedPayload, pattern, err)
		}
		return h.svc.DeleteTask(ctx, req.ID, req.OwnerID)

	case CmdAddComment:
		var req dto.AddCommentRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrMalformedPayload, pattern, err)
		}
		actor := service.Actor{UserID: req.AuthorID, Username: req.AuthorUsername}
		return h.svc.AddComment(ctx, req.TaskID, actor, req.CreateCommentDto.Content)

	case CmdFindComments:
		var req dto.FindCommentsRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrMalformedPayload, pattern, err)
		}
		return h.svc.FindCommentsForTask(ctx, req.TaskID, req.UserID, req.Page, req.Size)

	default:
		return nil, &ErrUnknownPattern{Pattern: pattern}
	}
}

func toUpdateInput(d dto.UpdateTaskDto) service.UpdateTaskInput {
	patch := service.UpdateTaskInput{
		Title:       d.Title,
		Description: d.Description,
		AssigneeIDs: d.AssigneeIDs,
	}
	if d.Priority != nil {
		p := domain.TaskPriority(*d.Priority)
		patch.Priority = &p
	}
	if d.Status != nil {
		s := domain.TaskStatus(*d.Status)
		patch.Status = &s
	}
	return patch
}
