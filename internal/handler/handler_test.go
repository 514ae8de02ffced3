package handler_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoaoMaganin/syncflow/internal/domain"
	"github.com/JoaoMaganin/syncflow/internal/handler"
	"github.com/JoaoMaganin/syncflow/internal/service"
)

// stubCommands records the last call per command and returns canned
// results.
type stubCommands struct {
	createActor service.Actor
	createInput service.CreateTaskInput
	createTask  *domain.Task
	createErr   error

	findUserID string
	findSearch string
	findPage   int
	findSize   int
	findResult *service.TaskPage

	byIDTaskID string
	byIDUserID string

	updateTaskID string
	updateActor  service.Actor
	updatePatch  service.UpdateTaskInput

	deleteTaskID string
	deleteOwner  string

	commentTaskID  string
	commentActor   service.Actor
	commentContent string

	listTaskID string
	listUserID string
}

func (s *stubCommands) CreateTask(_ context.Context, actor service.Actor, input service.CreateTaskInput) (*domain.Task, error) {
	s.createActor = actor
	s.createInput = input
	return s.createTask, s.createErr
}

func (s *stubCommands) FindTasksForUser(_ context.Context, userID, search string, page, size int) (*service.TaskPage, error) {
	s.findUserID = userID
	s.findSearch = search
	s.findPage = page
	s.findSize = size
	return s.findResult, nil
}

func (s *stubCommands) FindTaskByID(_ context.Context, taskID, userID string) (*domain.Task, error) {
	s.byIDTaskID = taskID
	s.byIDUserID = userID
	return &domain.Task{ID: taskID}, nil
}

func (s *stubCommands) UpdateTask(_ context.Context, taskID string, actor service.Actor, patch service.UpdateTaskInput) (*domain.Task, error) {
	s.updateTaskID = taskID
	s.updateActor = actor
	s.updatePatch = patch
	return &domain.Task{ID: taskID}, nil
}

func (s *stubCommands) DeleteTask(_ context.Context, taskID, ownerID string) (*domain.Task, error) {
	s.deleteTaskID = taskID
	s.deleteOwner = ownerID
	return &domain.Task{ID: taskID}, nil
}

func (s *stubCommands) AddComment(_ context.Context, taskID string, actor service.Actor, content string) (*domain.Comment, error) {
	s.commentTaskID = taskID
	s.commentActor = actor
	s.commentContent = content
	return &domain.Comment{TaskID: taskID, Content: content}, nil
}

func (s *stubCommands) FindCommentsForTask(_ context.Context, taskID, userID string, page, size int) (*service.CommentPage, error) {
	s.listTaskID = taskID
	s.listUserID = userID
	return &service.CommentPage{}, nil
}

func TestDispatch_CreateTask(t *testing.T) {
	stub := &stubCommands{createTask: &domain.Task{ID: "t1", Title: "Ship it"}}
	h := handler.New(stub)

	payload := json.RawMessage(`{
		"createTaskDto": {"title": "Ship it", "description": "soon", "assigneeIds": ["u2"]},
		"ownerId": "u1",
		"ownerUsername": "joaosilva"
	}`)

	result, err := h.Dispatch(context.Background(), handler.CmdCreateTask, payload)
	require.NoError(t, err)

	task, ok := result.(*domain.Task)
	require.True(t, ok)
	assert.Equal(t, "t1", task.ID)

	assert.Equal(t, service.Actor{UserID: "u1", Username: "joaosilva"}, stub.createActor)
	assert.Equal(t, "Ship it", stub.createInput.Title)
	require.NotNil(t, stub.createInput.Description)
	assert.Equal(t, "soon", *stub.createInput.Description)
	assert.Equal(t, []string{"u2"}, stub.createInput.AssigneeIDs)
}

func TestDispatch_FindAllTasks(t *testing.T) {
	stub := &stubCommands{findResult: &service.TaskPage{Total: 3}}
	h := handler.New(stub)

	payload := json.RawMessage(`{"userId": "u1", "search": "report", "page": 2, "size": 5}`)

	result, err := h.Dispatch(context.Background(), handler.CmdFindAllTasks, payload)
	require.NoError(t, err)

	page, ok := result.(*service.TaskPage)
	require.True(t, ok)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, "u1", stub.findUserID)
	assert.Equal(t, "report", stub.findSearch)
	assert.Equal(t, 2, stub.findPage)
	assert.Equal(t, 5, stub.findSize)
}

func TestDispatch_UpdateTask_AssigneePresence(t *testing.T) {
	stub := &stubCommands{}
	h := handler.New(stub)

	// Omitted assigneeIds must stay nil.
	payload := json.RawMessage(`{"id": "t1", "userId": "u1", "username": "joaosilva", "updateTaskDto": {"status": "IN_PROGRESS"}}`)
	_, err := h.Dispatch(context.Background(), handler.CmdUpdateTask, payload)
	require.NoError(t, err)
	assert.Nil(t, stub.updatePatch.AssigneeIDs)
	require.NotNil(t, stub.updatePatch.Status)
	assert.Equal(t, domain.TaskStatusInProgress, *stub.updatePatch.Status)
	assert.Equal(t, service.Actor{UserID: "u1", Username: "joaosilva"}, stub.updateActor)

	// An explicit empty array means clear all assignees.
	payload = json.RawMessage(`{"id": "t1", "userId": "u1", "username": "joaosilva", "updateTaskDto": {"assigneeIds": []}}`)
	_, err = h.Dispatch(context.Background(), handler.CmdUpdateTask, payload)
	require.NoError(t, err)
	require.NotNil(t, stub.updatePatch.AssigneeIDs)
	assert.Empty(t, *stub.updatePatch.AssigneeIDs)
}

func TestDispatch_DeleteTask(t *testing.T) {
	stub := &stubCommands{}
	h := handler.New(stub)

	payload := json.RawMessage(`{"id": "t9", "ownerId": "u1"}`)
	_, err := h.Dispatch(context.Background(), handler.CmdDeleteTask, payload)
	require.NoError(t, err)
	assert.Equal(t, "t9", stub.deleteTaskID)
	assert.Equal(t, "u1", stub.deleteOwner)
}

func TestDispatch_AddComment(t *testing.T) {
	stub := &stubCommands{}
	h := handler.New(stub)

	payload := json.RawMessage(`{
		"taskId": "t1",
		"authorId": "u2",
		"authorUsername": "mariasouza",
		"createCommentDto": {"content": "on it"}
	}`)

	result, err := h.Dispatch(context.Background(), handler.CmdAddComment, payload)
	require.NoError(t, err)

	comment, ok := result.(*domain.Comment)
	require.True(t, ok)
	assert.Equal(t, "on it", comment.Content)
	assert.Equal(t, service.Actor{UserID: "u2", Username: "mariasouza"}, stub.commentActor)
}

func TestDispatch_UnknownPattern(t *testing.T) {
	h := handler.New(&stubCommands{})

	_, err := h.Dispatch(context.Background(), "drop_database", json.RawMessage(`{}`))
	require.Error(t, err)

	var unknown *handler.ErrUnknownPattern
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "drop_database", unknown.Pattern)
}

func TestDispatch_MalformedPayload(t *testing.T) {
	h := handler.New(&stubCommands{})

	_, err := h.Dispatch(context.Background(), handler.CmdCreateTask, json.RawMessage(`not json`))
	require.ErrorIs(t, err, handler.ErrMalformedPayload)
}
