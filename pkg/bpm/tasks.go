package bpm

import (
	"context"
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"github.com/lotflow/lotflow/pkg/bpm/runtime"
	"github.com/lotflow/lotflow/pkg/storage"
)

// TaskService tracks human tasks bound to process instances. Tasks move
// PENDING -> ASSIGNED (assign/claim) -> COMPLETED, with unassign resetting
// to PENDING. Claiming as a non-candidate and completing without an
// assignee are the only operations that fail; everything else treats an
// unknown id as a nil sentinel.
type TaskService struct {
	store interface {
		storage.TaskStorageReader
		storage.TaskStorageWriter
	}
	snowflake *snowflake.Node
	events    []runtime.ExecutionEvent
}

// TaskFilter narrows Tasks results; zero-valued fields are ignored and the
// remaining criteria are AND-combined.
type TaskFilter struct {
	Status            runtime.TaskStatus
	Assignee          string
	CandidateUser     string
	CandidateGroup    string
	ProcessInstanceId string
}

type TaskStatistics struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Assigned   int `json:"assigned"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

const defaultTaskPriority = 50

func NewTaskService(store storage.Storage, node *snowflake.Node) *TaskService {
	return &TaskService{
		store:     store,
		snowflake: node,
		events:    []runtime.ExecutionEvent{},
	}
}

// CreateTask creates a standalone task in status PENDING.
func (s *TaskService) CreateTask(
	ctx context.Context,
	processInstanceId string,
	processDefinitionId string,
	taskDefinitionKey string,
	name string,
	description string,
) (*runtime.Task, error) {
	task := runtime.Task{
		Id:                  uuid.NewString(),
		Name:                name,
		Description:         description,
		ProcessInstanceId:   processInstanceId,
		ProcessDefinitionId: processDefinitionId,
		TaskDefinitionKey:   taskDefinitionKey,
		Status:              runtime.TaskStatusPending,
		CreateTime:          time.Now(),
		Priority:            defaultTaskPriority,
		Variables:           map[string]runtime.Variable{},
	}
	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}

	s.addEvent(runtime.ExecutionEvent{
		Key:               s.snowflake.Generate().Int64(),
		Type:              runtime.EventTaskCreated,
		ProcessInstanceId: processInstanceId,
		TaskId:            task.Id,
		ActivityId:        taskDefinitionKey,
		ActivityName:      name,
		Timestamp:         time.Now(),
	})

	return &task, nil
}

// Task returns the task with the given id, or nil.
func (s *TaskService) Task(ctx context.Context, id string) *runtime.Task {
	task, err := s.store.FindTaskById(ctx, id)
	if err != nil {
		return nil
	}
	return &task
}

// Tasks returns all tasks matching the filter.
func (s *TaskService) Tasks(ctx context.Context, filter TaskFilter) []runtime.Task {
	tasks, err := s.store.FindTasks(ctx)
	if err != nil {
		return nil
	}
	result := make([]runtime.Task, 0, len(tasks))
	for _, task := range tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Assignee != "" && task.Assignee != filter.Assignee {
			continue
		}
		if filter.CandidateUser != "" && !slices.Contains(task.CandidateUsers, filter.CandidateUser) {
			continue
		}
		if filter.CandidateGroup != "" && !slices.Contains(task.CandidateGroups, filter.CandidateGroup) {
			continue
		}
		if filter.ProcessInstanceId != "" && task.ProcessInstanceId != filter.ProcessInstanceId {
			continue
		}
		result = append(result, task)
	}
	return result
}

// AssignTask sets the assignee unconditionally; candidates are not checked.
func (s *TaskService) AssignTask(ctx context.Context, id, userId string) *runtime.Task {
	task := s.Task(ctx, id)
	if task == nil {
		return nil
	}
	task.Assignee = userId
	task.Status = runtime.TaskStatusAssigned
	if err := s.store.SaveTask(ctx, *task); err != nil {
		return nil
	}

	s.addEvent(runtime.ExecutionEvent{
		Key:               s.snowflake.Generate().Int64(),
		Type:              runtime.EventTaskAssigned,
		ProcessInstanceId: task.ProcessInstanceId,
		TaskId:            task.Id,
		ActivityId:        task.TaskDefinitionKey,
		ActivityName:      task.Name,
		UserId:            userId,
		Timestamp:         time.Now(),
	})

	return task
}

// ClaimTask lets a candidate take the task. It fails with an
// AuthorizationError when the task has candidate users, the user is not
// among them, and the user is not already the assignee.
func (s *TaskService) ClaimTask(ctx context.Context, id, userId string) (*runtime.Task, error) {
	task := s.Task(ctx, id)
	if task == nil {
		return nil, nil
	}

	if len(task.CandidateUsers) > 0 &&
		!slices.Contains(task.CandidateUsers, userId) &&
		task.Assignee != userId {
		return nil, newAuthorizationErrorf("user %s is not a candidate for task %s", userId, id)
	}

	return s.AssignTask(ctx, id, userId), nil
}

// UnassignTask clears the assignee and resets the task to PENDING.
func (s *TaskService) UnassignTask(ctx context.Context, id string) *runtime.Task {
	task := s.Task(ctx, id)
	if task == nil {
		return nil
	}
	task.Assignee = ""
	task.Status = runtime.TaskStatusPending
	if err := s.store.SaveTask(ctx, *task); err != nil {
		return nil
	}
	return task
}

// CompleteTask finishes the task, merging the supplied variables into its
// variable map. It fails when the task has no assignee, regardless of the
// task's status.
func (s *TaskService) CompleteTask(ctx context.Context, id string, variables map[string]interface{}) (*runtime.Task, error) {
	task := s.Task(ctx, id)
	if task == nil {
		return nil, nil
	}

	if task.Assignee == "" {
		return nil, newEngineErrorf("task %s cannot be completed without an assignee", id)
	}

	task.Status = runtime.TaskStatusCompleted
	for name, value := range variables {
		task.Variables[name] = runtime.NewTaskVariable(task.Id, name, value)
	}
	if err := s.store.SaveTask(ctx, *task); err != nil {
		return nil, err
	}

	s.addEvent(runtime.ExecutionEvent{
		Key:               s.snowflake.Generate().Int64(),
		Type:              runtime.EventTaskCompleted,
		ProcessInstanceId: task.ProcessInstanceId,
		TaskId:            task.Id,
		ActivityId:        task.TaskDefinitionKey,
		ActivityName:      task.Name,
		UserId:            task.Assignee,
		Timestamp:         time.Now(),
		Variables:         variables,
	})

	return task, nil
}

// DeleteTask removes the task from the store.
func (s *TaskService) DeleteTask(ctx context.Context, id string) bool {
	deleted, err := s.store.DeleteTask(ctx, id)
	if err != nil {
		return false
	}
	return deleted
}

// AddCandidateUser adds a candidate user, idempotently.
func (s *TaskService) AddCandidateUser(ctx context.Context, id, userId string) *runtime.Task {
	task := s.Task(ctx, id)
	if task == nil {
		return nil
	}
	if !slices.Contains(task.CandidateUsers, userId) {
		task.CandidateUsers = append(task.CandidateUsers, userId)
		if err := s.store.SaveTask(ctx, *task); err != nil {
			return nil
		}
	}
	return task
}

// AddCandidateGroup adds a candidate group, idempotently.
func (s *TaskService) AddCandidateGroup(ctx context.Context, id, groupId string) *runtime.Task {
	task := s.Task(ctx, id)
	if task == nil {
		return nil
	}
	if !slices.Contains(task.CandidateGroups, groupId) {
		task.CandidateGroups = append(task.CandidateGroups, groupId)
		if err := s.store.SaveTask(ctx, *task); err != nil {
			return nil
		}
	}
	return task
}

// SetVariable sets one typed task variable.
func (s *TaskService) SetVariable(ctx context.Context, id, name string, value interface{}) bool {
	task := s.Task(ctx, id)
	if task == nil {
		return false
	}
	task.Variables[name] = runtime.NewTaskVariable(id, name, value)
	return s.store.SaveTask(ctx, *task) == nil
}

// Variable returns the raw value of one task variable, or nil.
func (s *TaskService) Variable(ctx context.Context, id, name string) interface{} {
	task := s.Task(ctx, id)
	if task == nil {
		return nil
	}
	return task.GetVariable(name)
}

// Variables returns all task variables as name -> raw value.
func (s *TaskService) Variables(ctx context.Context, id string) map[string]interface{} {
	task := s.Task(ctx, id)
	if task == nil {
		return map[string]interface{}{}
	}
	return task.VariableValues()
}

// SetPriority updates the task priority.
func (s *TaskService) SetPriority(ctx context.Context, id string, priority int) *runtime.Task {
	task := s.Task(ctx, id)
	if task == nil {
		return nil
	}
	task.Priority = priority
	if err := s.store.SaveTask(ctx, *task); err != nil {
		return nil
	}
	return task
}

// SetDueDate updates the task due date.
func (s *TaskService) SetDueDate(ctx context.Context, id string, dueDate time.Time) *runtime.Task {
	task := s.Task(ctx, id)
	if task == nil {
		return nil
	}
	task.DueDate = &dueDate
	if err := s.store.SaveTask(ctx, *task); err != nil {
		return nil
	}
	return task
}

func (s *TaskService) addEvent(event runtime.ExecutionEvent) {
	s.events = append(s.events, event)
}

// Events returns the audit log, optionally filtered by task id.
func (s *TaskService) Events(taskId string) []runtime.ExecutionEvent {
	if taskId == "" {
		return slices.Clone(s.events)
	}
	result := make([]runtime.ExecutionEvent, 0)
	for _, e := range s.events {
		if e.TaskId == taskId {
			result = append(result, e)
		}
	}
	return result
}

// Statistics counts tasks by status.
func (s *TaskService) Statistics(ctx context.Context) TaskStatistics {
	tasks, err := s.store.FindTasks(ctx)
	if err != nil {
		return TaskStatistics{}
	}
	stats := TaskStatistics{Total: len(tasks)}
	for _, task := range tasks {
		switch task.Status {
		case runtime.TaskStatusPending:
			stats.Pending++
		case runtime.TaskStatusAssigned:
			stats.Assigned++
		case runtime.TaskStatusInProgress:
			stats.InProgress++
		case runtime.TaskStatusCompleted:
			stats.Completed++
		case runtime.TaskStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}
