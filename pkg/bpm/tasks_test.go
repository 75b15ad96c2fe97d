package bpm

import (
	"context"
	"testing"
	"time"

	"github.com/lotflow/lotflow/pkg/bpm/runtime"
	"github.com/lotflow/lotflow/pkg/storage/inmemory"
	"github.com/stretchr/testify/assert"
)

func createTask(t *testing.T, name string) *runtime.Task {
	t.Helper()
	task, err := engine.Tasks().CreateTask(context.Background(), "instance-1", "definition-1", "quality-check", name, "")
	assert.NoError(t, err)
	return task
}

func TestCreateTaskDefaults(t *testing.T) {
	task := createTask(t, "Check oven temperature")

	assert.Equal(t, runtime.TaskStatusPending, task.Status)
	assert.Equal(t, defaultTaskPriority, task.Priority)
	assert.Empty(t, task.Assignee)
	assert.False(t, task.CreateTime.IsZero())
}

func TestAssignTaskSkipsCandidateCheck(t *testing.T) {
	ctx := context.Background()
	task := createTask(t, "Verify metal detector")
	engine.Tasks().AddCandidateUser(ctx, task.Id, "inspector-1")

	assigned := engine.Tasks().AssignTask(ctx, task.Id, "outsider")
	assert.Equal(t, "outsider", assigned.Assignee)
	assert.Equal(t, runtime.TaskStatusAssigned, assigned.Status)
}

func TestClaimTaskAuthorization(t *testing.T) {
	ctx := context.Background()
	tasks := engine.Tasks()

	task := createTask(t, "Release batch")
	tasks.AddCandidateUser(ctx, task.Id, "qa-lead")

	// non-candidate is rejected
	claimed, err := tasks.ClaimTask(ctx, task.Id, "intruder")
	assert.Nil(t, claimed)
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	// candidate may claim
	claimed, err = tasks.ClaimTask(ctx, task.Id, "qa-lead")
	assert.NoError(t, err)
	assert.Equal(t, "qa-lead", claimed.Assignee)
}

func TestClaimTaskWithoutCandidatesIsOpen(t *testing.T) {
	ctx := context.Background()
	task := createTask(t, "Label pallets")

	claimed, err := engine.Tasks().ClaimTask(ctx, task.Id, "anyone")
	assert.NoError(t, err)
	assert.Equal(t, "anyone", claimed.Assignee)
}

func TestClaimTaskByCurrentAssignee(t *testing.T) {
	ctx := context.Background()
	tasks := engine.Tasks()

	task := createTask(t, "Sample swab")
	tasks.AddCandidateUser(ctx, task.Id, "lab-1")
	tasks.AssignTask(ctx, task.Id, "supervisor")

	// the assignee keeps the task even without being a candidate
	claimed, err := tasks.ClaimTask(ctx, task.Id, "supervisor")
	assert.NoError(t, err)
	assert.Equal(t, "supervisor", claimed.Assignee)
}

func TestCompleteTaskRequiresAssignee(t *testing.T) {
	ctx := context.Background()
	tasks := engine.Tasks()

	task := createTask(t, "Record water activity")

	completed, err := tasks.CompleteTask(ctx, task.Id, nil)
	assert.Nil(t, completed)
	var engineErr *EngineError
	assert.ErrorAs(t, err, &engineErr)

	tasks.AssignTask(ctx, task.Id, "operator-2")
	completed, err = tasks.CompleteTask(ctx, task.Id, map[string]interface{}{"aw": 0.91})
	assert.NoError(t, err)
	assert.Equal(t, runtime.TaskStatusCompleted, completed.Status)
	assert.Equal(t, 0.91, completed.GetVariable("aw"))
	assert.Equal(t, runtime.VariableTypeDouble, completed.Variables["aw"].Type)
}

func TestUnassignTaskResetsToPending(t *testing.T) {
	ctx := context.Background()
	tasks := engine.Tasks()

	task := createTask(t, "Check seals")
	tasks.AssignTask(ctx, task.Id, "operator-3")

	unassigned := tasks.UnassignTask(ctx, task.Id)
	assert.Empty(t, unassigned.Assignee)
	assert.Equal(t, runtime.TaskStatusPending, unassigned.Status)
}

func TestCandidateInsertionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tasks := engine.Tasks()

	task := createTask(t, "Calibrate probe")
	tasks.AddCandidateUser(ctx, task.Id, "tech-1")
	tasks.AddCandidateUser(ctx, task.Id, "tech-1")
	tasks.AddCandidateGroup(ctx, task.Id, "maintenance")
	tasks.AddCandidateGroup(ctx, task.Id, "maintenance")

	stored := tasks.Task(ctx, task.Id)
	assert.Equal(t, []string{"tech-1"}, stored.CandidateUsers)
	assert.Equal(t, []string{"maintenance"}, stored.CandidateGroups)
}

func TestTaskPriorityAndDueDate(t *testing.T) {
	ctx := context.Background()
	tasks := engine.Tasks()

	task := createTask(t, "Review CCP log")
	due := time.Now().Add(24 * time.Hour)

	tasks.SetPriority(ctx, task.Id, 90)
	tasks.SetDueDate(ctx, task.Id, due)

	stored := tasks.Task(ctx, task.Id)
	assert.Equal(t, 90, stored.Priority)
	assert.NotNil(t, stored.DueDate)
	assert.True(t, stored.DueDate.Equal(due))
}

func TestTaskFilter(t *testing.T) {
	ctx := context.Background()
	fresh := NewEngine(inmemory.NewStorage())
	tasks := fresh.Tasks()

	a, _ := tasks.CreateTask(ctx, "instance-a", "def-1", "inspect", "Inspect", "")
	b, _ := tasks.CreateTask(ctx, "instance-a", "def-1", "pack", "Pack", "")
	tasks.CreateTask(ctx, "instance-b", "def-1", "inspect", "Inspect", "")

	tasks.AddCandidateUser(ctx, a.Id, "qa-1")
	tasks.AddCandidateGroup(ctx, b.Id, "packers")
	tasks.AssignTask(ctx, b.Id, "packer-7")

	assert.Len(t, tasks.Tasks(ctx, TaskFilter{ProcessInstanceId: "instance-a"}), 2)
	assert.Len(t, tasks.Tasks(ctx, TaskFilter{CandidateUser: "qa-1"}), 1)
	assert.Len(t, tasks.Tasks(ctx, TaskFilter{CandidateGroup: "packers"}), 1)
	assert.Len(t, tasks.Tasks(ctx, TaskFilter{Assignee: "packer-7"}), 1)
	assert.Len(t, tasks.Tasks(ctx, TaskFilter{Status: runtime.TaskStatusPending}), 2)
	assert.Len(t, tasks.Tasks(ctx, TaskFilter{Status: runtime.TaskStatusPending, ProcessInstanceId: "instance-b"}), 1)
}

func TestUnknownTaskIsNilSentinel(t *testing.T) {
	ctx := context.Background()
	tasks := engine.Tasks()

	assert.Nil(t, tasks.Task(ctx, "missing"))
	assert.Nil(t, tasks.AssignTask(ctx, "missing", "u"))
	claimed, err := tasks.ClaimTask(ctx, "missing", "u")
	assert.Nil(t, claimed)
	assert.NoError(t, err)
	completed, err := tasks.CompleteTask(ctx, "missing", nil)
	assert.Nil(t, completed)
	assert.NoError(t, err)
}

func TestTaskEvents(t *testing.T) {
	ctx := context.Background()
	fresh := NewEngine(inmemory.NewStorage())
	tasks := fresh.Tasks()

	task, _ := tasks.CreateTask(ctx, "instance-a", "def-1", "inspect", "Inspect", "")
	tasks.AssignTask(ctx, task.Id, "qa-1")
	tasks.CompleteTask(ctx, task.Id, nil)

	events := tasks.Events(task.Id)
	assert.Len(t, events, 3)
	assert.Equal(t, runtime.EventTaskCreated, events[0].Type)
	assert.Equal(t, runtime.EventTaskAssigned, events[1].Type)
	assert.Equal(t, runtime.EventTaskCompleted, events[2].Type)
	assert.Equal(t, "qa-1", events[2].UserId)
}

func TestTaskStatistics(t *testing.T) {
	ctx := context.Background()
	fresh := NewEngine(inmemory.NewStorage())
	tasks := fresh.Tasks()

	a, _ := tasks.CreateTask(ctx, "i", "d", "k", "A", "")
	b, _ := tasks.CreateTask(ctx, "i", "d", "k", "B", "")
	tasks.CreateTask(ctx, "i", "d", "k", "C", "")

	tasks.AssignTask(ctx, a.Id, "u1")
	tasks.AssignTask(ctx, b.Id, "u2")
	tasks.CompleteTask(ctx, b.Id, nil)

	stats := tasks.Statistics(ctx)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Assigned)
	assert.Equal(t, 1, stats.Completed)
}
