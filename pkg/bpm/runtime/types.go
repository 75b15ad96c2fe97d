package runtime

import (
	"time"
)

// ProcessDefinition is one deployed version of a process. For a given Key the
// registry holds at most one definition per Version, and Version strictly
// increases with each deploy. The definition text is opaque to the runtime;
// it is produced and consumed by the external diagram editor only.
type ProcessDefinition struct {
	Id                  string    `json:"id"`
	Key                 string    `json:"key"`
	Name                string    `json:"name"`
	Version             int32     `json:"version"`
	BpmnXml             string    `json:"bpmnXml"`
	DeploymentTime      time.Time `json:"deploymentTime"`
	Suspended           bool      `json:"suspended"`
	StartableInTasklist bool      `json:"startableInTasklist"`
}

type ProcessStatus string

const (
	ProcessStatusActive     ProcessStatus = "ACTIVE"
	ProcessStatusSuspended  ProcessStatus = "SUSPENDED"
	ProcessStatusCompleted  ProcessStatus = "COMPLETED"
	ProcessStatusTerminated ProcessStatus = "TERMINATED"
	ProcessStatusFailed     ProcessStatus = "FAILED"
)

// Terminal reports whether no further lifecycle transition applies.
func (s ProcessStatus) Terminal() bool {
	return s == ProcessStatusCompleted || s == ProcessStatusTerminated || s == ProcessStatusFailed
}

// ProcessInstance is a runtime instance of a ProcessDefinition. Definition
// id/key/name are captured at creation time, not live-joined. The instance
// never transitions on its own; every status change is externally triggered.
type ProcessInstance struct {
	Id                    string              `json:"id"`
	ProcessDefinitionId   string              `json:"processDefinitionId"`
	ProcessDefinitionKey  string              `json:"processDefinitionKey"`
	ProcessDefinitionName string              `json:"processDefinitionName"`
	BusinessKey           string              `json:"businessKey,omitempty"`
	Status                ProcessStatus       `json:"status"`
	StartTime             time.Time           `json:"startTime"`
	EndTime               *time.Time          `json:"endTime,omitempty"`
	Duration              *int64              `json:"duration,omitempty"` // milliseconds, set together with EndTime
	StartUserId           string              `json:"startUserId,omitempty"`
	Suspended             bool                `json:"suspended"`
	Variables             map[string]Variable `json:"variables"`
	CurrentActivities     []string            `json:"currentActivities"`
}

// GetVariable returns the raw value of a process variable, or nil.
func (pi *ProcessInstance) GetVariable(name string) interface{} {
	v, ok := pi.Variables[name]
	if !ok {
		return nil
	}
	return v.Value
}

// VariableValues flattens the typed variable map into name -> raw value.
func (pi *ProcessInstance) VariableValues() map[string]interface{} {
	result := make(map[string]interface{}, len(pi.Variables))
	for name, v := range pi.Variables {
		result[name] = v.Value
	}
	return result
}

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusAssigned  TaskStatus = "ASSIGNED"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	// Declared task states with no operation reaching them; kept for parity
	// with the status partition used by statistics and filters.
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// Task is a human task bound to a process instance. Tasks are created
// explicitly; the runtime does not derive them from the definition text.
type Task struct {
	Id                  string              `json:"id"`
	Name                string              `json:"name"`
	Description         string              `json:"description,omitempty"`
	ProcessInstanceId   string              `json:"processInstanceId"`
	ProcessDefinitionId string              `json:"processDefinitionId"`
	TaskDefinitionKey   string              `json:"taskDefinitionKey"`
	Status              TaskStatus          `json:"status"`
	Assignee            string              `json:"assignee,omitempty"`
	CandidateUsers      []string            `json:"candidateUsers,omitempty"`
	CandidateGroups     []string            `json:"candidateGroups,omitempty"`
	CreateTime          time.Time           `json:"createTime"`
	DueDate             *time.Time          `json:"dueDate,omitempty"`
	Priority            int                 `json:"priority"`
	Variables           map[string]Variable `json:"variables"`
	Suspended           bool                `json:"suspended"`
}

// GetVariable returns the raw value of a task variable, or nil.
func (t *Task) GetVariable(name string) interface{} {
	v, ok := t.Variables[name]
	if !ok {
		return nil
	}
	return v.Value
}

// VariableValues flattens the typed variable map into name -> raw value.
func (t *Task) VariableValues() map[string]interface{} {
	result := make(map[string]interface{}, len(t.Variables))
	for name, v := range t.Variables {
		result[name] = v.Value
	}
	return result
}

type EventType string

const (
	EventProcessStarted    EventType = "PROCESS_STARTED"
	EventProcessCompleted  EventType = "PROCESS_COMPLETED"
	EventProcessTerminated EventType = "PROCESS_TERMINATED"
	EventTaskCreated       EventType = "TASK_CREATED"
	EventTaskAssigned      EventType = "TASK_ASSIGNED"
	EventTaskCompleted     EventType = "TASK_COMPLETED"
)

// ExecutionEvent is one entry of the pull-only audit log kept by the
// instance and task services. Events are appended in call order and are
// never delivered to a consumer; they are queried by correlation id.
type ExecutionEvent struct {
	Key               int64                  `json:"key"`
	Type              EventType              `json:"type"`
	ProcessInstanceId string                 `json:"processInstanceId"`
	ActivityId        string                 `json:"activityId,omitempty"`
	ActivityName      string                 `json:"activityName,omitempty"`
	TaskId            string                 `json:"taskId,omitempty"`
	UserId            string                 `json:"userId,omitempty"`
	Timestamp         time.Time              `json:"timestamp"`
	Variables         map[string]interface{} `json:"variables,omitempty"`
	Message           string                 `json:"message,omitempty"`
}
