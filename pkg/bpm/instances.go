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

// InstanceService tracks runtime process instances. Instances never
// transition on their own; suspend/resume/complete/terminate are all
// externally triggered, and calls that do not match the instance's current
// status are silent no-ops returning the instance unchanged.
type InstanceService struct {
	store interface {
		storage.ProcessInstanceStorageReader
		storage.ProcessInstanceStorageWriter
	}
	snowflake *snowflake.Node
	events    []runtime.ExecutionEvent
}

// InstanceFilter narrows Instances results; zero-valued fields are ignored
// and the remaining criteria are AND-combined.
type InstanceFilter struct {
	Status               runtime.ProcessStatus
	ProcessDefinitionKey string
	BusinessKey          string
}

// InstanceStatistics counts instances by status. Status is an exhaustive
// partition, so Total always equals the sum of the per-status counts.
type InstanceStatistics struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Completed  int `json:"completed"`
	Suspended  int `json:"suspended"`
	Terminated int `json:"terminated"`
	Failed     int `json:"failed"`
}

func NewInstanceService(store storage.Storage, node *snowflake.Node) *InstanceService {
	return &InstanceService{
		store:     store,
		snowflake: node,
		events:    []runtime.ExecutionEvent{},
	}
}

// CreateInstance starts a new instance of the given definition in status
// ACTIVE. Variables are typed through the shared inference rules.
func (s *InstanceService) CreateInstance(
	ctx context.Context,
	definition runtime.ProcessDefinition,
	businessKey string,
	variables map[string]interface{},
	startUserId string,
) (*runtime.ProcessInstance, error) {
	instance := runtime.ProcessInstance{
		Id:                    uuid.NewString(),
		ProcessDefinitionId:   definition.Id,
		ProcessDefinitionKey:  definition.Key,
		ProcessDefinitionName: definition.Name,
		BusinessKey:           businessKey,
		Status:                runtime.ProcessStatusActive,
		StartTime:             time.Now(),
		StartUserId:           startUserId,
		Variables:             runtime.ConvertProcessVariables("", variables),
		CurrentActivities:     []string{},
	}
	for name, v := range instance.Variables {
		v.ProcessInstanceId = instance.Id
		instance.Variables[name] = v
	}
	if err := s.store.SaveProcessInstance(ctx, instance); err != nil {
		return nil, err
	}

	s.addEvent(runtime.ExecutionEvent{
		Key:               s.snowflake.Generate().Int64(),
		Type:              runtime.EventProcessStarted,
		ProcessInstanceId: instance.Id,
		UserId:            startUserId,
		Timestamp:         time.Now(),
		Variables:         variables,
	})

	return &instance, nil
}

// Instance returns the instance with the given id, or nil.
func (s *InstanceService) Instance(ctx context.Context, id string) *runtime.ProcessInstance {
	instance, err := s.store.FindProcessInstanceById(ctx, id)
	if err != nil {
		return nil
	}
	return &instance
}

// Instances returns all instances matching the filter.
func (s *InstanceService) Instances(ctx context.Context, filter InstanceFilter) []runtime.ProcessInstance {
	instances, err := s.store.FindProcessInstances(ctx)
	if err != nil {
		return nil
	}
	result := make([]runtime.ProcessInstance, 0, len(instances))
	for _, instance := range instances {
		if filter.Status != "" && instance.Status != filter.Status {
			continue
		}
		if filter.ProcessDefinitionKey != "" && instance.ProcessDefinitionKey != filter.ProcessDefinitionKey {
			continue
		}
		if filter.BusinessKey != "" && instance.BusinessKey != filter.BusinessKey {
			continue
		}
		result = append(result, instance)
	}
	return result
}

// SuspendInstance moves an ACTIVE instance to SUSPENDED. Any other status
// leaves the instance unchanged.
func (s *InstanceService) SuspendInstance(ctx context.Context, id string) *runtime.ProcessInstance {
	instance := s.Instance(ctx, id)
	if instance == nil {
		return nil
	}
	if instance.Status != runtime.ProcessStatusActive {
		return instance
	}
	instance.Status = runtime.ProcessStatusSuspended
	instance.Suspended = true
	if err := s.store.SaveProcessInstance(ctx, *instance); err != nil {
		return nil
	}
	return instance
}

// ResumeInstance moves a SUSPENDED instance back to ACTIVE. Any other
// status leaves the instance unchanged.
func (s *InstanceService) ResumeInstance(ctx context.Context, id string) *runtime.ProcessInstance {
	instance := s.Instance(ctx, id)
	if instance == nil {
		return nil
	}
	if instance.Status != runtime.ProcessStatusSuspended {
		return instance
	}
	instance.Status = runtime.ProcessStatusActive
	instance.Suspended = false
	if err := s.store.SaveProcessInstance(ctx, *instance); err != nil {
		return nil
	}
	return instance
}

// CompleteInstance ends a non-terminal instance in status COMPLETED,
// stamping end time and duration.
func (s *InstanceService) CompleteInstance(ctx context.Context, id string) *runtime.ProcessInstance {
	instance, changed := s.end(ctx, id, runtime.ProcessStatusCompleted)
	if changed {
		s.addEvent(runtime.ExecutionEvent{
			Key:               s.snowflake.Generate().Int64(),
			Type:              runtime.EventProcessCompleted,
			ProcessInstanceId: instance.Id,
			Timestamp:         time.Now(),
		})
	}
	return instance
}

// TerminateInstance ends a non-terminal instance in status TERMINATED. The
// optional reason is carried on the audit event.
func (s *InstanceService) TerminateInstance(ctx context.Context, id string, reason string) *runtime.ProcessInstance {
	instance, changed := s.end(ctx, id, runtime.ProcessStatusTerminated)
	if changed {
		s.addEvent(runtime.ExecutionEvent{
			Key:               s.snowflake.Generate().Int64(),
			Type:              runtime.EventProcessTerminated,
			ProcessInstanceId: instance.Id,
			Timestamp:         time.Now(),
			Message:           reason,
		})
	}
	return instance
}

func (s *InstanceService) end(ctx context.Context, id string, status runtime.ProcessStatus) (instance *runtime.ProcessInstance, changed bool) {
	instance = s.Instance(ctx, id)
	if instance == nil {
		return nil, false
	}
	if instance.Status.Terminal() {
		return instance, false
	}
	now := time.Now()
	duration := now.Sub(instance.StartTime).Milliseconds()
	instance.Status = status
	instance.Suspended = false
	instance.EndTime = &now
	instance.Duration = &duration
	if err := s.store.SaveProcessInstance(ctx, *instance); err != nil {
		return nil, false
	}
	return instance, true
}

// DeleteInstance removes the instance from the store.
func (s *InstanceService) DeleteInstance(ctx context.Context, id string) bool {
	deleted, err := s.store.DeleteProcessInstance(ctx, id)
	if err != nil {
		return false
	}
	return deleted
}

// SetVariable sets one typed process variable. Variables stay mutable in
// every status, terminal ones included.
func (s *InstanceService) SetVariable(ctx context.Context, id, name string, value interface{}) bool {
	instance := s.Instance(ctx, id)
	if instance == nil {
		return false
	}
	instance.Variables[name] = runtime.NewProcessVariable(id, name, value)
	return s.store.SaveProcessInstance(ctx, *instance) == nil
}

// Variable returns the raw value of one process variable, or nil.
func (s *InstanceService) Variable(ctx context.Context, id, name string) interface{} {
	instance := s.Instance(ctx, id)
	if instance == nil {
		return nil
	}
	return instance.GetVariable(name)
}

// Variables returns all process variables as name -> raw value.
func (s *InstanceService) Variables(ctx context.Context, id string) map[string]interface{} {
	instance := s.Instance(ctx, id)
	if instance == nil {
		return map[string]interface{}{}
	}
	return instance.VariableValues()
}

// AddCurrentActivity marks an activity id as currently active on the
// instance. Membership is set-semantic, duplicates are not recorded.
func (s *InstanceService) AddCurrentActivity(ctx context.Context, id, activityId string) {
	instance := s.Instance(ctx, id)
	if instance == nil {
		return
	}
	if slices.Contains(instance.CurrentActivities, activityId) {
		return
	}
	instance.CurrentActivities = append(instance.CurrentActivities, activityId)
	_ = s.store.SaveProcessInstance(ctx, *instance)
}

// RemoveCurrentActivity clears an activity id from the instance.
func (s *InstanceService) RemoveCurrentActivity(ctx context.Context, id, activityId string) {
	instance := s.Instance(ctx, id)
	if instance == nil {
		return
	}
	activities := make([]string, 0, len(instance.CurrentActivities))
	for _, a := range instance.CurrentActivities {
		if a != activityId {
			activities = append(activities, a)
		}
	}
	instance.CurrentActivities = activities
	_ = s.store.SaveProcessInstance(ctx, *instance)
}

func (s *InstanceService) addEvent(event runtime.ExecutionEvent) {
	s.events = append(s.events, event)
}

// Events returns the audit log, optionally filtered by process instance id.
// The log is append-only and pull-only.
func (s *InstanceService) Events(processInstanceId string) []runtime.ExecutionEvent {
	if processInstanceId == "" {
		return slices.Clone(s.events)
	}
	result := make([]runtime.ExecutionEvent, 0)
	for _, e := range s.events {
		if e.ProcessInstanceId == processInstanceId {
			result = append(result, e)
		}
	}
	return result
}

// Statistics counts instances by status.
func (s *InstanceService) Statistics(ctx context.Context) InstanceStatistics {
	instances, err := s.store.FindProcessInstances(ctx)
	if err != nil {
		return InstanceStatistics{}
	}
	stats := InstanceStatistics{Total: len(instances)}
	for _, instance := range instances {
		switch instance.Status {
		case runtime.ProcessStatusActive:
			stats.Active++
		case runtime.ProcessStatusCompleted:
			stats.Completed++
		case runtime.ProcessStatusSuspended:
			stats.Suspended++
		case runtime.ProcessStatusTerminated:
			stats.Terminated++
		case runtime.ProcessStatusFailed:
			stats.Failed++
		}
	}
	return stats
}
