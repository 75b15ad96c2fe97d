package bpm

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"github.com/lotflow/lotflow/pkg/bpm/runtime"
	"github.com/lotflow/lotflow/pkg/storage"
)

// Engine is the composition root of the process runtime: it owns the
// definition registry, the instance service and the task service. The
// HACCP and LOT services are independent collaborators, wired next to the
// engine, not inside it.
type Engine struct {
	name      string
	snowflake *snowflake.Node
	store     storage.Storage
	instances *InstanceService
	tasks     *TaskService
}

type EngineOption = func(*Engine)

type EngineStatistics struct {
	ProcessDefinitions int                `json:"processDefinitions"`
	ProcessInstances   InstanceStatistics `json:"processInstances"`
	Tasks              TaskStatistics     `json:"tasks"`
}

// NewEngine creates a new engine on the given storage.
func NewEngine(store storage.Storage, options ...EngineOption) Engine {
	node := CreateSnowflakeIdGenerator()
	engine := Engine{
		name:      fmt.Sprintf("lotflow-engine-%d", node.Generate().Int64()),
		snowflake: node,
		store:     store,
		instances: NewInstanceService(store, node),
		tasks:     NewTaskService(store, node),
	}

	for _, option := range options {
		option(&engine)
	}

	return engine
}

func EngineWithName(name string) EngineOption {
	return func(engine *Engine) {
		engine.name = name
	}
}

// Name returns the name of the engine, only useful in case you control multiple ones
func (engine *Engine) Name() string {
	return engine.name
}

// Instances returns the process instance service.
func (engine *Engine) Instances() *InstanceService {
	return engine.instances
}

// Tasks returns the task service.
func (engine *Engine) Tasks() *TaskService {
	return engine.tasks
}

// Deploy registers a new version of a process definition. The definition
// text is stored verbatim, never parsed or validated; the version is one
// above the highest existing version for the key, starting at 1. Deploy
// always succeeds.
func (engine *Engine) Deploy(ctx context.Context, bpmnXml, name, key string) (runtime.ProcessDefinition, error) {
	version := int32(1)
	latest, err := engine.store.FindLatestProcessDefinitionByKey(ctx, key)
	if err == nil {
		version = latest.Version + 1
	}

	definition := runtime.ProcessDefinition{
		Id:                  uuid.NewString(),
		Key:                 key,
		Name:                name,
		Version:             version,
		BpmnXml:             bpmnXml,
		DeploymentTime:      time.Now(),
		StartableInTasklist: true,
	}
	if err := engine.store.SaveProcessDefinition(ctx, definition); err != nil {
		return runtime.ProcessDefinition{}, err
	}
	return definition, nil
}

// Definition returns the definition with the given id, or nil.
func (engine *Engine) Definition(ctx context.Context, id string) *runtime.ProcessDefinition {
	definition, err := engine.store.FindProcessDefinitionById(ctx, id)
	if err != nil {
		return nil
	}
	return &definition
}

// LatestDefinitionByKey returns the highest-version definition for the
// key, or nil when the key was never deployed.
func (engine *Engine) LatestDefinitionByKey(ctx context.Context, key string) *runtime.ProcessDefinition {
	definition, err := engine.store.FindLatestProcessDefinitionByKey(ctx, key)
	if err != nil {
		return nil
	}
	return &definition
}

// Definitions returns every deployed definition, all versions included.
func (engine *Engine) Definitions(ctx context.Context) []runtime.ProcessDefinition {
	definitions, err := engine.store.FindProcessDefinitions(ctx)
	if err != nil {
		return nil
	}
	return definitions
}

// DeleteDefinition removes one deployed definition version.
func (engine *Engine) DeleteDefinition(ctx context.Context, id string) bool {
	deleted, err := engine.store.DeleteProcessDefinition(ctx, id)
	if err != nil {
		return false
	}
	return deleted
}

// StartProcess starts an instance of the latest definition deployed under
// the key. It is the only definition-resolving operation that fails: an
// unknown key is an error the caller must see.
func (engine *Engine) StartProcess(
	ctx context.Context,
	definitionKey string,
	businessKey string,
	variables map[string]interface{},
	startUserId string,
) (*runtime.ProcessInstance, error) {
	definition := engine.LatestDefinitionByKey(ctx, definitionKey)
	if definition == nil {
		return nil, newEngineErrorf("no process definition deployed for key: %s", definitionKey)
	}
	return engine.instances.CreateInstance(ctx, *definition, businessKey, variables, startUserId)
}

// Statistics aggregates registry, instance and task counts for
// dashboard-style read-only views.
func (engine *Engine) Statistics(ctx context.Context) EngineStatistics {
	return EngineStatistics{
		ProcessDefinitions: len(engine.Definitions(ctx)),
		ProcessInstances:   engine.instances.Statistics(ctx),
		Tasks:              engine.tasks.Statistics(ctx),
	}
}
