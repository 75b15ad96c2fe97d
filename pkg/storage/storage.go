package storage

import (
	"context"
	"errors"

	"github.com/lotflow/lotflow/pkg/bpm/runtime"
)

// ErrNotFound is returned by find operations when no entity carries the
// requested id. Callers treat it as an absence sentinel, not a failure.
var ErrNotFound = errors.New("not found")

type ProcessDefinitionStorageReader interface {
	// FindLatestProcessDefinitionByKey returns the definition with the
	// highest version for the given key.
	FindLatestProcessDefinitionByKey(ctx context.Context, key string) (runtime.ProcessDefinition, error)

	FindProcessDefinitionById(ctx context.Context, id string) (runtime.ProcessDefinition, error)

	// FindProcessDefinitionsByKey returns zero or many definitions with the
	// given key, ordered by version from 1 (first) to the largest (last).
	FindProcessDefinitionsByKey(ctx context.Context, key string) ([]runtime.ProcessDefinition, error)

	FindProcessDefinitions(ctx context.Context) ([]runtime.ProcessDefinition, error)
}

type ProcessDefinitionStorageWriter interface {
	// SaveProcessDefinition persists a definition and potentially overwrites
	// prior data stored with the same id.
	SaveProcessDefinition(ctx context.Context, definition runtime.ProcessDefinition) error

	DeleteProcessDefinition(ctx context.Context, id string) (bool, error)
}

type ProcessInstanceStorageReader interface {
	FindProcessInstanceById(ctx context.Context, id string) (runtime.ProcessInstance, error)
	FindProcessInstances(ctx context.Context) ([]runtime.ProcessInstance, error)
}

type ProcessInstanceStorageWriter interface {
	SaveProcessInstance(ctx context.Context, instance runtime.ProcessInstance) error
	DeleteProcessInstance(ctx context.Context, id string) (bool, error)
}

type TaskStorageReader interface {
	FindTaskById(ctx context.Context, id string) (runtime.Task, error)
	FindTasks(ctx context.Context) ([]runtime.Task, error)
}

type TaskStorageWriter interface {
	SaveTask(ctx context.Context, task runtime.Task) error
	DeleteTask(ctx context.Context, id string) (bool, error)
}

// Storage is the full process-runtime storage surface consumed by the engine
// and its services.
type Storage interface {
	ProcessDefinitionStorageReader
	ProcessDefinitionStorageWriter
	ProcessInstanceStorageReader
	ProcessInstanceStorageWriter
	TaskStorageReader
	TaskStorageWriter
}
