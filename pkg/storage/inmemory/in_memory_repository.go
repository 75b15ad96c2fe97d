package inmemory

import (
	"context"
	"slices"

	"github.com/lotflow/lotflow/pkg/bpm/runtime"
	"github.com/lotflow/lotflow/pkg/haccp"
	"github.com/lotflow/lotflow/pkg/lot"
	"github.com/lotflow/lotflow/pkg/storage"
)

// Storage keeps all runtime and domain entities in memory,
// please use NewStorage to create a new object of this type.
type Storage struct {
	ProcessDefinitions  map[string]runtime.ProcessDefinition
	ProcessInstances    map[string]runtime.ProcessInstance
	Tasks               map[string]runtime.Task
	Checkpoints         map[string]haccp.Checkpoint
	CheckResults        map[string]haccp.CheckResult
	Lots                map[string]lot.Lot
	TraceabilityRecords map[string]lot.TraceabilityRecord
}

func NewStorage() *Storage {
	return &Storage{
		ProcessDefinitions:  make(map[string]runtime.ProcessDefinition),
		ProcessInstances:    make(map[string]runtime.ProcessInstance),
		Tasks:               make(map[string]runtime.Task),
		Checkpoints:         make(map[string]haccp.Checkpoint),
		CheckResults:        make(map[string]haccp.CheckResult),
		Lots:                make(map[string]lot.Lot),
		TraceabilityRecords: make(map[string]lot.TraceabilityRecord),
	}
}

var _ storage.Storage = &Storage{}
var _ haccp.Storage = &Storage{}
var _ lot.Storage = &Storage{}

var _ storage.ProcessDefinitionStorageReader = &Storage{}

func (mem *Storage) FindLatestProcessDefinitionByKey(ctx context.Context, key string) (runtime.ProcessDefinition, error) {
	var res runtime.ProcessDefinition
	found := false
	for _, def := range mem.ProcessDefinitions {
		if def.Key != key {
			continue
		}
		if found && def.Version < res.Version {
			continue
		}
		found = true
		res = def
	}
	if !found {
		return res, storage.ErrNotFound
	}
	return res, nil
}

func (mem *Storage) FindProcessDefinitionById(ctx context.Context, id string) (runtime.ProcessDefinition, error) {
	res, ok := mem.ProcessDefinitions[id]
	if !ok {
		return res, storage.ErrNotFound
	}
	return res, nil
}

func (mem *Storage) FindProcessDefinitionsByKey(ctx context.Context, key string) ([]runtime.ProcessDefinition, error) {
	res := make([]runtime.ProcessDefinition, 0)
	for _, def := range mem.ProcessDefinitions {
		if def.Key != key {
			continue
		}
		res = append(res, def)
	}
	slices.SortFunc(res, func(a, b runtime.ProcessDefinition) int {
		return int(a.Version - b.Version)
	})

	return res, nil
}

func (mem *Storage) FindProcessDefinitions(ctx context.Context) ([]runtime.ProcessDefinition, error) {
	res := make([]runtime.ProcessDefinition, 0, len(mem.ProcessDefinitions))
	for _, def := range mem.ProcessDefinitions {
		res = append(res, def)
	}
	return res, nil
}

var _ storage.ProcessDefinitionStorageWriter = &Storage{}

func (mem *Storage) SaveProcessDefinition(ctx context.Context, definition runtime.ProcessDefinition) error {
	mem.ProcessDefinitions[definition.Id] = definition
	return nil
}

func (mem *Storage) DeleteProcessDefinition(ctx context.Context, id string) (bool, error) {
	_, ok := mem.ProcessDefinitions[id]
	delete(mem.ProcessDefinitions, id)
	return ok, nil
}

var _ storage.ProcessInstanceStorageReader = &Storage{}

func (mem *Storage) FindProcessInstanceById(ctx context.Context, id string) (runtime.ProcessInstance, error) {
	res, ok := mem.ProcessInstances[id]
	if !ok {
		return res, storage.ErrNotFound
	}
	return res, nil
}

func (mem *Storage) FindProcessInstances(ctx context.Context) ([]runtime.ProcessInstance, error) {
	res := make([]runtime.ProcessInstance, 0, len(mem.ProcessInstances))
	for _, instance := range mem.ProcessInstances {
		res = append(res, instance)
	}
	return res, nil
}

var _ storage.ProcessInstanceStorageWriter = &Storage{}

func (mem *Storage) SaveProcessInstance(ctx context.Context, instance runtime.ProcessInstance) error {
	mem.ProcessInstances[instance.Id] = instance
	return nil
}

func (mem *Storage) DeleteProcessInstance(ctx context.Context, id string) (bool, error) {
	_, ok := mem.ProcessInstances[id]
	delete(mem.ProcessInstances, id)
	return ok, nil
}

var _ storage.TaskStorageReader = &Storage{}

func (mem *Storage) FindTaskById(ctx context.Context, id string) (runtime.Task, error) {
	res, ok := mem.Tasks[id]
	if !ok {
		return res, storage.ErrNotFound
	}
	return res, nil
}

func (mem *Storage) FindTasks(ctx context.Context) ([]runtime.Task, error) {
	res := make([]runtime.Task, 0, len(mem.Tasks))
	for _, task := range mem.Tasks {
		res = append(res, task)
	}
	return res, nil
}

var _ storage.TaskStorageWriter = &Storage{}

func (mem *Storage) SaveTask(ctx context.Context, task runtime.Task) error {
	mem.Tasks[task.Id] = task
	return nil
}

func (mem *Storage) DeleteTask(ctx context.Context, id string) (bool, error) {
	_, ok := mem.Tasks[id]
	delete(mem.Tasks, id)
	return ok, nil
}

var _ haccp.CheckpointStorageReader = &Storage{}

func (mem *Storage) FindCheckpointById(ctx context.Context, id string) (haccp.Checkpoint, error) {
	res, ok := mem.Checkpoints[id]
	if !ok {
		return res, storage.ErrNotFound
	}
	return res, nil
}

func (mem *Storage) FindCheckpoints(ctx context.Context) ([]haccp.Checkpoint, error) {
	res := make([]haccp.Checkpoint, 0, len(mem.Checkpoints))
	for _, checkpoint := range mem.Checkpoints {
		res = append(res, checkpoint)
	}
	return res, nil
}

func (mem *Storage) FindCheckpointsByProcess(ctx context.Context, processInstanceId string) ([]haccp.Checkpoint, error) {
	res := make([]haccp.Checkpoint, 0)
	for _, checkpoint := range mem.Checkpoints {
		if checkpoint.ProcessInstanceId != processInstanceId {
			continue
		}
		res = append(res, checkpoint)
	}
	return res, nil
}

func (mem *Storage) CountCheckpoints(ctx context.Context) (int, error) {
	return len(mem.Checkpoints), nil
}

var _ haccp.CheckpointStorageWriter = &Storage{}

func (mem *Storage) SaveCheckpoint(ctx context.Context, checkpoint haccp.Checkpoint) error {
	mem.Checkpoints[checkpoint.Id] = checkpoint
	return nil
}

var _ haccp.CheckResultStorageReader = &Storage{}

func (mem *Storage) FindCheckResultById(ctx context.Context, id string) (haccp.CheckResult, error) {
	res, ok := mem.CheckResults[id]
	if !ok {
		return res, storage.ErrNotFound
	}
	return res, nil
}

var _ haccp.CheckResultStorageWriter = &Storage{}

func (mem *Storage) SaveCheckResult(ctx context.Context, result haccp.CheckResult) error {
	mem.CheckResults[result.Id] = result
	return nil
}

var _ lot.LotStorageReader = &Storage{}

func (mem *Storage) FindLotById(ctx context.Context, id string) (lot.Lot, error) {
	res, ok := mem.Lots[id]
	if !ok {
		return res, storage.ErrNotFound
	}
	return res, nil
}

func (mem *Storage) FindLotByNumber(ctx context.Context, lotNumber string) (lot.Lot, error) {
	for _, l := range mem.Lots {
		if l.LotNumber == lotNumber {
			return l, nil
		}
	}
	return lot.Lot{}, storage.ErrNotFound
}

func (mem *Storage) FindLots(ctx context.Context) ([]lot.Lot, error) {
	res := make([]lot.Lot, 0, len(mem.Lots))
	for _, l := range mem.Lots {
		res = append(res, l)
	}
	return res, nil
}

func (mem *Storage) FindLotsByProcess(ctx context.Context, processInstanceId string) ([]lot.Lot, error) {
	res := make([]lot.Lot, 0)
	for _, l := range mem.Lots {
		if l.ProcessInstanceId != processInstanceId {
			continue
		}
		res = append(res, l)
	}
	return res, nil
}

var _ lot.LotStorageWriter = &Storage{}

func (mem *Storage) SaveLot(ctx context.Context, l lot.Lot) error {
	mem.Lots[l.Id] = l
	return nil
}

var _ lot.TraceabilityRecordStorageReader = &Storage{}

func (mem *Storage) FindTraceabilityRecordById(ctx context.Context, id string) (lot.TraceabilityRecord, error) {
	res, ok := mem.TraceabilityRecords[id]
	if !ok {
		return res, storage.ErrNotFound
	}
	return res, nil
}

var _ lot.TraceabilityRecordStorageWriter = &Storage{}

func (mem *Storage) SaveTraceabilityRecord(ctx context.Context, record lot.TraceabilityRecord) error {
	mem.TraceabilityRecords[record.Id] = record
	return nil
}
