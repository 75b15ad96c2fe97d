package bpm

import (
	"context"
	"os"
	"testing"

	"github.com/lotflow/lotflow/pkg/bpm/runtime"
	"github.com/lotflow/lotflow/pkg/storage/inmemory"
	"github.com/stretchr/testify/assert"
)

var engine Engine
var engineStorage *inmemory.Storage

func TestMain(m *testing.M) {
	engineStorage = inmemory.NewStorage()

	var exitCode int

	defer func() {
		os.Exit(exitCode)
	}()

	engine = NewEngine(engineStorage)

	exitCode = m.Run()
}

const breadDough = `<process id="bread-dough"><task id="mix"/><task id="proof"/></process>`

func TestDeployVersionsAreMonotonic(t *testing.T) {
	ctx := context.Background()

	first, err := engine.Deploy(ctx, breadDough, "Bread dough", "bread-dough-versioned")
	assert.NoError(t, err)
	second, err := engine.Deploy(ctx, breadDough, "Bread dough", "bread-dough-versioned")
	assert.NoError(t, err)
	third, err := engine.Deploy(ctx, breadDough, "Bread dough", "bread-dough-versioned")
	assert.NoError(t, err)

	assert.Equal(t, int32(1), first.Version)
	assert.Equal(t, int32(2), second.Version)
	assert.Equal(t, int32(3), third.Version)

	latest := engine.LatestDefinitionByKey(ctx, "bread-dough-versioned")
	assert.NotNil(t, latest)
	assert.Equal(t, third.Id, latest.Id)
}

func TestDeployKeepsEveryVersion(t *testing.T) {
	ctx := context.Background()

	engine.Deploy(ctx, breadDough, "Sourdough", "sourdough")
	engine.Deploy(ctx, breadDough, "Sourdough", "sourdough")

	definitions, err := engineStorage.FindProcessDefinitionsByKey(ctx, "sourdough")
	assert.NoError(t, err)
	assert.Len(t, definitions, 2)
	assert.Equal(t, int32(1), definitions[0].Version)
	assert.Equal(t, int32(2), definitions[1].Version)
}

func TestStartProcessUnknownKeyFails(t *testing.T) {
	instance, err := engine.StartProcess(context.Background(), "never-deployed", "", nil, "")

	assert.Nil(t, instance)
	var engineErr *EngineError
	assert.ErrorAs(t, err, &engineErr)
}

func TestStartProcessUsesLatestVersion(t *testing.T) {
	ctx := context.Background()

	engine.Deploy(ctx, breadDough, "Rye", "rye")
	v2, _ := engine.Deploy(ctx, breadDough, "Rye", "rye")

	instance, err := engine.StartProcess(ctx, "rye", "LOT-77", map[string]interface{}{"batchSize": 120}, "operator-1")
	assert.NoError(t, err)
	assert.Equal(t, v2.Id, instance.ProcessDefinitionId)
	assert.Equal(t, "rye", instance.ProcessDefinitionKey)
	assert.Equal(t, "LOT-77", instance.BusinessKey)
	assert.Equal(t, runtime.ProcessStatusActive, instance.Status)
	assert.Equal(t, 120, instance.GetVariable("batchSize"))
}

func TestDeleteDefinition(t *testing.T) {
	ctx := context.Background()

	definition, _ := engine.Deploy(ctx, breadDough, "Throwaway", "throwaway")

	assert.True(t, engine.DeleteDefinition(ctx, definition.Id))
	assert.False(t, engine.DeleteDefinition(ctx, definition.Id))
	assert.Nil(t, engine.Definition(ctx, definition.Id))
}

func TestEngineWithName(t *testing.T) {
	named := NewEngine(inmemory.NewStorage(), EngineWithName("bakery-floor-1"))

	assert.Equal(t, "bakery-floor-1", named.Name())
}

func TestEngineStatistics(t *testing.T) {
	ctx := context.Background()
	fresh := NewEngine(inmemory.NewStorage())

	fresh.Deploy(ctx, breadDough, "Bread", "bread")
	instance, _ := fresh.StartProcess(ctx, "bread", "", nil, "")
	fresh.StartProcess(ctx, "bread", "", nil, "")
	fresh.Instances().CompleteInstance(ctx, instance.Id)
	fresh.Tasks().CreateTask(ctx, instance.Id, instance.ProcessDefinitionId, "knead", "Knead dough", "")

	stats := fresh.Statistics(ctx)
	assert.Equal(t, 1, stats.ProcessDefinitions)
	assert.Equal(t, 2, stats.ProcessInstances.Total)
	assert.Equal(t, 1, stats.ProcessInstances.Active)
	assert.Equal(t, 1, stats.ProcessInstances.Completed)
	assert.Equal(t, 1, stats.Tasks.Total)
}
