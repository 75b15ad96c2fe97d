package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectType(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		value interface{}
		want  VariableType
	}{
		{"string", "flour", VariableTypeString},
		{"bool", true, VariableTypeBoolean},
		{"int", 42, VariableTypeInteger},
		{"int64", int64(42), VariableTypeInteger},
		{"integral float", 3.0, VariableTypeInteger},
		{"fractional float", 3.14, VariableTypeDouble},
		{"time", now, VariableTypeDate},
		{"time pointer", &now, VariableTypeDate},
		{"nil", nil, VariableTypeString},
		{"map", map[string]interface{}{"a": 1}, VariableTypeJson},
		{"slice", []string{"a"}, VariableTypeJson},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectType(tt.value))
		})
	}
}

func TestNewProcessVariable(t *testing.T) {
	v := NewProcessVariable("instance-1", "temperature", 180.5)

	assert.Equal(t, "temperature", v.Name)
	assert.Equal(t, VariableTypeDouble, v.Type)
	assert.Equal(t, 180.5, v.Value)
	assert.Equal(t, ScopeProcess, v.Scope)
	assert.Equal(t, "instance-1", v.ProcessInstanceId)
}

func TestNewTaskVariable(t *testing.T) {
	v := NewTaskVariable("task-1", "approved", true)

	assert.Equal(t, VariableTypeBoolean, v.Type)
	assert.Equal(t, ScopeTask, v.Scope)
	assert.Equal(t, "task-1", v.TaskId)
}

func TestConvertProcessVariables(t *testing.T) {
	converted := ConvertProcessVariables("instance-1", map[string]interface{}{
		"batch": "B-17",
		"count": 3,
	})

	assert.Len(t, converted, 2)
	assert.Equal(t, VariableTypeString, converted["batch"].Type)
	assert.Equal(t, VariableTypeInteger, converted["count"].Type)
	assert.Equal(t, "instance-1", converted["batch"].ProcessInstanceId)
}
