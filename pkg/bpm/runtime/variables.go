package runtime

import (
	"time"
)

type VariableType string

const (
	VariableTypeString  VariableType = "String"
	VariableTypeInteger VariableType = "Integer"
	VariableTypeLong    VariableType = "Long"
	VariableTypeDouble  VariableType = "Double"
	VariableTypeBoolean VariableType = "Boolean"
	VariableTypeDate    VariableType = "Date"
	VariableTypeJson    VariableType = "Json"
	VariableTypeFile    VariableType = "File"
)

type VariableScope string

const (
	ScopeProcess VariableScope = "PROCESS"
	ScopeTask    VariableScope = "TASK"
)

// Variable is a typed process or task variable. The type tag is computed
// from the value's shape at the setter boundary, see DetectType.
type Variable struct {
	Name              string        `json:"name"`
	Type              VariableType  `json:"type"`
	Value             interface{}   `json:"value"`
	Scope             VariableScope `json:"scope"`
	ProcessInstanceId string        `json:"processInstanceId,omitempty"`
	TaskId            string        `json:"taskId,omitempty"`
}

// DetectType infers the variable type tag from a value's shape: integral
// numbers map to Integer, non-integral to Double, time.Time to Date and any
// other non-scalar to Json. Long and File are declared but never inferred.
func DetectType(value interface{}) VariableType {
	switch v := value.(type) {
	case string:
		return VariableTypeString
	case bool:
		return VariableTypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return VariableTypeInteger
	case float32:
		if v == float32(int64(v)) {
			return VariableTypeInteger
		}
		return VariableTypeDouble
	case float64:
		if v == float64(int64(v)) {
			return VariableTypeInteger
		}
		return VariableTypeDouble
	case time.Time, *time.Time:
		return VariableTypeDate
	case nil:
		return VariableTypeString
	default:
		return VariableTypeJson
	}
}

// NewProcessVariable builds a typed PROCESS-scoped variable.
func NewProcessVariable(processInstanceId, name string, value interface{}) Variable {
	return Variable{
		Name:              name,
		Type:              DetectType(value),
		Value:             value,
		Scope:             ScopeProcess,
		ProcessInstanceId: processInstanceId,
	}
}

// NewTaskVariable builds a typed TASK-scoped variable.
func NewTaskVariable(taskId, name string, value interface{}) Variable {
	return Variable{
		Name:   name,
		Type:   DetectType(value),
		Value:  value,
		Scope:  ScopeTask,
		TaskId: taskId,
	}
}

// ConvertProcessVariables types a raw variable map at the process boundary.
func ConvertProcessVariables(processInstanceId string, values map[string]interface{}) map[string]Variable {
	result := make(map[string]Variable, len(values))
	for name, value := range values {
		result[name] = NewProcessVariable(processInstanceId, name, value)
	}
	return result
}
