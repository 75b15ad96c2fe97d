package haccp

import (
	"time"
)

type HazardType string

const (
	HazardBiological HazardType = "BIOLOGICAL"
	HazardChemical   HazardType = "CHEMICAL"
	HazardPhysical   HazardType = "PHYSICAL"
)

type CheckpointStatus string

const (
	CheckpointPending          CheckpointStatus = "PENDING"
	CheckpointInProgress       CheckpointStatus = "IN_PROGRESS"
	CheckpointPassed           CheckpointStatus = "PASSED"
	CheckpointFailed           CheckpointStatus = "FAILED"
	CheckpointCorrectiveAction CheckpointStatus = "CORRECTIVE_ACTION"
)

type LimitOperator string

const (
	OperatorEquals      LimitOperator = "EQUALS"
	OperatorGreaterThan LimitOperator = "GREATER_THAN"
	OperatorLessThan    LimitOperator = "LESS_THAN"
	OperatorBetween     LimitOperator = "BETWEEN"
	// OperatorNotEquals is declared but not evaluated: measurements checked
	// against it always stay within limit.
	OperatorNotEquals LimitOperator = "NOT_EQUALS"
)

// CriticalLimit is one rule of a checkpoint. A checkpoint is expected to
// carry exactly one limit per distinct measured parameter.
type CriticalLimit struct {
	Parameter   string        `json:"parameter"` // temperature, time, pH, water activity, ...
	Unit        string        `json:"unit"`
	MinValue    *float64      `json:"minValue,omitempty"`
	MaxValue    *float64      `json:"maxValue,omitempty"`
	TargetValue *float64      `json:"targetValue,omitempty"`
	Tolerance   *float64      `json:"tolerance,omitempty"`
	Operator    LimitOperator `json:"operator"`
}

type MonitoringProcedure struct {
	What           string `json:"what"`
	How            string `json:"how"`
	Frequency      string `json:"frequency"`
	Who            string `json:"who"`
	AutoMonitoring bool   `json:"autoMonitoring"`
	SensorId       string `json:"sensorId,omitempty"`
}

type CorrectiveAction struct {
	Id          string     `json:"id"`
	Description string     `json:"description"`
	Trigger     string     `json:"trigger"`
	Procedure   string     `json:"procedure"`
	Responsible string     `json:"responsible"`
	Automated   bool       `json:"automated"`
	ExecutedAt  *time.Time `json:"executedAt,omitempty"`
	ExecutedBy  string     `json:"executedBy,omitempty"`
	Result      string     `json:"result,omitempty"`
}

type VerificationProcedure struct {
	Method      string `json:"method"`
	Frequency   string `json:"frequency"`
	Responsible string `json:"responsible"`
}

type RecordKeeping struct {
	DocumentName    string `json:"documentName"`
	RetentionPeriod int    `json:"retentionPeriod"` // days
	Location        string `json:"location"`
	Responsible     string `json:"responsible"`
}

// Checkpoint is a HACCP critical control point bound to a process instance
// activity.
type Checkpoint struct {
	Id                    string                 `json:"id"`
	Code                  string                 `json:"code"` // CCP-1, CCP-2, ...
	Name                  string                 `json:"name"`
	Description           string                 `json:"description"`
	ProcessInstanceId     string                 `json:"processInstanceId"`
	ActivityId            string                 `json:"activityId"`
	HazardType            HazardType             `json:"hazardType"`
	CriticalLimits        []CriticalLimit        `json:"criticalLimits"`
	MonitoringProcedure   MonitoringProcedure    `json:"monitoringProcedure"`
	CorrectiveActions     []CorrectiveAction     `json:"correctiveActions"`
	VerificationProcedure *VerificationProcedure `json:"verificationProcedure,omitempty"`
	RecordKeeping         RecordKeeping          `json:"recordKeeping"`
	Status                CheckpointStatus       `json:"status"`
	CheckTime             *time.Time             `json:"checkTime,omitempty"`
	CheckedBy             string                 `json:"checkedBy,omitempty"`
	// Result holds the last check result only; prior results live in the
	// flat check-result store.
	Result *CheckResult `json:"result,omitempty"`
}

type Measurement struct {
	Parameter string    `json:"parameter"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	// WithinLimit is computed by validation, never supplied by the caller.
	WithinLimit bool      `json:"withinLimit"`
	Timestamp   time.Time `json:"timestamp"`
	DeviceId    string    `json:"deviceId,omitempty"`
}

type DeviationSeverity string

const (
	SeverityLow      DeviationSeverity = "LOW"
	SeverityMedium   DeviationSeverity = "MEDIUM"
	SeverityHigh     DeviationSeverity = "HIGH"
	SeverityCritical DeviationSeverity = "CRITICAL"
)

type Deviation struct {
	Parameter     string            `json:"parameter"`
	ExpectedValue float64           `json:"expectedValue"`
	ActualValue   float64           `json:"actualValue"`
	Difference    float64           `json:"difference"`
	Severity      DeviationSeverity `json:"severity"`
	Description   string            `json:"description"`
}

type CheckResult struct {
	Id                     string        `json:"id"`
	CcpId                  string        `json:"ccpId"`
	CheckTime              time.Time     `json:"checkTime"`
	Measurements           []Measurement `json:"measurements"`
	Passed                 bool          `json:"passed"`
	Deviations             []Deviation   `json:"deviations,omitempty"`
	CorrectiveActionsTaken []string      `json:"correctiveActionsTaken,omitempty"`
	VerifiedBy             string        `json:"verifiedBy,omitempty"`
	Notes                  string        `json:"notes,omitempty"`
}

// ValidationResult is the outcome of checking measurements against a
// checkpoint's critical limits. Passed is true exactly when no deviation
// was found.
type ValidationResult struct {
	Passed     bool        `json:"passed"`
	Deviations []Deviation `json:"deviations"`
}

type Statistics struct {
	Total            int     `json:"total"`
	Pending          int     `json:"pending"`
	InProgress       int     `json:"inProgress"`
	Passed           int     `json:"passed"`
	Failed           int     `json:"failed"`
	CorrectiveAction int     `json:"correctiveAction"`
	PassRate         float64 `json:"passRate"`
}
