package lot

import (
	"time"
)

type Status string

const (
	StatusInProcess  Status = "IN_PROCESS"
	StatusQuarantine Status = "QUARANTINE"
	StatusReleased   Status = "RELEASED"
	StatusRecalled   Status = "RECALLED"
	StatusDisposed   Status = "DISPOSED"
)

// Lot is one production lot. ParentLots and ChildLots hold lot numbers,
// not ids; together they form the genealogy graph the trace and recall
// operations walk. The graph is assumed acyclic; traversal tolerates a
// cycle via its visited set but does not report it.
type Lot struct {
	Id                  string               `json:"id"`
	LotNumber           string               `json:"lotNumber"` // YYYYMMDD-<productId>-<seq>
	ProductId           string               `json:"productId"`
	ProductName         string               `json:"productName"`
	ProcessInstanceId   string               `json:"processInstanceId"`
	ManufacturingDate   time.Time            `json:"manufacturingDate"`
	ExpiryDate          *time.Time           `json:"expiryDate,omitempty"`
	Quantity            float64              `json:"quantity"`
	Unit                string               `json:"unit"`
	Status              Status               `json:"status"`
	ParentLots          []string             `json:"parentLots,omitempty"`
	ChildLots           []string             `json:"childLots,omitempty"`
	TraceabilityRecords []TraceabilityRecord `json:"traceabilityRecords"`
}

type EventType string

const (
	EventReceived  EventType = "RECEIVED"
	EventProcessed EventType = "PROCESSED"
	EventInspected EventType = "INSPECTED"
	EventStored    EventType = "STORED"
	EventShipped   EventType = "SHIPPED"
	EventReworked  EventType = "REWORKED"
)

// TraceabilityRecord is one append-only audit entry on a lot. Records are
// kept both on the lot and in a flat store keyed by record id.
type TraceabilityRecord struct {
	Id                      string                   `json:"id"`
	LotId                   string                   `json:"lotId"`
	Timestamp               time.Time                `json:"timestamp"`
	ActivityId              string                   `json:"activityId"`
	ActivityName            string                   `json:"activityName"`
	EventType               EventType                `json:"eventType"`
	Location                string                   `json:"location"`
	Operator                string                   `json:"operator"`
	Parameters              map[string]interface{}   `json:"parameters,omitempty"`
	InputMaterials          []MaterialUsage          `json:"inputMaterials,omitempty"`
	OutputProducts          []ProductOutput          `json:"outputProducts,omitempty"`
	Equipment               []string                 `json:"equipment,omitempty"`
	EnvironmentalConditions []EnvironmentalCondition `json:"environmentalConditions,omitempty"`
}

type MaterialUsage struct {
	MaterialId   string     `json:"materialId"`
	MaterialName string     `json:"materialName"`
	LotNumber    string     `json:"lotNumber"`
	Quantity     float64    `json:"quantity"`
	Unit         string     `json:"unit"`
	Supplier     string     `json:"supplier,omitempty"`
	ReceiptDate  *time.Time `json:"receiptDate,omitempty"`
}

type ProductOutput struct {
	ProductId   string  `json:"productId"`
	ProductName string  `json:"productName"`
	LotNumber   string  `json:"lotNumber"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

type EnvironmentalCondition struct {
	Parameter  string    `json:"parameter"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Timestamp  time.Time `json:"timestamp"`
	WithinSpec bool      `json:"withinSpec"`
}

// TracePath is the full genealogy view around one lot. Backward and
// Forward exclude the lot itself.
type TracePath struct {
	Backward []Lot `json:"backward"`
	Current  *Lot  `json:"current,omitempty"`
	Forward  []Lot `json:"forward"`
}

// RecallResult reports a recall cascade. Affected is the forward trace of
// the recalled lot, itself included; Recalled holds the lots whose status
// was switched to RECALLED.
type RecallResult struct {
	Recalled []Lot `json:"recalledLots"`
	Affected []Lot `json:"affectedLots"`
}

type Statistics struct {
	Total      int `json:"total"`
	InProcess  int `json:"inProcess"`
	Quarantine int `json:"quarantine"`
	Released   int `json:"released"`
	Recalled   int `json:"recalled"`
	Disposed   int `json:"disposed"`
}
