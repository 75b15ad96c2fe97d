package lot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Service manages production lots and their genealogy. Forward trace
// follows child edges (ingredient to derived products), backward trace
// follows parent edges, and a recall is a forward trace combined with a
// bulk status transition to RECALLED.
type Service struct {
	store Storage
}

func NewService(store Storage) *Service {
	return &Service{store: store}
}

// RecordSpec carries the caller-supplied parts of a traceability record.
// Id, lot id and timestamp are stamped by the service.
type RecordSpec struct {
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

// CreateLot registers a new lot in status IN_PROCESS. A zero
// manufacturing date defaults to now.
func (s *Service) CreateLot(
	ctx context.Context,
	productId string,
	productName string,
	processInstanceId string,
	quantity float64,
	unit string,
	manufacturingDate time.Time,
	expiryDate *time.Time,
) (Lot, error) {
	if manufacturingDate.IsZero() {
		manufacturingDate = time.Now()
	}

	lot := Lot{
		Id:                  uuid.NewString(),
		LotNumber:           generateLotNumber(productId, manufacturingDate),
		ProductId:           productId,
		ProductName:         productName,
		ProcessInstanceId:   processInstanceId,
		ManufacturingDate:   manufacturingDate,
		ExpiryDate:          expiryDate,
		Quantity:            quantity,
		Unit:                unit,
		Status:              StatusInProcess,
		TraceabilityRecords: []TraceabilityRecord{},
	}
	if err := s.store.SaveLot(ctx, lot); err != nil {
		return Lot{}, err
	}
	return lot, nil
}

// generateLotNumber builds YYYYMMDD-<productId>-<seq> with a random
// three-digit sequence. Two lots of the same product on the same day can
// collide; the collision is accepted and not detected.
func generateLotNumber(productId string, date time.Time) string {
	return fmt.Sprintf("%s-%s-%03d", date.Format("20060102"), productId, rand.IntN(1000))
}

// Lot returns the lot with the given id, or nil.
func (s *Service) Lot(ctx context.Context, id string) *Lot {
	lot, err := s.store.FindLotById(ctx, id)
	if err != nil {
		return nil
	}
	return &lot
}

// LotByNumber returns the lot with the given lot number, or nil.
func (s *Service) LotByNumber(ctx context.Context, lotNumber string) *Lot {
	lot, err := s.store.FindLotByNumber(ctx, lotNumber)
	if err != nil {
		return nil
	}
	return &lot
}

// Lots returns every lot in the store.
func (s *Service) Lots(ctx context.Context) []Lot {
	lots, err := s.store.FindLots(ctx)
	if err != nil {
		return nil
	}
	return lots
}

// LotsByProcess returns every lot created under a process instance.
func (s *Service) LotsByProcess(ctx context.Context, processInstanceId string) []Lot {
	lots, err := s.store.FindLotsByProcess(ctx, processInstanceId)
	if err != nil {
		return nil
	}
	return lots
}

// AddRecord appends a fully stamped traceability record to the lot and to
// the flat record store. It fails when the lot id is unknown.
func (s *Service) AddRecord(ctx context.Context, lotId string, spec RecordSpec) (TraceabilityRecord, error) {
	lot, err := s.store.FindLotById(ctx, lotId)
	if err != nil {
		return TraceabilityRecord{}, fmt.Errorf("lot %s: %w", lotId, err)
	}

	record := TraceabilityRecord{
		Id:                      uuid.NewString(),
		LotId:                   lotId,
		Timestamp:               time.Now(),
		ActivityId:              spec.ActivityId,
		ActivityName:            spec.ActivityName,
		EventType:               spec.EventType,
		Location:                spec.Location,
		Operator:                spec.Operator,
		Parameters:              spec.Parameters,
		InputMaterials:          spec.InputMaterials,
		OutputProducts:          spec.OutputProducts,
		Equipment:               spec.Equipment,
		EnvironmentalConditions: spec.EnvironmentalConditions,
	}

	lot.TraceabilityRecords = append(lot.TraceabilityRecords, record)
	if err := s.store.SaveLot(ctx, lot); err != nil {
		return TraceabilityRecord{}, err
	}
	if err := s.store.SaveTraceabilityRecord(ctx, record); err != nil {
		return TraceabilityRecord{}, err
	}
	return record, nil
}

// LinkParentLot adds parentLotNumber to the child's parents and, when the
// parent lot exists, back-links the child's lot number into the parent's
// children. Both insertions are idempotent. It returns false only for an
// unknown child id; a parent number with no matching lot leaves a
// one-sided edge.
func (s *Service) LinkParentLot(ctx context.Context, childLotId, parentLotNumber string) bool {
	child, err := s.store.FindLotById(ctx, childLotId)
	if err != nil {
		return false
	}

	if !contains(child.ParentLots, parentLotNumber) {
		child.ParentLots = append(child.ParentLots, parentLotNumber)
		if err := s.store.SaveLot(ctx, child); err != nil {
			return false
		}
	}

	parent, err := s.store.FindLotByNumber(ctx, parentLotNumber)
	if err == nil {
		if !contains(parent.ChildLots, child.LotNumber) {
			parent.ChildLots = append(parent.ChildLots, child.LotNumber)
			if err := s.store.SaveLot(ctx, parent); err != nil {
				return false
			}
		}
	}

	return true
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// ForwardTrace returns the lot and every lot reachable over child edges,
// depth first, the start lot first. The visited set deduplicates diamond
// patterns and bounds the walk on a cyclic graph.
func (s *Service) ForwardTrace(ctx context.Context, lotNumber string) []Lot {
	return s.trace(ctx, lotNumber, func(l Lot) []string { return l.ChildLots })
}

// BackwardTrace returns the lot and every lot reachable over parent
// edges, depth first, the start lot first.
func (s *Service) BackwardTrace(ctx context.Context, lotNumber string) []Lot {
	return s.trace(ctx, lotNumber, func(l Lot) []string { return l.ParentLots })
}

func (s *Service) trace(ctx context.Context, lotNumber string, edges func(Lot) []string) []Lot {
	start, err := s.store.FindLotByNumber(ctx, lotNumber)
	if err != nil {
		return []Lot{}
	}

	result := []Lot{start}
	visited := map[string]bool{lotNumber: true}

	var traverse func(current Lot)
	traverse = func(current Lot) {
		for _, next := range edges(current) {
			if visited[next] {
				continue
			}
			visited[next] = true
			nextLot, err := s.store.FindLotByNumber(ctx, next)
			if err != nil {
				continue
			}
			result = append(result, nextLot)
			traverse(nextLot)
		}
	}
	traverse(start)

	return result
}

// TracePathFor composes backward and forward traces around one lot,
// filtering the lot itself out of both directions.
func (s *Service) TracePathFor(ctx context.Context, lotNumber string) TracePath {
	current := s.LotByNumber(ctx, lotNumber)
	if current == nil {
		return TracePath{Backward: []Lot{}, Forward: []Lot{}}
	}

	return TracePath{
		Backward: exclude(s.BackwardTrace(ctx, lotNumber), lotNumber),
		Current:  current,
		Forward:  exclude(s.ForwardTrace(ctx, lotNumber), lotNumber),
	}
}

func exclude(lots []Lot, lotNumber string) []Lot {
	result := make([]Lot, 0, len(lots))
	for _, l := range lots {
		if l.LotNumber != lotNumber {
			result = append(result, l)
		}
	}
	return result
}

// UpdateStatus sets the lot status and appends a STATUS_CHANGE
// traceability record. The previousStatus parameter is captured after the
// status has already been switched, so it always equals newStatus;
// capturing it before the switch is the probable intent, but the recorded
// shape is kept as is.
func (s *Service) UpdateStatus(ctx context.Context, lotId string, status Status, reason string) *Lot {
	lot, err := s.store.FindLotById(ctx, lotId)
	if err != nil {
		return nil
	}

	lot.Status = status
	if err := s.store.SaveLot(ctx, lot); err != nil {
		return nil
	}

	_, err = s.AddRecord(ctx, lotId, RecordSpec{
		ActivityId:   "STATUS_CHANGE",
		ActivityName: "LOT status change",
		EventType:    EventProcessed,
		Location:     "SYSTEM",
		Operator:     "SYSTEM",
		Parameters: map[string]interface{}{
			"previousStatus": lot.Status,
			"newStatus":      status,
			"reason":         reason,
		},
	})
	if err != nil {
		return nil
	}

	return s.Lot(ctx, lotId)
}

// Recall propagates a recall through the downstream genealogy: every lot
// in the forward trace of lotNumber, the lot itself included, is switched
// to RECALLED. Upstream ingredient lots are never touched.
func (s *Service) Recall(ctx context.Context, lotNumber, reason string) RecallResult {
	affected := s.ForwardTrace(ctx, lotNumber)

	recalled := []Lot{}
	for _, l := range affected {
		if updated := s.UpdateStatus(ctx, l.Id, StatusRecalled, reason); updated != nil {
			recalled = append(recalled, *updated)
		}
	}

	return RecallResult{Recalled: recalled, Affected: affected}
}

// RecordMaterialUsage appends a PROCESSED record carrying the consumed
// input materials.
func (s *Service) RecordMaterialUsage(
	ctx context.Context,
	lotId string,
	activityId string,
	activityName string,
	materials []MaterialUsage,
	location string,
	operator string,
) (TraceabilityRecord, error) {
	return s.AddRecord(ctx, lotId, RecordSpec{
		ActivityId:     activityId,
		ActivityName:   activityName,
		EventType:      EventProcessed,
		Location:       location,
		Operator:       operator,
		InputMaterials: materials,
	})
}

// RecordProductOutput appends a PROCESSED record carrying the produced
// outputs.
func (s *Service) RecordProductOutput(
	ctx context.Context,
	lotId string,
	activityId string,
	activityName string,
	products []ProductOutput,
	location string,
	operator string,
) (TraceabilityRecord, error) {
	return s.AddRecord(ctx, lotId, RecordSpec{
		ActivityId:     activityId,
		ActivityName:   activityName,
		EventType:      EventProcessed,
		Location:       location,
		Operator:       operator,
		OutputProducts: products,
	})
}

// Statistics counts lots by status.
func (s *Service) Statistics(ctx context.Context) Statistics {
	lots, err := s.store.FindLots(ctx)
	if err != nil {
		return Statistics{}
	}

	stats := Statistics{Total: len(lots)}
	for _, l := range lots {
		switch l.Status {
		case StatusInProcess:
			stats.InProcess++
		case StatusQuarantine:
			stats.Quarantine++
		case StatusReleased:
			stats.Released++
		case StatusRecalled:
			stats.Recalled++
		case StatusDisposed:
			stats.Disposed++
		}
	}
	return stats
}
