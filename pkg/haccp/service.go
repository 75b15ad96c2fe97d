package haccp

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/lotflow/lotflow/pkg/storage"
)

// Service manages critical control points bound to process instance
// activities: it validates measurements against critical limits, derives
// deviation severity and drives the corrective-action cycle.
type Service struct {
	store Storage
}

func NewService(store Storage) *Service {
	return &Service{store: store}
}

// CheckpointSpec carries the caller-supplied parts of a new checkpoint;
// zero-valued fields get defaults.
type CheckpointSpec struct {
	Code                  string                 `json:"code,omitempty"`
	Name                  string                 `json:"name,omitempty"`
	Description           string                 `json:"description,omitempty"`
	HazardType            HazardType             `json:"hazardType,omitempty"`
	CriticalLimits        []CriticalLimit        `json:"criticalLimits,omitempty"`
	MonitoringProcedure   *MonitoringProcedure   `json:"monitoringProcedure,omitempty"`
	CorrectiveActions     []CorrectiveAction     `json:"correctiveActions,omitempty"`
	VerificationProcedure *VerificationProcedure `json:"verificationProcedure,omitempty"`
	RecordKeeping         *RecordKeeping         `json:"recordKeeping,omitempty"`
}

const defaultRecordRetentionDays = 365

// CreateCheckpoint registers a checkpoint in status PENDING. Unset spec
// fields default to an auto-numbered CCP-<n> code, a BIOLOGICAL hazard and
// a 365-day record retention.
func (s *Service) CreateCheckpoint(ctx context.Context, processInstanceId, activityId string, spec CheckpointSpec) (Checkpoint, error) {
	checkpoint := Checkpoint{
		Id:                    uuid.NewString(),
		Code:                  spec.Code,
		Name:                  spec.Name,
		Description:           spec.Description,
		ProcessInstanceId:     processInstanceId,
		ActivityId:            activityId,
		HazardType:            spec.HazardType,
		CriticalLimits:        spec.CriticalLimits,
		CorrectiveActions:     spec.CorrectiveActions,
		VerificationProcedure: spec.VerificationProcedure,
		Status:                CheckpointPending,
	}
	if checkpoint.Code == "" {
		count, err := s.store.CountCheckpoints(ctx)
		if err != nil {
			return Checkpoint{}, err
		}
		checkpoint.Code = fmt.Sprintf("CCP-%d", count+1)
	}
	if checkpoint.Name == "" {
		checkpoint.Name = "Critical control point"
	}
	if checkpoint.HazardType == "" {
		checkpoint.HazardType = HazardBiological
	}
	if checkpoint.CriticalLimits == nil {
		checkpoint.CriticalLimits = []CriticalLimit{}
	}
	if checkpoint.CorrectiveActions == nil {
		checkpoint.CorrectiveActions = []CorrectiveAction{}
	}
	if spec.MonitoringProcedure != nil {
		checkpoint.MonitoringProcedure = *spec.MonitoringProcedure
	}
	if spec.RecordKeeping != nil {
		checkpoint.RecordKeeping = *spec.RecordKeeping
	} else {
		checkpoint.RecordKeeping = RecordKeeping{RetentionPeriod: defaultRecordRetentionDays}
	}

	if err := s.store.SaveCheckpoint(ctx, checkpoint); err != nil {
		return Checkpoint{}, err
	}
	return checkpoint, nil
}

// Checkpoint returns the checkpoint with the given id, or nil.
func (s *Service) Checkpoint(ctx context.Context, id string) *Checkpoint {
	checkpoint, err := s.store.FindCheckpointById(ctx, id)
	if err != nil {
		return nil
	}
	return &checkpoint
}

// Checkpoints returns every checkpoint in the store.
func (s *Service) Checkpoints(ctx context.Context) []Checkpoint {
	checkpoints, err := s.store.FindCheckpoints(ctx)
	if err != nil {
		return nil
	}
	return checkpoints
}

// CheckpointsByProcess returns every checkpoint of a process instance.
func (s *Service) CheckpointsByProcess(ctx context.Context, processInstanceId string) []Checkpoint {
	checkpoints, err := s.store.FindCheckpointsByProcess(ctx, processInstanceId)
	if err != nil {
		return nil
	}
	return checkpoints
}

// StartCheck moves the checkpoint to IN_PROGRESS, recording checker and
// time.
func (s *Service) StartCheck(ctx context.Context, id, userId string) *Checkpoint {
	checkpoint := s.Checkpoint(ctx, id)
	if checkpoint == nil {
		return nil
	}
	now := time.Now()
	checkpoint.Status = CheckpointInProgress
	checkpoint.CheckTime = &now
	checkpoint.CheckedBy = userId
	if err := s.store.SaveCheckpoint(ctx, *checkpoint); err != nil {
		return nil
	}
	return checkpoint
}

// ValidateMeasurement checks measurements against the checkpoint's
// critical limits. Each measurement's WithinLimit flag is set in place; a
// measurement without a matching limit is skipped entirely. The result
// passes exactly when no deviation was produced.
func (s *Service) ValidateMeasurement(ctx context.Context, ccpId string, measurements []Measurement) (ValidationResult, error) {
	checkpoint, err := s.store.FindCheckpointById(ctx, ccpId)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("ccp checkpoint %s: %w", ccpId, err)
	}

	deviations := []Deviation{}

	for i := range measurements {
		measurement := &measurements[i]
		limit := findLimit(checkpoint.CriticalLimits, measurement.Parameter)
		if limit == nil {
			continue
		}

		withinLimit := true
		expectedValue := 0.0
		if limit.TargetValue != nil {
			expectedValue = *limit.TargetValue
		}
		deviation := 0.0

		switch limit.Operator {
		case OperatorEquals:
			if limit.TargetValue != nil {
				tolerance := 0.0
				if limit.Tolerance != nil {
					tolerance = *limit.Tolerance
				}
				withinLimit = math.Abs(measurement.Value-*limit.TargetValue) <= tolerance
				deviation = measurement.Value - *limit.TargetValue
			}
		case OperatorGreaterThan:
			if limit.MinValue != nil {
				withinLimit = measurement.Value > *limit.MinValue
				expectedValue = *limit.MinValue
				deviation = measurement.Value - *limit.MinValue
			}
		case OperatorLessThan:
			if limit.MaxValue != nil {
				withinLimit = measurement.Value < *limit.MaxValue
				expectedValue = *limit.MaxValue
				deviation = measurement.Value - *limit.MaxValue
			}
		case OperatorBetween:
			if limit.MinValue != nil && limit.MaxValue != nil {
				withinLimit = measurement.Value >= *limit.MinValue && measurement.Value <= *limit.MaxValue
				expectedValue = (*limit.MinValue + *limit.MaxValue) / 2
				if measurement.Value < *limit.MinValue {
					deviation = measurement.Value - *limit.MinValue
				} else if measurement.Value > *limit.MaxValue {
					deviation = measurement.Value - *limit.MaxValue
				}
			}
		}
		// OperatorNotEquals has no branch and never flags a deviation.

		measurement.WithinLimit = withinLimit

		if !withinLimit {
			deviations = append(deviations, Deviation{
				Parameter:     measurement.Parameter,
				ExpectedValue: expectedValue,
				ActualValue:   measurement.Value,
				Difference:    deviation,
				Severity:      severityFor(deviation, expectedValue),
				Description: fmt.Sprintf("%s outside critical limit: %g%s (limit: %g%s)",
					measurement.Parameter, measurement.Value, measurement.Unit, expectedValue, limit.Unit),
			})
		}
	}

	return ValidationResult{
		Passed:     len(deviations) == 0,
		Deviations: deviations,
	}, nil
}

func findLimit(limits []CriticalLimit, parameter string) *CriticalLimit {
	for i := range limits {
		if limits[i].Parameter == parameter {
			return &limits[i]
		}
	}
	return nil
}

// severityFor grades a deviation by its relative size against the expected
// value: above 20% CRITICAL, above 10% HIGH, above 5% MEDIUM, else LOW.
func severityFor(deviation, expectedValue float64) DeviationSeverity {
	absolute := math.Abs(deviation)
	switch {
	case absolute > expectedValue*0.2:
		return SeverityCritical
	case absolute > expectedValue*0.1:
		return SeverityHigh
	case absolute > expectedValue*0.05:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// CompleteCheck validates the measurements and records a check result. A
// failed validation moves the checkpoint to CORRECTIVE_ACTION and
// synchronously executes every corrective action marked automated; a
// passed one moves it to PASSED. The checkpoint keeps only this latest
// result.
func (s *Service) CompleteCheck(ctx context.Context, ccpId string, measurements []Measurement, userId, notes string) (CheckResult, error) {
	checkpoint, err := s.store.FindCheckpointById(ctx, ccpId)
	if err != nil {
		return CheckResult{}, fmt.Errorf("ccp checkpoint %s: %w", ccpId, err)
	}

	validation, err := s.ValidateMeasurement(ctx, ccpId, measurements)
	if err != nil {
		return CheckResult{}, err
	}

	result := CheckResult{
		Id:           uuid.NewString(),
		CcpId:        ccpId,
		CheckTime:    time.Now(),
		Measurements: measurements,
		Passed:       validation.Passed,
		Deviations:   validation.Deviations,
		VerifiedBy:   userId,
		Notes:        notes,
	}

	if !validation.Passed {
		checkpoint.Status = CheckpointCorrectiveAction

		now := time.Now()
		taken := []string{}
		for i := range checkpoint.CorrectiveActions {
			action := &checkpoint.CorrectiveActions[i]
			if !action.Automated {
				continue
			}
			executedAt := now
			action.ExecutedAt = &executedAt
			action.ExecutedBy = "SYSTEM"
			action.Result = "executed automatically"
			taken = append(taken, action.Description)
		}
		result.CorrectiveActionsTaken = taken
	} else {
		checkpoint.Status = CheckpointPassed
	}

	checkpoint.Result = &result
	if err := s.store.SaveCheckpoint(ctx, checkpoint); err != nil {
		return CheckResult{}, err
	}
	if err := s.store.SaveCheckResult(ctx, result); err != nil {
		return CheckResult{}, err
	}

	return result, nil
}

// FailCheck forces the checkpoint to FAILED with a measurement-less result
// carrying the reason.
func (s *Service) FailCheck(ctx context.Context, ccpId, reason string) *Checkpoint {
	checkpoint := s.Checkpoint(ctx, ccpId)
	if checkpoint == nil {
		return nil
	}

	checkpoint.Status = CheckpointFailed
	result := CheckResult{
		Id:           uuid.NewString(),
		CcpId:        ccpId,
		CheckTime:    time.Now(),
		Measurements: []Measurement{},
		Passed:       false,
		Notes:        reason,
	}
	checkpoint.Result = &result

	if err := s.store.SaveCheckpoint(ctx, *checkpoint); err != nil {
		return nil
	}
	if err := s.store.SaveCheckResult(ctx, result); err != nil {
		return nil
	}
	return checkpoint
}

// ExecuteCorrectiveAction stamps one action as executed. When every action
// on the checkpoint has been executed, the checkpoint advances to PASSED.
func (s *Service) ExecuteCorrectiveAction(ctx context.Context, ccpId, actionId, userId, result string) bool {
	checkpoint := s.Checkpoint(ctx, ccpId)
	if checkpoint == nil {
		return false
	}

	var action *CorrectiveAction
	for i := range checkpoint.CorrectiveActions {
		if checkpoint.CorrectiveActions[i].Id == actionId {
			action = &checkpoint.CorrectiveActions[i]
			break
		}
	}
	if action == nil {
		return false
	}

	now := time.Now()
	action.ExecutedAt = &now
	action.ExecutedBy = userId
	action.Result = result

	allExecuted := true
	for _, a := range checkpoint.CorrectiveActions {
		if a.ExecutedAt == nil {
			allExecuted = false
			break
		}
	}
	if allExecuted {
		checkpoint.Status = CheckpointPassed
	}

	return s.store.SaveCheckpoint(ctx, *checkpoint) == nil
}

// Statistics counts checkpoints by status, optionally scoped to one
// process instance. The pass rate is passed/(passed+failed), as a
// percentage, 0 when nothing has passed or failed yet.
func (s *Service) Statistics(ctx context.Context, processInstanceId string) Statistics {
	var checkpoints []Checkpoint
	var err error
	if processInstanceId != "" {
		checkpoints, err = s.store.FindCheckpointsByProcess(ctx, processInstanceId)
	} else {
		checkpoints, err = s.store.FindCheckpoints(ctx)
	}
	if err != nil {
		return Statistics{}
	}

	stats := Statistics{Total: len(checkpoints)}
	for _, c := range checkpoints {
		switch c.Status {
		case CheckpointPending:
			stats.Pending++
		case CheckpointInProgress:
			stats.InProgress++
		case CheckpointPassed:
			stats.Passed++
		case CheckpointFailed:
			stats.Failed++
		case CheckpointCorrectiveAction:
			stats.CorrectiveAction++
		}
	}
	if stats.Passed+stats.Failed > 0 {
		stats.PassRate = float64(stats.Passed) / float64(stats.Passed+stats.Failed) * 100
	}
	return stats
}

// ErrNotFound mirrors the storage sentinel for callers that only import
// this package.
var ErrNotFound = storage.ErrNotFound
