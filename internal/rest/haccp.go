package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lotflow/lotflow/internal/otel"
	"github.com/lotflow/lotflow/pkg/haccp"
)

type createCheckpointRequest struct {
	ProcessInstanceId string               `json:"processInstanceId"`
	ActivityId        string               `json:"activityId"`
	Spec              haccp.CheckpointSpec `json:"spec"`
}

func (s *Server) handleCreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req createCheckpointRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	checkpoint, err := s.haccp.CreateCheckpoint(r.Context(), req.ProcessInstanceId, req.ActivityId, req.Spec)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkpoint)
}

func (s *Server) handleGetCheckpoints(w http.ResponseWriter, r *http.Request) {
	processInstanceId := r.URL.Query().Get("processInstanceId")
	if processInstanceId == "" {
		writeJSON(w, http.StatusOK, s.haccp.Checkpoints(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, s.haccp.CheckpointsByProcess(r.Context(), processInstanceId))
}

func (s *Server) handleGetCheckpoint(w http.ResponseWriter, r *http.Request) {
	checkpoint := s.haccp.Checkpoint(r.Context(), chi.URLParam(r, "id"))
	if checkpoint == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, checkpoint)
}

type startCheckRequest struct {
	UserId string `json:"userId"`
}

func (s *Server) handleStartCheck(w http.ResponseWriter, r *http.Request) {
	var req startCheckRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	checkpoint := s.haccp.StartCheck(r.Context(), chi.URLParam(r, "id"), req.UserId)
	if checkpoint == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, checkpoint)
}

type validateMeasurementRequest struct {
	Measurements []haccp.Measurement `json:"measurements"`
}

func (s *Server) handleValidateMeasurement(w http.ResponseWriter, r *http.Request) {
	var req validateMeasurementRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	result, err := s.haccp.ValidateMeasurement(r.Context(), chi.URLParam(r, "id"), req.Measurements)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type completeCheckRequest struct {
	Measurements []haccp.Measurement `json:"measurements"`
	UserId       string              `json:"userId,omitempty"`
	Notes        string              `json:"notes,omitempty"`
}

func (s *Server) handleCompleteCheck(w http.ResponseWriter, r *http.Request) {
	var req completeCheckRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	result, err := s.haccp.CompleteCheck(r.Context(), chi.URLParam(r, "id"), req.Measurements, req.UserId, req.Notes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	otel.Add(r.Context(), otel.CcpChecks, 1)
	otel.Add(r.Context(), otel.CcpDeviations, int64(len(result.Deviations)))
	writeJSON(w, http.StatusOK, result)
}

type failCheckRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleFailCheck(w http.ResponseWriter, r *http.Request) {
	var req failCheckRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	checkpoint := s.haccp.FailCheck(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if checkpoint == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, checkpoint)
}

type executeActionRequest struct {
	UserId string `json:"userId"`
	Result string `json:"result"`
}

func (s *Server) handleExecuteCorrectiveAction(w http.ResponseWriter, r *http.Request) {
	var req executeActionRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	ok := s.haccp.ExecuteCorrectiveAction(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "actionId"), req.UserId, req.Result)
	if !ok {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.haccp.Checkpoint(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleCcpStatistics(w http.ResponseWriter, r *http.Request) {
	processInstanceId := r.URL.Query().Get("processInstanceId")
	writeJSON(w, http.StatusOK, s.haccp.Statistics(r.Context(), processInstanceId))
}
