package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lotflow/lotflow/internal/otel"
	"github.com/lotflow/lotflow/pkg/lot"
)

type createLotRequest struct {
	ProductId         string     `json:"productId"`
	ProductName       string     `json:"productName"`
	ProcessInstanceId string     `json:"processInstanceId"`
	Quantity          float64    `json:"quantity"`
	Unit              string     `json:"unit"`
	ManufacturingDate time.Time  `json:"manufacturingDate,omitempty"`
	ExpiryDate        *time.Time `json:"expiryDate,omitempty"`
}

func (s *Server) handleCreateLot(w http.ResponseWriter, r *http.Request) {
	var req createLotRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	created, err := s.lots.CreateLot(r.Context(), req.ProductId, req.ProductName, req.ProcessInstanceId, req.Quantity, req.Unit, req.ManufacturingDate, req.ExpiryDate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetLots(w http.ResponseWriter, r *http.Request) {
	processInstanceId := r.URL.Query().Get("processInstanceId")
	if processInstanceId != "" {
		writeJSON(w, http.StatusOK, s.lots.LotsByProcess(r.Context(), processInstanceId))
		return
	}
	writeJSON(w, http.StatusOK, s.lots.Lots(r.Context()))
}

func (s *Server) handleGetLot(w http.ResponseWriter, r *http.Request) {
	l := s.lots.Lot(r.Context(), chi.URLParam(r, "id"))
	if l == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleGetLotByNumber(w http.ResponseWriter, r *http.Request) {
	l := s.lots.LotByNumber(r.Context(), chi.URLParam(r, "lotNumber"))
	if l == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type updateLotStatusRequest struct {
	Status lot.Status `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

func (s *Server) handleUpdateLotStatus(w http.ResponseWriter, r *http.Request) {
	var req updateLotStatusRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	updated := s.lots.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.Reason)
	if updated == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAddTraceabilityRecord(w http.ResponseWriter, r *http.Request) {
	var spec lot.RecordSpec
	if err := decode(r, &spec); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	record, err := s.lots.AddRecord(r.Context(), chi.URLParam(r, "id"), spec)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

type linkParentLotRequest struct {
	ParentLotNumber string `json:"parentLotNumber"`
}

func (s *Server) handleLinkParentLot(w http.ResponseWriter, r *http.Request) {
	var req linkParentLotRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if !s.lots.LinkParentLot(r.Context(), chi.URLParam(r, "id"), req.ParentLotNumber) {
		writeNotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recordMaterialUsageRequest struct {
	ActivityId   string              `json:"activityId"`
	ActivityName string              `json:"activityName"`
	Materials    []lot.MaterialUsage `json:"materials"`
	Location     string              `json:"location"`
	Operator     string              `json:"operator"`
}

func (s *Server) handleRecordMaterialUsage(w http.ResponseWriter, r *http.Request) {
	var req recordMaterialUsageRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	record, err := s.lots.RecordMaterialUsage(r.Context(), chi.URLParam(r, "id"), req.ActivityId, req.ActivityName, req.Materials, req.Location, req.Operator)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

type recordProductOutputRequest struct {
	ActivityId   string              `json:"activityId"`
	ActivityName string              `json:"activityName"`
	Products     []lot.ProductOutput `json:"products"`
	Location     string              `json:"location"`
	Operator     string              `json:"operator"`
}

func (s *Server) handleRecordProductOutput(w http.ResponseWriter, r *http.Request) {
	var req recordProductOutputRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	record, err := s.lots.RecordProductOutput(r.Context(), chi.URLParam(r, "id"), req.ActivityId, req.ActivityName, req.Products, req.Location, req.Operator)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleForwardTrace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lots.ForwardTrace(r.Context(), chi.URLParam(r, "lotNumber")))
}

func (s *Server) handleBackwardTrace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lots.BackwardTrace(r.Context(), chi.URLParam(r, "lotNumber")))
}

func (s *Server) handleTracePath(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lots.TracePathFor(r.Context(), chi.URLParam(r, "lotNumber")))
}

type recallLotRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRecallLot(w http.ResponseWriter, r *http.Request) {
	var req recallLotRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	result := s.lots.Recall(r.Context(), chi.URLParam(r, "lotNumber"), req.Reason)
	otel.Add(r.Context(), otel.LotsRecalled, int64(len(result.Recalled)))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLotStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lots.Statistics(r.Context()))
}
