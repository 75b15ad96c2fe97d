package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lotflow/lotflow/internal/otel"
	"github.com/lotflow/lotflow/pkg/bpm"
	"github.com/lotflow/lotflow/pkg/bpm/runtime"
)

type deployDefinitionRequest struct {
	BpmnXml string `json:"bpmnXml"`
	Name    string `json:"name"`
	Key     string `json:"key"`
}

func (s *Server) handleDeployDefinition(w http.ResponseWriter, r *http.Request) {
	var req deployDefinitionRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	definition, err := s.engine.Deploy(r.Context(), req.BpmnXml, req.Name, req.Key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, definition)
}

func (s *Server) handleGetDefinitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Definitions(r.Context()))
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	definition := s.engine.Definition(r.Context(), chi.URLParam(r, "id"))
	if definition == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, definition)
}

func (s *Server) handleGetLatestDefinition(w http.ResponseWriter, r *http.Request) {
	definition := s.engine.LatestDefinitionByKey(r.Context(), chi.URLParam(r, "key"))
	if definition == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, definition)
}

func (s *Server) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	if !s.engine.DeleteDefinition(r.Context(), chi.URLParam(r, "id")) {
		writeNotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type startProcessRequest struct {
	DefinitionKey string                 `json:"definitionKey"`
	BusinessKey   string                 `json:"businessKey,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	StartUserId   string                 `json:"startUserId,omitempty"`
}

func (s *Server) handleStartProcess(w http.ResponseWriter, r *http.Request) {
	var req startProcessRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	instance, err := s.engine.StartProcess(r.Context(), req.DefinitionKey, req.BusinessKey, req.Variables, req.StartUserId)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	otel.Add(r.Context(), otel.ProcessesStarted, 1)
	writeJSON(w, http.StatusCreated, instance)
}

func (s *Server) handleGetInstances(w http.ResponseWriter, r *http.Request) {
	filter := bpm.InstanceFilter{
		Status:               runtime.ProcessStatus(r.URL.Query().Get("status")),
		ProcessDefinitionKey: r.URL.Query().Get("definitionKey"),
		BusinessKey:          r.URL.Query().Get("businessKey"),
	}
	writeJSON(w, http.StatusOK, s.engine.Instances().Instances(r.Context(), filter))
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	instance := s.engine.Instances().Instance(r.Context(), chi.URLParam(r, "id"))
	if instance == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, instance)
}

func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Instances().DeleteInstance(r.Context(), chi.URLParam(r, "id")) {
		writeNotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSuspendInstance(w http.ResponseWriter, r *http.Request) {
	s.writeInstance(w, r, s.engine.Instances().SuspendInstance(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleResumeInstance(w http.ResponseWriter, r *http.Request) {
	s.writeInstance(w, r, s.engine.Instances().ResumeInstance(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleCompleteInstance(w http.ResponseWriter, r *http.Request) {
	s.writeInstance(w, r, s.engine.Instances().CompleteInstance(r.Context(), chi.URLParam(r, "id")))
}

type terminateInstanceRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleTerminateInstance(w http.ResponseWriter, r *http.Request) {
	var req terminateInstanceRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, r, err)
			return
		}
	}
	s.writeInstance(w, r, s.engine.Instances().TerminateInstance(r.Context(), chi.URLParam(r, "id"), req.Reason))
}

func (s *Server) writeInstance(w http.ResponseWriter, r *http.Request, instance *runtime.ProcessInstance) {
	if instance == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, instance)
}

func (s *Server) handleGetInstanceVariables(w http.ResponseWriter, r *http.Request) {
	instance := s.engine.Instances().Instance(r.Context(), chi.URLParam(r, "id"))
	if instance == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, instance.VariableValues())
}

type setVariableRequest struct {
	Value interface{} `json:"value"`
}

func (s *Server) handleSetInstanceVariable(w http.ResponseWriter, r *http.Request) {
	var req setVariableRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if !s.engine.Instances().SetVariable(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"), req.Value) {
		writeNotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetInstanceEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Instances().Events(chi.URLParam(r, "id")))
}

func (s *Server) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	s.engine.Instances().AddCurrentActivity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "activityId"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveActivity(w http.ResponseWriter, r *http.Request) {
	s.engine.Instances().RemoveCurrentActivity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "activityId"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInstanceStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Instances().Statistics(r.Context()))
}

func (s *Server) handleEngineStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Statistics(r.Context()))
}
