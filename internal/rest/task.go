package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lotflow/lotflow/internal/otel"
	"github.com/lotflow/lotflow/pkg/bpm"
	"github.com/lotflow/lotflow/pkg/bpm/runtime"
)

type createTaskRequest struct {
	ProcessInstanceId   string `json:"processInstanceId"`
	ProcessDefinitionId string `json:"processDefinitionId"`
	TaskDefinitionKey   string `json:"taskDefinitionKey"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	task, err := s.engine.Tasks().CreateTask(r.Context(), req.ProcessInstanceId, req.ProcessDefinitionId, req.TaskDefinitionKey, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := bpm.TaskFilter{
		Status:            runtime.TaskStatus(query.Get("status")),
		Assignee:          query.Get("assignee"),
		CandidateUser:     query.Get("candidateUser"),
		CandidateGroup:    query.Get("candidateGroup"),
		ProcessInstanceId: query.Get("processInstanceId"),
	}
	writeJSON(w, http.StatusOK, s.engine.Tasks().Tasks(r.Context(), filter))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	s.writeTask(w, r, s.engine.Tasks().Task(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Tasks().DeleteTask(r.Context(), chi.URLParam(r, "id")) {
		writeNotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type taskUserRequest struct {
	UserId string `json:"userId"`
}

func (s *Server) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	var req taskUserRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	s.writeTask(w, r, s.engine.Tasks().AssignTask(r.Context(), chi.URLParam(r, "id"), req.UserId))
}

func (s *Server) handleClaimTask(w http.ResponseWriter, r *http.Request) {
	var req taskUserRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	task, err := s.engine.Tasks().ClaimTask(r.Context(), chi.URLParam(r, "id"), req.UserId)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.writeTask(w, r, task)
}

func (s *Server) handleUnassignTask(w http.ResponseWriter, r *http.Request) {
	s.writeTask(w, r, s.engine.Tasks().UnassignTask(r.Context(), chi.URLParam(r, "id")))
}

type completeTaskRequest struct {
	Variables map[string]interface{} `json:"variables,omitempty"`
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	var req completeTaskRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, r, err)
			return
		}
	}
	task, err := s.engine.Tasks().CompleteTask(r.Context(), chi.URLParam(r, "id"), req.Variables)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if task != nil {
		otel.Add(r.Context(), otel.TasksCompleted, 1)
	}
	s.writeTask(w, r, task)
}

func (s *Server) handleAddCandidateUser(w http.ResponseWriter, r *http.Request) {
	var req taskUserRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	s.writeTask(w, r, s.engine.Tasks().AddCandidateUser(r.Context(), chi.URLParam(r, "id"), req.UserId))
}

type taskGroupRequest struct {
	GroupId string `json:"groupId"`
}

func (s *Server) handleAddCandidateGroup(w http.ResponseWriter, r *http.Request) {
	var req taskGroupRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	s.writeTask(w, r, s.engine.Tasks().AddCandidateGroup(r.Context(), chi.URLParam(r, "id"), req.GroupId))
}

type taskPriorityRequest struct {
	Priority int `json:"priority"`
}

func (s *Server) handleSetTaskPriority(w http.ResponseWriter, r *http.Request) {
	var req taskPriorityRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	s.writeTask(w, r, s.engine.Tasks().SetPriority(r.Context(), chi.URLParam(r, "id"), req.Priority))
}

type taskDueDateRequest struct {
	DueDate time.Time `json:"dueDate"`
}

func (s *Server) handleSetTaskDueDate(w http.ResponseWriter, r *http.Request) {
	var req taskDueDateRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	s.writeTask(w, r, s.engine.Tasks().SetDueDate(r.Context(), chi.URLParam(r, "id"), req.DueDate))
}

func (s *Server) handleGetTaskVariables(w http.ResponseWriter, r *http.Request) {
	task := s.engine.Tasks().Task(r.Context(), chi.URLParam(r, "id"))
	if task == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, task.VariableValues())
}

func (s *Server) handleSetTaskVariable(w http.ResponseWriter, r *http.Request) {
	var req setVariableRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if !s.engine.Tasks().SetVariable(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"), req.Value) {
		writeNotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTaskEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Tasks().Events(chi.URLParam(r, "id")))
}

func (s *Server) handleTaskStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Tasks().Statistics(r.Context()))
}

func (s *Server) writeTask(w http.ResponseWriter, r *http.Request, task *runtime.Task) {
	if task == nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
