package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lotflow/lotflow/internal/config"
	"github.com/lotflow/lotflow/internal/log"
	apierror "github.com/lotflow/lotflow/internal/rest/error"
	"github.com/lotflow/lotflow/internal/rest/middleware"
	"github.com/lotflow/lotflow/pkg/bpm"
	"github.com/lotflow/lotflow/pkg/haccp"
	"github.com/lotflow/lotflow/pkg/lot"
	"github.com/lotflow/lotflow/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the engine and the domain services over HTTP. The core
// services assume a single active caller, so the embedded mutex
// serializes every request.
type Server struct {
	sync.Mutex
	engine *bpm.Engine
	haccp  *haccp.Service
	lots   *lot.Service
	addr   string
	server *http.Server
}

func NewServer(engine *bpm.Engine, haccpService *haccp.Service, lotService *lot.Service, conf config.Config) *Server {
	r := chi.NewRouter()
	s := Server{
		engine: engine,
		haccp:  haccpService,
		lots:   lotService,
		addr:   conf.Server.Addr,
		server: &http.Server{
			ReadHeaderTimeout: 3 * time.Second,
			Handler:           r,
			Addr:              conf.Server.Addr,
		},
	}
	r.Use(middleware.Cors())
	r.Use(middleware.Metrics())
	r.Use(s.serialize)
	r.Route("/v1", func(r chi.Router) {
		r.Route("/process-definitions", func(r chi.Router) {
			r.Post("/", s.handleDeployDefinition)
			r.Get("/", s.handleGetDefinitions)
			r.Get("/{id}", s.handleGetDefinition)
			r.Delete("/{id}", s.handleDeleteDefinition)
			r.Get("/key/{key}/latest", s.handleGetLatestDefinition)
		})
		r.Route("/process-instances", func(r chi.Router) {
			r.Post("/", s.handleStartProcess)
			r.Get("/", s.handleGetInstances)
			r.Get("/statistics", s.handleInstanceStatistics)
			r.Get("/{id}", s.handleGetInstance)
			r.Delete("/{id}", s.handleDeleteInstance)
			r.Post("/{id}/suspend", s.handleSuspendInstance)
			r.Post("/{id}/resume", s.handleResumeInstance)
			r.Post("/{id}/complete", s.handleCompleteInstance)
			r.Post("/{id}/terminate", s.handleTerminateInstance)
			r.Get("/{id}/variables", s.handleGetInstanceVariables)
			r.Put("/{id}/variables/{name}", s.handleSetInstanceVariable)
			r.Get("/{id}/events", s.handleGetInstanceEvents)
			r.Post("/{id}/activities/{activityId}", s.handleAddActivity)
			r.Delete("/{id}/activities/{activityId}", s.handleRemoveActivity)
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.handleCreateTask)
			r.Get("/", s.handleGetTasks)
			r.Get("/statistics", s.handleTaskStatistics)
			r.Get("/{id}", s.handleGetTask)
			r.Delete("/{id}", s.handleDeleteTask)
			r.Post("/{id}/assign", s.handleAssignTask)
			r.Post("/{id}/claim", s.handleClaimTask)
			r.Post("/{id}/unassign", s.handleUnassignTask)
			r.Post("/{id}/complete", s.handleCompleteTask)
			r.Post("/{id}/candidate-users", s.handleAddCandidateUser)
			r.Post("/{id}/candidate-groups", s.handleAddCandidateGroup)
			r.Put("/{id}/priority", s.handleSetTaskPriority)
			r.Put("/{id}/due-date", s.handleSetTaskDueDate)
			r.Get("/{id}/variables", s.handleGetTaskVariables)
			r.Put("/{id}/variables/{name}", s.handleSetTaskVariable)
			r.Get("/{id}/events", s.handleGetTaskEvents)
		})
		r.Route("/ccp-checkpoints", func(r chi.Router) {
			r.Post("/", s.handleCreateCheckpoint)
			r.Get("/", s.handleGetCheckpoints)
			r.Get("/statistics", s.handleCcpStatistics)
			r.Get("/{id}", s.handleGetCheckpoint)
			r.Post("/{id}/start", s.handleStartCheck)
			r.Post("/{id}/validate", s.handleValidateMeasurement)
			r.Post("/{id}/complete", s.handleCompleteCheck)
			r.Post("/{id}/fail", s.handleFailCheck)
			r.Post("/{id}/corrective-actions/{actionId}/execute", s.handleExecuteCorrectiveAction)
		})
		r.Route("/lots", func(r chi.Router) {
			r.Post("/", s.handleCreateLot)
			r.Get("/", s.handleGetLots)
			r.Get("/statistics", s.handleLotStatistics)
			r.Get("/{id}", s.handleGetLot)
			r.Put("/{id}/status", s.handleUpdateLotStatus)
			r.Post("/{id}/records", s.handleAddTraceabilityRecord)
			r.Post("/{id}/links", s.handleLinkParentLot)
			r.Post("/{id}/material-usage", s.handleRecordMaterialUsage)
			r.Post("/{id}/product-output", s.handleRecordProductOutput)
			r.Get("/number/{lotNumber}", s.handleGetLotByNumber)
			r.Get("/number/{lotNumber}/forward-trace", s.handleForwardTrace)
			r.Get("/number/{lotNumber}/backward-trace", s.handleBackwardTrace)
			r.Get("/number/{lotNumber}/trace-path", s.handleTracePath)
			r.Post("/number/{lotNumber}/recall", s.handleRecallLot)
		})
		r.Get("/statistics", s.handleEngineStatistics)
	})
	// register system endpoints
	r.Route("/system", func(r chi.Router) {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"engine": engine.Name(),
				"status": "UP",
			})
		})
	})
	return &s
}

func (s *Server) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() net.Listener {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		log.Error("failed to listen: %v", err)
	}
	log.Info("LotFlow REST server listening on %s", s.addr)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("Error starting server: %s", err)
		}
	}()
	return listener
}

func (s *Server) Stop(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		log.Error("Error stopping server: %s", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, resp interface{}) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	body, err := json.Marshal(resp)
	if err != nil {
		log.Error("Server error: %s", err)
	} else {
		w.Write(body)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, resp apierror.ApiError) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	body, err := json.Marshal(resp)
	if err != nil {
		log.Error("Server error: %s", err)
	} else {
		w.Write(body)
	}
}

func writeNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, apierror.ApiError{
		Message: "not found",
		Type:    "NOT_FOUND",
	})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusBadRequest, apierror.ApiError{
		Message: err.Error(),
		Type:    "BAD_REQUEST",
	})
}

// writeServiceError maps the service error taxonomy onto HTTP: unknown
// ids wrapped around storage.ErrNotFound become 404, authorization
// failures 403 and the remaining business-rule violations 409.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *bpm.AuthorizationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, apierror.ApiError{
			Message: err.Error(),
			Type:    "NOT_FOUND",
		})
	case errors.As(err, &authErr):
		writeError(w, r, http.StatusForbidden, apierror.ApiError{
			Message: err.Error(),
			Type:    "FORBIDDEN",
		})
	default:
		writeError(w, r, http.StatusConflict, apierror.ApiError{
			Message: err.Error(),
			Type:    "CONFLICT",
		})
	}
}

func decode(r *http.Request, into interface{}) error {
	return json.NewDecoder(r.Body).Decode(into)
}
