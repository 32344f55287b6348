// Package api exposes the planner over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopfloor-planner/core/model"
	"shopfloor-planner/core/plan"
	"shopfloor-planner/core/simulate"
	"shopfloor-planner/infra/logger"
	"shopfloor-planner/infra/store"
)

// Scheduler generates production schedules.
type Scheduler interface {
	GenerateSchedule(ctx context.Context, req plan.Request) (*plan.Result, error)
}

// Simulator answers what-if questions without touching the stored plan.
type Simulator interface {
	SimulateRushOrder(ctx context.Context, rush simulate.RushOrder) (*simulate.Result, error)
	EstimateDelivery(ctx context.Context, productID uuid.UUID, quantity int) (*simulate.DeliveryEstimate, error)
}

// JobLister reads the currently stored schedule.
type JobLister interface {
	CurrentJobs(ctx context.Context, f store.JobFilter) ([]model.Job, error)
}

// Server hosts the HTTP API.
type Server struct {
	scheduler Scheduler
	simulator Simulator
	jobs      JobLister
	log       logger.Logger
	router    chi.Router
}

// NewServer wires the routes.
func NewServer(scheduler Scheduler, simulator Simulator, jobs JobLister, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	s := &Server{
		scheduler: scheduler,
		simulator: simulator,
		jobs:      jobs,
		log:       log,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/schedule/generate", s.handleGenerateSchedule)
		r.Get("/schedule/current", s.handleCurrentSchedule)
		r.Post("/simulate/rush-order", s.handleSimulateRushOrder)
		r.Post("/simulate/delivery", s.handleEstimateDelivery)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateScheduleRequest struct {
	OrderIDs    []uuid.UUID `json:"order_ids"`
	HorizonDays int         `json:"horizon_days"`
	Strategy    string      `json:"strategy"`
}

func (s *Server) handleGenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var body generateScheduleRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.scheduler.GenerateSchedule(r.Context(), plan.Request{
		OrderIDs:    body.OrderIDs,
		HorizonDays: body.HorizonDays,
		Strategy:    plan.Strategy(body.Strategy),
	})
	if err != nil {
		var schedErr *plan.SchedulingError
		if errors.As(err, &schedErr) {
			writeError(w, http.StatusUnprocessableEntity, schedErr.Reason)
			return
		}
		s.log.Errorf("schedule generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "schedule generation failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCurrentSchedule(w http.ResponseWriter, r *http.Request) {
	f := store.JobFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  100,
	}
	if raw := r.URL.Query().Get("production_line_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid production_line_id")
			return
		}
		f.ProductionLineID = id
	}
	if raw := r.URL.Query().Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid skip")
			return
		}
		f.Skip = v
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 500 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = v
	}

	jobs, err := s.jobs.CurrentJobs(r.Context(), f)
	if err != nil {
		s.log.Errorf("list jobs failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list scheduled jobs")
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

func (s *Server) handleSimulateRushOrder(w http.ResponseWriter, r *http.Request) {
	var rush simulate.RushOrder
	if err := decodeBody(r, &rush); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.simulator.SimulateRushOrder(r.Context(), rush)
	if err != nil {
		var simErr *simulate.SimulationError
		if errors.As(err, &simErr) {
			writeError(w, http.StatusUnprocessableEntity, simErr.Reason)
			return
		}
		s.log.Errorf("rush order simulation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "simulation failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type deliveryRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (s *Server) handleEstimateDelivery(w http.ResponseWriter, r *http.Request) {
	var body deliveryRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	estimate, err := s.simulator.EstimateDelivery(r.Context(), body.ProductID, body.Quantity)
	if err != nil {
		var simErr *simulate.SimulationError
		if errors.As(err, &simErr) {
			writeError(w, http.StatusUnprocessableEntity, simErr.Reason)
			return
		}
		s.log.Errorf("delivery estimation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "delivery estimation failed")
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
