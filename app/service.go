// Package app wires configuration, storage, engines and the HTTP API
// into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"shopfloor-planner/api"
	"shopfloor-planner/config"
	"shopfloor-planner/core/calendar"
	"shopfloor-planner/core/plan"
	"shopfloor-planner/core/simulate"
	"shopfloor-planner/infra/logger"
	"shopfloor-planner/infra/metrics"
	"shopfloor-planner/infra/notify"
	"shopfloor-planner/infra/store"
)

// Service orchestrates the scheduler, simulator and API server.
type Service struct {
	Scheduler *plan.Scheduler
	Simulator *simulate.Simulator

	store    *store.Store
	notifier notify.PlanNotifier
	server   *http.Server
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	cal := calendar.New(cfg.Calendar)

	sink, err := metrics.NewSink(cfg.Metrics)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("plan notifier: %w", err)
	}

	scheduler := plan.New(st, st, cal, cfg.Scheduling, logger.New("scheduler"), sink)
	simulator := simulate.New(st, cal, cfg.Simulation, logger.New("simulator"), sink)

	srv := api.NewServer(&notifyingScheduler{scheduler: scheduler, notifier: notifier, log: logg},
		simulator, st, logger.New("api"))

	return &Service{
		Scheduler: scheduler,
		Simulator: simulator,
		store:     st,
		notifier:  notifier,
		server:    &http.Server{Addr: cfg.HTTP.Addr, Handler: srv.Handler()},
		log:       logg,
	}, nil
}

// Run serves the API and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the store and broker connections.
func (s *Service) Close() {
	s.notifier.Close()
	s.store.Close()
}

// notifyingScheduler publishes the new plan to the shop floor after a
// successful run. Publish failures are logged, never surfaced: the plan
// is already persisted by then.
type notifyingScheduler struct {
	scheduler *plan.Scheduler
	notifier  notify.PlanNotifier
	log       logger.Logger
}

func (n *notifyingScheduler) GenerateSchedule(ctx context.Context, req plan.Request) (*plan.Result, error) {
	result, err := n.scheduler.GenerateSchedule(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(result.Jobs) > 0 {
		if err := n.notifier.PublishPlan(result.Jobs); err != nil {
			n.log.Warnf("plan notification failed: %v", err)
		}
	}
	return result, nil
}
