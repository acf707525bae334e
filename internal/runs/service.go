// Package runs executes actions in the background and records their outcome.
package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/kafkaops/internal/action"
	"github.com/kiranshivaraju/kafkaops/internal/cache"
	"github.com/kiranshivaraju/kafkaops/internal/store"
	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

// Actions resolves action names.
type Actions interface {
	Get(name string) (action.Action, error)
}

// Service starts and tracks asynchronous action runs.
type Service struct {
	actions   Actions
	store     store.Store
	cache     cache.Cache
	statusTTL time.Duration
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewService creates a new Service.
func NewService(actions Actions, st store.Store, ca cache.Cache, statusTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		actions:   actions,
		store:     st,
		cache:     ca,
		statusTTL: statusTTL,
		logger:    logger.With("component", "runs"),
	}
}

// Start validates input, records a pending run and executes the action in a
// background goroutine. It returns the run without waiting for it.
// Unknown actions return action.ErrUnknownAction and invalid input returns a
// validation *action.Failure; no run is created in either case.
func (s *Service) Start(ctx context.Context, name string, input json.RawMessage) (*models.Run, error) {
	a, err := s.actions.Get(name)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(input); err != nil {
		return nil, err
	}

	request := input
	if len(request) == 0 {
		request = json.RawMessage("{}")
	}

	now := time.Now().UTC()
	run := &models.Run{
		ID:        uuid.New(),
		Action:    a.Name(),
		Status:    models.RunStatusPending,
		Request:   request,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	_ = s.cache.SetRunStatus(ctx, run.ID, models.RunStatusPending, s.statusTTL)

	s.wg.Add(1)
	go s.execute(a, run.ID, request)

	return run, nil
}

// execute runs the action. It recovers from panics and always marks the run
// as completed or failed.
func (s *Service) execute(a action.Action, runID uuid.UUID, input json.RawMessage) {
	defer s.wg.Done()

	// Bounded by the job client's own polling limits.
	ctx := context.Background()
	log := s.logger.With("run_id", runID, "action", a.Name())

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in run", "error", r)
			s.fail(ctx, runID, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := s.store.UpdateRunStatus(ctx, runID, models.RunStatusRunning); err != nil {
		log.Error("marking run as running", "error", err)
	}
	_ = s.cache.SetRunStatus(ctx, runID, models.RunStatusRunning, s.statusTTL)

	start := time.Now()
	resp, err := a.Invoke(ctx, input)
	if err != nil {
		s.fail(ctx, runID, err.Error())
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		s.fail(ctx, runID, fmt.Sprintf("encoding response: %v", err))
		return
	}

	if err := s.store.UpdateRunStatus(ctx, runID, models.RunStatusCompleted, store.WithResponse(body)); err != nil {
		log.Error("storing run response", "error", err)
	}
	_ = s.cache.SetRunStatus(ctx, runID, models.RunStatusCompleted, s.statusTTL)

	log.Info("run completed", "duration_ms", time.Since(start).Milliseconds())
}

func (s *Service) fail(ctx context.Context, runID uuid.UUID, msg string) {
	if err := s.store.UpdateRunStatus(ctx, runID, models.RunStatusFailed, store.WithErrorMessage(msg)); err != nil {
		s.logger.Error("marking run as failed", "run_id", runID, "error", err)
	}
	_ = s.cache.SetRunStatus(ctx, runID, models.RunStatusFailed, s.statusTTL)
}

// Get returns a run with its response once finished. Finished runs no longer
// change, so they are served from the cache after the first read.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	if b, ok, err := s.cache.Get(ctx, cache.RunKey(id)); err == nil && ok {
		var run models.Run
		if err := json.Unmarshal(b, &run); err == nil {
			return &run, nil
		}
	} else if err != nil {
		s.logger.Warn("run cache read failed", "run_id", id, "error", err)
	}

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Finished() {
		if b, err := json.Marshal(run); err == nil {
			_ = s.cache.Set(ctx, cache.RunKey(id), b, s.statusTTL)
		}
	}
	return run, nil
}

// List returns runs matching filter, newest first, and the total match count.
func (s *Service) List(ctx context.Context, filter store.RunFilter) ([]*models.Run, int, error) {
	return s.store.ListRuns(ctx, filter)
}

// Status returns a run's status, from the cache when present.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (string, error) {
	if status, ok, err := s.cache.GetRunStatus(ctx, id); err == nil && ok {
		return status, nil
	} else if err != nil {
		s.logger.Warn("run status cache read failed", "run_id", id, "error", err)
	}

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return "", err
	}
	_ = s.cache.SetRunStatus(ctx, id, run.Status, s.statusTTL)
	return run.Status, nil
}

// Wait blocks until every started run has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("runs still in flight"), ctx.Err())
	}
}
