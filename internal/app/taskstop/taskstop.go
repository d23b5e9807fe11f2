package taskstop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/storage"
)

// ServiceConfig is the configuration for the stop service.
type ServiceConfig struct {
	TaskRepo   storage.TaskRepository
	RecordRepo storage.RecordRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TaskRepo == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.RecordRepo == nil {
		return fmt.Errorf("record repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Service stops a running or paused task. The next start begins from the
// first wallet.
type Service struct {
	taskRepo   storage.TaskRepository
	recordRepo storage.RecordRepository
	logger     log.Logger
}

// NewService creates a new stop service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		taskRepo:   cfg.TaskRepo,
		recordRepo: cfg.RecordRepo,
		logger:     cfg.Logger,
	}, nil
}

// Request represents the stop request parameters.
type Request struct {
	TaskID string
}

// Run stops a task by ID. Running workers observe the cancelled status at
// their next boundary, records of work that never ran are labelled cancelled.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	task, err := s.taskRepo.GetTask(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("task not found: %s: %w", req.TaskID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	if task.Status != model.TaskStatusRunning && task.Status != model.TaskStatusPaused {
		return nil, fmt.Errorf("cannot stop task: not running or paused (current status: %s): %w", task.Status, model.ErrNotValid)
	}

	wasPaused := task.Status == model.TaskStatusPaused

	now := time.Now().UTC()
	task.Status = model.TaskStatusCancelled
	task.EndedAt = &now
	task.LastWalletIndex = 0
	if err := s.taskRepo.UpdateTask(ctx, *task); err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	// With no workers alive (the task was paused) nobody will relabel the
	// leftover records, do it here.
	if wasPaused {
		records, err := s.recordRepo.GetRecords(ctx, task.ID)
		if err != nil {
			return nil, fmt.Errorf("could not get records: %w", err)
		}
		for _, rec := range records {
			if rec.Status.Finalized() || rec.WalletIndex == model.SystemWalletIndex {
				continue
			}
			rec.Status = model.RecordStatusCancelled
			rec.UpdatedAt = now
			if err := s.recordRepo.SaveRecord(ctx, rec); err != nil {
				return nil, fmt.Errorf("could not relabel record: %w", err)
			}
		}
	}

	s.logger.Infof("Stopped task: %s (ID: %s)", task.Name, task.ID)
	return task, nil
}
