package taskstart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/storage"
)

// Runner executes a running task in the background until it drains or halts.
type Runner interface {
	Run(ctx context.Context, taskID string) error
}

// ServiceConfig is the configuration for the start service.
type ServiceConfig struct {
	TaskRepo   storage.TaskRepository
	RecordRepo storage.RecordRepository
	Runner     Runner
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TaskRepo == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.RecordRepo == nil {
		return fmt.Errorf("record repository is required")
	}
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Service starts a task. The call returns as soon as the task has
// transitioned to running, execution proceeds in the background.
type Service struct {
	taskRepo   storage.TaskRepository
	recordRepo storage.RecordRepository
	runner     Runner
	logger     log.Logger
}

// NewService creates a new start service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		taskRepo:   cfg.TaskRepo,
		recordRepo: cfg.RecordRepo,
		runner:     cfg.Runner,
		logger:     cfg.Logger,
	}, nil
}

// Request represents the start request parameters.
type Request struct {
	TaskID string
	// Restart re-runs a completed or failed task from scratch: records are
	// cleared and progress reset. The engine never decides this on its own.
	Restart bool
}

// Result is the start outcome.
type Result struct {
	Task *model.Task
	// Done delivers the background run error (or nil) once the run ends.
	Done <-chan error
}

// Run starts a task by ID.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	task, err := s.taskRepo.GetTask(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("task not found: %s: %w", req.TaskID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	restart := false
	switch task.Status {
	case model.TaskStatusRunning:
		return nil, fmt.Errorf("task is already running: %w", model.ErrNotValid)
	case model.TaskStatusCompleted:
		if !req.Restart {
			// Explicit restart decision required, this is a no-op.
			s.logger.Infof("Task %s already completed, nothing to do", task.ID)
			done := make(chan error)
			close(done)
			return &Result{Task: task, Done: done}, nil
		}
		restart = true
	case model.TaskStatusFailed:
		if !req.Restart {
			return nil, fmt.Errorf("task failed, restart required: %w", model.ErrNotValid)
		}
		restart = true
	case model.TaskStatusCancelled:
		// A stopped task always starts over from the first wallet.
		restart = true
	}

	if restart {
		if err := s.recordRepo.ClearRecords(ctx, task.ID); err != nil {
			return nil, fmt.Errorf("could not clear records: %w", err)
		}
		task.Progress = 0
		task.LastWalletIndex = 0
		task.EndedAt = nil
	}

	now := time.Now().UTC()
	task.Status = model.TaskStatusRunning
	task.StartedAt = &now
	if err := s.taskRepo.UpdateTask(ctx, *task); err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.runner.Run(ctx, task.ID)
	}()

	s.logger.Infof("Started task: %s (ID: %s)", task.Name, task.ID)
	return &Result{Task: task, Done: done}, nil
}
