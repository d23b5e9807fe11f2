package taskresume

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

// ServiceConfig is the configuration for the resume service.
type ServiceConfig struct {
	TaskRepo storage.TaskRepository
	Runner   Runner
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TaskRepo == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Service resumes a paused task from its last confirmed position. Wallets
// whose records are already finalized are not re-executed.
type Service struct {
	taskRepo storage.TaskRepository
	runner   Runner
	logger   log.Logger
}

// NewService creates a new resume service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		taskRepo: cfg.TaskRepo,
		runner:   cfg.Runner,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the resume request parameters.
type Request struct {
	TaskID string
}

// Result is the resume outcome.
type Result struct {
	Task *model.Task
	// Done delivers the background run error (or nil) once the run ends.
	Done <-chan error
}

// Run resumes a task by ID.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	task, err := s.taskRepo.GetTask(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("task not found: %s: %w", req.TaskID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	if task.Status != model.TaskStatusPaused {
		return nil, fmt.Errorf("cannot resume task: not paused (current status: %s): %w", task.Status, model.ErrNotValid)
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

	s.logger.Infof("Resumed task: %s (ID: %s, from wallet index %d)", task.Name, task.ID, task.LastWalletIndex)
	return &Result{Task: task, Done: done}, nil
}
