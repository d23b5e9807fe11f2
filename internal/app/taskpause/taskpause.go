package taskpause

import (
	"context"
	"errors"
	"fmt"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/storage"
	"github.com/herdctl/herd/internal/wallet"
)

// ServiceConfig is the configuration for the pause service.
type ServiceConfig struct {
	TaskRepo   storage.TaskRepository
	RecordRepo storage.RecordRepository
	Wallets    wallet.Provider
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TaskRepo == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.RecordRepo == nil {
		return fmt.Errorf("record repository is required")
	}
	if c.Wallets == nil {
		return fmt.Errorf("wallet provider is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Service pauses a running task. Pausing does not stop workers directly,
// they observe the new status at their next wallet or action boundary and
// stop cooperatively.
type Service struct {
	taskRepo   storage.TaskRepository
	recordRepo storage.RecordRepository
	wallets    wallet.Provider
	logger     log.Logger
}

// NewService creates a new pause service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		taskRepo:   cfg.TaskRepo,
		recordRepo: cfg.RecordRepo,
		wallets:    cfg.Wallets,
		logger:     cfg.Logger,
	}, nil
}

// Request represents the pause request parameters.
type Request struct {
	TaskID string
}

// Run pauses a task by ID, persisting a snapshot of its current progress.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	task, err := s.taskRepo.GetTask(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("task not found: %s: %w", req.TaskID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	if task.Status != model.TaskStatusRunning {
		return nil, fmt.Errorf("cannot pause task: not running (current status: %s): %w", task.Status, model.ErrNotValid)
	}

	wallets, err := s.wallets.GetWalletsInGroup(ctx, task.Config.WalletGroup)
	if err != nil {
		return nil, fmt.Errorf("could not get wallets: %w", err)
	}
	records, err := s.recordRepo.GetRecords(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("could not get records: %w", err)
	}

	task.Status = model.TaskStatusPaused
	task.Progress = model.TaskProgress(records, len(wallets), len(task.Config.Actions))
	if err := s.taskRepo.UpdateTask(ctx, *task); err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	s.logger.Infof("Paused task: %s (ID: %s, progress %d%%)", task.Name, task.ID, task.Progress)
	return task, nil
}
