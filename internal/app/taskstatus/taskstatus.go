package taskstatus

import (
	"context"
	"errors"
	"fmt"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/storage"
)

// ServiceConfig is the configuration for the status service.
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

// Service reports a task's state and per-record outcomes. Queryable at any
// time, including mid-run.
type Service struct {
	taskRepo   storage.TaskRepository
	recordRepo storage.RecordRepository
	logger     log.Logger
}

// NewService creates a new status service.
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

// Request represents the status request parameters.
type Request struct {
	TaskID string
}

// Status is the task state together with its execution records.
type Status struct {
	Task    model.Task
	Records []model.ExecutionRecord
}

// Run returns the status of a task by ID.
func (s *Service) Run(ctx context.Context, req Request) (*Status, error) {
	task, err := s.taskRepo.GetTask(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("task not found: %s: %w", req.TaskID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	records, err := s.recordRepo.GetRecords(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("could not get records: %w", err)
	}

	return &Status{
		Task:    *task,
		Records: records,
	}, nil
}
