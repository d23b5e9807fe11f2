package taskcreate

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/storage"
)

// ServiceConfig is the configuration for the create service.
type ServiceConfig struct {
	TaskRepo storage.TaskRepository
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TaskRepo == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Service creates new tasks.
type Service struct {
	taskRepo storage.TaskRepository
	logger   log.Logger
}

// NewService creates a new create service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		taskRepo: cfg.TaskRepo,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the create request parameters.
type Request struct {
	Name   string
	Config model.TaskConfig
}

// Run validates and persists a new pending task.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required: %w", model.ErrNotValid)
	}
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}

	task := model.Task{
		ID:        ulid.Make().String(),
		Name:      req.Name,
		Config:    req.Config,
		Status:    model.TaskStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.taskRepo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("could not create task: %w", err)
	}

	s.logger.Infof("Created task: %s (ID: %s)", task.Name, task.ID)
	return &task, nil
}
