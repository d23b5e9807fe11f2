package tasklist

import (
	"context"
	"fmt"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/storage"
)

// ServiceConfig is the configuration for the list service.
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

// Service lists tasks.
type Service struct {
	taskRepo storage.TaskRepository
	logger   log.Logger
}

// NewService creates a new list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		taskRepo: cfg.TaskRepo,
		logger:   cfg.Logger,
	}, nil
}

// Run returns all known tasks.
func (s *Service) Run(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.taskRepo.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}

	return tasks, nil
}
