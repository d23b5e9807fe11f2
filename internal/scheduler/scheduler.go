package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/herdctl/herd/internal/app/taskresume"
	"github.com/herdctl/herd/internal/app/taskstart"
	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/storage"
)

// Starter starts or restarts a task.
type Starter interface {
	Run(ctx context.Context, req taskstart.Request) (*taskstart.Result, error)
}

// Resumer resumes a paused task.
type Resumer interface {
	Run(ctx context.Context, req taskresume.Request) (*taskresume.Result, error)
}

// ServiceConfig is the configuration for the scheduler service.
type ServiceConfig struct {
	TaskRepo storage.TaskRepository
	Starter  Starter
	Resumer  Resumer
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TaskRepo == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.Starter == nil {
		return fmt.Errorf("starter is required")
	}
	if c.Resumer == nil {
		return fmt.Errorf("resumer is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "scheduler.Service"})
	return nil
}

// Service fires tasks that carry a cron expression at their scheduled times.
// Schedules are read once at startup, a new schedule needs an agent restart.
type Service struct {
	taskRepo storage.TaskRepository
	starter  Starter
	resumer  Resumer
	logger   log.Logger
}

// NewService creates a new scheduler service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		taskRepo: cfg.TaskRepo,
		starter:  cfg.Starter,
		resumer:  cfg.Resumer,
		logger:   cfg.Logger,
	}, nil
}

// Run registers every scheduled task and blocks until the context is
// cancelled. In-flight runs get to finish before Run returns.
func (s *Service) Run(ctx context.Context) error {
	tasks, err := s.taskRepo.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	c := cron.New(cron.WithLocation(time.UTC))

	scheduled := 0
	for _, task := range tasks {
		if task.Config.Cron == "" {
			continue
		}

		taskID := task.ID
		_, err := c.AddFunc(task.Config.Cron, func() { s.fire(ctx, taskID) })
		if err != nil {
			return fmt.Errorf("invalid cron expression %q for task %s: %w", task.Config.Cron, task.ID, err)
		}

		s.logger.Infof("Scheduled task %s (%s): %s", task.Name, task.ID, task.Config.Cron)
		scheduled++
	}

	if scheduled == 0 {
		s.logger.Warningf("No scheduled tasks found")
	}

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()

	return nil
}

// fire launches one scheduled occurrence. The live status decides how: a
// paused task resumes, a settled one restarts from scratch, a running one is
// skipped so occurrences never overlap.
func (s *Service) fire(ctx context.Context, taskID string) {
	task, err := s.taskRepo.GetTask(ctx, taskID)
	if err != nil {
		s.logger.Errorf("Could not get scheduled task %s: %v", taskID, err)
		return
	}

	logger := s.logger.WithValues(log.Kv{"task": task.Name})

	var done <-chan error
	switch task.Status {
	case model.TaskStatusRunning:
		logger.Warningf("Previous occurrence still running, skipping")
		return
	case model.TaskStatusPaused:
		result, err := s.resumer.Run(ctx, taskresume.Request{TaskID: taskID})
		if err != nil {
			logger.Errorf("Could not resume scheduled task: %v", err)
			return
		}
		done = result.Done
	default:
		result, err := s.starter.Run(ctx, taskstart.Request{TaskID: taskID, Restart: true})
		if err != nil {
			logger.Errorf("Could not start scheduled task: %v", err)
			return
		}
		done = result.Done
	}

	logger.Infof("Scheduled occurrence started")
	if err := <-done; err != nil {
		logger.Errorf("Scheduled occurrence failed: %v", err)
		return
	}
	logger.Infof("Scheduled occurrence finished")
}
