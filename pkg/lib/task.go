package lib

import (
	"context"
	"fmt"

	"github.com/herdctl/herd/internal/app/taskcreate"
	"github.com/herdctl/herd/internal/app/tasklist"
	"github.com/herdctl/herd/internal/app/taskpause"
	"github.com/herdctl/herd/internal/app/taskresume"
	"github.com/herdctl/herd/internal/app/taskstart"
	"github.com/herdctl/herd/internal/app/taskstatus"
	"github.com/herdctl/herd/internal/app/taskstop"
	"github.com/herdctl/herd/internal/model"
)

// CreateTask creates a new pending task.
//
// Returns [ErrAlreadyExists] if the name is taken, or [ErrNotValid] if the
// configuration does not validate.
func (c *Client) CreateTask(ctx context.Context, opts CreateTaskOpts) (*Task, error) {
	svc, err := taskcreate.NewService(taskcreate.ServiceConfig{
		TaskRepo: c.taskRepo,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, taskcreate.Request{
		Name:   opts.Name,
		Config: toInternalTaskConfig(opts.Config),
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// StartTask starts a pending, cancelled, or settled task from the first
// wallet. Pass nil opts for defaults.
//
// Without opts.Wait the call returns as soon as the task transitioned to
// running, execution proceeds in the background until the process exits or
// the run drains. With opts.Wait the call blocks until the run ends and
// returns the final task state.
//
// Starting a completed task is a no-op unless opts.Restart is set. Starting
// a failed task requires opts.Restart. Use [Client.ResumeTask] for paused
// tasks.
//
// Returns [ErrNotFound] if the task does not exist, or [ErrNotValid] if the
// task state does not permit a start.
func (c *Client) StartTask(ctx context.Context, nameOrID string, opts *StartTaskOpts) (*Task, error) {
	if opts == nil {
		opts = &StartTaskOpts{}
	}

	task, err := c.getInternalTask(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	runner, err := c.newRunner()
	if err != nil {
		return nil, fmt.Errorf("could not create runner: %w", err)
	}

	svc, err := taskstart.NewService(taskstart.ServiceConfig{
		TaskRepo:   c.taskRepo,
		RecordRepo: c.recordRepo,
		Runner:     runner,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	result, err := svc.Run(ctx, taskstart.Request{
		TaskID:  task.ID,
		Restart: opts.Restart,
	})
	if err != nil {
		return nil, mapError(err)
	}

	if opts.Wait {
		return c.waitTask(ctx, task.ID, result.Done)
	}

	out := fromInternalTask(*result.Task)
	return &out, nil
}

// PauseTask pauses a running task. Workers observe the pause at their next
// wallet or action boundary and stop cooperatively, so in-flight actions
// still settle after the call returns.
//
// Returns [ErrNotFound] if the task does not exist, or [ErrNotValid] if the
// task is not running.
func (c *Client) PauseTask(ctx context.Context, nameOrID string) (*Task, error) {
	task, err := c.getInternalTask(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	svc, err := taskpause.NewService(taskpause.ServiceConfig{
		TaskRepo:   c.taskRepo,
		RecordRepo: c.recordRepo,
		Wallets:    c.wallets,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	result, err := svc.Run(ctx, taskpause.Request{TaskID: task.ID})
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalTask(*result)
	return &out, nil
}

// ResumeTask resumes a paused task from where it left off: wallets whose
// actions already settled are not re-executed. Pass nil opts for defaults.
//
// Without opts.Wait the call returns as soon as the task transitioned back
// to running. With opts.Wait the call blocks until the run ends and returns
// the final task state.
//
// Returns [ErrNotFound] if the task does not exist, or [ErrNotValid] if the
// task is not paused.
func (c *Client) ResumeTask(ctx context.Context, nameOrID string, opts *ResumeTaskOpts) (*Task, error) {
	if opts == nil {
		opts = &ResumeTaskOpts{}
	}

	task, err := c.getInternalTask(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	runner, err := c.newRunner()
	if err != nil {
		return nil, fmt.Errorf("could not create runner: %w", err)
	}

	svc, err := taskresume.NewService(taskresume.ServiceConfig{
		TaskRepo: c.taskRepo,
		Runner:   runner,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	result, err := svc.Run(ctx, taskresume.Request{TaskID: task.ID})
	if err != nil {
		return nil, mapError(err)
	}

	if opts.Wait {
		return c.waitTask(ctx, task.ID, result.Done)
	}

	out := fromInternalTask(*result.Task)
	return &out, nil
}

// StopTask stops a running or paused task. Pending records are labelled
// cancelled and the next start begins from the first wallet again.
//
// Returns [ErrNotFound] if the task does not exist, or [ErrNotValid] if the
// task is neither running nor paused.
func (c *Client) StopTask(ctx context.Context, nameOrID string) (*Task, error) {
	task, err := c.getInternalTask(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	svc, err := taskstop.NewService(taskstop.ServiceConfig{
		TaskRepo:   c.taskRepo,
		RecordRepo: c.recordRepo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	result, err := svc.Run(ctx, taskstop.Request{TaskID: task.ID})
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalTask(*result)
	return &out, nil
}

// GetTask retrieves a task by name or ID.
func (c *Client) GetTask(ctx context.Context, nameOrID string) (*Task, error) {
	task, err := c.getInternalTask(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalTask(*task)
	return &out, nil
}

// GetTaskStatus retrieves a task together with its execution records.
// Queryable at any time, including mid-run.
//
// Returns [ErrNotFound] if the task does not exist.
func (c *Client) GetTaskStatus(ctx context.Context, nameOrID string) (*TaskStatusDetail, error) {
	task, err := c.getInternalTask(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	svc, err := taskstatus.NewService(taskstatus.ServiceConfig{
		TaskRepo:   c.taskRepo,
		RecordRepo: c.recordRepo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	status, err := svc.Run(ctx, taskstatus.Request{TaskID: task.ID})
	if err != nil {
		return nil, mapError(err)
	}

	return &TaskStatusDetail{
		Task:    fromInternalTask(status.Task),
		Records: fromInternalRecordList(status.Records),
	}, nil
}

// ListTasks lists all tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	svc, err := tasklist.NewService(tasklist.ServiceConfig{
		TaskRepo: c.taskRepo,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	tasks, err := svc.Run(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalTaskList(tasks), nil
}

// RemoveTask deletes a task and its execution records.
//
// A running task must be stopped first.
//
// Returns [ErrNotFound] if the task does not exist, or [ErrNotValid] if the
// task is running.
func (c *Client) RemoveTask(ctx context.Context, nameOrID string) (*Task, error) {
	task, err := c.getInternalTask(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	if task.Status == model.TaskStatusRunning {
		return nil, mapError(fmt.Errorf("task %s is running: %w", task.Name, model.ErrNotValid))
	}

	if err := c.taskRepo.DeleteTask(ctx, task.ID); err != nil {
		return nil, mapError(fmt.Errorf("could not delete task: %w", err))
	}

	out := fromInternalTask(*task)
	return &out, nil
}

// waitTask blocks until the background run delivers its outcome, then
// re-reads the final task state.
func (c *Client) waitTask(ctx context.Context, taskID string, done <-chan error) (*Task, error) {
	select {
	case err := <-done:
		if err != nil {
			return nil, mapError(fmt.Errorf("task run failed: %w", err))
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	task, err := c.taskRepo.GetTask(context.WithoutCancel(ctx), taskID)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not get task: %w", err))
	}

	out := fromInternalTask(*task)
	return &out, nil
}
