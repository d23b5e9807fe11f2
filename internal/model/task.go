package model

import (
	"fmt"
	"time"
)

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been created but never run.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates workers are processing the task.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusPaused indicates the task was paused and can resume from where it left off.
	TaskStatusPaused TaskStatus = "paused"
	// TaskStatusCancelled indicates the task was stopped; the next start begins from the first wallet.
	TaskStatusCancelled TaskStatus = "cancelled"
	// TaskStatusCompleted indicates all wallets were drained.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates an infrastructure error aborted the run.
	TaskStatusFailed TaskStatus = "failed"
)

// Task represents a configured unit of work: an ordered action list applied to every
// wallet of a group, optionally through proxies, by a pool of workers.
type Task struct {
	ID     string
	Name   string
	Config TaskConfig

	Status          TaskStatus
	Progress        int
	LastWalletIndex int
	CreatedAt       time.Time
	StartedAt       *time.Time
	EndedAt         *time.Time
}

// TaskConfig is the static configuration of a task. Immutable after creation.
type TaskConfig struct {
	Project     string
	WalletGroup string
	Actions     []string
	Amount      float64
	WorkerCount int
	UseProxy    bool
	ProxyGroup  string
	// Cron is an optional recurring schedule expression. Empty means the task
	// only runs when started explicitly.
	Cron string
}

// Validate validates the task configuration.
func (c *TaskConfig) Validate() error {
	if c.Project == "" {
		return fmt.Errorf("project is required: %w", ErrNotValid)
	}
	if c.WalletGroup == "" {
		return fmt.Errorf("wallet group is required: %w", ErrNotValid)
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf("at least one action is required: %w", ErrNotValid)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be positive: %w", ErrNotValid)
	}
	if c.UseProxy && c.ProxyGroup == "" {
		return fmt.Errorf("proxy group is required when proxy usage is enabled: %w", ErrNotValid)
	}
	return nil
}
