package storage

import (
	"context"

	"github.com/herdctl/herd/internal/model"
)

// TaskRepository is the interface for task persistence.
type TaskRepository interface {
	CreateTask(ctx context.Context, t model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) error

	// UpdateTaskProgress persists progress and the wallet cursor without
	// touching the rest of the task row, so a concurrent status transition
	// (e.g. a pause) is never overwritten by a worker.
	UpdateTaskProgress(ctx context.Context, id string, progress, lastWalletIndex int) error

	DeleteTask(ctx context.Context, id string) error
}

// RecordRepository is the interface for execution record persistence.
//
// Every mutation is written through immediately, the store favors crash
// safety over throughput.
type RecordRepository interface {
	// CreateRecords inserts a batch of records.
	CreateRecords(ctx context.Context, records []model.ExecutionRecord) error

	// GetRecords returns all records of a task ordered by wallet index and action.
	GetRecords(ctx context.Context, taskID string) ([]model.ExecutionRecord, error)

	// SaveRecord inserts or replaces a single record, keyed by
	// (task, wallet index, action).
	SaveRecord(ctx context.Context, r model.ExecutionRecord) error

	// ClearRecords removes all records of a task.
	ClearRecords(ctx context.Context, taskID string) error
}
