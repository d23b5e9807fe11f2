package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

type recordKey struct {
	taskID      string
	walletIndex int
	action      string
}

// Repository is an in-memory implementation of storage.TaskRepository and
// storage.RecordRepository. Used by tests and the embeddable SDK.
type Repository struct {
	tasks   map[string]model.Task
	records map[recordKey]model.ExecutionRecord
	mu      sync.RWMutex
	logger  log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		tasks:   make(map[string]model.Task),
		records: make(map[recordKey]model.ExecutionRecord),
		logger:  cfg.Logger,
	}, nil
}

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("task with id %s: %w", t.ID, model.ErrAlreadyExists)
	}

	for _, existing := range r.tasks {
		if existing.Name == t.Name {
			return fmt.Errorf("task with name %s: %w", t.Name, model.ErrAlreadyExists)
		}
	}

	r.tasks[t.ID] = t
	r.logger.Debugf("Created task in repository: %s", t.ID)

	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	taskCopy := task
	return &taskCopy, nil
}

// ListTasks returns all tasks.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })

	return tasks, nil
}

// UpdateTask updates an existing task.
func (r *Repository) UpdateTask(ctx context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; !ok {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrNotFound)
	}

	r.tasks[t.ID] = t
	return nil
}

// UpdateTaskProgress persists progress and the wallet cursor only.
func (r *Repository) UpdateTaskProgress(ctx context.Context, id string, progress, lastWalletIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	task.Progress = progress
	task.LastWalletIndex = lastWalletIndex
	r.tasks[id] = task

	return nil
}

// DeleteTask deletes a task and its records.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	delete(r.tasks, id)
	for k := range r.records {
		if k.taskID == id {
			delete(r.records, k)
		}
	}

	return nil
}

// CreateRecords inserts a batch of records.
func (r *Repository) CreateRecords(ctx context.Context, records []model.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		k := recordKey{taskID: rec.TaskID, walletIndex: rec.WalletIndex, action: rec.Action}
		if _, ok := r.records[k]; ok {
			return fmt.Errorf("record for task %s wallet %d action %s: %w", rec.TaskID, rec.WalletIndex, rec.Action, model.ErrAlreadyExists)
		}
	}
	for _, rec := range records {
		k := recordKey{taskID: rec.TaskID, walletIndex: rec.WalletIndex, action: rec.Action}
		r.records[k] = rec
	}

	return nil
}

// GetRecords returns all records of a task ordered by wallet index and action.
func (r *Repository) GetRecords(ctx context.Context, taskID string) ([]model.ExecutionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []model.ExecutionRecord
	for k, rec := range r.records {
		if k.taskID == taskID {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].WalletIndex != records[j].WalletIndex {
			return records[i].WalletIndex < records[j].WalletIndex
		}
		return records[i].Action < records[j].Action
	})

	return records, nil
}

// SaveRecord inserts or replaces a single record.
func (r *Repository) SaveRecord(ctx context.Context, rec model.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := recordKey{taskID: rec.TaskID, walletIndex: rec.WalletIndex, action: rec.Action}
	r.records[k] = rec

	return nil
}

// ClearRecords removes all records of a task.
func (r *Repository) ClearRecords(ctx context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k := range r.records {
		if k.taskID == taskID {
			delete(r.records, k)
		}
	}

	return nil
}
