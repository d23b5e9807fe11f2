package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite task repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.TaskRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository, opening the database and
// running pending migrations.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// DB returns the underlying database connection so other repositories can
// share it.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

const taskColumns = `
	id, name, project, wallet_group, actions,
	amount, worker_count, use_proxy, proxy_group, cron,
	status, progress, last_wallet_index,
	created_at, started_at, ended_at
`

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	if err := t.Config.Validate(); err != nil {
		return err
	}

	actions, err := json.Marshal(t.Config.Actions)
	if err != nil {
		return fmt.Errorf("could not encode actions: %w", err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		t.ID,
		t.Name,
		t.Config.Project,
		t.Config.WalletGroup,
		string(actions),
		t.Config.Amount,
		t.Config.WorkerCount,
		t.Config.UseProxy,
		t.Config.ProxyGroup,
		t.Config.Cron,
		t.Status,
		t.Progress,
		t.LastWalletIndex,
		t.CreatedAt.Unix(),
		unixPtr(t.StartedAt),
		unixPtr(t.EndedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: tasks.") {
			return fmt.Errorf("task already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert task: %w", err)
	}

	r.logger.Debugf("Created task in repository: %s", t.ID)
	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	task, err := r.scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	return &task, nil
}

// ListTasks returns all tasks ordered by creation time.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

// UpdateTask updates an existing task.
func (r *Repository) UpdateTask(ctx context.Context, t model.Task) error {
	actions, err := json.Marshal(t.Config.Actions)
	if err != nil {
		return fmt.Errorf("could not encode actions: %w", err)
	}

	query := `
		UPDATE tasks
		SET
			name = ?,
			project = ?,
			wallet_group = ?,
			actions = ?,
			amount = ?,
			worker_count = ?,
			use_proxy = ?,
			proxy_group = ?,
			cron = ?,
			status = ?,
			progress = ?,
			last_wallet_index = ?,
			created_at = ?,
			started_at = ?,
			ended_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		t.Name,
		t.Config.Project,
		t.Config.WalletGroup,
		string(actions),
		t.Config.Amount,
		t.Config.WorkerCount,
		t.Config.UseProxy,
		t.Config.ProxyGroup,
		t.Config.Cron,
		t.Status,
		t.Progress,
		t.LastWalletIndex,
		t.CreatedAt.Unix(),
		unixPtr(t.StartedAt),
		unixPtr(t.EndedAt),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated task in repository: %s", t.ID)
	return nil
}

// UpdateTaskProgress persists progress and the wallet cursor only.
func (r *Repository) UpdateTaskProgress(ctx context.Context, id string, progress, lastWalletIndex int) error {
	query := `UPDATE tasks SET progress = ?, last_wallet_index = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, progress, lastWalletIndex, id)
	if err != nil {
		return fmt.Errorf("could not update task progress: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	return nil
}

// DeleteTask deletes a task. Its execution records go with it.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted task from repository: %s", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanTask(s scanner) (model.Task, error) {
	var task model.Task
	var actionsRaw string
	var createdAt, startedAt, endedAt sql.NullInt64

	err := s.Scan(
		&task.ID,
		&task.Name,
		&task.Config.Project,
		&task.Config.WalletGroup,
		&actionsRaw,
		&task.Config.Amount,
		&task.Config.WorkerCount,
		&task.Config.UseProxy,
		&task.Config.ProxyGroup,
		&task.Config.Cron,
		&task.Status,
		&task.Progress,
		&task.LastWalletIndex,
		&createdAt,
		&startedAt,
		&endedAt,
	)
	if err != nil {
		return model.Task{}, err
	}

	if err := json.Unmarshal([]byte(actionsRaw), &task.Config.Actions); err != nil {
		return model.Task{}, fmt.Errorf("could not decode actions: %w", err)
	}

	if !createdAt.Valid {
		return model.Task{}, fmt.Errorf("created_at is required")
	}
	task.CreatedAt = timeFromUnix(createdAt.Int64)
	if startedAt.Valid {
		t := timeFromUnix(startedAt.Int64)
		task.StartedAt = &t
	}
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Int64)
		task.EndedAt = &t
	}

	return task, nil
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	u := t.Unix()
	return &u
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
