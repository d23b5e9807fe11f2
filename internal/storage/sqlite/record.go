package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
)

// RecordRepositoryConfig is the configuration for the SQLite record repository.
type RecordRepositoryConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *RecordRepositoryConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLiteRecords"})
	return nil
}

// RecordRepository is a SQLite implementation of storage.RecordRepository.
//
// Every mutation hits the database directly so an interrupted run never loses
// confirmed outcomes.
type RecordRepository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRecordRepository creates a new SQLite record repository sharing an
// existing database connection.
func NewRecordRepository(cfg RecordRepositoryConfig) (*RecordRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &RecordRepository{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

const recordColumns = `
	task_id, wallet_address, wallet_index, action,
	status, success, error, result_token, updated_at
`

// CreateRecords inserts a batch of records inside a single transaction.
func (r *RecordRepository) CreateRecords(ctx context.Context, records []model.ExecutionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO execution_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("could not prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(
			ctx,
			rec.TaskID,
			rec.WalletAddress,
			rec.WalletIndex,
			rec.Action,
			rec.Status,
			boolPtrToInt(rec.Success),
			rec.Error,
			rec.ResultToken,
			rec.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("could not insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Created %d records for task %s", len(records), records[0].TaskID)
	return nil
}

// GetRecords returns all records of a task ordered by wallet index and action.
func (r *RecordRepository) GetRecords(ctx context.Context, taskID string) ([]model.ExecutionRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM execution_records
		WHERE task_id = ?
		ORDER BY wallet_index ASC, action ASC
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not query records: %w", err)
	}
	defer rows.Close()

	var records []model.ExecutionRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// SaveRecord inserts or replaces a single record.
func (r *RecordRepository) SaveRecord(ctx context.Context, rec model.ExecutionRecord) error {
	query := `
		INSERT OR REPLACE INTO execution_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		rec.TaskID,
		rec.WalletAddress,
		rec.WalletIndex,
		rec.Action,
		rec.Status,
		boolPtrToInt(rec.Success),
		rec.Error,
		rec.ResultToken,
		rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("could not save record: %w", err)
	}

	return nil
}

// ClearRecords removes all records of a task.
func (r *RecordRepository) ClearRecords(ctx context.Context, taskID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM execution_records WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("could not delete records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}

	r.logger.Debugf("Cleared %d records for task %s", rows, taskID)
	return nil
}

func (r *RecordRepository) scanRecord(s scanner) (model.ExecutionRecord, error) {
	var rec model.ExecutionRecord
	var success sql.NullInt64
	var updatedAt sql.NullInt64

	err := s.Scan(
		&rec.TaskID,
		&rec.WalletAddress,
		&rec.WalletIndex,
		&rec.Action,
		&rec.Status,
		&success,
		&rec.Error,
		&rec.ResultToken,
		&updatedAt,
	)
	if err != nil {
		return model.ExecutionRecord{}, err
	}

	if success.Valid {
		b := success.Int64 != 0
		rec.Success = &b
	}
	if updatedAt.Valid {
		rec.UpdatedAt = timeFromUnix(updatedAt.Int64)
	}

	return rec, nil
}

func boolPtrToInt(b *bool) *int64 {
	if b == nil {
		return nil
	}
	var v int64
	if *b {
		v = 1
	}
	return &v
}
