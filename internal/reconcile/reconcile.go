package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/storage"
	"github.com/herdctl/herd/internal/wallet"
)

// ServiceConfig is the configuration for the reconcile service.
type ServiceConfig struct {
	TaskRepo   storage.TaskRepository
	RecordRepo storage.RecordRepository
	Wallets    wallet.Provider
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TaskRepo == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.RecordRepo == nil {
		return fmt.Errorf("record repository is required")
	}
	if c.Wallets == nil {
		return fmt.Errorf("wallet provider is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "reconcile.Service"})
	return nil
}

// Service realigns persisted task and record state on process start.
//
// A task that was running when the previous process died is downgraded to
// paused, its unfinished records relabelled, and any missing (wallet, action)
// record is backfilled so the W×A record set invariant holds. The pass is
// idempotent, running it twice produces no further changes.
type Service struct {
	taskRepo   storage.TaskRepository
	recordRepo storage.RecordRepository
	wallets    wallet.Provider
	logger     log.Logger
}

// NewService creates a new reconcile service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		taskRepo:   cfg.TaskRepo,
		recordRepo: cfg.RecordRepo,
		wallets:    cfg.Wallets,
		logger:     cfg.Logger,
	}, nil
}

// Run reconciles every known task.
func (s *Service) Run(ctx context.Context) error {
	tasks, err := s.taskRepo.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	for _, task := range tasks {
		if err := s.reconcileTask(ctx, task); err != nil {
			return fmt.Errorf("could not reconcile task %s: %w", task.ID, err)
		}
	}

	return nil
}

func (s *Service) reconcileTask(ctx context.Context, task model.Task) error {
	wallets, err := s.wallets.GetWalletsInGroup(ctx, task.Config.WalletGroup)
	if err != nil {
		return fmt.Errorf("could not get wallets for group %s: %w", task.Config.WalletGroup, err)
	}

	records, err := s.recordRepo.GetRecords(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("could not get records: %w", err)
	}

	// A task interrupted while running has no workers anymore: downgrade.
	interrupted := task.Status == model.TaskStatusRunning

	type key struct {
		walletIndex int
		action      string
	}
	existing := map[key]model.ExecutionRecord{}
	for _, rec := range records {
		if rec.WalletIndex == model.SystemWalletIndex {
			continue
		}
		existing[key{walletIndex: rec.WalletIndex, action: rec.Action}] = rec
	}

	placeholder := model.RecordStatusPreparing
	if task.Status == model.TaskStatusPaused || interrupted {
		placeholder = model.RecordStatusPaused
	}

	// Backfill only the missing combinations, existing records stay
	// untouched.
	now := time.Now().UTC()
	var missing []model.ExecutionRecord
	for i, w := range wallets {
		for _, act := range task.Config.Actions {
			if _, ok := existing[key{walletIndex: i, action: act}]; ok {
				continue
			}
			missing = append(missing, model.ExecutionRecord{
				TaskID:        task.ID,
				WalletAddress: w.Address,
				WalletIndex:   i,
				Action:        act,
				Status:        placeholder,
				UpdatedAt:     now,
			})
		}
	}
	if len(missing) > 0 {
		if err := s.recordRepo.CreateRecords(ctx, missing); err != nil {
			return fmt.Errorf("could not backfill records: %w", err)
		}
		s.logger.Infof("Task %s: backfilled %d missing records", task.ID, len(missing))
	}

	if !interrupted {
		return nil
	}

	// Relabel records that claim to be in flight: nothing is running.
	for _, rec := range existing {
		if rec.Status.Terminal() || rec.Status == model.RecordStatusPaused {
			continue
		}
		rec.Status = model.RecordStatusPaused
		rec.UpdatedAt = now
		if err := s.recordRepo.SaveRecord(ctx, rec); err != nil {
			return fmt.Errorf("could not relabel record: %w", err)
		}
	}

	task.Status = model.TaskStatusPaused
	if err := s.taskRepo.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("could not downgrade task: %w", err)
	}

	s.logger.Warningf("Task %s was running at last shutdown, downgraded to paused", task.ID)
	return nil
}
