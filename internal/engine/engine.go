package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/herdctl/herd/internal/action"
	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/proxy"
	"github.com/herdctl/herd/internal/storage"
	"github.com/herdctl/herd/internal/wallet"
)

// RunnerConfig is the configuration for the task runner.
type RunnerConfig struct {
	TaskRepo   storage.TaskRepository
	RecordRepo storage.RecordRepository
	Wallets    wallet.Provider
	Invoker    action.Invoker
	// Proxies is optional, without it tasks run over direct connections even
	// when they request proxy usage.
	Proxies proxy.Allocator
	Logger  log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.TaskRepo == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.RecordRepo == nil {
		return fmt.Errorf("record repository is required")
	}
	if c.Wallets == nil {
		return fmt.Errorf("wallet provider is required")
	}
	if c.Invoker == nil {
		return fmt.Errorf("invoker is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Runner"})
	return nil
}

// Runner executes a task's action list over its wallet group with a pool of
// workers. Each run owns its workers for its lifetime, there is no global
// pool.
//
// Workers cooperate on cancellation: the live task status is re-read at every
// wallet and action boundary, an in-flight action is never force terminated.
type Runner struct {
	taskRepo   storage.TaskRepository
	recordRepo storage.RecordRepository
	wallets    wallet.Provider
	invoker    action.Invoker
	proxies    proxy.Allocator
	logger     log.Logger
}

// NewRunner creates a new task runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		taskRepo:   cfg.TaskRepo,
		recordRepo: cfg.RecordRepo,
		wallets:    cfg.Wallets,
		invoker:    cfg.Invoker,
		proxies:    cfg.Proxies,
		logger:     cfg.Logger,
	}, nil
}

// run is the shared state of one task run. All task and record mutations are
// serialized through its mutex: a single writer at a time, contention is low
// relative to network latency.
type run struct {
	task    model.Task
	wallets []model.Wallet

	// persistCtx is detached from run cancellation: bookkeeping writes must
	// land even while the run is being interrupted.
	persistCtx context.Context

	mu      sync.Mutex
	records map[recordKey]model.ExecutionRecord
	cursor  int
	err     error
	cancel  context.CancelFunc
}

type recordKey struct {
	walletIndex int
	action      string
}

// fail records the first infrastructure error and cancels the run so other
// workers stop at their next boundary.
func (r *run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
		r.cancel()
	}
}

func (r *run) failed() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Run executes a task until its wallet queue is drained or the task is
// paused, stopped or failed. It blocks until every worker has exited: the
// wait is unbounded, gated strictly on the empty-queue and zero-active-worker
// condition, cancellation being the only early-exit path.
func (r *Runner) Run(ctx context.Context, taskID string) error {
	persistCtx := context.WithoutCancel(ctx)

	task, err := r.taskRepo.GetTask(persistCtx, taskID)
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}

	wallets, err := r.wallets.GetWalletsInGroup(persistCtx, task.Config.WalletGroup)
	if err != nil {
		return r.abort(persistCtx, task.ID, fmt.Errorf("could not get wallets for group %s: %w", task.Config.WalletGroup, err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := &run{
		task:       *task,
		wallets:    wallets,
		persistCtx: persistCtx,
		cursor:     task.LastWalletIndex,
		cancel:     cancel,
	}

	st.records, err = r.ensureRecords(persistCtx, *task, wallets)
	if err != nil {
		return r.abort(persistCtx, task.ID, err)
	}

	queue := newWalletQueue(r.seedQueue(st))
	workerCount := task.Config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	r.logger.Infof("Task %s: running %d wallets with %d workers", task.ID, queue.len(), workerCount)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.worker(runCtx, st, queue, n)
		}(i)
	}
	wg.Wait()

	if err := st.failed(); err != nil {
		return r.abort(persistCtx, task.ID, err)
	}

	return r.finish(st, ctx.Err() != nil)
}

// ensureRecords makes sure the full W×A record set exists, creating the
// missing (wallet, action) placeholders in bulk.
func (r *Runner) ensureRecords(ctx context.Context, task model.Task, wallets []model.Wallet) (map[recordKey]model.ExecutionRecord, error) {
	existing, err := r.recordRepo.GetRecords(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("could not get records: %w", err)
	}

	records := make(map[recordKey]model.ExecutionRecord, len(wallets)*len(task.Config.Actions))
	for _, rec := range existing {
		if rec.WalletIndex == model.SystemWalletIndex {
			continue
		}
		records[recordKey{walletIndex: rec.WalletIndex, action: rec.Action}] = rec
	}

	now := time.Now().UTC()
	var missing []model.ExecutionRecord
	for i, w := range wallets {
		for _, act := range task.Config.Actions {
			k := recordKey{walletIndex: i, action: act}
			if _, ok := records[k]; ok {
				continue
			}
			rec := model.ExecutionRecord{
				TaskID:        task.ID,
				WalletAddress: w.Address,
				WalletIndex:   i,
				Action:        act,
				Status:        model.RecordStatusPreparing,
				UpdatedAt:     now,
			}
			records[k] = rec
			missing = append(missing, rec)
		}
	}

	if len(missing) > 0 {
		if err := r.recordRepo.CreateRecords(ctx, missing); err != nil {
			return nil, fmt.Errorf("could not create records: %w", err)
		}
	}

	return records, nil
}

// seedQueue returns the wallets that still have work. A wallet whose records
// are all finalized is skipped, which makes resume correct even when a
// previous multi-worker run stopped with wallets in flight out of cursor
// order.
func (r *Runner) seedQueue(st *run) []queueItem {
	var items []queueItem
	for i, w := range st.wallets {
		done := true
		for _, act := range st.task.Config.Actions {
			rec := st.records[recordKey{walletIndex: i, action: act}]
			if !rec.Status.Finalized() {
				done = false
				break
			}
		}
		if !done {
			items = append(items, queueItem{index: i, wallet: w})
		}
	}
	return items
}

func (r *Runner) worker(ctx context.Context, st *run, queue *walletQueue, n int) {
	workerID := fmt.Sprintf("%s-w%d", st.task.ID, n)
	logger := r.logger.WithValues(log.Kv{"worker": workerID})

	for {
		if ctx.Err() != nil {
			return
		}

		item, ok := queue.dequeue()
		if !ok {
			return
		}

		status, err := r.liveStatus(st)
		if err != nil {
			st.fail(err)
			return
		}
		if status != model.TaskStatusRunning {
			r.haltRemaining(st, queue, item.index, status, logger)
			return
		}

		halted, err := r.processWallet(ctx, st, workerID, item, logger)
		if err != nil {
			if ctx.Err() != nil {
				// Interrupted, finish() realigns the task state.
				return
			}
			st.fail(err)
			return
		}
		if halted != "" {
			r.haltRemaining(st, queue, -1, halted, logger)
			return
		}

		if err := r.advanceCursor(st, item.index); err != nil {
			st.fail(err)
			return
		}
	}
}

// processWallet runs the configured action list for one wallet, in order,
// strictly sequential. It returns the observed non-running task status when
// the run was paused or stopped mid-wallet.
func (r *Runner) processWallet(ctx context.Context, st *run, workerID string, item queueItem, logger log.Logger) (halted model.TaskStatus, err error) {
	task := st.task

	// Scoped acquisition: the proxy is released on every exit path.
	var prx *model.Proxy
	if task.Config.UseProxy && r.proxies != nil {
		prx, err = r.proxies.Acquire(ctx, workerID, task.Config.ProxyGroup)
		if err != nil {
			return "", fmt.Errorf("could not acquire proxy: %w", err)
		}
		if prx == nil {
			logger.Warningf("No proxy available, wallet %d continues direct", item.index)
		}
		defer r.proxies.Release(prx)
	}

	for _, act := range task.Config.Actions {
		status, err := r.liveStatus(st)
		if err != nil {
			return "", err
		}
		if status != model.TaskStatusRunning {
			if err := r.labelWallet(st, item.index, recordLabel(status)); err != nil {
				return "", err
			}
			return status, nil
		}

		rec := st.record(item.index, act)
		if rec.Status.Finalized() {
			continue
		}

		rec.Status = model.RecordStatusProcessing
		rec.UpdatedAt = time.Now().UTC()
		if err := r.saveRecord(st, rec); err != nil {
			return "", err
		}

		result, invokeErr := r.invoker.Invoke(ctx, action.InvokeRequest{
			Project: task.Config.Project,
			Action:  act,
			Wallet:  item.wallet,
			Amount:  task.Config.Amount,
			Proxy:   prx,
		})

		rec.UpdatedAt = time.Now().UTC()
		switch {
		case invokeErr != nil && ctx.Err() != nil:
			// The run was interrupted mid-action, leave the record resumable
			// instead of recording a spurious failure.
			rec.Status = model.RecordStatusPaused
			rec.Error = ""
			if err := r.saveRecord(st, rec); err != nil {
				return "", err
			}
			return model.TaskStatusPaused, nil
		case invokeErr != nil:
			// Action failures are recovered locally, the task continues.
			success := false
			rec.Success = &success
			rec.Status = model.RecordStatusFailed
			rec.Error = invokeErr.Error()
			logger.Warningf("Action %s failed for wallet %s: %v", act, item.wallet.Address, invokeErr)
		default:
			success := result.Success
			rec.Success = &success
			rec.ResultToken = result.ResultToken
			if result.Success {
				rec.Status = model.RecordStatusSucceeded
				rec.Error = ""
			} else {
				rec.Status = model.RecordStatusFailed
				rec.Error = result.ErrorMessage
			}
		}

		if err := r.saveRecord(st, rec); err != nil {
			return "", err
		}
		if err := r.refreshProgress(st); err != nil {
			return "", err
		}
	}

	return "", nil
}

// haltRemaining labels the current wallet (when currentIndex >= 0) and every
// wallet still queued with the status label of the observed transition, then
// lets the worker exit.
func (r *Runner) haltRemaining(st *run, queue *walletQueue, currentIndex int, status model.TaskStatus, logger log.Logger) {
	label := recordLabel(status)

	if currentIndex >= 0 {
		if err := r.labelWallet(st, currentIndex, label); err != nil {
			st.fail(err)
			return
		}
	}

	for _, item := range queue.drain() {
		if err := r.labelWallet(st, item.index, label); err != nil {
			st.fail(err)
			return
		}
	}

	if err := r.refreshProgress(st); err != nil {
		st.fail(err)
		return
	}

	logger.Infof("Task %s observed status %s, worker stopping", st.task.ID, status)
}

// labelWallet relabels every not-yet-finalized record of a wallet.
func (r *Runner) labelWallet(st *run, walletIndex int, label model.RecordStatus) error {
	now := time.Now().UTC()
	for _, act := range st.task.Config.Actions {
		rec := st.record(walletIndex, act)
		if rec.Status.Finalized() {
			continue
		}
		rec.Status = label
		rec.UpdatedAt = now
		if err := r.saveRecord(st, rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) saveRecord(st *run, rec model.ExecutionRecord) error {
	st.mu.Lock()
	st.records[recordKey{walletIndex: rec.WalletIndex, action: rec.Action}] = rec
	st.mu.Unlock()

	if err := r.recordRepo.SaveRecord(st.persistCtx, rec); err != nil {
		return fmt.Errorf("could not save record: %w", err)
	}
	return nil
}

// refreshProgress recomputes progress from the record set and writes it
// through together with the wallet cursor.
func (r *Runner) refreshProgress(st *run) error {
	st.mu.Lock()
	records := make([]model.ExecutionRecord, 0, len(st.records))
	for _, rec := range st.records {
		records = append(records, rec)
	}
	progress := model.TaskProgress(records, len(st.wallets), len(st.task.Config.Actions))
	cursor := st.cursor
	st.mu.Unlock()

	if err := r.taskRepo.UpdateTaskProgress(st.persistCtx, st.task.ID, progress, cursor); err != nil {
		return fmt.Errorf("could not update task progress: %w", err)
	}
	return nil
}

// advanceCursor moves the last-processed-wallet cursor forward. With multiple
// workers the cursor is advisory, resume correctness relies on per-record
// state.
func (r *Runner) advanceCursor(st *run, walletIndex int) error {
	st.mu.Lock()
	if walletIndex+1 > st.cursor {
		st.cursor = walletIndex + 1
	}
	st.mu.Unlock()

	return r.refreshProgress(st)
}

func (r *Runner) liveStatus(st *run) (model.TaskStatus, error) {
	task, err := r.taskRepo.GetTask(st.persistCtx, st.task.ID)
	if err != nil {
		return "", fmt.Errorf("could not get task status: %w", err)
	}
	return task.Status, nil
}

// finish transitions the task to completed when it was still running once the
// queue drained. When the run was interrupted (process shutdown) a still
// running task is downgraded to paused so the store reflects that no worker
// is active. Otherwise the paused/stopped status stands.
func (r *Runner) finish(st *run, interrupted bool) error {
	task, err := r.taskRepo.GetTask(st.persistCtx, st.task.ID)
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}

	if task.Status != model.TaskStatusRunning {
		r.logger.Infof("Task %s finished with status %s (progress %d%%)", task.ID, task.Status, task.Progress)
		return nil
	}

	if interrupted {
		for i := range st.wallets {
			if err := r.labelWallet(st, i, model.RecordStatusPaused); err != nil {
				return err
			}
		}
		if err := r.refreshProgress(st); err != nil {
			return err
		}

		task.Status = model.TaskStatusPaused
		if err := r.taskRepo.UpdateTask(st.persistCtx, *task); err != nil {
			return fmt.Errorf("could not pause task: %w", err)
		}

		r.logger.Infof("Task %s interrupted, paused at %d%%", task.ID, task.Progress)
		return nil
	}

	now := time.Now().UTC()
	task.Status = model.TaskStatusCompleted
	task.Progress = 100
	task.EndedAt = &now
	if err := r.taskRepo.UpdateTask(st.persistCtx, *task); err != nil {
		return fmt.Errorf("could not complete task: %w", err)
	}

	r.logger.Infof("Task %s completed", task.ID)
	return nil
}

// abort marks the task failed after an infrastructure error and records the
// error on a synthetic system record.
func (r *Runner) abort(ctx context.Context, taskID string, runErr error) error {
	r.logger.Errorf("Task %s failed: %v", taskID, runErr)

	now := time.Now().UTC()
	success := false
	rec := model.ExecutionRecord{
		TaskID:        taskID,
		WalletAddress: model.SystemWallet,
		WalletIndex:   model.SystemWalletIndex,
		Action:        model.SystemWallet,
		Status:        model.RecordStatusFailed,
		Success:       &success,
		Error:         runErr.Error(),
		UpdatedAt:     now,
	}
	if err := r.recordRepo.SaveRecord(ctx, rec); err != nil {
		r.logger.Errorf("Could not save system record for task %s: %v", taskID, err)
	}

	task, err := r.taskRepo.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("could not get task after run error %q: %w", runErr, err)
	}

	task.Status = model.TaskStatusFailed
	task.EndedAt = &now
	if err := r.taskRepo.UpdateTask(ctx, *task); err != nil {
		return fmt.Errorf("could not mark task failed after run error %q: %w", runErr, err)
	}

	return runErr
}

func (st *run) record(walletIndex int, act string) model.ExecutionRecord {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.records[recordKey{walletIndex: walletIndex, action: act}]
}

// recordLabel maps a non-running task status to the record label workers
// apply to unfinished work.
func recordLabel(status model.TaskStatus) model.RecordStatus {
	if status == model.TaskStatusCancelled {
		return model.RecordStatusCancelled
	}
	return model.RecordStatusPaused
}
