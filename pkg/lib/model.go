package lib

import (
	"context"
	"errors"
	"time"

	"github.com/herdctl/herd/internal/model"
)

// Sentinel errors returned by SDK methods. Inspect with [errors.Is].
var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource with the same name already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when an input or operation is not valid.
	ErrNotValid = errors.New("not valid")
)

// TaskStatus represents the lifecycle state of a task.
//
// The typical lifecycle is:
//
//	pending -> running -> completed
//
// A running task can be paused (and later resumed from where it left off),
// stopped (cancelled, a later start begins from the first wallet again), or
// transition to failed if an infrastructure error aborts the run.
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

// Task represents a task returned by the SDK.
//
// This is a read-only snapshot of the task state at the time of the API call.
// Use [Client.GetTask] to get the latest state.
type Task struct {
	// ID is the unique identifier (ULID) assigned at creation.
	ID string
	// Name is the human-friendly name.
	Name string
	// Config is the static configuration set at creation time.
	Config TaskConfig
	// Status is the current lifecycle state.
	Status TaskStatus
	// Progress is the completion percentage (0-100).
	Progress int
	// LastWalletIndex is the index of the last wallet whose actions all
	// settled, counted from 1. Zero means no wallet has settled yet.
	LastWalletIndex int
	// CreatedAt is when the task was created.
	CreatedAt time.Time
	// StartedAt is when the task was last started. Nil if never started.
	StartedAt *time.Time
	// EndedAt is when the task last reached a settled state. Nil while running.
	EndedAt *time.Time
}

// TaskConfig is the immutable configuration of a task, set at creation time.
type TaskConfig struct {
	// Project is the external project the actions target.
	Project string
	// WalletGroup is the wallet group name in the wallet catalog.
	WalletGroup string
	// Actions is the ordered action list applied to every wallet.
	Actions []string
	// Amount is the per-action amount, interpreted by the action implementation.
	Amount float64
	// WorkerCount is the number of concurrent workers. Must be positive.
	WorkerCount int
	// UseProxy routes action traffic through proxies from ProxyGroup.
	UseProxy bool
	// ProxyGroup is the proxy group name in the proxy catalog.
	// Required when UseProxy is set.
	ProxyGroup string
	// Cron is an optional recurring schedule expression. Empty means the task
	// only runs when started explicitly.
	Cron string
}

// RecordStatus is the status label of an execution record.
type RecordStatus string

const (
	// RecordStatusPreparing indicates the record was initialized but no worker picked it up yet.
	RecordStatusPreparing RecordStatus = "preparing"
	// RecordStatusProcessing indicates a worker is executing the action.
	RecordStatusProcessing RecordStatus = "processing"
	// RecordStatusSucceeded indicates the action finished successfully.
	RecordStatusSucceeded RecordStatus = "succeeded"
	// RecordStatusFailed indicates the action finished with an error.
	RecordStatusFailed RecordStatus = "failed"
	// RecordStatusPaused indicates the task was paused before the action ran.
	RecordStatusPaused RecordStatus = "paused"
	// RecordStatusCancelled indicates the task was stopped before the action ran.
	RecordStatusCancelled RecordStatus = "cancelled"
)

// ExecutionRecord is the persisted outcome of one (task, wallet, action) unit.
type ExecutionRecord struct {
	// TaskID is the owning task's ID.
	TaskID string
	// WalletAddress is the wallet the action was applied to. The synthetic
	// address "system" carries task level infrastructure errors.
	WalletAddress string
	// WalletIndex is the wallet's position in its group, counted from 0.
	// -1 for task level records.
	WalletIndex int
	// Action is the action name.
	Action string
	// Status is the record status.
	Status RecordStatus
	// Success reports the action outcome. Nil until the action settled.
	Success *bool
	// Error is the failure message. Empty on success.
	Error string
	// ResultToken is an opaque reference to the external effect, e.g. a
	// transaction hash.
	ResultToken string
	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time
}

// TaskStatusDetail is the task state together with its execution records.
type TaskStatusDetail struct {
	Task    Task
	Records []ExecutionRecord
}

// CreateTaskOpts configures task creation.
//
// Name and Config are required. Config must pass validation: project, wallet
// group, at least one action, a positive worker count, and a proxy group when
// proxy usage is enabled.
type CreateTaskOpts struct {
	// Name is the task name (required). Must be unique.
	Name string
	// Config is the task configuration (required).
	Config TaskConfig
}

// StartTaskOpts configures task start behavior.
//
// Pass nil to [Client.StartTask] to use defaults (no restart, no wait).
type StartTaskOpts struct {
	// Restart re-runs a completed or failed task from scratch: records are
	// cleared and progress reset.
	Restart bool
	// Wait blocks the call until the run ends instead of returning as soon
	// as the task transitioned to running.
	Wait bool
}

// ResumeTaskOpts configures task resume behavior.
//
// Pass nil to [Client.ResumeTask] to use defaults (no wait).
type ResumeTaskOpts struct {
	// Wait blocks the call until the run ends instead of returning as soon
	// as the task transitioned back to running.
	Wait bool
}

// Wallet is an account identity handed to action handlers.
type Wallet struct {
	// Address is the wallet address.
	Address string
	// PrivateKey is the wallet's private key. May be empty when the catalog
	// only carries a mnemonic.
	PrivateKey string
	// Mnemonic is the wallet's mnemonic phrase. May be empty.
	Mnemonic string
}

// ActionRequest carries everything an action handler needs to perform one
// external interaction for one wallet.
type ActionRequest struct {
	// Project is the target project.
	Project string
	// Action is the action name.
	Action string
	// Wallet is the account to act on behalf of.
	Wallet Wallet
	// Amount is the per-action amount from the task configuration.
	Amount float64
	// ProxyURL is the HTTP proxy URL to route traffic through.
	// Empty means direct connection.
	ProxyURL string
}

// ActionResult is the outcome of one action invocation.
type ActionResult struct {
	// Success reports whether the external interaction succeeded.
	Success bool
	// ResultToken is an opaque reference to the external effect, e.g. a
	// transaction hash.
	ResultToken string
	// ErrorMessage describes the failure when Success is false.
	ErrorMessage string
}

// ActionHandler performs one action for one wallet.
//
// Implementations may take seconds to minutes and should observe ctx for
// cooperative cancellation. The engine treats them as at-least-once,
// idempotency is the implementation's concern.
//
// Return an error only for transport level failures (timeouts, broken
// connections). A business level rejection is a successful invocation with
// Success false.
type ActionHandler interface {
	Handle(ctx context.Context, req ActionRequest) (*ActionResult, error)
}

// ActionHandlerFunc adapts a function to the [ActionHandler] interface.
type ActionHandlerFunc func(ctx context.Context, req ActionRequest) (*ActionResult, error)

// Handle satisfies [ActionHandler].
func (f ActionHandlerFunc) Handle(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	return f(ctx, req)
}

// --- Internal conversion helpers ---

func toInternalTaskConfig(cfg TaskConfig) model.TaskConfig {
	return model.TaskConfig{
		Project:     cfg.Project,
		WalletGroup: cfg.WalletGroup,
		Actions:     cfg.Actions,
		Amount:      cfg.Amount,
		WorkerCount: cfg.WorkerCount,
		UseProxy:    cfg.UseProxy,
		ProxyGroup:  cfg.ProxyGroup,
		Cron:        cfg.Cron,
	}
}

func fromInternalTask(t model.Task) Task {
	return Task{
		ID:   t.ID,
		Name: t.Name,
		Config: TaskConfig{
			Project:     t.Config.Project,
			WalletGroup: t.Config.WalletGroup,
			Actions:     t.Config.Actions,
			Amount:      t.Config.Amount,
			WorkerCount: t.Config.WorkerCount,
			UseProxy:    t.Config.UseProxy,
			ProxyGroup:  t.Config.ProxyGroup,
			Cron:        t.Config.Cron,
		},
		Status:          TaskStatus(t.Status),
		Progress:        t.Progress,
		LastWalletIndex: t.LastWalletIndex,
		CreatedAt:       t.CreatedAt,
		StartedAt:       t.StartedAt,
		EndedAt:         t.EndedAt,
	}
}

func fromInternalTaskList(ts []model.Task) []Task {
	result := make([]Task, len(ts))
	for i, t := range ts {
		result[i] = fromInternalTask(t)
	}
	return result
}

func fromInternalRecord(r model.ExecutionRecord) ExecutionRecord {
	return ExecutionRecord{
		TaskID:        r.TaskID,
		WalletAddress: r.WalletAddress,
		WalletIndex:   r.WalletIndex,
		Action:        r.Action,
		Status:        RecordStatus(r.Status),
		Success:       r.Success,
		Error:         r.Error,
		ResultToken:   r.ResultToken,
		UpdatedAt:     r.UpdatedAt,
	}
}

func fromInternalRecordList(rs []model.ExecutionRecord) []ExecutionRecord {
	result := make([]ExecutionRecord, len(rs))
	for i, r := range rs {
		result[i] = fromInternalRecord(r)
	}
	return result
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isInternalError(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case isInternalError(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case isInternalError(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func isInternalError(err, target error) bool {
	for {
		if err == target {
			return true
		}
		unwrapped := unwrapSingle(err)
		if unwrapped == nil {
			return false
		}
		err = unwrapped
	}
}

func unwrapSingle(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
