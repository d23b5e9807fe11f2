package model

import "time"

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

// Finalized reports whether the action actually ran to an outcome. Finalized
// records are never re-executed on resume.
func (s RecordStatus) Finalized() bool {
	return s == RecordStatusSucceeded || s == RecordStatusFailed
}

// Terminal reports whether the record counts towards progress. Paused and
// preparing records are still pending work.
func (s RecordStatus) Terminal() bool {
	return s == RecordStatusSucceeded || s == RecordStatusFailed || s == RecordStatusCancelled
}

// SystemWallet is the synthetic wallet address used for task level error records.
const SystemWallet = "system"

// SystemWalletIndex is the wallet index used for task level error records.
const SystemWalletIndex = -1

// ExecutionRecord is the persisted outcome of one (task, wallet, action) unit.
type ExecutionRecord struct {
	TaskID        string
	WalletAddress string
	WalletIndex   int
	Action        string
	Status        RecordStatus
	Success       *bool
	Error         string
	ResultToken   string
	UpdatedAt     time.Time
}

// TaskProgress returns the percentage of terminal records over the expected
// record count for a task with the given wallet and action counts.
func TaskProgress(records []ExecutionRecord, wallets, actions int) int {
	total := wallets * actions
	if total == 0 {
		return 0
	}

	terminal := 0
	for _, r := range records {
		if r.WalletIndex == SystemWalletIndex {
			continue
		}
		if r.Status.Terminal() {
			terminal++
		}
	}

	p := terminal * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}
