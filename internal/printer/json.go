package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/herdctl/herd/internal/model"
)

// JSONPrinter prints task information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents a task in the list output (subset of fields).
type listItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Project   string    `json:"project"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
}

// statusOutput represents the full task status output.
type statusOutput struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Status          string         `json:"status"`
	Progress        int            `json:"progress"`
	LastWalletIndex int            `json:"last_wallet_index"`
	Project         string         `json:"project"`
	WalletGroup     string         `json:"wallet_group"`
	Actions         []string       `json:"actions"`
	Amount          float64        `json:"amount"`
	Workers         int            `json:"workers"`
	UseProxy        bool           `json:"use_proxy"`
	ProxyGroup      string         `json:"proxy_group,omitempty"`
	Cron            string         `json:"cron,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	StartedAt       *time.Time     `json:"started_at"`
	EndedAt         *time.Time     `json:"ended_at"`
	Records         []recordOutput `json:"records,omitempty"`
}

// recordOutput represents one execution record in the status output.
type recordOutput struct {
	WalletAddress string    `json:"wallet_address"`
	WalletIndex   int       `json:"wallet_index"`
	Action        string    `json:"action"`
	Status        string    `json:"status"`
	Success       *bool     `json:"success"`
	Error         string    `json:"error,omitempty"`
	ResultToken   string    `json:"result_token,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintList prints tasks in JSON format with a subset of fields.
func (j *JSONPrinter) PrintList(tasks []model.Task) error {
	items := make([]listItem, len(tasks))
	for i, task := range tasks {
		items[i] = listItem{
			ID:        task.ID,
			Name:      task.Name,
			Project:   task.Config.Project,
			Status:    string(task.Status),
			Progress:  task.Progress,
			CreatedAt: task.CreatedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintStatus prints detailed task status in JSON format.
func (j *JSONPrinter) PrintStatus(task model.Task, records []model.ExecutionRecord) error {
	output := statusOutput{
		ID:              task.ID,
		Name:            task.Name,
		Status:          string(task.Status),
		Progress:        task.Progress,
		LastWalletIndex: task.LastWalletIndex,
		Project:         task.Config.Project,
		WalletGroup:     task.Config.WalletGroup,
		Actions:         task.Config.Actions,
		Amount:          task.Config.Amount,
		Workers:         task.Config.WorkerCount,
		UseProxy:        task.Config.UseProxy,
		ProxyGroup:      task.Config.ProxyGroup,
		Cron:            task.Config.Cron,
		CreatedAt:       task.CreatedAt.UTC(),
	}

	if task.StartedAt != nil {
		utcTime := task.StartedAt.UTC()
		output.StartedAt = &utcTime
	}
	if task.EndedAt != nil {
		utcTime := task.EndedAt.UTC()
		output.EndedAt = &utcTime
	}

	for _, rec := range records {
		output.Records = append(output.Records, recordOutput{
			WalletAddress: rec.WalletAddress,
			WalletIndex:   rec.WalletIndex,
			Action:        rec.Action,
			Status:        string(rec.Status),
			Success:       rec.Success,
			Error:         rec.Error,
			ResultToken:   rec.ResultToken,
			UpdatedAt:     rec.UpdatedAt.UTC(),
		})
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
