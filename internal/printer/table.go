package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/herdctl/herd/internal/model"
)

// TablePrinter prints task information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintList prints tasks in a table format.
func (t *TablePrinter) PrintList(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "NAME\tPROJECT\tSTATUS\tPROGRESS\tWORKERS\tCREATED")

	// Print rows
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%d\t%s\n",
			task.Name,
			task.Config.Project,
			task.Status,
			task.Progress,
			task.Config.WorkerCount,
			TimeAgo(task.CreatedAt),
		)
	}

	return nil
}

// PrintStatus prints detailed task status, with the per-wallet record
// breakdown when records are given.
func (t *TablePrinter) PrintStatus(task model.Task, records []model.ExecutionRecord) error {
	fmt.Fprintf(t.writer, "Name:         %s\n", task.Name)
	fmt.Fprintf(t.writer, "ID:           %s\n", task.ID)
	fmt.Fprintf(t.writer, "Status:       %s\n", task.Status)
	fmt.Fprintf(t.writer, "Progress:     %d%%\n", task.Progress)
	fmt.Fprintf(t.writer, "Project:      %s\n", task.Config.Project)
	fmt.Fprintf(t.writer, "Wallet group: %s\n", task.Config.WalletGroup)
	fmt.Fprintf(t.writer, "Actions:      %s\n", strings.Join(task.Config.Actions, ", "))
	fmt.Fprintf(t.writer, "Workers:      %d\n", task.Config.WorkerCount)

	if task.Config.UseProxy {
		fmt.Fprintf(t.writer, "Proxy group:  %s\n", task.Config.ProxyGroup)
	}
	if task.Config.Cron != "" {
		fmt.Fprintf(t.writer, "Schedule:     %s\n", task.Config.Cron)
	}

	fmt.Fprintf(t.writer, "Created:      %s\n", FormatTimestamp(task.CreatedAt))
	if task.StartedAt != nil {
		fmt.Fprintf(t.writer, "Started:      %s\n", FormatTimestamp(*task.StartedAt))
	}
	if task.EndedAt != nil {
		fmt.Fprintf(t.writer, "Ended:        %s\n", FormatTimestamp(*task.EndedAt))
	}

	if len(records) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "WALLET\tACTION\tSTATUS\tRESULT\tERROR")
	for _, rec := range records {
		result := rec.ResultToken
		if result == "" {
			result = "-"
		}
		errMsg := rec.Error
		if errMsg == "" {
			errMsg = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", rec.WalletAddress, rec.Action, rec.Status, result, errMsg)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
