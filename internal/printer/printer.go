package printer

import "github.com/herdctl/herd/internal/model"

// Printer knows how to print task information in different formats.
type Printer interface {
	PrintList(tasks []model.Task) error
	PrintStatus(task model.Task, records []model.ExecutionRecord) error
	PrintMessage(msg string) error
}
