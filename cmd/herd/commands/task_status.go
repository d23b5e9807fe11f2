package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/herdctl/herd/internal/app/taskstatus"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/printer"
)

type TaskStatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID    string
	showRecords bool
	format      string
}

// NewTaskStatusCommand returns the task status command.
func NewTaskStatusCommand(rootCmd *RootCommand, taskCmd *kingpin.CmdClause) *TaskStatusCommand {
	c := &TaskStatusCommand{rootCmd: rootCmd}

	c.Cmd = taskCmd.Command("status", "Show detailed task status.")
	c.Cmd.Arg("name-or-id", "Task name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("records", "Include the per-wallet execution records.").BoolVar(&c.showRecords)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c TaskStatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskStatusCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, recordRepo, err := openStorage(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	task, err := resolveTask(ctx, repo, c.nameOrID)
	if err != nil {
		return fmt.Errorf("could not resolve task: %w", err)
	}

	svc, err := taskstatus.NewService(taskstatus.ServiceConfig{
		TaskRepo:   repo,
		RecordRepo: recordRepo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	status, err := svc.Run(ctx, taskstatus.Request{TaskID: task.ID})
	if err != nil {
		return fmt.Errorf("could not get task status: %w", err)
	}

	var records []model.ExecutionRecord
	if c.showRecords {
		records = status.Records
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintStatus(status.Task, records); err != nil {
		return fmt.Errorf("could not print status: %w", err)
	}

	return nil
}
