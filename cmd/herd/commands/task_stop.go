package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/herdctl/herd/internal/app/taskstop"
	"github.com/herdctl/herd/internal/printer"
)

type TaskStopCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewTaskStopCommand returns the task stop command.
func NewTaskStopCommand(rootCmd *RootCommand, taskCmd *kingpin.CmdClause) *TaskStopCommand {
	c := &TaskStopCommand{rootCmd: rootCmd}

	c.Cmd = taskCmd.Command("stop", "Stop a running or paused task, the next start begins over.")
	c.Cmd.Arg("name-or-id", "Task name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c TaskStopCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskStopCommand) Run(ctx context.Context) error {
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

	svc, err := taskstop.NewService(taskstop.ServiceConfig{
		TaskRepo:   repo,
		RecordRepo: recordRepo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	stopped, err := svc.Run(ctx, taskstop.Request{TaskID: task.ID})
	if err != nil {
		return fmt.Errorf("could not stop task: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Stopped task: %s", stopped.Name)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
