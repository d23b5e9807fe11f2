package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/herdctl/herd/internal/app/taskpause"
	"github.com/herdctl/herd/internal/printer"
)

type TaskPauseCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewTaskPauseCommand returns the task pause command.
func NewTaskPauseCommand(rootCmd *RootCommand, taskCmd *kingpin.CmdClause) *TaskPauseCommand {
	c := &TaskPauseCommand{rootCmd: rootCmd}

	c.Cmd = taskCmd.Command("pause", "Pause a running task, its workers stop at the next boundary.")
	c.Cmd.Arg("name-or-id", "Task name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c TaskPauseCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskPauseCommand) Run(ctx context.Context) error {
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

	wallets, err := walletProvider(c.rootCmd)
	if err != nil {
		return err
	}

	svc, err := taskpause.NewService(taskpause.ServiceConfig{
		TaskRepo:   repo,
		RecordRepo: recordRepo,
		Wallets:    wallets,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	paused, err := svc.Run(ctx, taskpause.Request{TaskID: task.ID})
	if err != nil {
		return fmt.Errorf("could not pause task: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	msg := fmt.Sprintf("Paused task: %s (progress %d%%)", paused.Name, paused.Progress)
	if err := p.PrintMessage(msg); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
