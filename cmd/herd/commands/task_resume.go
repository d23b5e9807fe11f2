package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/herdctl/herd/internal/app/taskresume"
	"github.com/herdctl/herd/internal/engine"
	"github.com/herdctl/herd/internal/printer"
)

type TaskResumeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewTaskResumeCommand returns the task resume command.
func NewTaskResumeCommand(rootCmd *RootCommand, taskCmd *kingpin.CmdClause) *TaskResumeCommand {
	c := &TaskResumeCommand{rootCmd: rootCmd}

	c.Cmd = taskCmd.Command("resume", "Resume a paused task from where it left off.")
	c.Cmd.Arg("name-or-id", "Task name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c TaskResumeCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskResumeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, recordRepo, err := openStorage(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	wallets, err := walletProvider(c.rootCmd)
	if err != nil {
		return err
	}

	// A run interrupted by a crash leaves the task running in the store,
	// reconciliation downgrades it so it can be resumed.
	if err := reconcileState(ctx, c.rootCmd, repo, recordRepo, wallets); err != nil {
		return err
	}

	task, err := resolveTask(ctx, repo, c.nameOrID)
	if err != nil {
		return fmt.Errorf("could not resolve task: %w", err)
	}

	proxies, err := proxyAllocator(c.rootCmd)
	if err != nil {
		return err
	}

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: recordRepo,
		Wallets:    wallets,
		Invoker:    actionRegistry(*task),
		Proxies:    proxies,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create runner: %w", err)
	}

	svc, err := taskresume.NewService(taskresume.ServiceConfig{
		TaskRepo: repo,
		Runner:   runner,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	result, err := svc.Run(ctx, taskresume.Request{TaskID: task.ID})
	if err != nil {
		return fmt.Errorf("could not resume task: %w", err)
	}

	if err := <-result.Done; err != nil {
		return fmt.Errorf("task run failed: %w", err)
	}

	final, err := repo.GetTask(context.WithoutCancel(ctx), task.ID)
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	msg := fmt.Sprintf("Task %s finished with status %s (progress %d%%)", final.Name, final.Status, final.Progress)
	if err := p.PrintMessage(msg); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
