package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/herdctl/herd/internal/app/taskstart"
	"github.com/herdctl/herd/internal/engine"
	"github.com/herdctl/herd/internal/printer"
)

type TaskStartCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	restart  bool
}

// NewTaskStartCommand returns the task start command.
func NewTaskStartCommand(rootCmd *RootCommand, taskCmd *kingpin.CmdClause) *TaskStartCommand {
	c := &TaskStartCommand{rootCmd: rootCmd}

	c.Cmd = taskCmd.Command("start", "Start a task and block until it finishes or halts.")
	c.Cmd.Arg("name-or-id", "Task name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("restart", "Re-run a completed or failed task from the first wallet.").BoolVar(&c.restart)

	return c
}

func (c TaskStartCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskStartCommand) Run(ctx context.Context) error {
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

	// Realign state left by a previous process before starting anything.
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

	svc, err := taskstart.NewService(taskstart.ServiceConfig{
		TaskRepo:   repo,
		RecordRepo: recordRepo,
		Runner:     runner,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	result, err := svc.Run(ctx, taskstart.Request{TaskID: task.ID, Restart: c.restart})
	if err != nil {
		return fmt.Errorf("could not start task: %w", err)
	}

	// Block until the run ends. A termination signal cancels ctx and the run
	// pauses at the next boundary instead of losing work.
	if err := <-result.Done; err != nil {
		return fmt.Errorf("task run failed: %w", err)
	}

	// The read must work even after a termination signal cancelled ctx.
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
