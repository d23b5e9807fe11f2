package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/herdctl/herd/internal/app/taskresume"
	"github.com/herdctl/herd/internal/app/taskstart"
	"github.com/herdctl/herd/internal/engine"
	"github.com/herdctl/herd/internal/scheduler"
)

type AgentCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewAgentCommand returns the agent command.
func NewAgentCommand(rootCmd *RootCommand, app *kingpin.Application) *AgentCommand {
	c := &AgentCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("agent", "Run the agent: reconciles state and fires scheduled tasks.")

	return c
}

func (c AgentCommand) Name() string { return c.Cmd.FullCommand() }

func (c AgentCommand) Run(ctx context.Context) error {
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

	proxies, err := proxyAllocator(c.rootCmd)
	if err != nil {
		return err
	}

	// Realign state left by a previous process before scheduling anything.
	if err := reconcileState(ctx, c.rootCmd, repo, recordRepo, wallets); err != nil {
		return err
	}

	tasks, err := repo.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: recordRepo,
		Wallets:    wallets,
		Invoker:    actionRegistry(tasks...),
		Proxies:    proxies,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create runner: %w", err)
	}

	starter, err := taskstart.NewService(taskstart.ServiceConfig{
		TaskRepo:   repo,
		RecordRepo: recordRepo,
		Runner:     runner,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create start service: %w", err)
	}

	resumer, err := taskresume.NewService(taskresume.ServiceConfig{
		TaskRepo: repo,
		Runner:   runner,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create resume service: %w", err)
	}

	sched, err := scheduler.NewService(scheduler.ServiceConfig{
		TaskRepo: repo,
		Starter:  starter,
		Resumer:  resumer,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create scheduler: %w", err)
	}

	logger.Infof("Agent started")
	return sched.Run(ctx)
}
