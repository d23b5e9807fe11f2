package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/herdctl/herd/internal/app/taskcreate"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/printer"
	storageio "github.com/herdctl/herd/internal/storage/io"
)

type TaskCreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	definitionFile string

	// Flag-based definition, ignored when a file is given.
	name        string
	project     string
	walletGroup string
	actions     []string
	amount      float64
	workers     int
	useProxy    bool
	proxyGroup  string
	cronExpr    string
}

// NewTaskCreateCommand returns the task create command.
func NewTaskCreateCommand(rootCmd *RootCommand, taskCmd *kingpin.CmdClause) *TaskCreateCommand {
	c := &TaskCreateCommand{rootCmd: rootCmd}

	c.Cmd = taskCmd.Command("create", "Create a new task.")
	c.Cmd.Flag("file", "Path to a task definition YAML file.").Short('f').StringVar(&c.definitionFile)

	c.Cmd.Flag("name", "Name for the task.").Short('n').StringVar(&c.name)
	c.Cmd.Flag("project", "Project the actions belong to.").StringVar(&c.project)
	c.Cmd.Flag("wallet-group", "Wallet group the task iterates over.").StringVar(&c.walletGroup)
	c.Cmd.Flag("action", "Action to execute per wallet, in order. Can be repeated.").StringsVar(&c.actions)
	c.Cmd.Flag("amount", "Amount parameter passed to every action.").Default("0").Float64Var(&c.amount)
	c.Cmd.Flag("workers", "Number of concurrent workers.").Default("1").IntVar(&c.workers)
	c.Cmd.Flag("use-proxy", "Run actions through proxies.").BoolVar(&c.useProxy)
	c.Cmd.Flag("proxy-group", "Proxy group to draw proxies from.").StringVar(&c.proxyGroup)
	c.Cmd.Flag("cron", "Recurring schedule cron expression (runs under the agent).").StringVar(&c.cronExpr)

	return c
}

func (c TaskCreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskCreateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	req := taskcreate.Request{
		Name: c.name,
		Config: model.TaskConfig{
			Project:     c.project,
			WalletGroup: c.walletGroup,
			Actions:     c.actions,
			Amount:      c.amount,
			WorkerCount: c.workers,
			UseProxy:    c.useProxy,
			ProxyGroup:  c.proxyGroup,
			Cron:        c.cronExpr,
		},
	}

	if c.definitionFile != "" {
		path, err := rootFSPath(c.definitionFile)
		if err != nil {
			return err
		}

		defRepo := storageio.NewTaskYAMLRepository(os.DirFS("/"))
		def, err := defRepo.GetTaskDefinition(ctx, path)
		if err != nil {
			return fmt.Errorf("could not load task definition: %w", err)
		}
		req = taskcreate.Request{Name: def.Name, Config: def.Config}
	}

	repo, _, err := openStorage(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := taskcreate.NewService(taskcreate.ServiceConfig{
		TaskRepo: repo,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("could not create task: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Created task: %s (ID: %s)", task.Name, task.ID)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
