package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/herdctl/herd/internal/action"
	"github.com/herdctl/herd/internal/action/fake"
	"github.com/herdctl/herd/internal/conventions"
	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/proxy"
	"github.com/herdctl/herd/internal/reconcile"
	storageio "github.com/herdctl/herd/internal/storage/io"
	"github.com/herdctl/herd/internal/storage/sqlite"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug       bool
	NoLog       bool
	NoColor     bool
	LoggerType  string
	DBPath      string
	WalletsPath string
	ProxiesPath string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	dataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("db-path", "Path to the SQLite database file.").Envar("HERD_DB_PATH").Default(conventions.DBPath(dataDir)).StringVar(&c.DBPath)
	app.Flag("wallets", "Path to the wallet catalog YAML file.").Envar("HERD_WALLETS").Default(conventions.WalletsPath(dataDir)).StringVar(&c.WalletsPath)
	app.Flag("proxies", "Path to the proxy catalog YAML file.").Envar("HERD_PROXIES").Default(conventions.ProxiesPath(dataDir)).StringVar(&c.ProxiesPath)

	return c
}

// openStorage opens the SQLite task and record repositories over a shared
// database connection.
func openStorage(ctx context.Context, rootCmd *RootCommand) (*sqlite.Repository, *sqlite.RecordRepository, error) {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: rootCmd.DBPath,
		Logger: rootCmd.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create repository: %w", err)
	}

	recordRepo, err := sqlite.NewRecordRepository(sqlite.RecordRepositoryConfig{
		DB:     repo.DB(),
		Logger: rootCmd.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create record repository: %w", err)
	}

	return repo, recordRepo, nil
}

// rootFSPath turns a user path into an absolute path rooted at os.DirFS("/").
func rootFSPath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("could not resolve path: %w", err)
		}
		path = absPath
	}
	return path[1:], nil
}

// walletProvider returns the YAML-backed wallet provider.
func walletProvider(rootCmd *RootCommand) (*storageio.WalletYAMLProvider, error) {
	path, err := rootFSPath(rootCmd.WalletsPath)
	if err != nil {
		return nil, err
	}
	return storageio.NewWalletYAMLProvider(os.DirFS("/"), path), nil
}

// proxyAllocator returns the catalog-backed proxy pool.
func proxyAllocator(rootCmd *RootCommand) (*proxy.Pool, error) {
	path, err := rootFSPath(rootCmd.ProxiesPath)
	if err != nil {
		return nil, err
	}

	catalog := storageio.NewProxyYAMLCatalog(os.DirFS("/"), path)

	pool, err := proxy.NewPool(proxy.PoolConfig{
		Catalog: catalog,
		Logger:  rootCmd.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create proxy pool: %w", err)
	}

	return pool, nil
}

// actionRegistry returns the handler registry with the given tasks' handlers
// registered. Real project integrations register here, the fake invoker backs
// every pair until they do.
func actionRegistry(tasks ...model.Task) *action.Registry {
	registry := action.NewRegistry()
	invoker := fake.NewInvoker()
	for _, task := range tasks {
		for _, act := range task.Config.Actions {
			registry.Register(task.Config.Project, act, invoker)
		}
	}
	return registry
}

// reconcileState realigns state left by a previous process (missing records,
// tasks stuck in running). Commands that host the engine run it before acting.
func reconcileState(ctx context.Context, rootCmd *RootCommand, repo *sqlite.Repository, recordRepo *sqlite.RecordRepository, wallets *storageio.WalletYAMLProvider) error {
	svc, err := reconcile.NewService(reconcile.ServiceConfig{
		TaskRepo:   repo,
		RecordRepo: recordRepo,
		Wallets:    wallets,
		Logger:     rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create reconcile service: %w", err)
	}
	if err := svc.Run(ctx); err != nil {
		return fmt.Errorf("could not reconcile state: %w", err)
	}
	return nil
}

// resolveTask finds a task by ID or, failing that, by name.
func resolveTask(ctx context.Context, repo *sqlite.Repository, nameOrID string) (*model.Task, error) {
	task, err := repo.GetTask(ctx, nameOrID)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	tasks, err := repo.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}
	for _, t := range tasks {
		if t.Name == nameOrID {
			task := t
			return &task, nil
		}
	}

	return nil, fmt.Errorf("task %s: %w", nameOrID, model.ErrNotFound)
}
