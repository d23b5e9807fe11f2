package lib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/herdctl/herd/internal/action"
	"github.com/herdctl/herd/internal/action/fake"
	"github.com/herdctl/herd/internal/conventions"
	"github.com/herdctl/herd/internal/engine"
	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/proxy"
	"github.com/herdctl/herd/internal/reconcile"
	"github.com/herdctl/herd/internal/storage"
	storageio "github.com/herdctl/herd/internal/storage/io"
	"github.com/herdctl/herd/internal/storage/sqlite"
	"github.com/herdctl/herd/internal/wallet"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.herd/herd.db for storage and the wallet and proxy
// catalogs under ~/.herd.
type Config struct {
	// DBPath is the SQLite database path.
	// Default: ~/.herd/herd.db.
	DBPath string

	// DataDir is the base directory for herd data.
	// Default: ~/.herd.
	DataDir string

	// WalletsPath is the YAML wallet catalog path.
	// Default: ~/.herd/wallets.yaml.
	WalletsPath string

	// ProxiesPath is the YAML proxy catalog path.
	// Default: ~/.herd/proxies.yaml.
	ProxiesPath string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, conventions.DefaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = conventions.DBPath(c.DataDir)
	}

	if c.WalletsPath == "" {
		c.WalletsPath = conventions.WalletsPath(c.DataDir)
	}

	if c.ProxiesPath == "" {
		c.ProxiesPath = conventions.ProxiesPath(c.DataDir)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point for managing herd tasks programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	taskRepo   storage.TaskRepository
	recordRepo storage.RecordRepository
	wallets    wallet.Provider
	proxies    proxy.Allocator
	registry   *action.Registry
	fallback   action.Invoker
	logger     log.Logger
	closeFn    func() error
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	recordRepo, err := sqlite.NewRecordRepository(sqlite.RecordRepositoryConfig{
		DB:     repo.DB(),
		Logger: cfg.Logger,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("could not create record repository: %w", err)
	}

	walletsPath, err := rootFSPath(cfg.WalletsPath)
	if err != nil {
		repo.Close()
		return nil, err
	}

	proxiesPath, err := rootFSPath(cfg.ProxiesPath)
	if err != nil {
		repo.Close()
		return nil, err
	}

	pool, err := proxy.NewPool(proxy.PoolConfig{
		Catalog: storageio.NewProxyYAMLCatalog(os.DirFS("/"), proxiesPath),
		Logger:  cfg.Logger,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("could not create proxy pool: %w", err)
	}

	wallets := storageio.NewWalletYAMLProvider(os.DirFS("/"), walletsPath)

	// Realign state left by a previous process (missing records, tasks stuck
	// in running) before handing out the client.
	reconciler, err := reconcile.NewService(reconcile.ServiceConfig{
		TaskRepo:   repo,
		RecordRepo: recordRepo,
		Wallets:    wallets,
		Logger:     cfg.Logger,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("could not create reconcile service: %w", err)
	}
	if err := reconciler.Run(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("could not reconcile state: %w", err)
	}

	return &Client{
		taskRepo:   repo,
		recordRepo: recordRepo,
		wallets:    wallets,
		proxies:    pool,
		registry:   action.NewRegistry(),
		fallback:   fake.NewInvoker(),
		logger:     cfg.Logger,
		closeFn:    repo.Close,
	}, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// RegisterAction binds a handler to a (project, action) pair. Registering the
// same pair twice replaces the previous handler.
//
// Pairs without a registered handler fall back to a deterministic fake that
// always succeeds, useful for dry runs and tests.
func (c *Client) RegisterAction(project, actionName string, h ActionHandler) {
	c.registry.Register(project, actionName, handlerInvoker{h: h})
}

// handlerInvoker adapts a public ActionHandler to the engine's invoker boundary.
type handlerInvoker struct {
	h ActionHandler
}

func (i handlerInvoker) Invoke(ctx context.Context, req action.InvokeRequest) (*action.InvokeResult, error) {
	proxyURL := ""
	if req.Proxy != nil {
		proxyURL = req.Proxy.URL()
	}

	result, err := i.h.Handle(ctx, ActionRequest{
		Project: req.Project,
		Action:  req.Action,
		Wallet: Wallet{
			Address:    req.Wallet.Address,
			PrivateKey: req.Wallet.PrivateKey,
			Mnemonic:   req.Wallet.Mnemonic,
		},
		Amount:   req.Amount,
		ProxyURL: proxyURL,
	})
	if err != nil {
		return nil, err
	}

	return &action.InvokeResult{
		Success:      result.Success,
		ResultToken:  result.ResultToken,
		ErrorMessage: result.ErrorMessage,
	}, nil
}

// fallbackInvoker dispatches through the registry and backs unregistered
// pairs with the fake invoker.
type fallbackInvoker struct {
	registry *action.Registry
	fallback action.Invoker
}

func (i fallbackInvoker) Invoke(ctx context.Context, req action.InvokeRequest) (*action.InvokeResult, error) {
	result, err := i.registry.Invoke(ctx, req)
	if err != nil && errors.Is(err, model.ErrNotFound) {
		return i.fallback.Invoke(ctx, req)
	}
	return result, err
}

// newRunner creates the engine runner for task operations.
func (c *Client) newRunner() (*engine.Runner, error) {
	return engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   c.taskRepo,
		RecordRepo: c.recordRepo,
		Wallets:    c.wallets,
		Invoker:    fallbackInvoker{registry: c.registry, fallback: c.fallback},
		Proxies:    c.proxies,
		Logger:     c.logger,
	})
}

// getInternalTask resolves a task from storage by name or ID.
func (c *Client) getInternalTask(ctx context.Context, nameOrID string) (*model.Task, error) {
	task, err := c.taskRepo.GetTask(ctx, nameOrID)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	tasks, err := c.taskRepo.ListTasks(ctx)
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
