// Package lib provides a Go SDK for managing herd tasks programmatically.
//
// This package allows applications to create, run, and monitor wallet
// automation tasks without shelling out to the herd CLI binary. It is useful
// for scripting, automation, and building tools on top of herd.
//
// # Quick Start
//
// Create a client, create a task, and run it to completion:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Create a task.
//	task, err := client.CreateTask(ctx, lib.CreateTaskOpts{
//	    Name: "airdrop-farm",
//	    Config: lib.TaskConfig{
//	        Project:     "dex",
//	        WalletGroup: "main",
//	        Actions:     []string{"swap", "stake"},
//	        Amount:      0.1,
//	        WorkerCount: 4,
//	    },
//	})
//
//	// Run it and wait for the result.
//	task, err = client.StartTask(ctx, "airdrop-farm", &lib.StartTaskOpts{Wait: true})
//
// # Task Lifecycle
//
// A task applies an ordered action list to every wallet of a group. Use
// [Client.PauseTask] to pause a running task and [Client.ResumeTask] to pick
// it up again without re-executing settled wallets. [Client.StopTask] cancels
// the remaining work, the next start begins from the first wallet. Progress
// and per-wallet outcomes are queryable at any time with
// [Client.GetTaskStatus], including mid-run.
//
// # Action Handlers
//
// Actions are dispatched to handlers registered per (project, action) pair:
//
//	client.RegisterAction("dex", "swap", lib.ActionHandlerFunc(
//	    func(ctx context.Context, req lib.ActionRequest) (*lib.ActionResult, error) {
//	        tx, err := swap(ctx, req.Wallet.PrivateKey, req.Amount, req.ProxyURL)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return &lib.ActionResult{Success: true, ResultToken: tx}, nil
//	    }))
//
// Pairs without a registered handler fall back to a deterministic fake that
// always succeeds, so tasks can be dry-run before wiring real integrations.
//
// # Proxies
//
// Tasks with UseProxy set route action traffic through proxies from the
// configured proxy catalog. Each worker holds its proxy exclusively while
// processing a wallet; when no healthy proxy is available the worker degrades
// to a direct connection rather than stalling. Handlers receive the proxy as
// ActionRequest.ProxyURL.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrAlreadyExists]: Resource with the same name already exists.
//   - [ErrNotValid]: Invalid input or operation (e.g. pausing a task that is not running).
//
// # Testing
//
// Use a temporary database path and catalog files to write tests without
// touching real data:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    DBPath:      filepath.Join(t.TempDir(), "test.db"),
//	    WalletsPath: "testdata/wallets.yaml",
//	    ProxiesPath: "testdata/proxies.yaml",
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The
// underlying storage uses SQLite with WAL mode.
package lib
