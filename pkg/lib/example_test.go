package lib_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/herdctl/herd/pkg/lib"
)

const exampleWalletsYAML = `groups:
  - name: main
    wallets:
      - address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
      - address: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
`

func exampleClient(dir string) (*lib.Client, error) {
	walletsPath := filepath.Join(dir, "wallets.yaml")
	if err := os.WriteFile(walletsPath, []byte(exampleWalletsYAML), 0o600); err != nil {
		return nil, err
	}

	return lib.New(context.Background(), lib.Config{
		DBPath:      filepath.Join(dir, "herd.db"),
		DataDir:     dir,
		WalletsPath: walletsPath,
	})
}

// This example shows how to create a client backed by a temp directory for testing.
func Example_testing() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "herd-example-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	client, err := exampleClient(dir)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	// Create a task.
	task, err := client.CreateTask(ctx, lib.CreateTaskOpts{
		Name: "demo",
		Config: lib.TaskConfig{
			Project:     "dex",
			WalletGroup: "main",
			Actions:     []string{"swap"},
			WorkerCount: 1,
		},
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Created: %s (status: %s)\n", task.Name, task.Status)

	// Output:
	// Created: demo (status: pending)
}

// This example shows the full task lifecycle: create, run to completion, inspect.
func Example_lifecycle() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "herd-example-lifecycle-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	client, err := exampleClient(dir)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	// Create.
	_, err = client.CreateTask(ctx, lib.CreateTaskOpts{
		Name: "farm",
		Config: lib.TaskConfig{
			Project:     "dex",
			WalletGroup: "main",
			Actions:     []string{"swap", "stake"},
			Amount:      0.1,
			WorkerCount: 2,
		},
	})
	if err != nil {
		panic(err)
	}
	fmt.Println("1. Created")

	// Run to completion. Unregistered actions are backed by the fake handler.
	task, err := client.StartTask(ctx, "farm", &lib.StartTaskOpts{Wait: true})
	if err != nil {
		panic(err)
	}
	fmt.Printf("2. Finished: %s (%d%%)\n", task.Status, task.Progress)

	// Inspect per-wallet outcomes.
	status, err := client.GetTaskStatus(ctx, "farm")
	if err != nil {
		panic(err)
	}
	fmt.Printf("3. Records: %d\n", len(status.Records))

	// Output:
	// 1. Created
	// 2. Finished: completed (100%)
	// 3. Records: 4
}

// This example shows how to inspect SDK errors with errors.Is.
func Example_errorHandling() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "herd-example-errors-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	client, err := exampleClient(dir)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	_, err = client.GetTask(ctx, "missing")
	if errors.Is(err, lib.ErrNotFound) {
		fmt.Println("task does not exist")
	}

	// Output:
	// task does not exist
}
