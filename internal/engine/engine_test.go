package engine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/herdctl/herd/internal/action"
	"github.com/herdctl/herd/internal/engine"
	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/proxy/proxymock"
	"github.com/herdctl/herd/internal/storage/memory"
	"github.com/herdctl/herd/internal/wallet/walletmock"
)

type invokerFunc func(ctx context.Context, req action.InvokeRequest) (*action.InvokeResult, error)

func (f invokerFunc) Invoke(ctx context.Context, req action.InvokeRequest) (*action.InvokeResult, error) {
	return f(ctx, req)
}

// countingInvoker records every request it sees, in order.
type countingInvoker struct {
	mu       sync.Mutex
	requests []action.InvokeRequest
	handler  invokerFunc
}

func (c *countingInvoker) Invoke(ctx context.Context, req action.InvokeRequest) (*action.InvokeResult, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.handler != nil {
		return c.handler(ctx, req)
	}
	return &action.InvokeResult{Success: true, ResultToken: "0x" + req.Wallet.Address + "-" + req.Action}, nil
}

func (c *countingInvoker) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *countingInvoker) invokedAddresses() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	addrs := map[string]bool{}
	for _, req := range c.requests {
		addrs[req.Wallet.Address] = true
	}
	return addrs
}

func testWallets(n int) []model.Wallet {
	wallets := make([]model.Wallet, 0, n)
	for i := 0; i < n; i++ {
		wallets = append(wallets, model.Wallet{Address: fmt.Sprintf("0x%03d", i), PrivateKey: fmt.Sprintf("pk-%d", i)})
	}
	return wallets
}

func seedRunningTask(t *testing.T, repo *memory.Repository, cfg model.TaskConfig) model.Task {
	t.Helper()

	now := time.Now().UTC()
	task := model.Task{
		ID:        "task1",
		Name:      "test-task",
		Config:    cfg,
		Status:    model.TaskStatusRunning,
		CreatedAt: now,
		StartedAt: &now,
	}
	require.NoError(t, repo.CreateTask(context.TODO(), task))

	return task
}

func recordsByStatus(t *testing.T, repo *memory.Repository, taskID string) map[model.RecordStatus]int {
	t.Helper()

	records, err := repo.GetRecords(context.TODO(), taskID)
	require.NoError(t, err)

	counts := map[model.RecordStatus]int{}
	for _, rec := range records {
		counts[rec.Status]++
	}
	return counts
}

func TestRunnerDrainsAllWallets(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	wallets := testWallets(3)
	mwp := &walletmock.MockProvider{}
	mwp.On("GetWalletsInGroup", mock.Anything, "main").Return(wallets, nil)

	invoker := &countingInvoker{}

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: repo,
		Wallets:    mwp,
		Invoker:    invoker,
	})
	require.NoError(err)

	task := seedRunningTask(t, repo, model.TaskConfig{
		Project:     "zksync",
		WalletGroup: "main",
		Actions:     []string{"swap", "bridge"},
		WorkerCount: 1,
	})

	err = runner.Run(context.Background(), task.ID)
	require.NoError(err)

	got, err := repo.GetTask(context.TODO(), task.ID)
	require.NoError(err)
	assert.Equal(model.TaskStatusCompleted, got.Status)
	assert.Equal(100, got.Progress)
	assert.Equal(3, got.LastWalletIndex)
	assert.NotNil(got.EndedAt)

	records, err := repo.GetRecords(context.TODO(), task.ID)
	require.NoError(err)
	require.Len(records, 6)
	for _, rec := range records {
		assert.Equal(model.RecordStatusSucceeded, rec.Status)
		require.NotNil(rec.Success)
		assert.True(*rec.Success)
		assert.NotEmpty(rec.ResultToken)
	}

	assert.Equal(6, invoker.calls())
}

func TestRunnerPauseLabelsRemainingWork(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	wallets := testWallets(3)
	mwp := &walletmock.MockProvider{}
	mwp.On("GetWalletsInGroup", mock.Anything, "main").Return(wallets, nil)

	// Pause the task through the store once the first wallet is done, the way
	// a pause from another process lands.
	invoker := &countingInvoker{}
	invoker.handler = func(ctx context.Context, req action.InvokeRequest) (*action.InvokeResult, error) {
		if invoker.calls() == 2 {
			task, err := repo.GetTask(ctx, "task1")
			require.NoError(err)
			task.Status = model.TaskStatusPaused
			require.NoError(repo.UpdateTask(ctx, *task))
		}
		return &action.InvokeResult{Success: true, ResultToken: "0xok"}, nil
	}

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: repo,
		Wallets:    mwp,
		Invoker:    invoker,
	})
	require.NoError(err)

	task := seedRunningTask(t, repo, model.TaskConfig{
		Project:     "zksync",
		WalletGroup: "main",
		Actions:     []string{"swap", "bridge"},
		WorkerCount: 1,
	})

	err = runner.Run(context.Background(), task.ID)
	require.NoError(err)

	got, err := repo.GetTask(context.TODO(), task.ID)
	require.NoError(err)
	assert.Equal(model.TaskStatusPaused, got.Status)
	assert.Equal(1, got.LastWalletIndex)
	assert.Equal(33, got.Progress)

	counts := recordsByStatus(t, repo, task.ID)
	assert.Equal(2, counts[model.RecordStatusSucceeded])
	assert.Equal(4, counts[model.RecordStatusPaused])

	assert.Equal(2, invoker.calls())
}

func TestRunnerResumeSkipsFinalizedWallets(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	wallets := testWallets(3)
	mwp := &walletmock.MockProvider{}
	mwp.On("GetWalletsInGroup", mock.Anything, "main").Return(wallets, nil)

	task := seedRunningTask(t, repo, model.TaskConfig{
		Project:     "zksync",
		WalletGroup: "main",
		Actions:     []string{"swap", "bridge"},
		WorkerCount: 1,
	})

	// State left by a previous paused run: wallet 0 finished, the rest paused.
	now := time.Now().UTC()
	success := true
	var previous []model.ExecutionRecord
	for i, w := range wallets {
		for _, act := range []string{"swap", "bridge"} {
			rec := model.ExecutionRecord{
				TaskID:        task.ID,
				WalletAddress: w.Address,
				WalletIndex:   i,
				Action:        act,
				Status:        model.RecordStatusPaused,
				UpdatedAt:     now,
			}
			if i == 0 {
				rec.Status = model.RecordStatusSucceeded
				rec.Success = &success
				rec.ResultToken = "0xdone"
			}
			previous = append(previous, rec)
		}
	}
	require.NoError(repo.CreateRecords(context.TODO(), previous))

	invoker := &countingInvoker{}

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: repo,
		Wallets:    mwp,
		Invoker:    invoker,
	})
	require.NoError(err)

	err = runner.Run(context.Background(), task.ID)
	require.NoError(err)

	got, err := repo.GetTask(context.TODO(), task.ID)
	require.NoError(err)
	assert.Equal(model.TaskStatusCompleted, got.Status)
	assert.Equal(100, got.Progress)

	counts := recordsByStatus(t, repo, task.ID)
	assert.Equal(6, counts[model.RecordStatusSucceeded])

	// The finished wallet is never re-invoked.
	assert.Equal(4, invoker.calls())
	assert.False(invoker.invokedAddresses()["0x000"])
}

func TestRunnerRecoversActionFailures(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	wallets := testWallets(2)
	mwp := &walletmock.MockProvider{}
	mwp.On("GetWalletsInGroup", mock.Anything, "main").Return(wallets, nil)

	// One action fails with a result, another with a transport error. Both are
	// local failures, the task keeps going.
	invoker := &countingInvoker{}
	invoker.handler = func(ctx context.Context, req action.InvokeRequest) (*action.InvokeResult, error) {
		switch {
		case req.Wallet.Address == "0x000" && req.Action == "bridge":
			return &action.InvokeResult{Success: false, ErrorMessage: "insufficient balance"}, nil
		case req.Wallet.Address == "0x001" && req.Action == "swap":
			return nil, fmt.Errorf("rpc timeout")
		}
		return &action.InvokeResult{Success: true, ResultToken: "0xok"}, nil
	}

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: repo,
		Wallets:    mwp,
		Invoker:    invoker,
	})
	require.NoError(err)

	task := seedRunningTask(t, repo, model.TaskConfig{
		Project:     "zksync",
		WalletGroup: "main",
		Actions:     []string{"swap", "bridge"},
		WorkerCount: 2,
	})

	err = runner.Run(context.Background(), task.ID)
	require.NoError(err)

	got, err := repo.GetTask(context.TODO(), task.ID)
	require.NoError(err)
	assert.Equal(model.TaskStatusCompleted, got.Status)
	assert.Equal(100, got.Progress)

	records, err := repo.GetRecords(context.TODO(), task.ID)
	require.NoError(err)
	require.Len(records, 4)

	byKey := map[string]model.ExecutionRecord{}
	for _, rec := range records {
		byKey[fmt.Sprintf("%d/%s", rec.WalletIndex, rec.Action)] = rec
	}

	assert.Equal(model.RecordStatusFailed, byKey["0/bridge"].Status)
	assert.Equal("insufficient balance", byKey["0/bridge"].Error)
	assert.Equal(model.RecordStatusFailed, byKey["1/swap"].Status)
	assert.Equal("rpc timeout", byKey["1/swap"].Error)
	assert.Equal(model.RecordStatusSucceeded, byKey["0/swap"].Status)
	assert.Equal(model.RecordStatusSucceeded, byKey["1/bridge"].Status)
}

func TestRunnerAbortsOnInfrastructureError(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	mwp := &walletmock.MockProvider{}
	mwp.On("GetWalletsInGroup", mock.Anything, "main").Return(nil, fmt.Errorf("wallet file corrupted"))

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: repo,
		Wallets:    mwp,
		Invoker:    &countingInvoker{},
	})
	require.NoError(err)

	task := seedRunningTask(t, repo, model.TaskConfig{
		Project:     "zksync",
		WalletGroup: "main",
		Actions:     []string{"swap"},
		WorkerCount: 1,
	})

	err = runner.Run(context.Background(), task.ID)
	assert.Error(err)

	got, err := repo.GetTask(context.TODO(), task.ID)
	require.NoError(err)
	assert.Equal(model.TaskStatusFailed, got.Status)
	assert.NotNil(got.EndedAt)

	records, err := repo.GetRecords(context.TODO(), task.ID)
	require.NoError(err)
	require.Len(records, 1)
	assert.Equal(model.SystemWallet, records[0].WalletAddress)
	assert.Equal(model.SystemWalletIndex, records[0].WalletIndex)
	assert.Equal(model.RecordStatusFailed, records[0].Status)
	assert.Contains(records[0].Error, "wallet file corrupted")
}

func TestRunnerStopLabelsRecordsCancelled(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	wallets := testWallets(3)
	mwp := &walletmock.MockProvider{}
	mwp.On("GetWalletsInGroup", mock.Anything, "main").Return(wallets, nil)

	invoker := &countingInvoker{}
	invoker.handler = func(ctx context.Context, req action.InvokeRequest) (*action.InvokeResult, error) {
		if invoker.calls() == 2 {
			task, err := repo.GetTask(ctx, "task1")
			require.NoError(err)
			task.Status = model.TaskStatusCancelled
			require.NoError(repo.UpdateTask(ctx, *task))
		}
		return &action.InvokeResult{Success: true, ResultToken: "0xok"}, nil
	}

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: repo,
		Wallets:    mwp,
		Invoker:    invoker,
	})
	require.NoError(err)

	task := seedRunningTask(t, repo, model.TaskConfig{
		Project:     "zksync",
		WalletGroup: "main",
		Actions:     []string{"swap", "bridge"},
		WorkerCount: 1,
	})

	err = runner.Run(context.Background(), task.ID)
	require.NoError(err)

	got, err := repo.GetTask(context.TODO(), task.ID)
	require.NoError(err)
	assert.Equal(model.TaskStatusCancelled, got.Status)

	counts := recordsByStatus(t, repo, task.ID)
	assert.Equal(2, counts[model.RecordStatusSucceeded])
	assert.Equal(4, counts[model.RecordStatusCancelled])
	assert.Equal(2, invoker.calls())
}

func TestRunnerInterruptPausesTask(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	wallets := testWallets(3)
	mwp := &walletmock.MockProvider{}
	mwp.On("GetWalletsInGroup", mock.Anything, "main").Return(wallets, nil)

	ctx, cancel := context.WithCancel(context.Background())

	// The run context is cancelled mid-action, simulating a SIGINT.
	invoker := &countingInvoker{}
	invoker.handler = func(ctx context.Context, req action.InvokeRequest) (*action.InvokeResult, error) {
		if invoker.calls() == 3 {
			cancel()
			return nil, ctx.Err()
		}
		return &action.InvokeResult{Success: true, ResultToken: "0xok"}, nil
	}

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: repo,
		Wallets:    mwp,
		Invoker:    invoker,
	})
	require.NoError(err)

	task := seedRunningTask(t, repo, model.TaskConfig{
		Project:     "zksync",
		WalletGroup: "main",
		Actions:     []string{"swap", "bridge"},
		WorkerCount: 1,
	})

	err = runner.Run(ctx, task.ID)
	require.NoError(err)

	got, err := repo.GetTask(context.TODO(), task.ID)
	require.NoError(err)
	assert.Equal(model.TaskStatusPaused, got.Status)

	counts := recordsByStatus(t, repo, task.ID)
	assert.Equal(2, counts[model.RecordStatusSucceeded])
	assert.Equal(4, counts[model.RecordStatusPaused])
}

func TestRunnerAcquiresProxyPerWallet(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	wallets := testWallets(2)
	mwp := &walletmock.MockProvider{}
	mwp.On("GetWalletsInGroup", mock.Anything, "main").Return(wallets, nil)

	prx := &model.Proxy{Host: "10.0.0.1", Port: 8080, Group: "residential"}
	mpa := &proxymock.MockAllocator{}
	mpa.On("Acquire", mock.Anything, mock.Anything, "residential").Return(prx, nil).Times(2)
	mpa.On("Release", prx).Times(2)

	invoker := &countingInvoker{}

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: repo,
		Wallets:    mwp,
		Invoker:    invoker,
		Proxies:    mpa,
	})
	require.NoError(err)

	task := seedRunningTask(t, repo, model.TaskConfig{
		Project:     "zksync",
		WalletGroup: "main",
		Actions:     []string{"swap"},
		WorkerCount: 1,
		UseProxy:    true,
		ProxyGroup:  "residential",
	})

	err = runner.Run(context.Background(), task.ID)
	require.NoError(err)

	mpa.AssertExpectations(t)
	for _, req := range invoker.requests {
		assert.Equal(prx, req.Proxy)
	}
}

func TestRunnerConcurrentWorkersDrainQueue(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	wallets := testWallets(20)
	mwp := &walletmock.MockProvider{}
	mwp.On("GetWalletsInGroup", mock.Anything, "main").Return(wallets, nil)

	invoker := &countingInvoker{}

	runner, err := engine.NewRunner(engine.RunnerConfig{
		TaskRepo:   repo,
		RecordRepo: repo,
		Wallets:    mwp,
		Invoker:    invoker,
	})
	require.NoError(err)

	task := seedRunningTask(t, repo, model.TaskConfig{
		Project:     "zksync",
		WalletGroup: "main",
		Actions:     []string{"swap", "bridge"},
		WorkerCount: 5,
	})

	err = runner.Run(context.Background(), task.ID)
	require.NoError(err)

	got, err := repo.GetTask(context.TODO(), task.ID)
	require.NoError(err)
	assert.Equal(model.TaskStatusCompleted, got.Status)
	assert.Equal(100, got.Progress)

	counts := recordsByStatus(t, repo, task.ID)
	assert.Equal(40, counts[model.RecordStatusSucceeded])
	assert.Equal(40, invoker.calls())
}
