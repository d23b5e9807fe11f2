package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/herdctl/herd/internal/model"
)

// WalletYAMLProvider implements wallet.Provider on top of a YAML catalog
// file. The file is re-read on every call so edits are picked up without a
// restart.
type WalletYAMLProvider struct {
	fs   fs.FS
	path string
}

// NewWalletYAMLProvider creates a new YAML wallet provider.
func NewWalletYAMLProvider(filesystem fs.FS, path string) *WalletYAMLProvider {
	return &WalletYAMLProvider{fs: filesystem, path: path}
}

// GetWalletsInGroup returns the ordered wallet list of a group.
func (r *WalletYAMLProvider) GetWalletsInGroup(ctx context.Context, group string) ([]model.Wallet, error) {
	data, err := fs.ReadFile(r.fs, r.path)
	if err != nil {
		return nil, fmt.Errorf("reading wallets file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var file walletsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	for _, g := range file.Groups {
		if g.Name != group {
			continue
		}
		if err := g.validate(); err != nil {
			return nil, fmt.Errorf("invalid wallet group %s: %w", group, err)
		}
		return g.toModel(), nil
	}

	return nil, fmt.Errorf("wallet group %s: %w", group, model.ErrNotFound)
}

type walletsFile struct {
	Groups []walletGroup `yaml:"groups"`
}

type walletGroup struct {
	Name    string        `yaml:"name"`
	Wallets []walletEntry `yaml:"wallets"`
}

type walletEntry struct {
	Address    string `yaml:"address"`
	PrivateKey string `yaml:"private_key"`
	Mnemonic   string `yaml:"mnemonic"`
}

func (g walletGroup) validate() error {
	if len(g.Wallets) == 0 {
		return fmt.Errorf("group has no wallets")
	}
	for i, w := range g.Wallets {
		if w.Address == "" {
			return fmt.Errorf("wallet %d has no address", i)
		}
	}
	return nil
}

func (g walletGroup) toModel() []model.Wallet {
	wallets := make([]model.Wallet, 0, len(g.Wallets))
	for _, w := range g.Wallets {
		wallets = append(wallets, model.Wallet{
			Address:    w.Address,
			PrivateKey: w.PrivateKey,
			Mnemonic:   w.Mnemonic,
		})
	}
	return wallets
}

// ProxyYAMLCatalog implements proxy.CatalogProvider on top of a YAML catalog
// file.
type ProxyYAMLCatalog struct {
	fs   fs.FS
	path string
}

// NewProxyYAMLCatalog creates a new YAML proxy catalog.
func NewProxyYAMLCatalog(filesystem fs.FS, path string) *ProxyYAMLCatalog {
	return &ProxyYAMLCatalog{fs: filesystem, path: path}
}

// GetProxies returns the proxies of a group. An unknown group is not an
// error, it is an empty catalog: the allocator degrades to direct
// connections.
func (r *ProxyYAMLCatalog) GetProxies(ctx context.Context, group string) ([]model.Proxy, error) {
	data, err := fs.ReadFile(r.fs, r.path)
	if err != nil {
		return nil, fmt.Errorf("reading proxies file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var file proxiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	for _, g := range file.Groups {
		if g.Name != group {
			continue
		}
		proxies := make([]model.Proxy, 0, len(g.Proxies))
		for i, p := range g.Proxies {
			if p.Host == "" || p.Port == 0 {
				return nil, fmt.Errorf("proxy %d in group %s needs host and port: %w", i, group, model.ErrNotValid)
			}
			proxies = append(proxies, model.Proxy{
				Host:     p.Host,
				Port:     p.Port,
				Username: p.Username,
				Password: p.Password,
				Group:    g.Name,
			})
		}
		return proxies, nil
	}

	return nil, nil
}

type proxiesFile struct {
	Groups []proxyGroup `yaml:"groups"`
}

type proxyGroup struct {
	Name    string       `yaml:"name"`
	Proxies []proxyEntry `yaml:"proxies"`
}

type proxyEntry struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TaskYAMLRepository loads task definitions from YAML files.
type TaskYAMLRepository struct {
	fs fs.FS
}

// NewTaskYAMLRepository creates a new YAML task definition repository.
func NewTaskYAMLRepository(filesystem fs.FS) *TaskYAMLRepository {
	return &TaskYAMLRepository{fs: filesystem}
}

// TaskDefinition is a task as declared by the user.
type TaskDefinition struct {
	Name   string
	Config model.TaskConfig
}

// GetTaskDefinition loads a task definition from a YAML file and returns a
// validated model.
func (r *TaskYAMLRepository) GetTaskDefinition(ctx context.Context, path string) (*TaskDefinition, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var def taskDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	result := def.toModel()
	if result.Name == "" {
		return nil, fmt.Errorf("task name is required: %w", model.ErrNotValid)
	}
	if err := result.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task definition: %w", err)
	}

	return &result, nil
}

type taskDefinition struct {
	Name        string   `yaml:"name"`
	Project     string   `yaml:"project"`
	WalletGroup string   `yaml:"wallet_group"`
	Actions     []string `yaml:"actions"`
	Amount      float64  `yaml:"amount"`
	Workers     int      `yaml:"workers"`
	UseProxy    bool     `yaml:"use_proxy"`
	ProxyGroup  string   `yaml:"proxy_group"`
	Cron        string   `yaml:"cron"`
}

func (d taskDefinition) toModel() TaskDefinition {
	workers := d.Workers
	if workers == 0 {
		workers = 1
	}

	return TaskDefinition{
		Name: d.Name,
		Config: model.TaskConfig{
			Project:     d.Project,
			WalletGroup: d.WalletGroup,
			Actions:     d.Actions,
			Amount:      d.Amount,
			WorkerCount: workers,
			UseProxy:    d.UseProxy,
			ProxyGroup:  d.ProxyGroup,
			Cron:        d.Cron,
		},
	}
}
