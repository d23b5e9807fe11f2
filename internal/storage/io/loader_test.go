package io_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdctl/herd/internal/model"
	storageio "github.com/herdctl/herd/internal/storage/io"
)

var walletsYAML = `
groups:
  - name: main
    wallets:
      - address: "0xaaa"
        private_key: "pk-a"
      - address: "0xbbb"
        mnemonic: "word word word"
  - name: broken
    wallets:
      - private_key: "pk-missing-address"
`

func TestWalletYAMLProvider(t *testing.T) {
	tests := map[string]struct {
		group      string
		expWallets []model.Wallet
		expErr     bool
	}{
		"Loading an existing group should return its wallets in order.": {
			group: "main",
			expWallets: []model.Wallet{
				{Address: "0xaaa", PrivateKey: "pk-a"},
				{Address: "0xbbb", Mnemonic: "word word word"},
			},
		},

		"Loading a missing group should fail.": {
			group:  "other",
			expErr: true,
		},

		"Loading a group with an addressless wallet should fail.": {
			group:  "broken",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			fs := fstest.MapFS{
				"wallets.yaml": &fstest.MapFile{Data: []byte(walletsYAML)},
			}
			provider := storageio.NewWalletYAMLProvider(fs, "wallets.yaml")

			wallets, err := provider.GetWalletsInGroup(context.TODO(), test.group)

			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expWallets, wallets)
			}
		})
	}
}

func TestWalletYAMLProviderMissingFile(t *testing.T) {
	provider := storageio.NewWalletYAMLProvider(fstest.MapFS{}, "wallets.yaml")
	_, err := provider.GetWalletsInGroup(context.TODO(), "main")
	assert.Error(t, err)
}

var proxiesYAML = `
groups:
  - name: residential
    proxies:
      - host: "10.0.0.1"
        port: 8080
        username: "u"
        password: "p"
      - host: "10.0.0.2"
        port: 3128
  - name: broken
    proxies:
      - username: "no-host"
`

func TestProxyYAMLCatalog(t *testing.T) {
	tests := map[string]struct {
		group      string
		expProxies []model.Proxy
		expErr     bool
	}{
		"Loading an existing group should return its proxies.": {
			group: "residential",
			expProxies: []model.Proxy{
				{Host: "10.0.0.1", Port: 8080, Username: "u", Password: "p", Group: "residential"},
				{Host: "10.0.0.2", Port: 3128, Group: "residential"},
			},
		},

		"Loading a missing group should return an empty catalog.": {
			group:      "other",
			expProxies: nil,
		},

		"Loading a group with an invalid proxy should fail.": {
			group:  "broken",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			fs := fstest.MapFS{
				"proxies.yaml": &fstest.MapFile{Data: []byte(proxiesYAML)},
			}
			catalog := storageio.NewProxyYAMLCatalog(fs, "proxies.yaml")

			proxies, err := catalog.GetProxies(context.TODO(), test.group)

			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expProxies, proxies)
			}
		})
	}
}

func TestTaskYAMLRepository(t *testing.T) {
	tests := map[string]struct {
		yaml   string
		expDef *storageio.TaskDefinition
		expErr bool
	}{
		"Loading a full task definition should return the model.": {
			yaml: `
name: zk-daily
project: zksync
wallet_group: main
actions: [swap, bridge]
amount: 0.01
workers: 3
use_proxy: true
proxy_group: residential
cron: "0 9 * * *"
`,
			expDef: &storageio.TaskDefinition{
				Name: "zk-daily",
				Config: model.TaskConfig{
					Project:     "zksync",
					WalletGroup: "main",
					Actions:     []string{"swap", "bridge"},
					Amount:      0.01,
					WorkerCount: 3,
					UseProxy:    true,
					ProxyGroup:  "residential",
					Cron:        "0 9 * * *",
				},
			},
		},

		"Omitting the worker count should default to a single worker.": {
			yaml: `
name: minimal
project: zksync
wallet_group: main
actions: [swap]
`,
			expDef: &storageio.TaskDefinition{
				Name: "minimal",
				Config: model.TaskConfig{
					Project:     "zksync",
					WalletGroup: "main",
					Actions:     []string{"swap"},
					WorkerCount: 1,
				},
			},
		},

		"A definition without a name should fail.": {
			yaml: `
project: zksync
wallet_group: main
actions: [swap]
`,
			expErr: true,
		},

		"A definition without actions should fail.": {
			yaml: `
name: empty
project: zksync
wallet_group: main
`,
			expErr: true,
		},

		"Proxy usage without a proxy group should fail.": {
			yaml: `
name: lonely-proxy
project: zksync
wallet_group: main
actions: [swap]
use_proxy: true
`,
			expErr: true,
		},

		"Invalid YAML should fail.": {
			yaml:   `{invalid`,
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			fs := fstest.MapFS{
				"task.yaml": &fstest.MapFile{Data: []byte(test.yaml)},
			}
			repo := storageio.NewTaskYAMLRepository(fs)

			def, err := repo.GetTaskDefinition(context.TODO(), "task.yaml")

			if test.expErr {
				assert.Error(err)
			} else {
				require.NoError(err)
				assert.Equal(test.expDef, def)
			}
		})
	}
}
