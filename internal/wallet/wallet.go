package wallet

import (
	"context"

	"github.com/herdctl/herd/internal/model"
)

// Provider is the interface for wallet group providers. Wallet storage and
// key derivation live outside the engine, the engine only reads an ordered
// list of wallets belonging to a group.
type Provider interface {
	GetWalletsInGroup(ctx context.Context, group string) ([]model.Wallet, error)
}
