package fake

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/herdctl/herd/internal/action"
)

// Invoker is a deterministic fake action implementation for tests and dry
// runs. It always succeeds and returns a stable result token derived from the
// request.
type Invoker struct {
	// Delay simulates network/confirmation latency.
	Delay time.Duration
}

// NewInvoker creates a new fake invoker.
func NewInvoker() *Invoker {
	return &Invoker{}
}

// Invoke returns a successful result after the configured delay.
func (i *Invoker) Invoke(ctx context.Context, req action.InvokeRequest) (*action.InvokeResult, error) {
	if i.Delay > 0 {
		select {
		case <-time.After(i.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%s/%f", req.Project, req.Action, req.Wallet.Address, req.Amount)))

	return &action.InvokeResult{
		Success:     true,
		ResultToken: "0x" + hex.EncodeToString(sum[:]),
	}, nil
}
