package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/herdctl/herd/internal/model"
)

// InvokeRequest carries everything an action implementation needs to perform
// one external interaction for one wallet.
type InvokeRequest struct {
	Project string
	Action  string
	Wallet  model.Wallet
	Amount  float64
	// Proxy is the network identity to use, nil means direct connection.
	Proxy *model.Proxy
}

// InvokeResult is the outcome of one action invocation.
type InvokeResult struct {
	Success bool
	// ResultToken is an opaque reference to the external effect, e.g. a
	// transaction hash.
	ResultToken  string
	ErrorMessage string
}

// Invoker is the boundary the engine calls to perform one action for one
// wallet. Implementations may take seconds to minutes and should observe ctx
// for cooperative cancellation. The engine treats them as opaque and
// at-least-once, idempotency is the implementation's concern.
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error)
}

type registryKey struct {
	project string
	action  string
}

// Registry dispatches invocations to typed handlers keyed by
// (project, action). Unregistered pairs fail the invocation.
type Registry struct {
	mu       sync.RWMutex
	handlers map[registryKey]Invoker
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[registryKey]Invoker{}}
}

// Register binds a handler to a (project, action) pair. Registering the same
// pair twice replaces the previous handler.
func (r *Registry) Register(project, action string, h Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[registryKey{project: project, action: action}] = h
}

// Invoke looks up the handler for the request and delegates to it.
func (r *Registry) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	r.mu.RLock()
	h, ok := r.handlers[registryKey{project: req.Project, action: req.Action}]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no handler registered for project %q action %q: %w", req.Project, req.Action, model.ErrNotFound)
	}

	return h.Invoke(ctx, req)
}
