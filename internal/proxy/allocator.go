package proxy

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/herdctl/herd/internal/log"
	"github.com/herdctl/herd/internal/model"
)

// Allocator hands out exclusive proxies to concurrent workers.
//
// Acquire returns nil when no healthy unclaimed proxy could be found within
// the draw bound: the caller proceeds with a direct connection instead of
// blocking. Release must be called exactly once per non-nil Acquire result.
type Allocator interface {
	Acquire(ctx context.Context, workerID string, group string) (*model.Proxy, error)
	Release(p *model.Proxy)
}

// CatalogProvider is the interface for proxy catalog providers.
type CatalogProvider interface {
	GetProxies(ctx context.Context, group string) ([]model.Proxy, error)
}

const defaultMaxDraws = 10

// PoolConfig is the configuration for the proxy pool allocator.
type PoolConfig struct {
	Catalog CatalogProvider
	Prober  Prober
	// MaxDraws bounds the candidate draws per Acquire call.
	MaxDraws int
	Logger   log.Logger
}

func (c *PoolConfig) defaults() error {
	if c.Catalog == nil {
		return fmt.Errorf("catalog is required")
	}
	if c.Prober == nil {
		c.Prober = NewRestyProber(RestyProberConfig{})
	}
	if c.MaxDraws <= 0 {
		c.MaxDraws = defaultMaxDraws
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "proxy.Pool"})
	return nil
}

// Pool is the catalog-backed implementation of Allocator. Claims are exclusive
// per host:port across all workers of the process.
type Pool struct {
	catalog  CatalogProvider
	prober   Prober
	maxDraws int
	logger   log.Logger

	mu     sync.Mutex
	claims map[string]string // proxy key -> worker ID.
}

// NewPool creates a new proxy pool allocator.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Pool{
		catalog:  cfg.Catalog,
		prober:   cfg.Prober,
		maxDraws: cfg.MaxDraws,
		logger:   cfg.Logger,
		claims:   map[string]string{},
	}, nil
}

// Acquire draws up to MaxDraws candidates from the group catalog, claims the
// first healthy unclaimed one and returns it. Returns nil when the bound is
// exhausted: progress over strict proxy isolation.
func (p *Pool) Acquire(ctx context.Context, workerID string, group string) (*model.Proxy, error) {
	proxies, err := p.catalog.GetProxies(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("could not get proxies for group %s: %w", group, err)
	}
	if len(proxies) == 0 {
		p.logger.Warningf("Proxy group %s is empty, worker %s continues direct", group, workerID)
		return nil, nil
	}

	for i := 0; i < p.maxDraws; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		candidate := proxies[rand.Intn(len(proxies))]

		// Claim before probing so two workers can't validate and take the
		// same entry at once.
		if !p.claim(candidate, workerID) {
			continue
		}

		if err := p.prober.Probe(ctx, candidate); err != nil {
			p.logger.Debugf("Proxy %s failed liveness probe: %v", candidate.Key(), err)
			p.Release(&candidate)
			continue
		}

		p.logger.Debugf("Worker %s acquired proxy %s", workerID, candidate.Key())
		return &candidate, nil
	}

	p.logger.Warningf("No healthy proxy found in group %s after %d draws, worker %s continues direct", group, p.maxDraws, workerID)
	return nil, nil
}

// Release removes the claim on a proxy, making it eligible for the next
// Acquire by any worker. Release of a nil proxy is a no-op.
func (p *Pool) Release(proxy *model.Proxy) {
	if proxy == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.claims, proxy.Key())
}

func (p *Pool) claim(proxy model.Proxy, workerID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := proxy.Key()
	if _, taken := p.claims[key]; taken {
		return false
	}
	p.claims[key] = workerID
	return true
}
