package proxy_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/herdctl/herd/internal/model"
	"github.com/herdctl/herd/internal/proxy"
	"github.com/herdctl/herd/internal/proxy/proxymock"
)

type proberFunc func(ctx context.Context, p model.Proxy) error

func (f proberFunc) Probe(ctx context.Context, p model.Proxy) error {
	return f(ctx, p)
}

var healthyProber = proberFunc(func(_ context.Context, _ model.Proxy) error { return nil })

func testProxies(n int) []model.Proxy {
	proxies := make([]model.Proxy, 0, n)
	for i := 0; i < n; i++ {
		proxies = append(proxies, model.Proxy{Host: fmt.Sprintf("10.0.0.%d", i+1), Port: 8080, Group: "residential"})
	}
	return proxies
}

func TestPoolExhaustedCatalogDegradesToDirect(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	mc := &proxymock.MockCatalogProvider{}
	mc.On("GetProxies", mock.Anything, "residential").Return(testProxies(2), nil)

	pool, err := proxy.NewPool(proxy.PoolConfig{Catalog: mc, Prober: healthyProber})
	require.NoError(err)

	// Two workers drain the catalog, the third finds every entry claimed.
	p1, err := pool.Acquire(context.TODO(), "w1", "residential")
	require.NoError(err)
	require.NotNil(p1)

	p2, err := pool.Acquire(context.TODO(), "w2", "residential")
	require.NoError(err)
	require.NotNil(p2)

	assert.NotEqual(p1.Key(), p2.Key())

	p3, err := pool.Acquire(context.TODO(), "w3", "residential")
	require.NoError(err)
	assert.Nil(p3)
}

func TestPoolReleaseMakesProxyAvailableAgain(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	mc := &proxymock.MockCatalogProvider{}
	mc.On("GetProxies", mock.Anything, "residential").Return(testProxies(1), nil)

	pool, err := proxy.NewPool(proxy.PoolConfig{Catalog: mc, Prober: healthyProber})
	require.NoError(err)

	p1, err := pool.Acquire(context.TODO(), "w1", "residential")
	require.NoError(err)
	require.NotNil(p1)

	blocked, err := pool.Acquire(context.TODO(), "w2", "residential")
	require.NoError(err)
	require.Nil(blocked)

	pool.Release(p1)

	p2, err := pool.Acquire(context.TODO(), "w2", "residential")
	require.NoError(err)
	require.NotNil(p2)
	assert.Equal(p1.Key(), p2.Key())
}

func TestPoolProbeFailureReleasesClaim(t *testing.T) {
	require := require.New(t)

	mc := &proxymock.MockCatalogProvider{}
	mc.On("GetProxies", mock.Anything, "residential").Return(testProxies(1), nil)

	var mu sync.Mutex
	healthy := false
	prober := proberFunc(func(_ context.Context, _ model.Proxy) error {
		mu.Lock()
		defer mu.Unlock()
		if !healthy {
			return fmt.Errorf("connect timeout")
		}
		return nil
	})

	pool, err := proxy.NewPool(proxy.PoolConfig{Catalog: mc, Prober: prober})
	require.NoError(err)

	// Every draw fails the probe, the worker degrades to direct.
	p1, err := pool.Acquire(context.TODO(), "w1", "residential")
	require.NoError(err)
	require.Nil(p1)

	// The dead proxy was unclaimed on probe failure: once it recovers it can
	// be acquired again.
	mu.Lock()
	healthy = true
	mu.Unlock()

	p2, err := pool.Acquire(context.TODO(), "w1", "residential")
	require.NoError(err)
	require.NotNil(p2)
}

func TestPoolEmptyGroupDegradesToDirect(t *testing.T) {
	require := require.New(t)

	mc := &proxymock.MockCatalogProvider{}
	mc.On("GetProxies", mock.Anything, "other").Return(nil, nil)

	pool, err := proxy.NewPool(proxy.PoolConfig{Catalog: mc, Prober: healthyProber})
	require.NoError(err)

	p, err := pool.Acquire(context.TODO(), "w1", "other")
	require.NoError(err)
	require.Nil(p)
}

func TestPoolCatalogErrorFailsAcquire(t *testing.T) {
	require := require.New(t)

	mc := &proxymock.MockCatalogProvider{}
	mc.On("GetProxies", mock.Anything, "residential").Return(nil, fmt.Errorf("proxies file corrupted"))

	pool, err := proxy.NewPool(proxy.PoolConfig{Catalog: mc, Prober: healthyProber})
	require.NoError(err)

	_, err = pool.Acquire(context.TODO(), "w1", "residential")
	require.Error(err)
}

func TestPoolExclusiveClaimsUnderContention(t *testing.T) {
	require := require.New(t)

	mc := &proxymock.MockCatalogProvider{}
	mc.On("GetProxies", mock.Anything, "residential").Return(testProxies(4), nil)

	pool, err := proxy.NewPool(proxy.PoolConfig{Catalog: mc, Prober: healthyProber})
	require.NoError(err)

	var mu sync.Mutex
	held := map[string]string{}
	violations := 0

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			workerID := fmt.Sprintf("w%d", w)

			for i := 0; i < 50; i++ {
				p, err := pool.Acquire(context.TODO(), workerID, "residential")
				if err != nil || p == nil {
					continue
				}

				mu.Lock()
				if holder, taken := held[p.Key()]; taken {
					violations++
					_ = holder
				}
				held[p.Key()] = workerID
				mu.Unlock()

				time.Sleep(time.Microsecond)

				mu.Lock()
				delete(held, p.Key())
				mu.Unlock()

				pool.Release(p)
			}
		}(w)
	}
	wg.Wait()

	// No proxy was ever held by two workers at once.
	assert.Equal(t, 0, violations)
}
