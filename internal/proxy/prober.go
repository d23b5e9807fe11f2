package proxy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/herdctl/herd/internal/model"
)

// Prober verifies that a proxy is usable before it is handed to a worker.
type Prober interface {
	Probe(ctx context.Context, p model.Proxy) error
}

const (
	defaultProbeURL     = "https://www.gstatic.com/generate_204"
	defaultProbeTimeout = 5 * time.Second
)

// RestyProberConfig is the configuration for the resty liveness prober.
type RestyProberConfig struct {
	ProbeURL string
	Timeout  time.Duration
}

func (c *RestyProberConfig) defaults() {
	if c.ProbeURL == "" {
		c.ProbeURL = defaultProbeURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultProbeTimeout
	}
}

// RestyProber probes candidates with a single cheap GET through the proxy.
type RestyProber struct {
	probeURL string
	timeout  time.Duration
}

// NewRestyProber creates a new resty based prober.
func NewRestyProber(cfg RestyProberConfig) *RestyProber {
	cfg.defaults()
	return &RestyProber{
		probeURL: cfg.ProbeURL,
		timeout:  cfg.Timeout,
	}
}

// Probe sends one request through the candidate proxy and checks it answers.
func (p *RestyProber) Probe(ctx context.Context, proxy model.Proxy) error {
	client := resty.New().
		SetProxy(proxy.URL()).
		SetTimeout(p.timeout)

	resp, err := client.R().SetContext(ctx).Get(p.probeURL)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode())
	}

	return nil
}
