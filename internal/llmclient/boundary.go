// internal/llmclient/boundary.go
package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/xpathfinder/internal/config"
	"github.com/xkilldash9x/xpathfinder/internal/network"
)

const defaultAPITimeout = 60 * time.Second

// newHTTPClient builds the transport shared by the providers. llm.api_timeout
// bounds each request, body included.
func newHTTPClient(cfg config.LLMConfig, logger *zap.Logger) *http.Client {
	clientCfg := network.NewDefaultClientConfig()
	clientCfg.RequestTimeout = cfg.APITimeout
	if clientCfg.RequestTimeout <= 0 {
		clientCfg.RequestTimeout = defaultAPITimeout
	}
	clientCfg.Logger = logger
	return network.NewClient(clientCfg)
}

// callPolicy bundles the retry and throttling applied around every provider request.
type callPolicy struct {
	limiter        *rate.Limiter
	maxRetries     uint64
	backoffFactory func() backoff.BackOff
}

func newCallPolicy(cfg config.LLMConfig) *callPolicy {
	p := &callPolicy{
		maxRetries: cfg.MaxRetries,
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 2 * time.Minute
			return b
		},
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return p
}

// do runs op under the throttle and the retry policy. op marks non-retryable
// failures with backoff.Permanent; the returned error is unwrapped from that marker.
func (p *callPolicy) do(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(p.backoffFactory(), p.maxRetries), ctx)

	throttled := func() error {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limiter wait: %w", err))
			}
		}
		return op()
	}

	return backoff.Retry(throttled, b)
}
