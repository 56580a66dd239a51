// Package httpclient provides the shared outbound connection pool.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/config"
)

// Pool owns one transport shared by every upstream client so idle connections
// are reused across requests.
type Pool struct {
	transport *http.Transport
	rt        http.RoundTripper
}

// New builds the pool. Connections per host are not capped so a slow upstream
// call never queues unrelated callers behind it.
func New(cfg config.HTTPClientConfig, logger *zap.SugaredLogger) *Pool {
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 100
	}
	maxIdlePerHost := cfg.MaxIdleConnsPerHost
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = maxIdle
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return newPool(transport, cfg, logger)
}

func newPool(transport *http.Transport, cfg config.HTTPClientConfig, logger *zap.SugaredLogger) *Pool {
	return &Pool{
		transport: transport,
		rt:        NewRetryTransport(transport, cfg.MaxRetries, cfg.RetryBackoff, logger),
	}
}

// Client returns a client bound to the shared transport with its own deadline.
func (p *Pool) Client(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: p.rt,
		Timeout:   timeout,
	}
}

// Close drops idle connections.
func (p *Pool) Close() {
	p.transport.CloseIdleConnections()
}
