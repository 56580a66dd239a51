package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Retries across all requests share one budget so a failing upstream does not
// multiply outbound traffic.
const (
	retryBudgetPerSecond = 10
	retryBudgetBurst     = 20
)

// RetryTransport retries requests whose transport failed before any response
// arrived. Application errors (any HTTP status) are returned untouched.
type RetryTransport struct {
	next       http.RoundTripper
	maxRetries int
	backoff    time.Duration
	budget     *rate.Limiter
	logger     *zap.SugaredLogger
}

// NewRetryTransport wraps next. A non-positive maxRetries disables retries.
func NewRetryTransport(next http.RoundTripper, maxRetries int, backoff time.Duration, logger *zap.SugaredLogger) *RetryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RetryTransport{
		next:       next,
		maxRetries: maxRetries,
		backoff:    backoff,
		budget:     rate.NewLimiter(retryBudgetPerSecond, retryBudgetBurst),
		logger:     logger,
	}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attemptReq := req
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := t.wait(req.Context(), attempt); err != nil {
				return nil, err
			}
			next, err := rewind(req)
			if err != nil {
				return nil, err
			}
			attemptReq = next
		}

		resp, err := t.next.RoundTrip(attemptReq)
		if err == nil {
			return resp, nil
		}
		if attempt >= t.maxRetries || req.Context().Err() != nil || !retryable(req, err) {
			return nil, err
		}
		if !t.budget.Allow() {
			t.logger.Warnw("retry budget exhausted", "host", req.URL.Host, "method", req.Method, "error", err)
			return nil, err
		}
		t.logger.Warnw("transient upstream failure, retrying",
			"host", req.URL.Host, "method", req.Method, "attempt", attempt+1, "error", err)
	}
}

func (t *RetryTransport) wait(ctx context.Context, attempt int) error {
	delay := t.backoff * time.Duration(1<<(attempt-1))
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("httpclient: request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("httpclient: rewind body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

// retryable reports whether err is a transient network failure. Connection
// setup failures are safe for every method; failures after the request may
// have reached the upstream are retried for idempotent methods only.
func retryable(req *http.Request, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}

	if isDialError(err) {
		return true
	}
	if !idempotent(req.Method) {
		return false
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.EPIPE)
}

func isDialError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
