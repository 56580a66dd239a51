package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/model"
)

// Limit allows Count requests per Period.
type Limit struct {
	Count  int
	Period time.Duration
}

func (l Limit) String() string {
	return fmt.Sprintf("%d per %s", l.Count, l.Period)
}

var periods = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseLimits parses expressions like "10/hour;2/minute" or "10 per hour".
func ParseLimits(expr string) ([]Limit, error) {
	var limits []Limit
	for _, part := range strings.FieldsFunc(expr, func(r rune) bool { return r == ';' || r == ',' }) {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		var countStr, unit string
		if before, after, ok := strings.Cut(part, "/"); ok {
			countStr, unit = before, after
		} else if before, after, ok := strings.Cut(part, " per "); ok {
			countStr, unit = before, after
		} else {
			return nil, fmt.Errorf("invalid rate limit %q", part)
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("invalid rate limit count in %q", part)
		}
		period, ok := periods[strings.TrimSuffix(strings.TrimSpace(unit), "s")]
		if !ok {
			return nil, fmt.Errorf("invalid rate limit period in %q", part)
		}
		limits = append(limits, Limit{Count: count, Period: period})
	}
	return limits, nil
}

// Limiter decides whether one more request for key fits every limit. When it
// does not, retryAfter estimates when the next request would be accepted.
type Limiter interface {
	Allow(ctx context.Context, key string, limits []Limit) (ok bool, retryAfter time.Duration, err error)
}

// the visitor holds the request log of each limit and the last seen time for
// one client and operation class.
type visitor struct {
	hits     [][]time.Time
	lastSeen time.Time
}

// prune drops hits that left each limit's trailing window.
func (v *visitor) prune(limits []Limit, now time.Time) {
	for i, l := range limits {
		windowStart := now.Add(-l.Period)
		kept := v.hits[i][:0]
		for _, ts := range v.hits[i] {
			if ts.After(windowStart) {
				kept = append(kept, ts)
			}
		}
		v.hits[i] = kept
	}
}

func (v *visitor) empty() bool {
	for _, h := range v.hits {
		if len(h) > 0 {
			return false
		}
	}
	return true
}

// MemoryLimiter keeps a sliding log of accepted requests per key in process
// memory. A request is accepted only while every limit has fewer than Count
// hits in its trailing Period.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limits   map[string][]Limit
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryLimiter(ttl time.Duration) *MemoryLimiter {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limits:   make(map[string][]Limit),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limits []Limit) (bool, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	v, exists := m.visitors[key]
	if !exists || len(v.hits) != len(limits) {
		v = &visitor{hits: make([][]time.Time, len(limits))}
		m.visitors[key] = v
	}
	m.limits[key] = limits
	v.lastSeen = now
	v.prune(limits, now)

	var wait time.Duration
	denied := false
	for i, l := range limits {
		if len(v.hits[i]) < l.Count {
			continue
		}
		denied = true
		if d := v.hits[i][0].Add(l.Period).Sub(now); d > wait {
			wait = d
		}
	}
	if denied {
		return false, wait, nil
	}
	for i := range limits {
		v.hits[i] = append(v.hits[i], now)
	}
	return true, 0, nil
}

// Cleanup removes visitors that have not been seen for longer than the ttl and
// have no hits left in any window.
func (m *MemoryLimiter) Cleanup() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.visitors {
		if now.Sub(v.lastSeen) <= m.ttl {
			continue
		}
		v.prune(m.limits[key], now)
		if v.empty() {
			delete(m.visitors, key)
			delete(m.limits, key)
		}
	}
}

// StartCleanup runs Cleanup every minute until ctx is done.
func (m *MemoryLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Cleanup()
			}
		}
	}()
}

func (m *MemoryLimiter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}

// clientIP extracts the peer address. Forwarded headers are ignored so clients
// cannot pick their own bucket.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

// RateLimit rejects requests from a client once any limit for the operation
// class is exhausted. Limiter failures are logged and the request is let through.
func RateLimit(limiter Limiter, class string, limits []Limit, logger *zap.SugaredLogger) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil || len(limits) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ok, retryAfter, err := limiter.Allow(r.Context(), class+":"+ip, limits)
			if err != nil {
				logger.Warnw("rate limiter unavailable, allowing request", "class", class, "ip", ip, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				logger.Warnw("rate limit exceeded", "class", class, "ip", ip, "path", r.URL.Path)
				if retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				}
				writeJSON(w, http.StatusTooManyRequests, model.ErrorResponse{
					Error:   "Rate limit exceeded",
					Message: "Too many requests. Please try again later.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
