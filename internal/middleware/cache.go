package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/cache"
)

type cachedResponse struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyRecorder tees the response to the client and keeps a copy.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bodyRecorder) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
	b.ResponseWriter.WriteHeader(code)
}

func (b *bodyRecorder) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

// CacheKey is the store key for a GET request: path plus sorted query.
func CacheKey(prefix string, r *http.Request) string {
	return prefix + "view" + r.URL.Path + "?" + r.URL.Query().Encode()
}

// ResponseCache serves repeated GET requests with identical query parameters
// from store for ttl. Only 200 responses are stored. Store failures count as
// misses; two concurrent misses for one key both fetch and the last write wins.
func ResponseCache(store cache.Store, prefix string, ttl time.Duration, logger *zap.SugaredLogger) Middleware {
	return func(next http.Handler) http.Handler {
		if store == nil || ttl <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := CacheKey(prefix, r)
			ctx := r.Context()
			raw, ok, err := store.Get(ctx, key)
			if err != nil {
				logger.Warnw("cache lookup failed", "key", key, "error", err)
			}
			if ok {
				var cached cachedResponse
				if err := json.Unmarshal(raw, &cached); err == nil {
					w.Header().Set("Content-Type", cached.ContentType)
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(http.StatusOK)
					_, _ = w.Write(cached.Body)
					return
				}
				logger.Warnw("discarding unreadable cache entry", "key", key)
			}

			w.Header().Set("X-Cache", "MISS")
			rec := &bodyRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status != http.StatusOK {
				return
			}

			payload, err := json.Marshal(cachedResponse{
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if err := store.Set(ctx, key, payload, ttl); err != nil {
				logger.Warnw("cache store failed", "key", key, "error", err)
			}
		})
	}
}
