package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "dormly/pkg/errors"
	httputil "dormly/pkg/http"
	"dormly/pkg/logger"
)

type KeyExtractor func(r *http.Request) string

// RequesterRateLimiter is a sliding-window limiter keyed per caller.
type RequesterRateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor KeyExtractor
	log       *logger.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewRequesterRateLimiter(limit int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *RequesterRateLimiter {
	if extractor == nil {
		extractor = DefaultKeyExtractor
	}
	limiter := &RequesterRateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *RequesterRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RequesterRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RequesterRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamps := rl.requests[key]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

func RateLimit(limiter *RequesterRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.extractor(r)

			if !limiter.Allow(key) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestIDFrom(r),
					"key", key,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", limiter.retryAfter())
				reject(w, http.StatusTooManyRequests, apperrors.CodeBadRequest, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RequesterRateLimiter) retryAfter() string {
	return strconv.Itoa(max(int(rl.window.Seconds()), 1))
}

// DefaultKeyExtractor limits identified callers by requester id and the
// rest by client address.
func DefaultKeyExtractor(r *http.Request) string {
	if id := httputil.RequesterID(r); id != "" {
		return "requester:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
