package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Limiter throttles state-changing requests per client IP. Reads are
// never limited.
type Limiter struct {
	limiter *limiter.Limiter
	hits    int64
}

// NewLimiter builds a limiter from a formatted rate such as "60-M" or
// "5-S", backed by the in-process memory store.
func NewLimiter(formatted string) (*Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return &Limiter{limiter: limiter.New(memory.NewStore(), rate)}, nil
}

// Hits returns how many requests have been rejected.
func (rl *Limiter) Hits() int64 {
	return atomic.LoadInt64(&rl.hits)
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// Middleware creates HTTP middleware for rate limiting. onLimit writes the
// 429 response; nil falls back to a plain-text body.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ip := extractIP(r)
			lctx, err := rl.limiter.Get(r.Context(), ip)
			if err != nil {
				// Fail open: the memory store only errors on a cancelled context.
				slog.ErrorContext(r.Context(), "Failed to get rate limit context", "client_ip", ip, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				atomic.AddInt64(&rl.hits, 1)
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", ip,
					"limit", lctx.Limit,
					"method", r.Method,
					"path", r.URL.Path)
				if onLimit != nil {
					onLimit(w, r)
				} else {
					h.Set("Retry-After", "60")
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
