package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteIP(r *http.Request) string { return r.Header.Get("X-Test-IP") }

func newHandler(t *testing.T, rate string) (*Limiter, http.Handler) {
	t.Helper()
	rl, err := NewLimiter(rate)
	require.NoError(t, err)
	h := rl.Middleware(remoteIP, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	return rl, h
}

func do(h http.Handler, method, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "/api/transactions", nil)
	r.Header.Set("X-Test-IP", ip)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestNewLimiter_InvalidRate(t *testing.T) {
	_, err := NewLimiter("sixty")
	assert.Error(t, err)
}

func TestMiddleware_LimitsMutationsPerIP(t *testing.T) {
	rl, h := newHandler(t, "2-M")

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodPost, "1.1.1.1").Code)
	rec := do(h, http.MethodPut, "1.1.1.1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(h, http.MethodDelete, "1.1.1.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, int64(1), rl.Hits())

	// Other clients keep their own budget.
	assert.Equal(t, http.StatusNoContent, do(h, http.MethodPost, "2.2.2.2").Code)
}

func TestMiddleware_ReadsAreNotLimited(t *testing.T) {
	_, h := newHandler(t, "1-M")

	for i := 0; i < 5; i++ {
		rec := do(h, http.MethodGet, "1.1.1.1")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusNoContent, do(h, http.MethodPost, "1.1.1.1").Code)
}

func TestMiddleware_CustomOnLimit(t *testing.T) {
	rl, err := NewLimiter("1-H")
	require.NoError(t, err)

	called := false
	h := rl.Middleware(remoteIP, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do(h, http.MethodPost, "3.3.3.3")
	rec := do(h, http.MethodPost, "3.3.3.3")
	assert.True(t, called)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
